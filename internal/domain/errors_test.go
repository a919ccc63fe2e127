package domain_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/memora-labs/memora/internal/domain"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unavailable is retryable", domain.ErrUnavailable, true},
		{"rate limited is retryable", domain.ErrRateLimited, true},
		{"wrapped retryable", fmt.Errorf("ask: %w", domain.ErrRateLimited), true},
		{"not found is not retryable", domain.ErrNotFound, false},
		{"generation failure is not retryable", domain.ErrGenerationFailed, false},
		{"nil is not retryable", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.IsRetryable(tt.err))
		})
	}
}

func TestIsClientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"invalid input", domain.ErrInvalidInput, true},
		{"oversized text", domain.ErrTextTooLarge, true},
		{"empty ID", domain.ErrEmptyID, true},
		{"wrapped client error", fmt.Errorf("ingest: %w", domain.ErrInvalidID), true},
		{"unavailable is not a client error", domain.ErrUnavailable, false},
		{"credential failure is not a client error", domain.ErrCredentialUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.IsClientError(tt.err))
		})
	}
}

func TestIsFatalStartup(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"missing config key", domain.ErrConfigRequired, true},
		{"malformed config value", domain.ErrConfigInvalid, true},
		{"port unavailable", fmt.Errorf("listen: %w", domain.ErrPortUnavailable), true},
		{"rate limited is not fatal", domain.ErrRateLimited, false},
		{"credential failure is deferred to downstream calls", domain.ErrCredentialUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.IsFatalStartup(tt.err))
		})
	}
}
