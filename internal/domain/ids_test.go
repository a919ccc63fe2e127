package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memora-labs/memora/internal/domain"
)

func TestNewProjectID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"valid short ID", "notes-2026", nil},
		{"empty is rejected", "", domain.ErrEmptyID},
		{"overlong is rejected", strings.Repeat("p", domain.MaxTagLength+1), domain.ErrInvalidID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := domain.NewProjectID(tt.raw)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, id.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.raw, id.String())
		})
	}
}

func TestNewChunkID(t *testing.T) {
	t.Run("valid UUID is accepted", func(t *testing.T) {
		id, err := domain.NewChunkID("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")

		require.NoError(t, err)
		assert.Equal(t, "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee", id.String())
	})

	t.Run("empty is rejected", func(t *testing.T) {
		_, err := domain.NewChunkID("")

		assert.ErrorIs(t, err, domain.ErrEmptyID)
	})

	t.Run("non-UUID is rejected", func(t *testing.T) {
		_, err := domain.NewChunkID("not-a-uuid")

		assert.ErrorIs(t, err, domain.ErrInvalidID)
	})
}

func TestGenerateChunkID(t *testing.T) {
	a := domain.GenerateChunkID()
	b := domain.GenerateChunkID()

	assert.False(t, a.IsZero())
	assert.NotEqual(t, a.String(), b.String())

	// Round-trips through validation.
	_, err := domain.NewChunkID(a.String())
	assert.NoError(t, err)
}
