package adapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memora-labs/memora/internal/kafka"
	"github.com/memora-labs/memora/internal/memory/adapter"
	"github.com/memora-labs/memora/internal/memory/app"
)

type stubMessageWriter struct {
	err      error
	messages []kafka.Message
}

func (s *stubMessageWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msgs...)
	return nil
}

func TestKafkaEventPublisher_MemoryIngested(t *testing.T) {
	ctx := context.Background()
	event := app.IngestedEvent{
		ProjectID: "proj-42",
		ChunkIDs:  []string{"aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"},
		Tags:      []string{"taste"},
		At:        time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	t.Run("produces one message keyed by project", func(t *testing.T) {
		writer := &stubMessageWriter{}
		pub := adapter.NewKafkaEventPublisher(writer)

		err := pub.MemoryIngested(ctx, event)

		require.NoError(t, err)
		require.Len(t, writer.messages, 1)
		assert.Equal(t, []byte("proj-42"), writer.messages[0].Key)

		var decoded app.IngestedEvent
		require.NoError(t, json.Unmarshal(writer.messages[0].Value, &decoded))
		assert.Equal(t, event, decoded)
	})

	t.Run("writer failure wraps with context", func(t *testing.T) {
		writer := &stubMessageWriter{err: errors.New("broker unreachable")}
		pub := adapter.NewKafkaEventPublisher(writer)

		err := pub.MemoryIngested(ctx, event)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "kafka events: publish ingest event")
	})
}
