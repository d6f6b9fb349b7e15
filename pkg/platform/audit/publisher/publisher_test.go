package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "modzero/pkg/domain"
	audit "modzero/pkg/platform/audit"
	"modzero/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	userID := id.NewUserID()
	event := audit.Event{
		UserID: userID,
		Action: string(audit.EventUserCreated),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventUserCreated), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.False(t, events[0].Timestamp.IsZero(), "zero timestamp must be stamped")
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))

	userID := id.NewUserID()
	event := audit.Event{
		UserID: userID,
		Action: string(audit.EventAttemptEvaluated),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	// Close drains the buffer before returning
	pub.Close()

	events, err := pub.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventAttemptEvaluated), events[0].Action)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	userID := id.NewUserID()

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			UserID: userID,
			Action: string(audit.EventCheckpointRecorded),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := pub.List(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, events, 10)
}

// failingSink always errors; sink failures must never surface to the emitter.
type failingSink struct {
	mu    sync.Mutex
	calls int
}

func (s *failingSink) Append(context.Context, audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return errors.New("broker unreachable")
}

func TestPublisher_SinkFailureDoesNotSurface(t *testing.T) {
	store := memory.NewInMemoryStore()
	sink := &failingSink{}
	pub := NewPublisher(store, WithSink(sink))
	defer pub.Close()

	userID := id.NewUserID()
	err := pub.Emit(context.Background(), audit.Event{
		UserID:    userID,
		Action:    string(audit.EventTokenIssued),
		Timestamp: time.Now(),
	})
	require.NoError(t, err)

	sink.mu.Lock()
	assert.Equal(t, 1, sink.calls)
	sink.mu.Unlock()

	events, err := pub.List(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, events, 1, "store append must succeed despite sink failure")
}
