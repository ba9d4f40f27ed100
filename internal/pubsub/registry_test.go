package pubsub

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/internal/domain"
)

type stubSink struct {
	id string
}

func (s *stubSink) SessionID() string { return s.id }

func (s *stubSink) Deliver(ctx context.Context, ev domain.Event) error { return nil }

func TestRegistry_SubscribeIdempotent(t *testing.T) {
	r := NewRegistry()
	sink := &stubSink{id: "s1"}

	r.Subscribe(sink, "incidents")
	r.Subscribe(sink, "incidents")
	r.Subscribe(sink, "incidents")

	assert.Equal(t, 1, r.SubscriptionCount())
	assert.Equal(t, 1, r.SessionCount())
	assert.True(t, r.IsSubscribed("s1", "incidents"))

	subs := r.SubscribersOf("incidents")
	require.Len(t, subs, 1)
	assert.Equal(t, "s1", subs[0].SessionID())
}

func TestRegistry_UnsubscribeRemovesEmptyChannel(t *testing.T) {
	r := NewRegistry()
	r.Subscribe(&stubSink{id: "s1"}, "incidents")

	r.Unsubscribe("s1", "incidents")

	assert.Empty(t, r.SubscribersOf("incidents"))
	assert.Equal(t, 0, r.SessionCount())
	assert.False(t, r.IsSubscribed("s1", "incidents"))
}

func TestRegistry_UnsubscribeUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Subscribe(&stubSink{id: "s1"}, "incidents")

	r.Unsubscribe("ghost", "incidents")
	r.Unsubscribe("s1", "no-such-channel")

	assert.True(t, r.IsSubscribed("s1", "incidents"))
	assert.Equal(t, 1, r.SubscriptionCount())
}

func TestRegistry_DropSessionRemovesAllSubscriptions(t *testing.T) {
	r := NewRegistry()
	s1 := &stubSink{id: "s1"}
	s2 := &stubSink{id: "s2"}

	r.Subscribe(s1, "incidents")
	r.Subscribe(s1, "chat")
	r.Subscribe(s2, "incidents")

	r.DropSession("s1")

	assert.False(t, r.IsSubscribed("s1", "incidents"))
	assert.False(t, r.IsSubscribed("s1", "chat"))
	assert.True(t, r.IsSubscribed("s2", "incidents"))
	assert.Equal(t, 1, r.SessionCount())
	assert.Equal(t, 1, r.SubscriptionCount())
}

func TestRegistry_DropUnknownSessionIsSafe(t *testing.T) {
	r := NewRegistry()
	assert.NotPanics(t, func() { r.DropSession("never-subscribed") })
}

func TestRegistry_SubscribersOfIsSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Subscribe(&stubSink{id: "s1"}, "incidents")

	snap := r.SubscribersOf("incidents")
	r.DropSession("s1")

	// The snapshot taken before the drop is unaffected.
	require.Len(t, snap, 1)
	assert.Empty(t, r.SubscribersOf("incidents"))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			sink := &stubSink{id: id}
			r.Subscribe(sink, "incidents")
			r.Subscribe(sink, "chat")
			r.SubscribersOf("incidents")
			if i%2 == 0 {
				r.DropSession(id)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, r.SessionCount())
	assert.Equal(t, 50, r.SubscriptionCount())
}
