package notifier

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_SubscribeUnsubscribe(t *testing.T) {
	n := New()

	ch := n.Subscribe()
	require.NotNil(t, ch)
	assert.Equal(t, 1, n.Len())

	n.Unsubscribe(ch)
	assert.Equal(t, 0, n.Len())

	_, open := <-ch
	assert.False(t, open, "channel should be closed")

	// second unsubscribe is a no-op
	n.Unsubscribe(ch)
}

func TestNotifier_Broadcast(t *testing.T) {
	n := New()

	ch1 := n.Subscribe()
	ch2 := n.Subscribe()
	defer n.Unsubscribe(ch1)
	defer n.Unsubscribe(ch2)

	n.Broadcast(Event{Input: "models", Outcome: "woven"})

	for _, ch := range []chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, "models", ev.Input)
			assert.Equal(t, "woven", ev.Outcome)
			assert.False(t, ev.At.IsZero())
		case <-time.After(100 * time.Millisecond):
			t.Fatal("listener did not receive broadcast")
		}
	}
}

func TestNotifier_BroadcastNonBlocking(t *testing.T) {
	n := New()

	ch := n.Subscribe()
	defer n.Unsubscribe(ch)

	n.Broadcast(Event{Outcome: "woven"})

	done := make(chan struct{})
	go func() {
		n.Broadcast(Event{Outcome: "failed"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Broadcast blocked on full channel")
	}

	ev := <-ch
	assert.Equal(t, "woven", ev.Outcome, "the undelivered event is kept")
}

func TestNotifier_Last(t *testing.T) {
	n := New()

	_, ok := n.Last()
	assert.False(t, ok)

	boom := errors.New("boom")
	n.Broadcast(Event{Outcome: "woven"})
	n.Broadcast(Event{Outcome: "failed", Err: boom})

	last, ok := n.Last()
	require.True(t, ok)
	assert.Equal(t, "failed", last.Outcome)
	assert.ErrorIs(t, last.Err, boom)
}

func TestNotifier_Concurrent(t *testing.T) {
	n := New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := n.Subscribe()
			n.Broadcast(Event{Outcome: "woven"})
			n.Unsubscribe(ch)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, n.Len())
}
