package notifier

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_Subscribe_Unsubscribe(t *testing.T) {
	n := New()

	ch := n.Subscribe()
	require.NotNil(t, ch)
	assert.Equal(t, 1, n.Len())

	n.Unsubscribe(ch)
	assert.Equal(t, 0, n.Len())

	_, open := <-ch
	assert.False(t, open, "channel is closed")

	// A second unsubscribe is a no-op.
	n.Unsubscribe(ch)
}

func TestNotifier_Publish(t *testing.T) {
	n := New()
	ch1 := n.Subscribe()
	ch2 := n.Subscribe()
	defer n.Unsubscribe(ch1)
	defer n.Unsubscribe(ch2)

	ev := n.Publish(nil)
	assert.Equal(t, uint64(1), ev.Generation)

	for _, ch := range []chan Event{ch1, ch2} {
		select {
		case got := <-ch:
			assert.Equal(t, ev, got)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("listener did not receive event")
		}
	}
}

func TestNotifier_Publish_KeepsLatest(t *testing.T) {
	n := New()
	ch := n.Subscribe()
	defer n.Unsubscribe(ch)

	n.Publish(nil)
	n.Publish(nil)
	last := n.Publish(errors.New("bad yaml"))

	got := <-ch
	assert.Equal(t, uint64(3), got.Generation)
	assert.EqualError(t, got.Err, "bad yaml")
	assert.Equal(t, last, got)

	select {
	case <-ch:
		t.Fatal("stale events were not dropped")
	default:
	}
}

func TestNotifier_Concurrent(t *testing.T) {
	n := New()
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := n.Subscribe()
			n.Publish(nil)
			n.Unsubscribe(ch)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, n.Len())
}
