package mem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sv39kernel/src/oommsg"
)

func TestNotifyOomNeverBlocksWithoutAReceiver(t *testing.T) {
	done := make(chan struct{})
	go func() {
		notifyOom(1)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notifyOom blocked despite no receiver on oommsg.OomCh")
	}
}

func TestNotifyOomDeliversToAWaitingReceiver(t *testing.T) {
	recv := make(chan oommsg.Oommsg_t)
	go func() { recv <- <-oommsg.OomCh }()

	// Keep retrying the non-blocking send until the receiver goroutine
	// above has reached its <-oommsg.OomCh and claims one.
	var got oommsg.Oommsg_t
	for {
		select {
		case got = <-recv:
			require.Equal(t, 1, got.Need)
			assert.NotNil(t, got.Resume)
			return
		default:
			notifyOom(1)
		}
	}
}
