package events_test

import (
	"testing"

	"github.com/nac-codes/blockbard/foundation/events"
)

func Test_Events(t *testing.T) {
	evts := events.New()
	ch := evts.Acquire("sub1")

	evts.Send("block mined")

	select {
	case ev := <-ch:
		if ev.Message != "block mined" {
			t.Fatalf("Test:\tShould receive the sent message, got %q.", ev.Message)
		}
		if ev.At.IsZero() {
			t.Fatalf("Test:\tShould stamp the event with a time.")
		}
	default:
		t.Fatalf("Test:\tShould have an event waiting on the channel.")
	}

	// A subscriber that stops draining must never block the sender.
	for i := 0; i < 200; i++ {
		evts.Send("overflow")
	}

	if err := evts.Release("sub1"); err != nil {
		t.Fatalf("Test:\tShould release an acquired subscriber: %s", err)
	}
	if err := evts.Release("sub1"); err == nil {
		t.Fatalf("Test:\tShould not release the same subscriber twice.")
	}

	// Shutdown closes whatever is still registered.
	ch2 := evts.Acquire("sub2")
	evts.Shutdown()

	if _, wd := <-ch2; wd {
		t.Fatalf("Test:\tShould have a closed channel after shutdown.")
	}
}
