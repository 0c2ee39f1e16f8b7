package mqttsn

import (
	"testing"
	"time"
)

// A re-armed timer bumps its epoch, so a fire from the timer it replaced
// is recognised as stale and ignored (spec.md §5, §8 invariant 2).
func TestTimerEpochInvalidatesStaleFire(t *testing.T) {
	events := make(chan event, 4)
	ts := newTimers(events)

	ts.arm(timerConnect, time.Hour)
	stale := timerExpiry{kind: timerConnect, epoch: ts.epoch[timerConnect]}

	ts.arm(timerConnect, time.Hour) // replaces the timer, bumps the epoch

	if ts.valid(stale) {
		t.Fatal("expected the superseded epoch to be invalid")
	}
	fresh := timerExpiry{kind: timerConnect, epoch: ts.epoch[timerConnect]}
	if !ts.valid(fresh) {
		t.Fatal("expected the current epoch to be valid")
	}
}

func TestTimerStopThenArmIsIdempotent(t *testing.T) {
	events := make(chan event, 4)
	ts := newTimers(events)

	ts.stop(timerPing) // no-op, nothing armed yet
	ts.arm(timerPing, time.Hour)
	ts.stop(timerPing)

	if ts.t[timerPing] != nil {
		t.Fatal("expected stop to clear the timer slot")
	}
}

// stopAll must clear every slot, used on session reset.
func TestTimersStopAllClearsEverySlot(t *testing.T) {
	events := make(chan event, 4)
	ts := newTimers(events)

	ts.arm(timerConnect, time.Hour)
	ts.arm(timerRegister, time.Hour)
	ts.arm(timerSubscribe, time.Hour)
	ts.arm(timerPing, time.Hour)

	ts.stopAll()

	for k := timerConnect; k <= timerPing; k++ {
		if ts.t[k] != nil {
			t.Fatalf("expected %s cleared after stopAll", k)
		}
	}
}
