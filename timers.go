package mqttsn

import "time"

// timerKind identifies which of the four logical timers (spec.md §4.4)
// fired.
type timerKind uint8

const (
	timerConnect timerKind = iota
	timerRegister
	timerSubscribe
	timerPing
)

func (k timerKind) String() string {
	switch k {
	case timerConnect:
		return "connect_timer"
	case timerRegister:
		return "register_timer"
	case timerSubscribe:
		return "subscribe_timer"
	case timerPing:
		return "ping_timer"
	default:
		return "unknown_timer"
	}
}

// timerExpiry is posted to the session's event channel when a one-shot
// timer fires. epoch lets the single run-loop goroutine discard a fire
// that raced a Stop/re-arm — it is harmless when stale because the head
// task will already have been popped (spec.md §5).
type timerExpiry struct {
	kind  timerKind
	epoch uint64
}

// timers manages the four one-shot timers of spec.md §4.4. All of them
// post to the same channel the run-loop already drains for inbound
// packets and user calls — "use channel-like queues for event posting"
// (spec.md §9 Design Notes) — so timer callbacks (which run on their own
// goroutine, per package time) never touch session state directly.
type timers struct {
	events chan<- event
	t      [4]*time.Timer
	epoch  [4]uint64
}

func newTimers(events chan<- event) *timers {
	return &timers{events: events}
}

// arm (re)starts the named timer after d, replacing any timer already
// running for that slot. At most one of connect/register/subscribe is
// ever armed at a time because only the head task is in flight
// (spec.md §4.4, §8 invariant 2); ping runs independently.
func (ts *timers) arm(kind timerKind, d time.Duration) {
	ts.stop(kind)
	ts.epoch[kind]++
	epoch := ts.epoch[kind]
	ts.t[kind] = time.AfterFunc(d, func() {
		ts.events <- event{kind: eventTimer, timer: timerExpiry{kind: kind, epoch: epoch}}
	})
}

// stop cancels the named timer if armed; it is a no-op otherwise.
func (ts *timers) stop(kind timerKind) {
	if ts.t[kind] != nil {
		ts.t[kind].Stop()
		ts.t[kind] = nil
		ts.epoch[kind]++ // a fire already in flight is now stale
	}
}

// stopAll cancels every timer, used on session reset (spec.md §7
// "Session reset").
func (ts *timers) stopAll() {
	for k := timerConnect; k <= timerPing; k++ {
		ts.stop(k)
	}
}

// valid reports whether a received expiry still corresponds to the
// currently-armed instance of that timer.
func (ts *timers) valid(exp timerExpiry) bool {
	return ts.epoch[exp.kind] == exp.epoch
}
