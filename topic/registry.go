// Package topic implements the client-side topic-identifier registry:
// a fixed-capacity table mapping locally pre-declared topic names to the
// numeric ids a gateway assigns them (spec.md §3, §4.2).
package topic

import "errors"

// SubState tracks a registry slot's subscription lifecycle. It only ever
// advances NONE -> PENDING -> SUBSCRIBED within a session; a reconnect
// resets every slot back to NONE (spec.md §4.2).
type SubState uint8

const (
	None SubState = iota
	Pending
	Subscribed
)

func (s SubState) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Subscribed:
		return "SUBSCRIBED"
	default:
		return "NONE"
	}
}

// unassignedID is the sentinel stored in Entry.ID before a gateway binds
// a real topic id (spec.md §3).
const unassignedID = 0xFF

// Entry is one slot of the registry.
type Entry struct {
	Name     string
	ID       uint8
	SubState SubState
}

var (
	ErrFull       = errors.New("mqttsn: topic registry is full")
	ErrNameInUse  = errors.New("mqttsn: topic name already registered")
	ErrNoSuchSlot = errors.New("mqttsn: no such registry slot")
)

// Registry is a fixed-capacity, index-addressed table of topic entries.
// Index 0 is reserved and never used as a valid slot: a SUBACK whose
// TopicId is 0 signals a wildcard acknowledgement rather than a bound
// topic (spec.md §3, §9).
type Registry struct {
	entries []Entry
}

// New builds a registry with room for capacity entries (including the
// reserved index 0); spec.md's default MAX_TOPIC_USED is 100.
func New(capacity int) *Registry {
	r := &Registry{entries: make([]Entry, capacity)}
	r.Reset()
	return r
}

// Reset clears every slot to its post-init state, preserving index 0 as
// reserved (spec.md §4.2 "reset()").
func (r *Registry) Reset() {
	for i := range r.entries {
		r.entries[i] = Entry{ID: unassignedID}
	}
}

// Cap reports the registry's total slot count (including the reserved slot).
func (r *Registry) Cap() int {
	return len(r.entries)
}

// At returns the entry at index, or false if index is out of range or
// reserved (index 0).
func (r *Registry) At(index int) (Entry, bool) {
	if index <= 0 || index >= len(r.entries) {
		return Entry{}, false
	}
	return r.entries[index], true
}

// LookupByName performs the linear scan spec.md §4.2 calls for.
func (r *Registry) LookupByName(name string) (int, bool) {
	for i := 1; i < len(r.entries); i++ {
		if r.entries[i].ID != unassignedID && r.entries[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

// LookupByID performs the linear scan spec.md §4.2 calls for. Only the
// low byte of the broker-provided id is ever stored (spec.md §3, §9),
// so id is a uint8 here, not the wire's uint16.
func (r *Registry) LookupByID(id uint8) (int, bool) {
	for i := 1; i < len(r.entries); i++ {
		if r.entries[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

// FirstFree returns the smallest slot that is neither bound nor already
// holding a pre-placed name. A slot stops being free the moment Place
// gives it a name, even though its id stays unassigned until Bind runs
// later on REGACK — otherwise two Places in a row before any Bind would
// both land on the same slot.
func (r *Registry) FirstFree() (int, bool) {
	for i := 1; i < len(r.entries); i++ {
		if r.entries[i].ID == unassignedID && r.entries[i].Name == "" {
			return i, true
		}
	}
	return 0, false
}

// Place pre-declares a topic name at the next free slot, leaving its id
// unassigned until Bind is called (used by the session manager's initial
// REGISTER sequence and by reconnection replay, spec.md §4.6).
func (r *Registry) Place(name string) (int, error) {
	if _, ok := r.LookupByName(name); ok {
		return 0, ErrNameInUse
	}
	index, ok := r.FirstFree()
	if !ok {
		return 0, ErrFull
	}
	r.entries[index].Name = name
	return index, nil
}

// Bind assigns id to an existing slot. Idempotent if the id already
// matches (spec.md §4.2 invariant).
func (r *Registry) Bind(index int, id uint8) error {
	if index <= 0 || index >= len(r.entries) {
		return ErrNoSuchSlot
	}
	r.entries[index].ID = id
	return nil
}

// SetSubState updates a slot's subscription state.
func (r *Registry) SetSubState(index int, state SubState) error {
	if index <= 0 || index >= len(r.entries) {
		return ErrNoSuchSlot
	}
	r.entries[index].SubState = state
	return nil
}

// NameByID is the reverse lookup used to deliver an inbound PUBLISH to
// the user callback with its topic name rather than its numeric id
// (spec.md §4.5, rx PUBLISH).
func (r *Registry) NameByID(id uint8) (string, bool) {
	index, ok := r.LookupByID(id)
	if !ok {
		return "", false
	}
	return r.entries[index].Name, true
}

// IsWildcard reports whether a topic filter contains a multi-level (#)
// or single-level (+) wildcard, per the MQTT-SN wildcard grammar
// (spec.md §4.5 subscribe policy, GLOSSARY).
func IsWildcard(name string) bool {
	for i := 0; i < len(name); i++ {
		if name[i] == '#' || name[i] == '+' {
			return true
		}
	}
	return false
}
