package alarm

import (
	"maps"
	"time"
)

// ShelvingKind is the state of the shelving sub-state machine.
type ShelvingKind uint8

const (
	// Unshelved is the resting state.
	Unshelved ShelvingKind = iota
	// TimedShelved lasts until its expiry or an explicit unshelve.
	TimedShelved
	// OneShotShelved lasts until the alarm next clears.
	OneShotShelved
)

// String returns the wire name of the shelving state.
func (k ShelvingKind) String() string {
	switch k {
	case TimedShelved:
		return "timed_shelved"
	case OneShotShelved:
		return "one_shot_shelved"
	default:
		return "unshelved"
	}
}

// ParseShelvingKind is the inverse of ShelvingKind.String.
func ParseShelvingKind(s string) ShelvingKind {
	switch s {
	case "timed_shelved":
		return TimedShelved
	case "one_shot_shelved":
		return OneShotShelved
	default:
		return Unshelved
	}
}

// Shelving is the shelving sub-state of an alarm.
type Shelving struct {
	// Kind is the current shelving state.
	Kind ShelvingKind
	// Expiry is when a timed (or bounded one-shot) shelve ends. Zero means none.
	Expiry time.Time
	// generation changes on every shelving transition so stale timers can tell they lost.
	generation uint64
}

// Generation returns the current shelving generation.
func (s *Shelving) Generation() uint64 {
	return s.generation
}

// reset returns to Unshelved and invalidates outstanding timers.
func (s *Shelving) reset() {
	s.Kind = Unshelved
	s.Expiry = time.Time{}
	s.generation++
}

// Condition is the state of one occurrence: the main condition or a branch.
type Condition struct {
	// EventID is the id of the last event reported for this occurrence.
	EventID EventID
	// BranchID is set for branches and nil for the main condition.
	BranchID EventID
	// Time is when the last event was reported.
	Time time.Time
	// Active reports whether the alarm condition holds.
	Active bool
	// Severity is the current severity in [SeverityMin, SeverityMax].
	Severity int
	// Message is the human-readable description of the last transition.
	Message string
	// Value is the trigger sample the state was computed from.
	Value Value
	// Acknowledged is meaningful only with Capabilities.Acknowledge.
	Acknowledged bool
	// Confirmed is meaningful only with Capabilities.Confirm.
	Confirmed bool
	// Suppressed is meaningful only with Capabilities.Suppress.
	Suppressed bool
	// Shelving is meaningful only with Capabilities.Shelve and only on the main condition.
	Shelving Shelving
	// Latched is meaningful only with Capabilities.Latch.
	Latched bool
	// Retain is derived; it is never set directly by commands.
	Retain bool
	// Band is the exclusive limit band.
	Band LimitBand
	// Levels are the active bands of a level alarm.
	Levels LevelSet
	// Comment is the comment of the last operator command.
	Comment string
	// Actor issued the last operator command.
	Actor *Actor

	// occurred is set once the occurrence has tripped at least once.
	occurred bool
	// ids holds every event id reported for this occurrence.
	ids map[string]struct{}
}

// Clone returns a deep copy of the condition.
func (c *Condition) Clone() *Condition {
	cloned := *c
	cloned.EventID = append(EventID(nil), c.EventID...)
	cloned.BranchID = append(EventID(nil), c.BranchID...)
	cloned.Actor = c.Actor.Clone()
	cloned.ids = maps.Clone(c.ids)

	return &cloned
}

// IsBranch reports whether the condition is a branch.
func (c *Condition) IsBranch() bool {
	return len(c.BranchID) > 0
}

// owns reports whether id was reported for this occurrence.
func (c *Condition) owns(id EventID) bool {
	if len(id) == 0 {
		return false
	}

	_, ok := c.ids[id.key()]

	return ok
}

// issue stamps a fresh event id onto the occurrence.
func (c *Condition) issue(id EventID, now time.Time) {
	if c.ids == nil {
		c.ids = make(map[string]struct{})
	}

	c.EventID = id
	c.Time = now
	c.ids[id.key()] = struct{}{}
}

// awaitingOperator reports whether acknowledgement or confirmation is outstanding.
func (c *Condition) awaitingOperator(caps Capabilities) bool {
	return (caps.Acknowledge && !c.Acknowledged) || (caps.Confirm && !c.Confirmed)
}

// visibleEqual compares the sub-states clients can observe.
func (c *Condition) visibleEqual(other *Condition) bool {
	return c.Active == other.Active &&
		c.Severity == other.Severity &&
		c.Acknowledged == other.Acknowledged &&
		c.Confirmed == other.Confirmed &&
		c.Suppressed == other.Suppressed &&
		c.Shelving.Kind == other.Shelving.Kind &&
		c.Latched == other.Latched &&
		c.Retain == other.Retain &&
		c.Band == other.Band &&
		c.Levels == other.Levels
}
