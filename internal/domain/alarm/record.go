package alarm

import "time"

// EventRecord is the reportable snapshot of a condition or branch.
// Sub-state fields are meaningful only when the matching capability is set.
type EventRecord struct {
	// EventID identifies this event for acknowledge and confirm requests.
	EventID EventID
	// BranchID is set when the record describes a branch.
	BranchID EventID
	// Identity is the alarm correlation key "source/name".
	Identity string
	// Source is the owning source of the alarm.
	Source string
	// Name is the alarm name within the source.
	Name string
	// Category is the alarm category.
	Category Category
	// Capabilities tell which optional sub-states are present.
	Capabilities Capabilities
	// Time is when the event was reported.
	Time time.Time
	// Active reports whether the condition holds.
	Active bool
	// Severity is the current severity.
	Severity int
	// Message describes the transition.
	Message string
	// Value is the trigger sample behind the state.
	Value Value
	// Acknowledged is the acknowledged sub-state.
	Acknowledged bool
	// Confirmed is the confirmed sub-state.
	Confirmed bool
	// Suppressed is the suppressed sub-state.
	Suppressed bool
	// Shelving is the shelving sub-state.
	Shelving ShelvingKind
	// ShelvingExpiry is set for shelves with an expiry.
	ShelvingExpiry time.Time
	// Latched is the latched sub-state.
	Latched bool
	// Retain tells whether the record belongs in a condition refresh.
	Retain bool
	// Band is the exclusive limit band.
	Band LimitBand
	// Levels are the active level bands.
	Levels LevelSet
	// Comment is the comment of the last operator command.
	Comment string
	// Actor issued the last operator command.
	Actor *Actor
}

// IsBranch reports whether the record describes a branch.
func (r *EventRecord) IsBranch() bool {
	return len(r.BranchID) > 0
}

// Clone returns a deep copy of the record.
func (r *EventRecord) Clone() *EventRecord {
	cloned := *r
	cloned.EventID = append(EventID(nil), r.EventID...)
	cloned.BranchID = append(EventID(nil), r.BranchID...)
	cloned.Actor = r.Actor.Clone()

	return &cloned
}
