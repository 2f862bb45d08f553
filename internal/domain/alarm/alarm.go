package alarm

import (
	"errors"
	"fmt"
	"time"
)

// errNilSequence is returned by New without an id sequence.
var errNilSequence = errors.New("event id sequence is required")

// Alarm is one condition instance with its branches.
type Alarm struct {
	// def is the immutable registration-time definition.
	def Definition
	// behavior is the dispatch table entry for def.Variant.Category.
	behavior behavior
	// seq issues event and branch ids; it belongs to the owner.
	seq *Sequence
	// main is the current occurrence.
	main *Condition
	// branches are unresolved prior occurrences.
	branches branchRegistry
	// last is the last observed trigger value.
	last Value
	// lastClass is the classification applied by the last update.
	lastClass Classification
}

// New builds an inactive alarm from a validated definition.
func New(def Definition, seq *Sequence) (*Alarm, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	if seq == nil {
		return nil, errNilSequence
	}

	return &Alarm{
		def:      def,
		behavior: behaviors[def.Variant.Category],
		seq:      seq,
		main: &Condition{
			Severity: SeverityInactive,
		},
	}, nil
}

// Identity returns the correlation key "source/name".
func (a *Alarm) Identity() string {
	return a.def.Identity()
}

// Definition returns the registration-time definition.
func (a *Alarm) Definition() Definition {
	return a.def
}

// Category returns the fixed category.
func (a *Alarm) Category() Category {
	return a.def.Variant.Category
}

// Capabilities returns the enabled optional features.
func (a *Alarm) Capabilities() Capabilities {
	return a.def.Capabilities
}

// Condition returns a copy of the main condition.
func (a *Alarm) Condition() *Condition {
	return a.main.Clone()
}

// Branches returns copies of the open branches, oldest first.
func (a *Alarm) Branches() []*Condition {
	branches := a.branches.list()
	result := make([]*Condition, 0, len(branches))

	for _, branch := range branches {
		result = append(result, branch.Clone())
	}

	return result
}

// HasBranches reports whether any branch is open.
func (a *Alarm) HasBranches() bool {
	return a.branches.has()
}

// BranchesCreated counts every branch created over the alarm's lifetime.
func (a *Alarm) BranchesCreated() uint64 {
	return a.branches.created
}

// Owns reports whether id addresses the main condition or one of the branches.
func (a *Alarm) Owns(id EventID) bool {
	_, err := a.locate(id)

	return err == nil
}

// Update samples the feed and advances the condition.
// It returns the records to publish; none is a normal outcome.
func (a *Alarm) Update(feed TriggerFeed, force bool, now time.Time) ([]EventRecord, error) {
	return a.update(Sample(feed), force, "", now)
}

// WriteTrigger writes v to the feed and, if v differs from the last observed
// value, runs a forced update noting the manual write.
func (a *Alarm) WriteTrigger(feed TriggerFeed, v Value, now time.Time) ([]EventRecord, error) {
	writer, ok := feed.(TriggerWriter)
	if !ok {
		return nil, ErrReadOnlyTrigger
	}

	if err := checkShape(a.Category(), v); err != nil {
		return nil, err
	}

	if v.Equal(a.last) {
		return nil, nil
	}

	if err := writer.Write(v); err != nil {
		return nil, fmt.Errorf("write trigger: %w", err)
	}

	return a.update(Sample(feed), true, "Trigger manually written: "+v.String(), now)
}

// Acknowledge acknowledges the occurrence that reported id.
func (a *Alarm) Acknowledge(id EventID, comment string, actor *Actor, now time.Time) (EventRecord, error) {
	target, err := a.locate(id)
	if err != nil {
		return EventRecord{}, err
	}

	if !a.def.Capabilities.Acknowledge {
		return EventRecord{}, ErrNotAcknowledgeable
	}

	if target.Acknowledged {
		return EventRecord{}, ErrAlreadyAcknowledged
	}

	target.Acknowledged = true
	target.Comment = comment
	target.Actor = actor.Clone()
	target.Message = withComment("Acknowledged by "+actor.String(), comment)

	return a.commit(target, now), nil
}

// Confirm confirms the occurrence that reported id.
func (a *Alarm) Confirm(id EventID, comment string, actor *Actor, now time.Time) (EventRecord, error) {
	target, err := a.locate(id)
	if err != nil {
		return EventRecord{}, err
	}

	if !a.def.Capabilities.Confirm {
		return EventRecord{}, ErrNotConfirmable
	}

	if target.Confirmed {
		return EventRecord{}, ErrAlreadyConfirmed
	}

	target.Confirmed = true
	target.Comment = comment
	target.Actor = actor.Clone()
	target.Message = withComment("Confirmed by "+actor.String(), comment)

	return a.commit(target, now), nil
}

// Reset releases a latched alarm once it is no longer active.
func (a *Alarm) Reset(id EventID, actor *Actor, now time.Time) (EventRecord, error) {
	if _, err := a.locate(id); err != nil {
		return EventRecord{}, err
	}

	switch {
	case !a.def.Capabilities.Latch:
		return EventRecord{}, ErrNotLatchable
	case !a.main.Latched:
		return EventRecord{}, ErrNotLatched
	case a.main.Active:
		return EventRecord{}, ErrStillActive
	}

	a.main.Latched = false
	a.main.Actor = actor.Clone()
	a.main.Message = "Latch reset by " + actor.String()

	return a.commit(a.main, now), nil
}

// Retained lists the main condition and every branch that must appear in a condition refresh.
func (a *Alarm) Retained() []EventRecord {
	var records []EventRecord

	if a.main.Retain && len(a.main.EventID) > 0 {
		records = append(records, a.record(a.main))
	}

	for _, branch := range a.branches.list() {
		if branch.Retain {
			records = append(records, a.record(branch))
		}
	}

	return records
}

// Restore rebuilds the main condition and branches from persisted records of this alarm.
// Shelving is not restored.
func (a *Alarm) Restore(records []EventRecord) {
	a.branches.clear()

	for i := range records {
		rec := &records[i]
		if rec.Identity != a.Identity() {
			continue
		}

		restored := conditionFromRecord(rec)

		if rec.IsBranch() {
			branch := a.branches.create(restored, append(EventID(nil), rec.BranchID...))
			branch.Retain = branch.awaitingOperator(a.def.Capabilities)

			continue
		}

		restored.Shelving = Shelving{generation: a.main.Shelving.generation}
		a.main = restored
		a.last = restored.Value
		a.lastClass = Classification{
			Active:   restored.Active,
			Severity: restored.Severity,
			Band:     restored.Band,
			Levels:   restored.Levels,
		}
		a.refreshMain()
	}
}

// update applies one classified input.
func (a *Alarm) update(in Input, force bool, note string, now time.Time) ([]EventRecord, error) {
	next, err := a.behavior.classify(&a.def.Variant, in)
	if err != nil {
		return nil, err
	}

	caps := a.def.Capabilities
	previous := a.main.Clone()
	a.last = in.Value

	// A new trip either branches an unresolved occurrence or overwrites it.
	var branch *Condition
	if a.behavior.trips(a.lastClass, next) {
		branch = a.branchPrevious()
		a.beginOccurrence()
	}

	// One-shot shelving ends on the next active to inactive edge.
	shelvingChanged := false
	if a.main.Active && !next.Active && a.main.Shelving.Kind == OneShotShelved {
		a.main.Shelving.reset()

		shelvingChanged = true
	}

	a.main.Active = next.Active
	a.main.Severity = next.Severity
	a.main.Band = next.Band
	a.main.Levels = next.Levels
	a.main.Value = in.Value
	a.lastClass = next

	if caps.Suppress {
		switch {
		case !a.main.Suppressed && in.Suppress:
			a.main.Suppressed = true
		case a.main.Suppressed && in.Unsuppress:
			a.main.Suppressed = false
		}
	}

	a.refreshMain()

	changed := shelvingChanged || !previous.visibleEqual(a.main)
	if !changed && !force {
		return nil, nil
	}

	// Shelved alarms keep tracking state silently. A branch taken meanwhile keeps
	// the id of the occurrence it captured and shows up in refreshes.
	if a.main.Shelving.Kind != Unshelved && !force {
		return nil, nil
	}

	var records []EventRecord
	if branch != nil {
		records = append(records, a.emit(branch, now))
	}

	switch {
	case note != "":
		a.main.Message = note
	case shelvingChanged:
		a.main.Message = next.Summary + "; one-shot shelving ended"
	default:
		a.main.Message = next.Summary
	}

	return append(records, a.emit(a.main, now)), nil
}

// branchPrevious moves an occurrence still awaiting an operator into a branch.
func (a *Alarm) branchPrevious() *Condition {
	caps := a.def.Capabilities
	if !caps.Branching || !a.main.occurred || !a.main.awaitingOperator(caps) {
		return nil
	}

	snapshot := a.main.Clone()
	snapshot.Retain = true
	a.main.ids = nil

	return a.branches.create(snapshot, a.seq.Next())
}

// beginOccurrence resets operator sub-states for a new trip.
func (a *Alarm) beginOccurrence() {
	caps := a.def.Capabilities
	c := a.main

	// An overwritten unresolved occurrence keeps its ids so operators can still address it.
	if !c.occurred || !c.awaitingOperator(caps) {
		c.ids = nil
	}

	c.occurred = true
	c.Acknowledged = false
	c.Confirmed = false
	c.Comment = ""
	c.Actor = nil

	if caps.Latch {
		c.Latched = true
	}
}

// locate finds the main condition or branch that reported id.
func (a *Alarm) locate(id EventID) (*Condition, error) {
	if a.main.owns(id) {
		return a.main, nil
	}

	if branch, ok := a.branches.get(id); ok {
		return branch, nil
	}

	return nil, ErrUnknownEventID
}

// commit recomputes retain for target and reports it.
// Branches that no longer await an operator are removed.
func (a *Alarm) commit(target *Condition, now time.Time) EventRecord {
	if !target.IsBranch() {
		a.refreshMain()

		return a.emit(a.main, now)
	}

	target.Retain = target.awaitingOperator(a.def.Capabilities)
	record := a.emit(target, now)

	if !target.Retain {
		a.branches.remove(target)
	}

	return record
}

// refreshMain settles category sub-state and recomputes retain.
func (a *Alarm) refreshMain() {
	a.behavior.settle(a.main)
	a.main.Retain = a.behavior.retain(a.main, a.def.Capabilities)
}

// emit issues a fresh event id for c and snapshots it.
func (a *Alarm) emit(c *Condition, now time.Time) EventRecord {
	c.issue(a.seq.Next(), now)

	return a.record(c)
}

// record snapshots c as an EventRecord.
func (a *Alarm) record(c *Condition) EventRecord {
	return EventRecord{
		EventID:        append(EventID(nil), c.EventID...),
		BranchID:       append(EventID(nil), c.BranchID...),
		Identity:       a.def.Identity(),
		Source:         a.def.Source,
		Name:           a.def.Name,
		Category:       a.def.Variant.Category,
		Capabilities:   a.def.Capabilities,
		Time:           c.Time,
		Active:         c.Active,
		Severity:       c.Severity,
		Message:        c.Message,
		Value:          c.Value,
		Acknowledged:   c.Acknowledged,
		Confirmed:      c.Confirmed,
		Suppressed:     c.Suppressed,
		Shelving:       c.Shelving.Kind,
		ShelvingExpiry: c.Shelving.Expiry,
		Latched:        c.Latched,
		Retain:         c.Retain,
		Band:           c.Band,
		Levels:         c.Levels,
		Comment:        c.Comment,
		Actor:          c.Actor.Clone(),
	}
}

// conditionFromRecord rebuilds an occurrence from a persisted record.
func conditionFromRecord(rec *EventRecord) *Condition {
	c := &Condition{
		EventID:      append(EventID(nil), rec.EventID...),
		Time:         rec.Time,
		Active:       rec.Active,
		Severity:     rec.Severity,
		Message:      rec.Message,
		Value:        rec.Value,
		Acknowledged: rec.Acknowledged,
		Confirmed:    rec.Confirmed,
		Suppressed:   rec.Suppressed,
		Latched:      rec.Latched,
		Band:         rec.Band,
		Levels:       rec.Levels,
		Comment:      rec.Comment,
		Actor:        rec.Actor.Clone(),
		occurred:     true,
	}

	if len(rec.EventID) > 0 {
		c.ids = map[string]struct{}{rec.EventID.key(): {}}
	}

	return c
}

// withComment appends a non-empty operator comment to a message.
func withComment(message, comment string) string {
	if comment == "" {
		return message
	}

	return message + ": " + comment
}
