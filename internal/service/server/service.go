package server

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/oshokin/alarm-conditions/internal/domain/alarm"
	"github.com/oshokin/alarm-conditions/internal/logger"
	repo "github.com/oshokin/alarm-conditions/internal/repository/state"
)

// Notifier is the notification transport records are handed to.
type Notifier interface {
	// Publish delivers rec to current subscribers without blocking.
	Publish(ctx context.Context, rec domain.EventRecord)
	// Subscribe registers a subscriber preloaded with initial.
	Subscribe(buffer int, initial []domain.EventRecord) (<-chan domain.EventRecord, func(), error)
}

// entry is one registered alarm with its feed and shelving timer.
type entry struct {
	// alarm is the condition instance.
	alarm *domain.Alarm
	// feed supplies trigger values.
	feed domain.TriggerFeed
	// timer fires when a timed or bounded one-shot shelve expires.
	timer *time.Timer
	// alive is cleared on removal so pending timers become no-ops.
	alive bool
}

// stopTimer cancels a pending shelving timer.
func (e *entry) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// service owns every alarm of the process. All engine state is guarded by mu;
// records are published while mu is held so subscribers see them in order.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	// mu protects every field below.
	mu sync.Mutex
	// seq issues event and branch ids for all owned alarms.
	seq *domain.Sequence
	// entries maps alarm identity to its entry.
	entries map[string]*entry
	// order keeps identities in registration order for sweeps and refreshes.
	order []string
	// notifier receives every published record.
	notifier Notifier
	// repo stores checkpoints; nil disables persistence.
	repo repo.Repository
	// dirty is set when something was published since the last checkpoint.
	dirty bool
	// closed rejects commands after Close.
	closed bool
	// baseCtx carries the logger used by timer callbacks.
	baseCtx context.Context //nolint:containedctx // Timers outlive the requests that start them.
	// checkpointMu serialises checkpoints so snapshots hit the disk in order.
	checkpointMu sync.Mutex
}

// newService creates an empty owner publishing through notifier.
func newService(ctx context.Context, notifier Notifier, repository repo.Repository) *service {
	return &service{
		seq:      domain.NewSequence(uuid.New()),
		entries:  make(map[string]*entry),
		notifier: notifier,
		repo:     repository,
		baseCtx:  ctx,
	}
}

// Register adds an alarm with its trigger feed. The category is fixed from here on.
func (s *service) Register(ctx context.Context, def domain.Definition, feed domain.TriggerFeed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrClosed
	}

	identity := def.Identity()
	if _, ok := s.entries[identity]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateAlarm, identity)
	}

	a, err := domain.New(def, s.seq)
	if err != nil {
		return fmt.Errorf("create alarm %s: %w", identity, err)
	}

	s.entries[identity] = &entry{
		alarm: a,
		feed:  feed,
		alive: true,
	}
	s.order = append(s.order, identity)

	logger.DebugKV(ctx, "Alarm registered", "alarm", identity, "category", def.Variant.Category)

	return nil
}

// Remove unregisters an alarm and cancels its shelving timer.
func (s *service) Remove(ctx context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[identity]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownAlarm, identity)
	}

	e.stopTimer()
	e.alive = false

	delete(s.entries, identity)
	s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == identity })
	s.dirty = true

	logger.InfoKV(ctx, "Alarm removed", "alarm", identity)

	return nil
}

// Sweep runs one update cycle over every alarm and returns the number of published records.
// A failing alarm is logged and does not stop the sweep.
func (s *service) Sweep(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0
	}

	var (
		now       = time.Now()
		published int
	)

	for _, identity := range s.order {
		e := s.entries[identity]

		records, err := e.alarm.Update(e.feed, false, now)
		if err != nil {
			logger.WarnKV(ctx, "Alarm update failed", "alarm", identity, "error", err)

			continue
		}

		s.publishLocked(ctx, records...)
		published += len(records)
	}

	return published
}

// Acknowledge acknowledges the occurrence that reported id.
func (s *service) Acknowledge(
	ctx context.Context,
	id domain.EventID,
	comment string,
	actor *domain.Actor,
) (domain.EventRecord, error) {
	return s.command(ctx, "acknowledge", id, actor, func(e *entry, now time.Time) (domain.EventRecord, error) {
		return e.alarm.Acknowledge(id, comment, actor, now)
	})
}

// Confirm confirms the occurrence that reported id.
func (s *service) Confirm(
	ctx context.Context,
	id domain.EventID,
	comment string,
	actor *domain.Actor,
) (domain.EventRecord, error) {
	return s.command(ctx, "confirm", id, actor, func(e *entry, now time.Time) (domain.EventRecord, error) {
		return e.alarm.Confirm(id, comment, actor, now)
	})
}

// Shelve shelves the alarm that reported id and schedules its expiry.
func (s *service) Shelve(
	ctx context.Context,
	id domain.EventID,
	oneShot bool,
	duration time.Duration,
	reason string,
	actor *domain.Actor,
) (domain.EventRecord, error) {
	return s.command(ctx, "shelve", id, actor, func(e *entry, now time.Time) (domain.EventRecord, error) {
		result, err := e.alarm.Shelve(id, oneShot, duration, reason, actor, now)
		if err != nil {
			return domain.EventRecord{}, err
		}

		e.stopTimer()

		if result.Delay > 0 {
			e.timer = time.AfterFunc(result.Delay, func() {
				s.expireShelving(e, result.Generation)
			})
		}

		return result.Record, nil
	})
}

// Unshelve ends shelving of the alarm that reported id.
func (s *service) Unshelve(ctx context.Context, id domain.EventID, actor *domain.Actor) (domain.EventRecord, error) {
	return s.command(ctx, "unshelve", id, actor, func(e *entry, now time.Time) (domain.EventRecord, error) {
		rec, err := e.alarm.Unshelve(id, actor, now)
		if err != nil {
			return domain.EventRecord{}, err
		}

		e.stopTimer()

		return rec, nil
	})
}

// Reset releases the latch of the alarm that reported id.
func (s *service) Reset(ctx context.Context, id domain.EventID, actor *domain.Actor) (domain.EventRecord, error) {
	return s.command(ctx, "reset", id, actor, func(e *entry, now time.Time) (domain.EventRecord, error) {
		return e.alarm.Reset(id, actor, now)
	})
}

// WriteTrigger writes a trigger value to the alarm with the given identity.
func (s *service) WriteTrigger(
	ctx context.Context,
	identity string,
	value domain.Value,
	actor *domain.Actor,
) ([]domain.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, domain.ErrClosed
	}

	e, ok := s.entries[identity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAlarm, identity)
	}

	records, err := e.alarm.WriteTrigger(e.feed, value, time.Now())
	if err != nil {
		logger.WarnKV(ctx, "Trigger write rejected", "alarm", identity, "value", value, "actor", actor, "error", err)

		return nil, err
	}

	logger.InfoKV(ctx, "Trigger written", "alarm", identity, "value", value, "actor", actor, "records", len(records))

	s.publishLocked(ctx, records...)

	return records, nil
}

// Refresh lists every retained main condition and branch in registration order.
func (s *service) Refresh(context.Context) []domain.EventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.retainedLocked()
}

// Subscribe registers a subscriber that first receives a refresh and then every published record.
func (s *service) Subscribe(ctx context.Context, buffer int) (<-chan domain.EventRecord, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, nil, domain.ErrClosed
	}

	initial := s.retainedLocked()

	ch, cancel, err := s.notifier.Subscribe(buffer, initial)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe: %w", err)
	}

	logger.DebugKV(ctx, "Subscriber attached", "refresh", len(initial))

	return ch, cancel, nil
}

// Restore loads the last checkpoint onto the registered alarms.
// Records of alarms that are no longer registered are dropped.
func (s *service) Restore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	snapshot, err := s.repo.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("load state: %w", err)
	}

	byIdentity := make(map[string][]domain.EventRecord)
	for _, rec := range snapshot.Records {
		byIdentity[rec.Identity] = append(byIdentity[rec.Identity], rec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for identity, records := range byIdentity {
		e, ok := s.entries[identity]
		if !ok {
			logger.WarnKV(ctx, "Dropping state of unknown alarm", "alarm", identity, "records", len(records))

			continue
		}

		e.alarm.Restore(records)
	}

	logger.InfoKV(ctx, "State restored", "records", len(snapshot.Records), "saved_at", snapshot.SavedAt)

	return nil
}

// Checkpoint persists the retained set if anything changed since the last checkpoint.
func (s *service) Checkpoint(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	s.checkpointMu.Lock()
	defer s.checkpointMu.Unlock()

	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()

		return nil
	}

	snapshot := &repo.Snapshot{
		SavedAt: time.Now(),
		Records: s.retainedLocked(),
	}
	s.dirty = false
	s.mu.Unlock()

	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()

		return fmt.Errorf("persist state: %w", err)
	}

	logger.DebugKV(ctx, "Checkpoint written", "records", len(snapshot.Records))

	return nil
}

// Close stops every shelving timer and rejects further commands and sweeps.
func (s *service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	for _, e := range s.entries {
		e.stopTimer()
	}
}

// command runs an operator command against the alarm that reported id and publishes its record.
func (s *service) command(
	ctx context.Context,
	name string,
	id domain.EventID,
	actor *domain.Actor,
	apply func(e *entry, now time.Time) (domain.EventRecord, error),
) (domain.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.EventRecord{}, domain.ErrClosed
	}

	e, ok := s.ownerOfLocked(id)
	if !ok {
		logger.WarnKV(ctx, "Command rejected", "command", name, "event_id", id, "actor", actor, "error", domain.ErrUnknownEventID)

		return domain.EventRecord{}, domain.ErrUnknownEventID
	}

	rec, err := apply(e, time.Now())
	if err != nil {
		logger.WarnKV(ctx, "Command rejected",
			"command", name, "alarm", e.alarm.Identity(), "event_id", id, "actor", actor, "error", err)

		return domain.EventRecord{}, err
	}

	logger.InfoKV(ctx, "Command applied", "command", name, "alarm", rec.Identity, "actor", actor, "message", rec.Message)

	s.publishLocked(ctx, rec)

	return rec, nil
}

// expireShelving is the timer callback for a shelve started under generation.
func (s *service) expireShelving(e *entry, generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !e.alive {
		return
	}

	rec, ok := e.alarm.ExpireShelving(generation, time.Now())
	if !ok {
		return
	}

	e.timer = nil

	logger.InfoKV(s.baseCtx, "Shelving expired", "alarm", rec.Identity)

	s.publishLocked(s.baseCtx, rec)
}

// ownerOfLocked finds the alarm whose main condition or branch reported id.
func (s *service) ownerOfLocked(id domain.EventID) (*entry, bool) {
	for _, identity := range s.order {
		if e := s.entries[identity]; e.alarm.Owns(id) {
			return e, true
		}
	}

	return nil, false
}

// retainedLocked collects retained records of every alarm in registration order.
func (s *service) retainedLocked() []domain.EventRecord {
	var records []domain.EventRecord

	for _, identity := range s.order {
		records = append(records, s.entries[identity].alarm.Retained()...)
	}

	return records
}

// publishLocked hands records to the notifier and marks state dirty.
func (s *service) publishLocked(ctx context.Context, records ...domain.EventRecord) {
	for _, rec := range records {
		logger.DebugKV(ctx, "Event published",
			"alarm", rec.Identity, "event_id", rec.EventID, "active", rec.Active,
			"severity", rec.Severity, "retain", rec.Retain, "branch", rec.IsBranch())

		s.notifier.Publish(ctx, rec)
		s.dirty = true
	}
}
