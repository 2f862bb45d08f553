package alarm

import (
	"fmt"
	"time"
)

// ShelveResult is the outcome of an accepted shelve request.
type ShelveResult struct {
	// Record is the event reporting the new shelving state.
	Record EventRecord
	// Delay is how long until the shelve expires. Zero means no expiry timer is needed.
	Delay time.Duration
	// Generation must be passed back to ExpireShelving when the timer fires.
	Generation uint64
}

// Shelve shelves the alarm addressed by id (main condition or any branch).
// A zero duration asks for an unbounded shelve, which is clamped to
// Capabilities.MaxShelveTime; durations above the maximum are clamped too.
func (a *Alarm) Shelve(
	id EventID,
	oneShot bool,
	duration time.Duration,
	reason string,
	actor *Actor,
	now time.Time,
) (ShelveResult, error) {
	if _, err := a.locate(id); err != nil {
		return ShelveResult{}, err
	}

	caps := a.def.Capabilities
	if !caps.Shelve {
		return ShelveResult{}, ErrNotShelvable
	}

	delay, err := shelveDelay(oneShot, duration, caps.MaxShelveTime)
	if err != nil {
		return ShelveResult{}, err
	}

	shelving := &a.main.Shelving
	shelving.generation++
	shelving.Kind = TimedShelved
	shelving.Expiry = time.Time{}

	if oneShot {
		shelving.Kind = OneShotShelved
	}

	if delay > 0 {
		shelving.Expiry = now.Add(delay)
	}

	a.main.Comment = reason
	a.main.Actor = actor.Clone()
	a.main.Message = describeShelve(oneShot, delay, reason, actor)

	return ShelveResult{
		Record:     a.commit(a.main, now),
		Delay:      delay,
		Generation: shelving.generation,
	}, nil
}

// Unshelve ends any shelving of the alarm addressed by id.
func (a *Alarm) Unshelve(id EventID, actor *Actor, now time.Time) (EventRecord, error) {
	if _, err := a.locate(id); err != nil {
		return EventRecord{}, err
	}

	if !a.def.Capabilities.Shelve {
		return EventRecord{}, ErrNotShelvable
	}

	if a.main.Shelving.Kind == Unshelved {
		return EventRecord{}, ErrNotShelved
	}

	a.main.Shelving.reset()
	a.main.Actor = actor.Clone()
	a.main.Message = "Unshelved by " + actor.String()

	return a.commit(a.main, now), nil
}

// ExpireShelving ends the shelve started under generation.
// It reports false when the shelve was already replaced or ended.
func (a *Alarm) ExpireShelving(generation uint64, now time.Time) (EventRecord, bool) {
	shelving := &a.main.Shelving
	if shelving.Kind == Unshelved || shelving.generation != generation {
		return EventRecord{}, false
	}

	shelving.reset()
	a.main.Message = "Shelving period expired"

	return a.commit(a.main, now), true
}

// shelveDelay resolves the requested duration against the configured maximum.
func shelveDelay(oneShot bool, requested, limit time.Duration) (time.Duration, error) {
	switch {
	case requested < 0:
		return 0, fmt.Errorf("%w: negative duration %s", ErrInvalidShelveTime, requested)
	case requested == 0 && !oneShot && limit == 0:
		return 0, fmt.Errorf("%w: timed shelve needs a duration", ErrInvalidShelveTime)
	case requested == 0:
		return limit, nil
	case limit > 0 && requested > limit:
		return limit, nil
	default:
		return requested, nil
	}
}

// describeShelve renders the message reported on entering a shelved state.
func describeShelve(oneShot bool, delay time.Duration, reason string, actor *Actor) string {
	var message string

	switch {
	case !oneShot:
		message = fmt.Sprintf("Shelved for %s by %s", delay, actor)
	case delay > 0:
		message = fmt.Sprintf("One-shot shelved by %s until the alarm clears, at most %s", actor, delay)
	default:
		message = fmt.Sprintf("One-shot shelved by %s until the alarm clears", actor)
	}

	return withComment(message, reason)
}
