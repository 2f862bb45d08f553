package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func shelvableAlarm(t *testing.T, maxShelve time.Duration) (*Alarm, *fakeFeed, EventID) {
	t.Helper()

	def := exclusiveDefinition(Capabilities{Shelve: true, MaxShelveTime: maxShelve})
	def.Variant.Limits.HighHigh = limit(95)

	a := newTestAlarm(t, def)
	feed := new(fakeFeed)

	records := step(t, a, feed, Number(92))
	require.Len(t, records, 1)

	return a, feed, records[0].EventID
}

func TestShelve_TimedExpires(t *testing.T) {
	t.Parallel()

	a, _, id := shelvableAlarm(t, time.Hour)

	result, err := a.Shelve(id, false, 10*time.Minute, "maintenance", operator, epoch)
	require.NoError(t, err)
	require.Equal(t, 10*time.Minute, result.Delay)
	require.Equal(t, TimedShelved, result.Record.Shelving)
	require.Equal(t, epoch.Add(10*time.Minute), result.Record.ShelvingExpiry)
	require.Contains(t, result.Record.Message, "10m0s")
	require.Contains(t, result.Record.Message, "maintenance")

	_, ok := a.ExpireShelving(result.Generation+1, epoch)
	require.False(t, ok)

	expired, ok := a.ExpireShelving(result.Generation, epoch.Add(10*time.Minute))
	require.True(t, ok)
	require.Equal(t, Unshelved, expired.Shelving)
	require.Equal(t, "Shelving period expired", expired.Message)

	_, ok = a.ExpireShelving(result.Generation, epoch.Add(10*time.Minute))
	require.False(t, ok)
}

func TestShelve_ClampsToMaximum(t *testing.T) {
	t.Parallel()

	a, _, id := shelvableAlarm(t, time.Hour)

	result, err := a.Shelve(id, false, 2*time.Hour, "", operator, epoch)
	require.NoError(t, err)
	require.Equal(t, time.Hour, result.Delay)

	// Zero means "as long as allowed".
	result, err = a.Shelve(result.Record.EventID, false, 0, "", operator, epoch)
	require.NoError(t, err)
	require.Equal(t, time.Hour, result.Delay)
}

func TestShelve_InvalidDuration(t *testing.T) {
	t.Parallel()

	a, _, id := shelvableAlarm(t, 0)

	_, err := a.Shelve(id, false, 0, "", operator, epoch)
	require.ErrorIs(t, err, ErrInvalidShelveTime)

	_, err = a.Shelve(id, false, -time.Second, "", operator, epoch)
	require.ErrorIs(t, err, ErrInvalidShelveTime)

	// Without a maximum, a one-shot shelve has no expiry timer.
	result, err := a.Shelve(id, true, 0, "", operator, epoch)
	require.NoError(t, err)
	require.Zero(t, result.Delay)
	require.True(t, result.Record.ShelvingExpiry.IsZero())
}

func TestShelve_NotShelvable(t *testing.T) {
	t.Parallel()

	a := newTestAlarm(t, exclusiveDefinition(Capabilities{}))
	feed := new(fakeFeed)
	records := step(t, a, feed, Number(95))

	_, err := a.Shelve(records[0].EventID, false, time.Minute, "", operator, epoch)
	require.ErrorIs(t, err, ErrNotShelvable)

	_, err = a.Unshelve(records[0].EventID, operator, epoch)
	require.ErrorIs(t, err, ErrNotShelvable)
}

func TestUnshelve_InvalidatesTimer(t *testing.T) {
	t.Parallel()

	a, _, id := shelvableAlarm(t, time.Hour)

	_, err := a.Unshelve(id, operator, epoch)
	require.ErrorIs(t, err, ErrNotShelved)

	result, err := a.Shelve(id, false, time.Minute, "", operator, epoch)
	require.NoError(t, err)

	unshelved, err := a.Unshelve(result.Record.EventID, operator, epoch)
	require.NoError(t, err)
	require.Equal(t, Unshelved, unshelved.Shelving)
	require.Contains(t, unshelved.Message, "operator@control-room")

	_, ok := a.ExpireShelving(result.Generation, epoch.Add(time.Minute))
	require.False(t, ok)
}

func TestShelve_OneShotEndsWhenCleared(t *testing.T) {
	t.Parallel()

	a, feed, id := shelvableAlarm(t, 0)

	result, err := a.Shelve(id, true, 0, "", operator, epoch)
	require.NoError(t, err)
	require.Equal(t, OneShotShelved, result.Record.Shelving)

	// Escalation while shelved is tracked but not reported.
	require.Empty(t, step(t, a, feed, Number(99)))
	require.Equal(t, BandHighHigh, a.Condition().Band)

	cleared := step(t, a, feed, Number(50))
	require.Len(t, cleared, 1)
	require.Equal(t, Unshelved, cleared[0].Shelving)
	require.False(t, cleared[0].Active)
	require.Contains(t, cleared[0].Message, "one-shot shelving ended")
}

func TestShelve_TimedSilencesUpdates(t *testing.T) {
	t.Parallel()

	a, feed, id := shelvableAlarm(t, time.Hour)

	result, err := a.Shelve(id, false, time.Minute, "", operator, epoch)
	require.NoError(t, err)

	require.Empty(t, step(t, a, feed, Number(50)))
	require.Empty(t, step(t, a, feed, Number(99)))

	expired, ok := a.ExpireShelving(result.Generation, epoch.Add(time.Minute))
	require.True(t, ok)
	require.Equal(t, BandHighHigh, expired.Band)
	require.True(t, expired.Active)
}

func TestShelve_BranchWhileShelvedStaysSilent(t *testing.T) {
	t.Parallel()

	def := exclusiveDefinition(Capabilities{Acknowledge: true, Shelve: true, Branching: true, MaxShelveTime: time.Hour})
	a := newTestAlarm(t, def)
	feed := new(fakeFeed)

	tripped := step(t, a, feed, Number(92))
	require.Len(t, tripped, 1)

	result, err := a.Shelve(tripped[0].EventID, false, 10*time.Minute, "", operator, epoch)
	require.NoError(t, err)

	issued := a.seq.Next().Sequence()

	// Clear and trip again while shelved.
	require.Empty(t, step(t, a, feed, Number(50)))
	require.Empty(t, step(t, a, feed, Number(92)))

	branches := a.Branches()
	require.Len(t, branches, 1)
	require.True(t, result.Record.EventID.Equal(branches[0].EventID))

	// Only the branch id was drawn from the sequence; no event id went unpublished.
	require.Equal(t, issued+2, a.seq.Next().Sequence())

	// The active main condition comes first, then the branch.
	retained := a.Retained()
	require.Len(t, retained, 2)
	require.False(t, retained[0].IsBranch())
	require.True(t, retained[1].IsBranch())
	require.True(t, result.Record.EventID.Equal(retained[1].EventID))

	acked, err := a.Acknowledge(retained[1].EventID, "", operator, epoch)
	require.NoError(t, err)
	require.True(t, acked.IsBranch())
	require.Empty(t, a.Branches())
}
