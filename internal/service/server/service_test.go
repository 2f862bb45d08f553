package server

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/alarm-conditions/internal/domain/alarm"
	"github.com/oshokin/alarm-conditions/internal/notify"
	repo "github.com/oshokin/alarm-conditions/internal/repository/state"
	"github.com/oshokin/alarm-conditions/internal/source"
)

var errTestSave = errors.New("test save error")

// memoryRepository is a minimal in-memory Repository implementation for tests.
type memoryRepository struct {
	// snapshot is returned from Load operations.
	snapshot *repo.Snapshot
	// loadErr is the error to return from Load operations.
	loadErr error
	// saveErr is the error to return from Save operations.
	saveErr error
	// saves counts Save calls.
	saves int
}

// Load returns the stored snapshot.
func (m *memoryRepository) Load(context.Context) (*repo.Snapshot, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}

	if m.snapshot == nil {
		return nil, repo.ErrNotFound
	}

	return m.snapshot, nil
}

// Save stores the snapshot in memory.
func (m *memoryRepository) Save(_ context.Context, s *repo.Snapshot) error {
	m.saves++

	if m.saveErr != nil {
		return m.saveErr
	}

	m.snapshot = s

	return nil
}

// operator is the actor used for commands in tests.
//
//nolint:gochecknoglobals // Test fixture.
var operator = &domain.Actor{
	Hostname: "Oleg Shokin",
	Username: "o.shokin",
}

func limit(f float64) *float64 {
	return &f
}

func boilerDefinition(caps domain.Capabilities) domain.Definition {
	return domain.Definition{
		Source: "boiler",
		Name:   "temperature",
		Variant: domain.Variant{
			Category: domain.CategoryExclusiveLimit,
			Limits:   domain.Limits{Low: limit(10), High: limit(90)},
		},
		Capabilities: caps,
	}
}

// fixture is a service with one static-fed boiler alarm and a subscriber.
type fixture struct {
	svc    *service
	feed   *source.Static
	events <-chan domain.EventRecord
	repo   *memoryRepository
}

func newFixture(t *testing.T, caps domain.Capabilities) *fixture {
	t.Helper()

	ctx := context.Background()
	memory := new(memoryRepository)
	svc := newService(ctx, notify.NewBroadcaster(), memory)
	feed := source.NewStatic(domain.Number(50), nil)

	require.NoError(t, svc.Register(ctx, boilerDefinition(caps), feed))

	events, cancel, err := svc.Subscribe(ctx, 32)
	require.NoError(t, err)
	t.Cleanup(cancel)

	return &fixture{
		svc:    svc,
		feed:   feed,
		events: events,
		repo:   memory,
	}
}

// trip drives the boiler alarm high and returns the published record.
func (f *fixture) trip(t *testing.T) domain.EventRecord {
	t.Helper()

	require.NoError(t, f.feed.Write(domain.Number(95)))
	require.Equal(t, 1, f.svc.Sweep(context.Background()))

	got := drain(f.events)
	require.Len(t, got, 1)

	return got[0]
}

// drain reads every record currently buffered in ch.
func drain(ch <-chan domain.EventRecord) []domain.EventRecord {
	var records []domain.EventRecord

	for {
		select {
		case rec, ok := <-ch:
			if !ok {
				return records
			}

			records = append(records, rec)
		default:
			return records
		}
	}
}

// TestService_Register rejects duplicates and invalid definitions.
func TestService_Register(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newService(ctx, notify.NewBroadcaster(), nil)
	feed := source.NewStatic(domain.Number(50), nil)

	require.NoError(t, svc.Register(ctx, boilerDefinition(domain.Capabilities{}), feed))
	require.ErrorIs(t, svc.Register(ctx, boilerDefinition(domain.Capabilities{}), feed), domain.ErrDuplicateAlarm)

	bad := boilerDefinition(domain.Capabilities{Confirm: true})
	bad.Name = "pressure"
	require.ErrorIs(t, svc.Register(ctx, bad, feed), domain.ErrInvalidDefinition)

	require.ErrorIs(t, svc.Remove(ctx, "boiler/pressure"), domain.ErrUnknownAlarm)
	require.NoError(t, svc.Remove(ctx, "boiler/temperature"))
	require.Zero(t, svc.Sweep(ctx))
}

// TestService_SweepPublishesOnlyChanges checks that quiet sweeps publish nothing.
func TestService_SweepPublishesOnlyChanges(t *testing.T) {
	t.Parallel()

	f := newFixture(t, domain.Capabilities{Acknowledge: true})

	require.Zero(t, f.svc.Sweep(context.Background()))

	rec := f.trip(t)
	require.True(t, rec.Active)
	require.Equal(t, domain.BandHigh, rec.Band)

	require.Zero(t, f.svc.Sweep(context.Background()))
	require.Empty(t, drain(f.events))
	require.Len(t, f.svc.Refresh(context.Background()), 1)
}

// TestService_SweepSkipsMismatchedAlarm keeps sweeping the remaining alarms after a type mismatch.
func TestService_SweepSkipsMismatchedAlarm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newService(ctx, notify.NewBroadcaster(), nil)

	furnace := boilerDefinition(domain.Capabilities{})
	furnace.Source = "furnace"

	// Registered first so the sweep meets the mismatch before the healthy alarm.
	require.NoError(t, svc.Register(ctx, furnace, source.NewStatic(domain.Bool(true), nil)))

	feed := source.NewStatic(domain.Number(50), nil)
	require.NoError(t, svc.Register(ctx, boilerDefinition(domain.Capabilities{}), feed))

	events, cancel, err := svc.Subscribe(ctx, 8)
	require.NoError(t, err)
	t.Cleanup(cancel)

	require.NoError(t, feed.Write(domain.Number(95)))
	require.Equal(t, 1, svc.Sweep(ctx))

	got := drain(events)
	require.Len(t, got, 1)
	require.Equal(t, "boiler/temperature", got[0].Identity)
	require.Equal(t, domain.BandHigh, got[0].Band)

	// The mismatched alarm stays quiet on later sweeps too.
	require.Zero(t, svc.Sweep(ctx))
	require.Empty(t, drain(events))
}

// TestService_AcknowledgeIsIdempotent checks that a repeated acknowledgement publishes nothing.
func TestService_AcknowledgeIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, domain.Capabilities{Acknowledge: true})
	tripped := f.trip(t)

	acked, err := f.svc.Acknowledge(ctx, tripped.EventID, "seen", operator)
	require.NoError(t, err)
	require.True(t, acked.Acknowledged)
	require.Len(t, drain(f.events), 1)

	_, err = f.svc.Acknowledge(ctx, tripped.EventID, "seen", operator)
	require.ErrorIs(t, err, domain.ErrAlreadyAcknowledged)
	require.Empty(t, drain(f.events))

	_, err = f.svc.Acknowledge(ctx, domain.NewSequence([16]byte{1}).Next(), "", operator)
	require.ErrorIs(t, err, domain.ErrUnknownEventID)
}

// TestService_ShelvingTimerExpires checks that a timed shelve ends on its own.
func TestService_ShelvingTimerExpires(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		f := newFixture(t, domain.Capabilities{Shelve: true, MaxShelveTime: time.Hour})
		tripped := f.trip(t)

		shelved, err := f.svc.Shelve(ctx, tripped.EventID, false, time.Minute, "maintenance", operator)
		require.NoError(t, err)
		require.Equal(t, domain.TimedShelved, shelved.Shelving)
		require.Len(t, drain(f.events), 1)

		// Shelved alarms track state silently.
		require.NoError(t, f.feed.Write(domain.Number(50)))
		require.Zero(t, f.svc.Sweep(ctx))

		time.Sleep(time.Minute + time.Second)
		synctest.Wait()

		expired := drain(f.events)
		require.Len(t, expired, 1)
		require.Equal(t, domain.Unshelved, expired[0].Shelving)
		require.False(t, expired[0].Active)
		require.Equal(t, "Shelving period expired", expired[0].Message)
	})
}

// TestService_UnshelveCancelsTimer checks that a stale timer never reports.
func TestService_UnshelveCancelsTimer(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		f := newFixture(t, domain.Capabilities{Shelve: true})
		tripped := f.trip(t)

		_, err := f.svc.Shelve(ctx, tripped.EventID, false, time.Minute, "", operator)
		require.NoError(t, err)

		_, err = f.svc.Unshelve(ctx, tripped.EventID, operator)
		require.NoError(t, err)
		require.Len(t, drain(f.events), 2)

		time.Sleep(2 * time.Minute)
		synctest.Wait()

		require.Empty(t, drain(f.events))

		_, err = f.svc.Unshelve(ctx, tripped.EventID, operator)
		require.ErrorIs(t, err, domain.ErrNotShelved)
	})
}

// TestService_ReshelveReplacesTimer checks that only the latest shelve expires.
func TestService_ReshelveReplacesTimer(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		f := newFixture(t, domain.Capabilities{Shelve: true})
		tripped := f.trip(t)

		_, err := f.svc.Shelve(ctx, tripped.EventID, false, time.Minute, "", operator)
		require.NoError(t, err)

		_, err = f.svc.Shelve(ctx, tripped.EventID, false, 5*time.Minute, "", operator)
		require.NoError(t, err)
		require.Len(t, drain(f.events), 2)

		time.Sleep(2 * time.Minute)
		synctest.Wait()
		require.Empty(t, drain(f.events))

		time.Sleep(4 * time.Minute)
		synctest.Wait()
		require.Len(t, drain(f.events), 1)
	})
}

// TestService_RemoveCancelsTimer checks that removed alarms never report again.
func TestService_RemoveCancelsTimer(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		f := newFixture(t, domain.Capabilities{Shelve: true})
		tripped := f.trip(t)

		_, err := f.svc.Shelve(ctx, tripped.EventID, false, time.Minute, "", operator)
		require.NoError(t, err)
		require.NoError(t, f.svc.Remove(ctx, tripped.Identity))
		drain(f.events)

		time.Sleep(2 * time.Minute)
		synctest.Wait()

		require.Empty(t, drain(f.events))
		require.Empty(t, f.svc.Refresh(ctx))
	})
}

// TestService_WriteTrigger covers identity lookup and read-only feeds.
func TestService_WriteTrigger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, domain.Capabilities{})

	records, err := f.svc.WriteTrigger(ctx, "boiler/temperature", domain.Number(5), operator)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, domain.BandLow, records[0].Band)
	require.Len(t, drain(f.events), 1)

	_, err = f.svc.WriteTrigger(ctx, "boiler/missing", domain.Number(5), operator)
	require.ErrorIs(t, err, domain.ErrUnknownAlarm)

	_, err = f.svc.WriteTrigger(ctx, "boiler/temperature", domain.Bool(true), operator)
	require.ErrorIs(t, err, domain.ErrTypeMismatch)

	ramp, err := source.NewRamp(0, 100, time.Minute, nil)
	require.NoError(t, err)

	def := boilerDefinition(domain.Capabilities{})
	def.Name = "ramp"
	require.NoError(t, f.svc.Register(ctx, def, ramp))

	_, err = f.svc.WriteTrigger(ctx, "boiler/ramp", domain.Number(5), operator)
	require.ErrorIs(t, err, domain.ErrReadOnlyTrigger)
}

// TestService_SubscribeStartsWithRefresh checks that late subscribers see retained conditions first.
func TestService_SubscribeStartsWithRefresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, domain.Capabilities{Acknowledge: true})
	tripped := f.trip(t)

	late, cancel, err := f.svc.Subscribe(ctx, 4)
	require.NoError(t, err)

	defer cancel()

	initial := drain(late)
	require.Len(t, initial, 1)
	require.True(t, initial[0].EventID.Equal(tripped.EventID))
}

// TestService_CheckpointAndRestore persists retained state and restores it on a new owner.
func TestService_CheckpointAndRestore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, domain.Capabilities{Acknowledge: true})
	tripped := f.trip(t)

	require.NoError(t, f.svc.Checkpoint(ctx))
	require.Equal(t, 1, f.repo.saves)
	require.Len(t, f.repo.snapshot.Records, 1)

	// Nothing changed, nothing written.
	require.NoError(t, f.svc.Checkpoint(ctx))
	require.Equal(t, 1, f.repo.saves)

	restarted := newService(ctx, notify.NewBroadcaster(), f.repo)
	require.NoError(t, restarted.Register(ctx, boilerDefinition(domain.Capabilities{Acknowledge: true}),
		source.NewStatic(domain.Number(95), nil)))
	require.NoError(t, restarted.Restore(ctx))

	refreshed := restarted.Refresh(ctx)
	require.Len(t, refreshed, 1)
	require.True(t, refreshed[0].Active)

	// Ids issued before the restart still address the occurrence.
	_, err := restarted.Acknowledge(ctx, tripped.EventID, "", operator)
	require.NoError(t, err)

	// The restored classification keeps a still-active input from re-tripping.
	require.Zero(t, restarted.Sweep(ctx))
}

// TestService_CheckpointRetriesAfterFailure keeps state dirty when saving fails.
func TestService_CheckpointRetriesAfterFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, domain.Capabilities{})
	f.trip(t)

	f.repo.saveErr = errTestSave
	require.ErrorIs(t, f.svc.Checkpoint(ctx), errTestSave)

	f.repo.saveErr = nil
	require.NoError(t, f.svc.Checkpoint(ctx))
	require.Equal(t, 2, f.repo.saves)
}

// TestService_RestoreErrors distinguishes a missing checkpoint from a broken one.
func TestService_RestoreErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	svc := newService(ctx, notify.NewBroadcaster(), new(memoryRepository))
	require.NoError(t, svc.Restore(ctx))

	svc = newService(ctx, notify.NewBroadcaster(), &memoryRepository{loadErr: errTestSave})
	require.ErrorIs(t, svc.Restore(ctx), errTestSave)
}

// TestService_Close rejects commands and subscriptions.
func TestService_Close(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, domain.Capabilities{Acknowledge: true})
	tripped := f.trip(t)

	f.svc.Close()

	_, err := f.svc.Acknowledge(ctx, tripped.EventID, "", operator)
	require.ErrorIs(t, err, domain.ErrClosed)

	_, _, err = f.svc.Subscribe(ctx, 1)
	require.ErrorIs(t, err, domain.ErrClosed)

	require.Zero(t, f.svc.Sweep(ctx))
}
