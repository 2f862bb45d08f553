package server

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/oshokin/alarm-conditions/internal/config"
	domain "github.com/oshokin/alarm-conditions/internal/domain/alarm"
	"github.com/oshokin/alarm-conditions/internal/notify"
)

// TestResolveListenAddress covers override, port extraction and missing configuration.
func TestResolveListenAddress(t *testing.T) {
	t.Parallel()

	address, err := resolveListenAddress("server.example.com:8080", "")
	require.NoError(t, err)
	require.Equal(t, ":8080", address)

	address, err = resolveListenAddress("server.example.com:8080", "127.0.0.1:9090")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9090", address)

	_, err = resolveListenAddress("", "")
	require.ErrorIs(t, err, ErrNoServerAddress)

	_, err = resolveListenAddress("no-port", "")
	require.Error(t, err)
}

// TestRegisterAlarms registers valid entries and skips broken ones.
func TestRegisterAlarms(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newService(ctx, notify.NewBroadcaster(), nil)
	high := 90.0

	registered, err := registerAlarms(ctx, svc, []config.AlarmConfig{
		{
			Source:   "boiler",
			Name:     "temperature",
			Category: "exclusive_limit",
			Limits:   config.LimitsConfig{High: &high},
			Feed:     config.FeedConfig{Initial: "95"},
		},
		{
			Source:   "pump",
			Name:     "running",
			Category: "single_threshold",
			Confirm:  true,
		},
		{
			Source:   "tank",
			Name:     "level",
			Category: "non_exclusive_level",
			Limits:   config.LimitsConfig{High: &high},
			Feed:     config.FeedConfig{Kind: "sine"},
		},
	})

	require.Equal(t, 1, registered)
	require.Len(t, multierr.Errors(err), 2)
	require.ErrorIs(t, err, domain.ErrInvalidDefinition)

	require.Equal(t, 1, svc.Sweep(ctx))
}

// TestRunSweeps drives the update cycle on a ticker and checkpoints after sweeps.
func TestRunSweeps(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, domain.Capabilities{Acknowledge: true})
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)

		go func() {
			done <- f.svc.runSweeps(ctx, time.Second)
		}()

		require.NoError(t, f.feed.Write(domain.Number(95)))

		time.Sleep(time.Second + time.Millisecond)
		synctest.Wait()

		require.Len(t, drain(f.events), 1)
		require.Equal(t, 1, f.repo.saves)

		// Quiet ticks neither publish nor write.
		time.Sleep(3 * time.Second)
		synctest.Wait()

		require.Empty(t, drain(f.events))
		require.Equal(t, 1, f.repo.saves)

		cancel()
		require.NoError(t, <-done)
	})
}
