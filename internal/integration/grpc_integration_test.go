package integration

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/alarm-conditions/internal/config"
	domain "github.com/oshokin/alarm-conditions/internal/domain/alarm"
	"github.com/oshokin/alarm-conditions/internal/service/common"
	"github.com/oshokin/alarm-conditions/internal/service/server"
)

// writeSettings creates a configuration with one writable exclusive-limit alarm
// and one broken definition that must be skipped.
func writeSettings(t *testing.T, addr string) string {
	t.Helper()

	low, high := 10.0, 90.0
	cfgPath := filepath.Join(t.TempDir(), "settings.yaml")

	require.NoError(
		t,
		config.Save(cfgPath, &config.Config{
			ServerAddress: addr,
			Timeout:       5 * time.Second,
			// Sweeps stay out of the way; writes evaluate immediately.
			SweepInterval: time.Hour,
			Alarms: []config.AlarmConfig{
				{
					Source:      "boiler",
					Name:        "temperature",
					Category:    "exclusive_limit",
					Acknowledge: true,
					Shelve:      true,
					Limits:      config.LimitsConfig{Low: &low, High: &high},
					Feed:        config.FeedConfig{Initial: "50"},
				},
				{
					Source:   "tank",
					Name:     "level",
					Category: "non_exclusive_level",
				},
			},
		}),
	)

	return cfgPath
}

// startServer runs the real condition server until the returned stop function is called.
// stop waits for Run to return so the final checkpoint is on disk.
func startServer(t *testing.T, cfgPath, statePath string) (stop func()) {
	t.Helper()

	// Create cancellable context for server lifecycle.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	// Start server in background goroutine.
	go func() {
		done <- server.Run(ctx, &server.Options{
			ConfigPath: cfgPath,
			StateFile:  statePath,
		})
	}()

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}

// dial connects a client and waits until the server answers.
func dial(t *testing.T, addr string) *common.Client {
	t.Helper()

	c, err := common.Dial(context.Background(), addr, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	t.Cleanup(func() { _ = c.Close() })

	require.Eventually(t, func() bool {
		_, err := c.Refresh(context.Background())

		return err == nil
	}, 5*time.Second, 50*time.Millisecond)

	return c
}

// freeAddress reserves a free local port.
func freeAddress(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

// TestGRPC_ConditionLifecycle starts the real server and drives an alarm through
// trip, subscription, acknowledgement and a restart from the checkpoint.
func TestGRPC_ConditionLifecycle(t *testing.T) {
	t.Parallel()

	addr := freeAddress(t)
	cfgPath := writeSettings(t, addr)
	statePath := filepath.Join(t.TempDir(), "state.json")

	stop := startServer(t, cfgPath, statePath)
	c := dial(t, addr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	actor := &domain.Actor{Hostname: "test-hostname", Username: "test-user"}

	// Nothing is retained before the first trip.
	retained, err := c.Refresh(ctx)
	require.NoError(t, err)
	require.Empty(t, retained)

	sub, err := c.Subscribe(ctx)
	require.NoError(t, err)

	// Trip the high limit.
	written, err := c.WriteTrigger(ctx, "boiler/temperature", domain.Number(95), actor)
	require.NoError(t, err)
	require.Len(t, written, 1)
	require.True(t, written[0].Active)
	require.Equal(t, domain.BandHigh, written[0].Band)

	streamed, err := sub.Recv()
	require.NoError(t, err)
	require.True(t, written[0].EventID.Equal(streamed.EventID))

	// Repeating the value changes nothing.
	written, err = c.WriteTrigger(ctx, "boiler/temperature", domain.Number(95), actor)
	require.NoError(t, err)
	require.Empty(t, written)

	// Wrong value type is rejected.
	_, err = c.WriteTrigger(ctx, "boiler/temperature", domain.Bool(true), actor)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	// The skipped definition is not registered.
	_, err = c.WriteTrigger(ctx, "tank/level", domain.Number(1), actor)
	require.Equal(t, codes.NotFound, status.Code(err))

	acked, err := c.Acknowledge(ctx, streamed.EventID, "on it", actor)
	require.NoError(t, err)
	require.True(t, acked.Acknowledged)
	require.Equal(t, actor, acked.Actor)

	_, err = c.Acknowledge(ctx, streamed.EventID, "again", actor)
	require.Equal(t, codes.FailedPrecondition, status.Code(err))

	streamed, err = sub.Recv()
	require.NoError(t, err)
	require.True(t, streamed.Acknowledged)

	// Stop the server and check the checkpoint on disk.
	stop()

	_, err = os.Stat(statePath)
	require.NoError(t, err)

	stop = startServer(t, cfgPath, statePath)
	defer stop()

	c = dial(t, addr)

	retained, err = c.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, retained, 1)
	require.Equal(t, "boiler/temperature", retained[0].Identity)
	require.True(t, retained[0].Active)
	require.True(t, retained[0].Acknowledged)
	require.Equal(t, domain.BandHigh, retained[0].Band)
}
