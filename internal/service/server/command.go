package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	api "github.com/oshokin/alarm-conditions/internal/api/grpc/condition"
	"github.com/oshokin/alarm-conditions/internal/config"
	"github.com/oshokin/alarm-conditions/internal/logger"
	"github.com/oshokin/alarm-conditions/internal/notify"
	pb "github.com/oshokin/alarm-conditions/internal/pb/v1"
	repository "github.com/oshokin/alarm-conditions/internal/repository/state"
)

// Options controls the condition-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// StateFile specifies the path to persist retained conditions.
	StateFile string
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run registers the configured alarms, restores the last checkpoint, then serves gRPC
// and drives the update cycle until ctx is canceled or serving fails.
//
//nolint:funlen // Startup and shutdown order read best in one place.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "condition-server")

	// Load configuration first to get server settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// Apply logging settings before anything else logs.
	applyLogSettings(settings)

	// Use StateFile from config unless overridden by command line option.
	stateFile := settings.StateFile
	if opts.StateFile != "" {
		stateFile = opts.StateFile
	}

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	// Create the owner with its notification transport and checkpoint storage.
	broadcaster := notify.NewBroadcaster()
	svc := newService(ctx, broadcaster, repository.NewFileRepository(stateFile))

	// Bring alarms up best-effort: a bad definition skips only that alarm.
	registered, err := registerAlarms(ctx, svc, settings.Alarms)
	if err != nil {
		logger.ErrorKV(ctx, "Some alarms were skipped", "skipped", len(multierr.Errors(err)), "registered", registered)
	}

	// Restore retained conditions from the last checkpoint.
	if err = svc.Restore(ctx); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	// Create and configure gRPC server with the condition service.
	grpcServer := grpc.NewServer()
	pb.RegisterConditionServiceServer(grpcServer, api.NewServer(svc))

	logger.InfoKV(ctx, "Condition server listening",
		"listen_address", listenAddress, "state_file", stateFile, "alarms", registered)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return svc.runSweeps(groupCtx, settings.SweepInterval)
	})

	group.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down gRPC server")

		// Closing subscriptions first lets streaming handlers return so GracefulStop does not wait on them.
		svc.Close()
		broadcaster.Close()
		grpcServer.GracefulStop()

		return nil
	})

	err = group.Wait()

	// Persist whatever the last commands changed.
	if checkpointErr := svc.Checkpoint(context.WithoutCancel(ctx)); checkpointErr != nil {
		logger.ErrorKV(ctx, "Final checkpoint failed", "error", checkpointErr)
	}

	logger.Info(ctx, "GRPC server stopped")

	return err
}

// applyLogSettings switches the global logger to the configured format and level.
func applyLogSettings(settings *config.Config) {
	if format, ok := logger.ParseFormat(settings.LogFormat); ok && format != logger.FormatConsole {
		logger.SetFormat(format)
	}

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	// Extract port from config address (e.g., "server.example.com:8080" -> ":8080").
	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	// Parse the address to extract port.
	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}
