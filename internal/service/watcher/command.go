package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/alarm-conditions/internal/config"
	domain "github.com/oshokin/alarm-conditions/internal/domain/alarm"
	"github.com/oshokin/alarm-conditions/internal/logger"
	"github.com/oshokin/alarm-conditions/internal/service/common"
)

// Options controls the watch loop and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// ResubscribeInterval is the pause before reopening a dropped stream.
	ResubscribeInterval time.Duration
	// RetainedOnly skips records that do not belong in a refresh.
	RetainedOnly bool
	// Output receives one line per record, os.Stdout if nil.
	Output io.Writer
}

// DefaultResubscribeInterval defines the pause before reopening a dropped stream.
const DefaultResubscribeInterval = 2 * time.Second

// receiver yields records of one open subscription.
type receiver interface {
	Recv() (domain.EventRecord, error)
}

// openFunc opens a new subscription.
type openFunc func(ctx context.Context) (receiver, error)

// Run prints every published record until ctx is canceled, reopening the
// subscription whenever it drops.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "condition-watch")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if opts.ResubscribeInterval <= 0 {
		opts.ResubscribeInterval = DefaultResubscribeInterval
	}

	// Determine server address: command line argument overrides config.
	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	// Establish gRPC connection with timeout from configuration.
	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	// Ensure connection cleanup on function exit.
	defer func() {
		_ = client.Close()
	}()

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	logger.InfoKV(ctx, "Watching condition events", "server_address", serverAddress)

	open := func(ctx context.Context) (receiver, error) {
		sub, err := client.Subscribe(ctx)
		if err != nil {
			return nil, err
		}

		return sub, nil
	}

	return watch(ctx, open, output, opts)
}

// watch is the reconnect loop behind Run.
func watch(ctx context.Context, open openFunc, output io.Writer, opts *Options) error {
	for {
		err := follow(ctx, open, output, opts.RetainedOnly)

		// Main loop ends on context cancellation.
		if ctx.Err() != nil {
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		}

		var writeErr *writeError
		if errors.As(err, &writeErr) {
			return writeErr.err
		}

		logger.WarnKV(ctx, "Subscription dropped, resubscribing",
			"error", err, "code", status.Code(err).String(), "interval", opts.ResubscribeInterval.String())

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-time.After(opts.ResubscribeInterval):
		}
	}
}

// writeError marks failures of the output writer, which end the watch.
type writeError struct {
	err error
}

func (e *writeError) Error() string { return "write record: " + e.err.Error() }

func (e *writeError) Unwrap() error { return e.err }

// follow prints records of one subscription until it fails.
func follow(ctx context.Context, open openFunc, output io.Writer, retainedOnly bool) error {
	sub, err := open(ctx)
	if err != nil {
		return err
	}

	for {
		rec, err := sub.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return status.Error(codes.Unavailable, "stream ended")
			}

			return err
		}

		if retainedOnly && !rec.Retain {
			continue
		}

		if _, err = fmt.Fprintln(output, common.FormatRecord(&rec)); err != nil {
			return &writeError{err: err}
		}
	}
}
