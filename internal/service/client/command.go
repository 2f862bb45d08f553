package client

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

// Command names one operator operation.
type Command string

// Supported commands.
const (
	CommandAcknowledge Command = "ack"
	CommandConfirm     Command = "confirm"
	CommandShelve      Command = "shelve"
	CommandUnshelve    Command = "unshelve"
	CommandReset       Command = "reset"
	CommandWrite       Command = "write"
	CommandRefresh     Command = "refresh"
)

// Options configures one condition-ctl invocation.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Command selects the operation.
	Command Command
	// EventID addresses ack, confirm, shelve, unshelve and reset.
	EventID string
	// Identity addresses trigger writes as "source/name".
	Identity string
	// Value is the trigger value to write: a number or true/false.
	Value string
	// Comment is the operator comment or shelving reason.
	Comment string
	// OneShot selects one-shot shelving instead of timed.
	OneShot bool
	// Duration is the timed shelving duration.
	Duration time.Duration

	// Output receives the resulting records, os.Stdout if nil.
	Output io.Writer
}

const (
	// defaultRetryInterval defines the delay between attempts while the server is unavailable.
	defaultRetryInterval = time.Second
	// defaultAttempts bounds how often a command is sent before giving up.
	defaultAttempts = 5
)

var (
	// errUnknownCommand is returned for commands outside the supported set.
	errUnknownCommand = errors.New("unknown command")
	// errIdentityRequired is returned when a write names no alarm.
	errIdentityRequired = errors.New("alarm identity must be provided")
)

// conditionClient is the subset of common.Client the commands need.
type conditionClient interface {
	Acknowledge(ctx context.Context, id domain.EventID, comment string, actor *domain.Actor) (domain.EventRecord, error)
	Confirm(ctx context.Context, id domain.EventID, comment string, actor *domain.Actor) (domain.EventRecord, error)
	Shelve(
		ctx context.Context,
		id domain.EventID,
		oneShot bool,
		duration time.Duration,
		reason string,
		actor *domain.Actor,
	) (domain.EventRecord, error)
	Unshelve(ctx context.Context, id domain.EventID, actor *domain.Actor) (domain.EventRecord, error)
	Reset(ctx context.Context, id domain.EventID, actor *domain.Actor) (domain.EventRecord, error)
	WriteTrigger(ctx context.Context, identity string, value domain.Value, actor *domain.Actor) ([]domain.EventRecord, error)
	Refresh(ctx context.Context) ([]domain.EventRecord, error)
}

// Run sends the requested command, retrying while the server is unavailable.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "condition-ctl")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	// Use server address from options if provided, otherwise use config.
	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	// Identify current user and hostname for the audit trail.
	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	// Connect to condition server with timeout from config.
	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Sending command", "server_address", serverAddress, "command", opts.Command)

	records, err := withRetry(ctx, defaultRetryInterval, defaultAttempts, func() ([]domain.EventRecord, error) {
		return execute(ctx, client, actor, opts)
	})
	if err != nil {
		return err
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	return printRecords(output, records)
}

// execute sends one command through client.
//
//nolint:cyclop // One branch per command.
func execute(
	ctx context.Context,
	client conditionClient,
	actor *domain.Actor,
	opts *Options,
) ([]domain.EventRecord, error) {
	switch opts.Command {
	case CommandWrite:
		if opts.Identity == "" {
			return nil, errIdentityRequired
		}

		value, err := domain.ParseValue(opts.Value)
		if err != nil {
			return nil, err
		}

		return client.WriteTrigger(ctx, opts.Identity, value, actor)
	case CommandRefresh:
		return client.Refresh(ctx)
	case CommandAcknowledge, CommandConfirm, CommandShelve, CommandUnshelve, CommandReset:
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownCommand, opts.Command)
	}

	id, err := domain.ParseEventID(opts.EventID)
	if err != nil {
		return nil, fmt.Errorf("event id: %w", err)
	}

	var rec domain.EventRecord

	switch opts.Command {
	case CommandAcknowledge:
		rec, err = client.Acknowledge(ctx, id, opts.Comment, actor)
	case CommandConfirm:
		rec, err = client.Confirm(ctx, id, opts.Comment, actor)
	case CommandShelve:
		rec, err = client.Shelve(ctx, id, opts.OneShot, opts.Duration, opts.Comment, actor)
	case CommandUnshelve:
		rec, err = client.Unshelve(ctx, id, actor)
	case CommandReset:
		rec, err = client.Reset(ctx, id, actor)
	case CommandWrite, CommandRefresh:
	}

	if err != nil {
		return nil, err
	}

	return []domain.EventRecord{rec}, nil
}

// withRetry calls attempt until it succeeds, fails with an error other than
// Unavailable, runs out of attempts or ctx is done.
func withRetry(
	ctx context.Context,
	interval time.Duration,
	attempts int,
	attempt func() ([]domain.EventRecord, error),
) ([]domain.EventRecord, error) {
	// Attempt immediately before starting retry loop.
	records, err := attempt()
	if err == nil || status.Code(err) != codes.Unavailable {
		return records, err
	}

	// Setup retry timer for subsequent attempts.
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for tried := 1; tried < attempts; tried++ {
		// Log error but continue retrying while the server is unreachable.
		logger.WarnKV(ctx, "Condition server unavailable, retrying", "attempt", tried, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		records, err = attempt()
		if err == nil || status.Code(err) != codes.Unavailable {
			return records, err
		}
	}

	return nil, err
}

// printRecords writes one line per record.
func printRecords(w io.Writer, records []domain.EventRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no records")

		return err
	}

	for i := range records {
		if _, err := fmt.Fprintln(w, common.FormatRecord(&records[i])); err != nil {
			return err
		}
	}

	return nil
}
