//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/alarm-conditions/internal/config"
	domain "github.com/oshokin/alarm-conditions/internal/domain/alarm"
	pb "github.com/oshokin/alarm-conditions/internal/pb/v1"
	"github.com/oshokin/alarm-conditions/internal/version"
)

// Client wraps the gRPC ConditionService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the condition server.
	conn *grpc.ClientConn
	// api is the ConditionService client interface.
	api pb.ConditionServiceClient

	// callTimeout is the default timeout for individual unary calls.
	callTimeout time.Duration
	// dialOptions are appended to the defaults when connecting.
	dialOptions []grpc.DialOption
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for unary service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithDialOptions appends extra gRPC dial options, for example a custom dialer.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *Client) {
		c.dialOptions = append(c.dialOptions, opts...)
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errActorRequired is returned when an actor is not provided but is required for the operation.
	errActorRequired = errors.New("actor must be provided")
	// errEventIDRequired is returned when a command is not addressed to an event.
	errEventIDRequired = errors.New("event id must be provided")
)

// Dial establishes a gRPC connection to the condition server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	client := &Client{
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	dialOptions := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUserAgent(version.UserAgent()),
	}, client.dialOptions...)

	conn, err := grpc.NewClient(address, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("dial condition server: %w", err)
	}

	client.conn = conn
	client.api = pb.NewConditionServiceClient(conn)

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Acknowledge acknowledges the occurrence that reported id.
func (c *Client) Acknowledge(
	ctx context.Context,
	id domain.EventID,
	comment string,
	actor *domain.Actor,
) (domain.EventRecord, error) {
	return c.command(ctx, "acknowledge", c.api.Acknowledge, &pb.CommandRequest{
		EventID: id,
		Comment: comment,
		Actor:   actor,
	})
}

// Confirm confirms the occurrence that reported id.
func (c *Client) Confirm(
	ctx context.Context,
	id domain.EventID,
	comment string,
	actor *domain.Actor,
) (domain.EventRecord, error) {
	return c.command(ctx, "confirm", c.api.Confirm, &pb.CommandRequest{
		EventID: id,
		Comment: comment,
		Actor:   actor,
	})
}

// Shelve shelves the alarm that reported id.
// A one-shot shelve ignores duration.
func (c *Client) Shelve(
	ctx context.Context,
	id domain.EventID,
	oneShot bool,
	duration time.Duration,
	reason string,
	actor *domain.Actor,
) (domain.EventRecord, error) {
	return c.command(ctx, "shelve", c.api.Shelve, &pb.CommandRequest{
		EventID:  id,
		OneShot:  oneShot,
		Duration: duration,
		Comment:  reason,
		Actor:    actor,
	})
}

// Unshelve ends shelving of the alarm that reported id.
func (c *Client) Unshelve(ctx context.Context, id domain.EventID, actor *domain.Actor) (domain.EventRecord, error) {
	return c.command(ctx, "unshelve", c.api.Unshelve, &pb.CommandRequest{
		EventID: id,
		Actor:   actor,
	})
}

// Reset releases the latch of the alarm that reported id.
func (c *Client) Reset(ctx context.Context, id domain.EventID, actor *domain.Actor) (domain.EventRecord, error) {
	return c.command(ctx, "reset", c.api.Reset, &pb.CommandRequest{
		EventID: id,
		Actor:   actor,
	})
}

// WriteTrigger writes value to the trigger feed of the alarm with the given identity.
// It returns the records published by the resulting update.
func (c *Client) WriteTrigger(
	ctx context.Context,
	identity string,
	value domain.Value,
	actor *domain.Actor,
) ([]domain.EventRecord, error) {
	if actor == nil {
		return nil, errActorRequired
	}

	in, err := (&pb.CommandRequest{Identity: identity, Value: value, Actor: actor}).Struct()
	if err != nil {
		return nil, err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	out, err := c.api.WriteTrigger(callCtx, in)
	if err != nil {
		return nil, fmt.Errorf("write trigger: %w", err)
	}

	return pb.DecodeRecords(out)
}

// Refresh returns every retained condition and branch.
func (c *Client) Refresh(ctx context.Context) ([]domain.EventRecord, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	out, err := c.api.Refresh(callCtx, new(structpb.Struct))
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	return pb.DecodeRecords(out)
}

// Subscription is an open event stream.
type Subscription struct {
	stream grpc.ServerStreamingClient[structpb.Struct]
}

// Recv blocks until the next record arrives or the stream ends.
func (s *Subscription) Recv() (domain.EventRecord, error) {
	message, err := s.stream.Recv()
	if err != nil {
		return domain.EventRecord{}, err
	}

	return pb.DecodeRecord(message)
}

// Subscribe opens an event stream. The stream lives until ctx is done,
// so no call timeout applies.
func (c *Client) Subscribe(ctx context.Context) (*Subscription, error) {
	stream, err := c.api.Subscribe(ctx, new(structpb.Struct))
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	return &Subscription{stream: stream}, nil
}

// command sends an event-addressed request through call and decodes the returned record.
func (c *Client) command(
	ctx context.Context,
	name string,
	call func(context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error),
	req *pb.CommandRequest,
) (domain.EventRecord, error) {
	if req.Actor == nil {
		return domain.EventRecord{}, errActorRequired
	}

	if len(req.EventID) == 0 {
		return domain.EventRecord{}, errEventIDRequired
	}

	in, err := req.Struct()
	if err != nil {
		return domain.EventRecord{}, err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	out, err := call(callCtx, in)
	if err != nil {
		return domain.EventRecord{}, fmt.Errorf("%s: %w", name, err)
	}

	return pb.DecodeRecord(out)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
