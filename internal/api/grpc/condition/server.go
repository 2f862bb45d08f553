package condition

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/alarm-conditions/internal/domain/alarm"
	"github.com/oshokin/alarm-conditions/internal/logger"
	"github.com/oshokin/alarm-conditions/internal/notify"
	pb "github.com/oshokin/alarm-conditions/internal/pb/v1"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
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
	Refresh(ctx context.Context) []domain.EventRecord
	Subscribe(ctx context.Context, buffer int) (<-chan domain.EventRecord, func(), error)
}

// Server implements the ConditionService gRPC API.
type Server struct {
	pb.UnimplementedConditionServiceServer

	// service provides the business logic for condition operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Acknowledge acknowledges the occurrence that reported the request's event id.
func (s *Server) Acknowledge(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeAddressed(in)
	if err != nil {
		return nil, err
	}

	return respond(s.service.Acknowledge(ctx, req.EventID, req.Comment, req.Actor))
}

// Confirm confirms the occurrence that reported the request's event id.
func (s *Server) Confirm(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeAddressed(in)
	if err != nil {
		return nil, err
	}

	return respond(s.service.Confirm(ctx, req.EventID, req.Comment, req.Actor))
}

// Shelve shelves the alarm that reported the request's event id.
func (s *Server) Shelve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeAddressed(in)
	if err != nil {
		return nil, err
	}

	return respond(s.service.Shelve(ctx, req.EventID, req.OneShot, req.Duration, req.Comment, req.Actor))
}

// Unshelve ends shelving of the alarm that reported the request's event id.
func (s *Server) Unshelve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeAddressed(in)
	if err != nil {
		return nil, err
	}

	return respond(s.service.Unshelve(ctx, req.EventID, req.Actor))
}

// Reset releases the latch of the alarm that reported the request's event id.
func (s *Server) Reset(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeAddressed(in)
	if err != nil {
		return nil, err
	}

	return respond(s.service.Reset(ctx, req.EventID, req.Actor))
}

// WriteTrigger writes a trigger value to the alarm named by the request's identity.
func (s *Server) WriteTrigger(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode(in)
	if err != nil {
		return nil, err
	}

	if req.Identity == "" {
		return nil, status.Error(codes.InvalidArgument, "identity is required")
	}

	if req.Value.IsZero() {
		return nil, status.Error(codes.InvalidArgument, "value is required")
	}

	records, err := s.service.WriteTrigger(ctx, req.Identity, req.Value, req.Actor)
	if err != nil {
		return nil, toStatus(err)
	}

	return encodeRecords(records)
}

// Refresh returns every retained condition and branch.
func (s *Server) Refresh(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return encodeRecords(s.service.Refresh(ctx))
}

// Subscribe streams a refresh followed by every published record until the client
// goes away or the subscription is closed by the server.
func (s *Server) Subscribe(_ *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()

	records, cancel, err := s.service.Subscribe(ctx, 0)
	if err != nil {
		return toStatus(err)
	}

	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		case rec, ok := <-records:
			if !ok {
				return status.Error(codes.Unavailable, "subscription closed, resubscribe to refresh")
			}

			message, err := pb.EncodeRecord(&rec)
			if err != nil {
				logger.ErrorKV(ctx, "Unable to encode record", "alarm", rec.Identity, "error", err)

				return status.Error(codes.Internal, "unable to encode record")
			}

			if err = stream.Send(message); err != nil {
				return err
			}
		}
	}
}

// decode parses a request and requires an actor.
func decode(in *structpb.Struct) (*pb.CommandRequest, error) {
	req, err := pb.DecodeCommandRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if req.Actor == nil {
		return nil, status.Error(codes.InvalidArgument, "actor is required")
	}

	return req, nil
}

// decodeAddressed parses a request that must carry an event id.
func decodeAddressed(in *structpb.Struct) (*pb.CommandRequest, error) {
	req, err := decode(in)
	if err != nil {
		return nil, err
	}

	if len(req.EventID) == 0 {
		return nil, status.Error(codes.InvalidArgument, "event id is required")
	}

	return req, nil
}

// respond encodes the record of a successful command or maps its error.
func respond(rec domain.EventRecord, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(err)
	}

	message, err := pb.EncodeRecord(&rec)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode record")
	}

	return message, nil
}

func encodeRecords(records []domain.EventRecord) (*structpb.Struct, error) {
	message, err := pb.EncodeRecords(records)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode records")
	}

	return message, nil
}

// toStatus maps engine errors onto gRPC status codes.
func toStatus(err error) error {
	var code codes.Code

	switch {
	case errors.Is(err, domain.ErrUnknownEventID),
		errors.Is(err, domain.ErrUnknownAlarm):
		code = codes.NotFound
	case errors.Is(err, domain.ErrAlreadyAcknowledged),
		errors.Is(err, domain.ErrAlreadyConfirmed),
		errors.Is(err, domain.ErrNotAcknowledgeable),
		errors.Is(err, domain.ErrNotConfirmable),
		errors.Is(err, domain.ErrNotShelvable),
		errors.Is(err, domain.ErrNotShelved),
		errors.Is(err, domain.ErrNotLatchable),
		errors.Is(err, domain.ErrNotLatched),
		errors.Is(err, domain.ErrStillActive):
		code = codes.FailedPrecondition
	case errors.Is(err, domain.ErrTypeMismatch),
		errors.Is(err, domain.ErrInvalidShelveTime):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrReadOnlyTrigger):
		code = codes.PermissionDenied
	case errors.Is(err, domain.ErrClosed),
		errors.Is(err, notify.ErrClosed):
		code = codes.Unavailable
	default:
		code = codes.Internal
	}

	return status.Error(code, err.Error())
}
