package pb

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/alarm-conditions/internal/domain/alarm"
)

// Request-only field names.
const (
	fieldOneShot  = "one_shot"
	fieldDuration = "duration"
)

// CommandRequest carries the arguments of every operator command.
// Each RPC reads the fields it needs.
type CommandRequest struct {
	// EventID addresses the occurrence for acknowledge, confirm, shelve, unshelve and reset.
	EventID domain.EventID
	// Identity addresses the alarm for trigger writes.
	Identity string
	// Comment is the operator comment or shelving reason.
	Comment string
	// OneShot selects one-shot shelving.
	OneShot bool
	// Duration is the requested shelving time.
	Duration time.Duration
	// Value is the trigger value to write.
	Value domain.Value
	// Actor is the client that issued the command.
	Actor *domain.Actor
}

// Struct encodes the request for the wire.
func (r *CommandRequest) Struct() (*structpb.Struct, error) {
	fields := map[string]any{}

	if len(r.EventID) > 0 {
		fields[fieldEventID] = r.EventID.String()
	}

	if r.Identity != "" {
		fields[fieldIdentity] = r.Identity
	}

	if r.Comment != "" {
		fields[fieldComment] = r.Comment
	}

	if r.OneShot {
		fields[fieldOneShot] = true
	}

	if r.Duration != 0 {
		fields[fieldDuration] = r.Duration.String()
	}

	if value := encodeValue(r.Value); value != nil {
		fields[fieldValue] = value
	}

	if r.Actor != nil {
		fields[fieldActor] = encodeActor(r.Actor)
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	return s, nil
}

// DecodeCommandRequest parses a request received on the wire.
func DecodeCommandRequest(s *structpb.Struct) (*CommandRequest, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: request is required", ErrMalformed)
	}

	f := fieldsOf(s)

	req := &CommandRequest{
		Identity: f.str(fieldIdentity),
		Comment:  f.str(fieldComment),
		OneShot:  f.flag(fieldOneShot),
		Value:    decodeValue(f.get(fieldValue)),
		Actor:    decodeActor(f.get(fieldActor).GetStructValue()),
	}

	if raw := f.str(fieldEventID); raw != "" {
		id, err := domain.ParseEventID(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		req.EventID = id
	}

	duration, err := parseDuration(f.str(fieldDuration))
	if err != nil {
		return nil, err
	}

	req.Duration = duration

	return req, nil
}
