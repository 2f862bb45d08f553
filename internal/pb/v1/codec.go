package pb

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	domain "github.com/oshokin/alarm-conditions/internal/domain/alarm"
)

// Struct field names shared by records and requests.
const (
	fieldEventID        = "event_id"
	fieldBranchID       = "branch_id"
	fieldIdentity       = "identity"
	fieldSource         = "source"
	fieldName           = "name"
	fieldCategory       = "category"
	fieldCapabilities   = "capabilities"
	fieldTime           = "time"
	fieldActive         = "active"
	fieldSeverity       = "severity"
	fieldMessage        = "message"
	fieldValue          = "value"
	fieldAcknowledged   = "acknowledged"
	fieldConfirmed      = "confirmed"
	fieldSuppressed     = "suppressed"
	fieldShelving       = "shelving"
	fieldShelvingExpiry = "shelving_expiry"
	fieldLatched        = "latched"
	fieldRetain         = "retain"
	fieldBand           = "band"
	fieldLevels         = "levels"
	fieldComment        = "comment"
	fieldActor          = "actor"
	fieldHostname       = "hostname"
	fieldUsername       = "username"
	fieldRecords        = "records"

	capAcknowledge   = "acknowledge"
	capConfirm       = "confirm"
	capSuppress      = "suppress"
	capShelve        = "shelve"
	capLatch         = "latch"
	capBranching     = "branching"
	capMaxShelveTime = "max_shelve_time"
)

// ErrMalformed is returned for messages that cannot be decoded.
var ErrMalformed = errors.New("malformed message")

// EncodeRecord converts an event record into its wire form.
// Sub-states whose capability is disabled are omitted.
func EncodeRecord(rec *domain.EventRecord) (*structpb.Struct, error) {
	caps := rec.Capabilities

	fields := map[string]any{
		fieldEventID:  rec.EventID.String(),
		fieldIdentity: rec.Identity,
		fieldSource:   rec.Source,
		fieldName:     rec.Name,
		fieldCategory: rec.Category.String(),
		fieldCapabilities: map[string]any{
			capAcknowledge:   caps.Acknowledge,
			capConfirm:       caps.Confirm,
			capSuppress:      caps.Suppress,
			capShelve:        caps.Shelve,
			capLatch:         caps.Latch,
			capBranching:     caps.Branching,
			capMaxShelveTime: caps.MaxShelveTime.String(),
		},
		fieldActive:   rec.Active,
		fieldSeverity: rec.Severity,
		fieldMessage:  rec.Message,
		fieldRetain:   rec.Retain,
	}

	if rec.IsBranch() {
		fields[fieldBranchID] = rec.BranchID.String()
	}

	if !rec.Time.IsZero() {
		formatted, err := formatTime(rec.Time)
		if err != nil {
			return nil, err
		}

		fields[fieldTime] = formatted
	}

	if value := encodeValue(rec.Value); value != nil {
		fields[fieldValue] = value
	}

	if caps.Acknowledge {
		fields[fieldAcknowledged] = rec.Acknowledged
	}

	if caps.Confirm {
		fields[fieldConfirmed] = rec.Confirmed
	}

	if caps.Suppress {
		fields[fieldSuppressed] = rec.Suppressed
	}

	if caps.Shelve {
		fields[fieldShelving] = rec.Shelving.String()

		if !rec.ShelvingExpiry.IsZero() {
			formatted, err := formatTime(rec.ShelvingExpiry)
			if err != nil {
				return nil, err
			}

			fields[fieldShelvingExpiry] = formatted
		}
	}

	if caps.Latch {
		fields[fieldLatched] = rec.Latched
	}

	switch rec.Category {
	case domain.CategoryExclusiveLimit:
		fields[fieldBand] = rec.Band.String()
	case domain.CategoryNonExclusiveLevel:
		levels := make([]any, 0, len(rec.Levels.Bands()))
		for _, band := range rec.Levels.Bands() {
			levels = append(levels, band.String())
		}

		fields[fieldLevels] = levels
	case domain.CategoryAcknowledgeable, domain.CategorySingleThreshold:
	}

	if rec.Comment != "" {
		fields[fieldComment] = rec.Comment
	}

	if rec.Actor != nil {
		fields[fieldActor] = encodeActor(rec.Actor)
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", rec.Identity, err)
	}

	return s, nil
}

// DecodeRecord is the inverse of EncodeRecord.
func DecodeRecord(s *structpb.Struct) (domain.EventRecord, error) {
	f := fieldsOf(s)

	eventID, err := domain.ParseEventID(f.str(fieldEventID))
	if err != nil {
		return domain.EventRecord{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	category, err := domain.ParseCategory(f.str(fieldCategory))
	if err != nil {
		return domain.EventRecord{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	capsFields := fieldsOf(f.get(fieldCapabilities).GetStructValue())

	maxShelve, err := parseDuration(capsFields.str(capMaxShelveTime))
	if err != nil {
		return domain.EventRecord{}, err
	}

	rec := domain.EventRecord{
		EventID:  eventID,
		Identity: f.str(fieldIdentity),
		Source:   f.str(fieldSource),
		Name:     f.str(fieldName),
		Category: category,
		Capabilities: domain.Capabilities{
			Acknowledge:   capsFields.flag(capAcknowledge),
			Confirm:       capsFields.flag(capConfirm),
			Suppress:      capsFields.flag(capSuppress),
			Shelve:        capsFields.flag(capShelve),
			Latch:         capsFields.flag(capLatch),
			Branching:     capsFields.flag(capBranching),
			MaxShelveTime: maxShelve,
		},
		Active:       f.flag(fieldActive),
		Severity:     int(f.number(fieldSeverity)),
		Message:      f.str(fieldMessage),
		Value:        decodeValue(f.get(fieldValue)),
		Acknowledged: f.flag(fieldAcknowledged),
		Confirmed:    f.flag(fieldConfirmed),
		Suppressed:   f.flag(fieldSuppressed),
		Shelving:     domain.ParseShelvingKind(f.str(fieldShelving)),
		Latched:      f.flag(fieldLatched),
		Retain:       f.flag(fieldRetain),
		Comment:      f.str(fieldComment),
		Actor:        decodeActor(f.get(fieldActor).GetStructValue()),
	}

	if raw := f.str(fieldBranchID); raw != "" {
		if rec.BranchID, err = domain.ParseEventID(raw); err != nil {
			return domain.EventRecord{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	}

	if rec.Time, err = parseTime(f.str(fieldTime)); err != nil {
		return domain.EventRecord{}, err
	}

	if rec.ShelvingExpiry, err = parseTime(f.str(fieldShelvingExpiry)); err != nil {
		return domain.EventRecord{}, err
	}

	if rec.Band, err = domain.ParseLimitBand(f.str(fieldBand)); err != nil {
		return domain.EventRecord{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	for _, item := range f.get(fieldLevels).GetListValue().GetValues() {
		band, err := domain.ParseLimitBand(item.GetStringValue())
		if err != nil {
			return domain.EventRecord{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		rec.Levels = rec.Levels.With(band)
	}

	return rec, nil
}

// EncodeRecords wraps records into a {"records": [...]} message.
func EncodeRecords(records []domain.EventRecord) (*structpb.Struct, error) {
	list := make([]*structpb.Value, 0, len(records))

	for i := range records {
		s, err := EncodeRecord(&records[i])
		if err != nil {
			return nil, err
		}

		list = append(list, structpb.NewStructValue(s))
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			fieldRecords: structpb.NewListValue(&structpb.ListValue{Values: list}),
		},
	}, nil
}

// DecodeRecords is the inverse of EncodeRecords.
func DecodeRecords(s *structpb.Struct) ([]domain.EventRecord, error) {
	items := fieldsOf(s).get(fieldRecords).GetListValue().GetValues()
	records := make([]domain.EventRecord, 0, len(items))

	for _, item := range items {
		rec, err := DecodeRecord(item.GetStructValue())
		if err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	return records, nil
}

// encodeValue returns the Struct-compatible form of v, or nil when nothing was observed.
func encodeValue(v domain.Value) any {
	switch v.Kind() {
	case domain.KindNumber:
		f, _ := v.Float()

		return f
	case domain.KindBool:
		b, _ := v.Bool()

		return b
	default:
		return nil
	}
}

// decodeValue maps number and bool wire values back onto domain values.
func decodeValue(v *structpb.Value) domain.Value {
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return domain.Number(kind.NumberValue)
	case *structpb.Value_BoolValue:
		return domain.Bool(kind.BoolValue)
	default:
		return domain.Value{}
	}
}

func encodeActor(actor *domain.Actor) map[string]any {
	return map[string]any{
		fieldHostname: actor.Hostname,
		fieldUsername: actor.Username,
	}
}

func decodeActor(s *structpb.Struct) *domain.Actor {
	if s == nil {
		return nil
	}

	f := fieldsOf(s)

	return &domain.Actor{
		Hostname: f.str(fieldHostname),
		Username: f.str(fieldUsername),
	}
}

// formatTime renders t in the protobuf JSON timestamp form.
func formatTime(t time.Time) (string, error) {
	raw, err := protojson.Marshal(timestamppb.New(t))
	if err != nil {
		return "", fmt.Errorf("encode time: %w", err)
	}

	formatted, err := strconv.Unquote(string(raw))
	if err != nil {
		return "", fmt.Errorf("encode time: %w", err)
	}

	return formatted, nil
}

// parseTime is the inverse of formatTime; empty input yields the zero time.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	var ts timestamppb.Timestamp
	if err := protojson.Unmarshal([]byte(strconv.Quote(s)), &ts); err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q: %w", ErrMalformed, s, err)
	}

	return ts.AsTime(), nil
}

// parseDuration reads a Go duration string; empty input yields zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: duration %q: %w", ErrMalformed, s, err)
	}

	return d, nil
}

// fields is a read helper over Struct fields tolerating missing keys.
type fields map[string]*structpb.Value

func fieldsOf(s *structpb.Struct) fields {
	return s.GetFields()
}

func (f fields) get(key string) *structpb.Value {
	return f[key]
}

func (f fields) str(key string) string {
	return f[key].GetStringValue()
}

func (f fields) flag(key string) bool {
	return f[key].GetBoolValue()
}

func (f fields) number(key string) float64 {
	return f[key].GetNumberValue()
}
