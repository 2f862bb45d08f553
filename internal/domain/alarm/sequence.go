package alarm

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// eventIDLength is 16 bytes of owner UUID followed by an 8-byte sequence number.
const eventIDLength = 16 + 8

// EventID is the opaque identifier of one reported event.
type EventID []byte

// ParseEventID decodes the hex form produced by String.
func ParseEventID(s string) (EventID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode event id: %w", err)
	}

	if len(raw) == 0 {
		return nil, ErrUnknownEventID
	}

	return raw, nil
}

// String renders the id as lowercase hex.
func (id EventID) String() string {
	return hex.EncodeToString(id)
}

// Equal compares two ids byte-wise.
func (id EventID) Equal(other EventID) bool {
	return bytes.Equal(id, other)
}

// Sequence returns the sequence part of an id issued by a Sequence, or 0.
func (id EventID) Sequence() uint64 {
	if len(id) != eventIDLength {
		return 0
	}

	return binary.BigEndian.Uint64(id[16:])
}

// key is the map key form of the id.
func (id EventID) key() string {
	return string(id)
}

// Sequence issues event ids as (owner, sequence) pairs.
// It is owned by one component and guarded by that component's lock.
type Sequence struct {
	// owner is embedded in every issued id.
	owner uuid.UUID
	// next is the last issued sequence number.
	next uint64
}

// NewSequence creates a sequence for the given owner.
func NewSequence(owner uuid.UUID) *Sequence {
	return &Sequence{
		owner: owner,
	}
}

// Owner returns the owner UUID embedded in issued ids.
func (s *Sequence) Owner() uuid.UUID {
	return s.owner
}

// Next issues a fresh id. The counter is 64 bits wide and is not checked for wrap-around.
func (s *Sequence) Next() EventID {
	s.next++

	id := make(EventID, eventIDLength)
	copy(id, s.owner[:])
	binary.BigEndian.PutUint64(id[16:], s.next)

	return id
}
