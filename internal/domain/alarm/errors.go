package alarm

import "errors"

var (
	// ErrUnknownEventID is returned when no condition or branch carries the event id.
	ErrUnknownEventID = errors.New("unknown event id")
	// ErrAlreadyAcknowledged is returned when the occurrence is already acknowledged.
	ErrAlreadyAcknowledged = errors.New("condition already acknowledged")
	// ErrAlreadyConfirmed is returned when the occurrence is already confirmed.
	ErrAlreadyConfirmed = errors.New("condition already confirmed")
	// ErrNotShelvable is returned when the alarm does not support shelving.
	ErrNotShelvable = errors.New("alarm does not support shelving")
	// ErrTypeMismatch is returned when a trigger value does not fit the category.
	ErrTypeMismatch = errors.New("trigger value type mismatch")

	// ErrNotAcknowledgeable is returned when the alarm does not support acknowledgement.
	ErrNotAcknowledgeable = errors.New("alarm does not support acknowledgement")
	// ErrNotConfirmable is returned when the alarm does not support confirmation.
	ErrNotConfirmable = errors.New("alarm does not support confirmation")
	// ErrNotShelved is returned by unshelve when the alarm is not shelved.
	ErrNotShelved = errors.New("alarm is not shelved")
	// ErrInvalidShelveTime is returned when a timed shelve has no usable duration.
	ErrInvalidShelveTime = errors.New("invalid shelving time")
	// ErrNotLatchable is returned when the alarm does not support latching.
	ErrNotLatchable = errors.New("alarm does not support latching")
	// ErrNotLatched is returned by reset when the alarm is not latched.
	ErrNotLatched = errors.New("alarm is not latched")
	// ErrStillActive is returned by reset while the alarm is still active.
	ErrStillActive = errors.New("alarm is still active")
	// ErrReadOnlyTrigger is returned when the trigger feed does not accept writes.
	ErrReadOnlyTrigger = errors.New("trigger feed is read-only")
	// ErrUnknownAlarm is returned when no alarm has the requested identity.
	ErrUnknownAlarm = errors.New("unknown alarm")
	// ErrDuplicateAlarm is returned when an identity is registered twice.
	ErrDuplicateAlarm = errors.New("alarm already registered")
	// ErrClosed is returned once the owning component has been closed.
	ErrClosed = errors.New("alarm owner closed")
	// ErrInvalidDefinition is returned for alarm definitions that cannot be built.
	ErrInvalidDefinition = errors.New("invalid alarm definition")
)
