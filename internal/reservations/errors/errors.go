package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	ErrRoomNotFound = errors.New("room not found")

	ErrInvalidID = errors.New("invalid reservation ID format")

	// ErrSlotTaken means a confirmed reservation already covers part of the
	// requested interval. It is the store-level signal behind a Conflict
	// outcome, never a store failure in disguise.
	ErrSlotTaken = errors.New("requested interval overlaps a confirmed reservation")

	// ErrLockHeld means another admission for the same room holds the
	// advisory lock right now.
	ErrLockHeld = errors.New("admission lock is held by another request")

	ErrInvalidInterval = errors.New("end time must be after start time")
)
