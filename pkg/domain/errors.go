package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Typed errors below unwrap to these so callers can
// match with errors.Is.
var (
	ErrUnknownTemplate    = errors.New("unknown template")
	ErrUnsupportedVersion = errors.New("unsupported save version")
	ErrInvalidGrid        = errors.New("invalid grid in save")
	ErrMalformedDocument  = errors.New("malformed session document")
	ErrInventoryExhausted = errors.New("no remaining rooms of that type in inventory")
	ErrCapacityExceeded   = errors.New("room cap reached")
	ErrReplaceCancelled   = errors.New("replacement cancelled")
	ErrDecisionRequired   = errors.New("replace decision required")
	ErrCellOutOfRange     = errors.New("cell index out of range")
	ErrNotPlaced          = errors.New("instance is not placed")
	ErrInstanceNotFound   = errors.New("instance not found")
	ErrAlreadyTuned       = errors.New("room is already tuned")
	ErrNotTuned           = errors.New("room is not tuned")
	ErrInsufficientSurge  = errors.New("not enough surge energy")
	ErrInvalidRoomCap     = errors.New("invalid room cap")
	ErrPromptCancelled    = errors.New("prompt cancelled")
)

// UnknownTemplateError reports a catalog miss.
type UnknownTemplateError struct {
	TemplateID string
}

func (e UnknownTemplateError) Error() string {
	return fmt.Sprintf("unknown template %q", e.TemplateID)
}

func (e UnknownTemplateError) Unwrap() error { return ErrUnknownTemplate }

// UnsupportedVersionError reports a document version outside the accepted set.
type UnsupportedVersionError struct {
	Version any
}

func (e UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported save version %v", e.Version)
}

func (e UnsupportedVersionError) Unwrap() error { return ErrUnsupportedVersion }

// InvalidGridError reports a malformed grid section.
type InvalidGridError struct {
	Reason string
}

func (e InvalidGridError) Error() string {
	return "invalid grid in save: " + e.Reason
}

func (e InvalidGridError) Unwrap() error { return ErrInvalidGrid }

// CapacityError carries the cap that rejected a placement.
type CapacityError struct {
	Placed   int
	MaxRooms int
}

func (e CapacityError) Error() string {
	return fmt.Sprintf("room cap reached (%d/%d)", e.Placed, e.MaxRooms)
}

func (e CapacityError) Unwrap() error { return ErrCapacityExceeded }

// SurgeError reports a tune attempt without enough surge energy.
type SurgeError struct {
	Have int
	Need int
}

func (e SurgeError) Error() string {
	return fmt.Sprintf("not enough surge energy: have %d, need %d", e.Have, e.Need)
}

func (e SurgeError) Unwrap() error { return ErrInsufficientSurge }
