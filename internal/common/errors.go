package common

import (
	"errors"
	"fmt"

	"tenf/portal/internal/constants"
)

// Sentinel errors shared by services, guards and handlers. Wrap them with
// %w; the API layer maps them to HTTP status codes.
var (
	ErrNotFound        = errors.New(constants.MsgNotFound)
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New(constants.MsgUnauthenticated)
	ErrForbidden       = errors.New(constants.MsgForbidden)
	ErrSafeMode        = errors.New(constants.MsgSafeModeEnabled)

	ErrAlreadyRegistered = fmt.Errorf("%w: %s", ErrConflict, constants.MsgAlreadyRegistered)
	ErrMonthClosed       = fmt.Errorf("%w: %s", ErrConflict, constants.MsgMonthClosed)
)

// Validationf builds an ErrValidation with a caller-facing message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
