package dbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// TimeoutError is returned when a D-Bus call exceeds its deadline.
type TimeoutError struct{}

func (e *TimeoutError) Error() string { return "dbus: call timed out" }

// SignalError is returned when a D-Bus signal body is malformed.
type SignalError struct {
	Reason string
}

func (e *SignalError) Error() string { return fmt.Sprintf("dbus: signal error: %s", e.Reason) }

// IsVanished reports whether err means the peer is gone (no owner, unknown
// service or no reply). Those are expected while players come and go.
func IsVanished(err error) bool {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) {
		switch dbusErr.Name {
		case ERR_NAME_HAS_NO_OWNER, ERR_SERVICE_UNKNOWN, ERR_NO_REPLY:
			return true
		}
	}
	var ptrErr *dbus.Error
	if errors.As(err, &ptrErr) && ptrErr != nil {
		switch ptrErr.Name {
		case ERR_NAME_HAS_NO_OWNER, ERR_SERVICE_UNKNOWN, ERR_NO_REPLY:
			return true
		}
	}
	return false
}

// IsCancelled reports whether err comes from a cancelled context. Cancellation
// is a normal teardown path and is never logged as an error.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
