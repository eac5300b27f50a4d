package mpris

import "fmt"

// CapabilityError indicates that an action is not supported by the player
type CapabilityError struct {
	Required string
}

func (e *CapabilityError) Error() string {
	return "action not allowed (requires " + e.Required + ")"
}

// PlayerNotFoundError indicates that a player doesn't exist
type PlayerNotFoundError struct {
	BusName string
}

func (e *PlayerNotFoundError) Error() string {
	return "player not found: " + e.BusName
}

// InvalidBusNameError indicates that a busName is invalid
type InvalidBusNameError struct {
	BusName string
	Reason  string
}

func (e *InvalidBusNameError) Error() string {
	return "invalid player name: " + e.Reason
}

// ValidationError indicates that a parameter is invalid
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// FeatureUnavailableError is returned when an optional interface or self-tested
// property is missing for the player.
type FeatureUnavailableError struct {
	BusName string
	Feature string
}

func (e *FeatureUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s not available", e.BusName, e.Feature)
}

// NegotiationError is returned when a mandatory proxy of a player cannot be acquired.
type NegotiationError struct {
	BusName   string
	Interface string
	Err       error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("negotiation failed for %s (%s): %v", e.BusName, e.Interface, e.Err)
}

func (e *NegotiationError) Unwrap() error {
	return e.Err
}

// BackendClosedError is returned by actions issued after Close.
type BackendClosedError struct{}

func (e *BackendClosedError) Error() string {
	return "mpris backend closed"
}
