package mpris

import (
	"strings"
)

// ValidateBusName checks that busName is a well-formed MPRIS player name.
func ValidateBusName(busName string) error {
	if busName == "" {
		return &InvalidBusNameError{BusName: busName, Reason: "empty bus name"}
	}
	if !isPlayerName(busName) {
		return &InvalidBusNameError{BusName: busName, Reason: "must start with " + MPRIS_PREFIX + "."}
	}
	if len(busName) > 255 {
		return &InvalidBusNameError{BusName: busName, Reason: "longer than 255 characters"}
	}
	if strings.Contains(busName, "..") || strings.HasSuffix(busName, ".") {
		return &InvalidBusNameError{BusName: busName, Reason: "empty element"}
	}
	for _, r := range busName {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '.':
		default:
			return &InvalidBusNameError{BusName: busName, Reason: "contains illegal characters"}
		}
	}
	return nil
}
