package artwork

import "fmt"

// UnsupportedSchemeError is returned for cover URLs that are neither file nor http(s).
type UnsupportedSchemeError struct {
	Scheme string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("unsupported artwork scheme %q", e.Scheme)
}

// StatusError is returned when the remote server answers with a non-200 status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("artwork fetch returned status %d", e.Code)
}

// TooLargeError is returned when the cover exceeds the configured size.
type TooLargeError struct {
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("artwork larger than %d bytes", e.Limit)
}
