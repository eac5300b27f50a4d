package api

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/b0bbywan/go-odio-players/backend/artwork"
	"github.com/b0bbywan/go-odio-players/backend/mpris"
	"github.com/b0bbywan/go-odio-players/logger"
)

// statusOf maps backend errors to an HTTP status.
func statusOf(err error) int {
	var (
		invalidBusNameErr *mpris.InvalidBusNameError
		validationErr     *mpris.ValidationError
		notFoundErr       *mpris.PlayerNotFoundError
		featureErr        *mpris.FeatureUnavailableError
		capErr            *mpris.CapabilityError
		closedErr         *mpris.BackendClosedError
		negotiationErr    *mpris.NegotiationError
		schemeErr         *artwork.UnsupportedSchemeError
		statusErr         *artwork.StatusError
		tooLargeErr       *artwork.TooLargeError
	)

	switch {
	case errors.As(err, &invalidBusNameErr), errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr), errors.As(err, &featureErr), errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.As(err, &capErr):
		return http.StatusForbidden
	case errors.As(err, &closedErr):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &negotiationErr),
		errors.As(err, &schemeErr),
		errors.As(err, &statusErr),
		errors.As(err, &tooLargeErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError && !errors.Is(err, context.Canceled) {
		logger.Warn("[api] request failed: %v", err)
	}
	http.Error(w, err.Error(), code)
}

// handleMPRISError answers 202 on success, the mapped status otherwise.
func handleMPRISError(w http.ResponseWriter, err error) {
	if err == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeError(w, err)
}
