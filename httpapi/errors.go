package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"gigflow/auth"
	"gigflow/bid"
	"gigflow/gig"
	"gigflow/hire"
)

var (
	errBadRequest      = errors.New("malformed request")
	errUnauthenticated = errors.New("authentication required")
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes. Transient is checked
// before conflict so a retryable commit failure tells the client to retry.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, gig.ErrInvalidInput),
		errors.Is(err, bid.ErrInvalidInput),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrMissingFields):
		return http.StatusBadRequest
	case errors.Is(err, errUnauthenticated),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, hire.ErrUnauthorized),
		errors.Is(err, bid.ErrForbidden),
		errors.Is(err, bid.ErrOwnBid):
		return http.StatusForbidden
	case errors.Is(err, hire.ErrNotFound),
		errors.Is(err, bid.ErrGigNotFound),
		errors.Is(err, bid.ErrNotFound),
		errors.Is(err, gig.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, hire.ErrTransient):
		return http.StatusServiceUnavailable
	case errors.Is(err, hire.ErrConflict),
		errors.Is(err, bid.ErrDuplicate),
		errors.Is(err, bid.ErrGigClosed),
		errors.Is(err, auth.ErrDuplicateEmail):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()

	switch {
	case status >= http.StatusInternalServerError:
		log.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Any("error", err))
		if status == http.StatusInternalServerError {
			msg = "internal server error"
		} else {
			msg = "temporarily unavailable, retry"
		}
	default:
		log.Debug("request rejected",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Any("error", err))
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg, RequestID: middleware.GetReqID(r.Context())})
}
