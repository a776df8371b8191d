package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/logger"
)

type errorResponse struct {
	Error                 string   `json:"error"`
	ConflictingBookingIDs []string `json:"conflicting_booking_ids,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, conflicts []string) {
	writeJSON(w, status, errorResponse{Error: msg, ConflictingBookingIDs: conflicts})
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs), errors.Is(err, errMalformedBody):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSlotUnavailable),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrResourceHeld),
		errors.Is(err, domain.ErrDuplicatePenalty),
		errors.Is(err, domain.ErrDiscountExhausted),
		errors.Is(err, domain.ErrResourceNotBookable):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidWindow),
		errors.Is(err, domain.ErrInvalidOutcome),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidDiscount),
		errors.Is(err, domain.ErrInvalidCredits):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error", nil)
		return
	}

	var slotErr *domain.SlotUnavailableError
	if errors.As(err, &slotErr) {
		writeError(w, status, err.Error(), slotErr.ConflictingIDs())
		return
	}
	writeError(w, status, err.Error(), nil)
}
