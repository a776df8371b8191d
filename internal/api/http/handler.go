// Package http exposes the reservation engine over JSON/HTTP.
package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/metrics"
	"consolerent-backend/internal/security"
	"consolerent-backend/internal/service"
)

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	engine   *service.Engine
	validate *validator.Validate
	health   HealthChecker
}

func NewHandler(engine *service.Engine, health HealthChecker) *Handler {
	return &Handler{engine: engine, validate: validator.New(), health: health}
}

// NewRouter registers every route under its security name.
func NewRouter(engine *service.Engine, verifier security.TokenVerifier, m *metrics.Metrics, health HealthChecker) *mux.Router {
	h := NewHandler(engine, health)
	r := mux.NewRouter()
	r.Use(LoggingMiddleware, AuthMiddleware(verifier))

	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet).Name("healthz")
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet).Name("metrics")

	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/resources", h.CreateResource).Methods(http.MethodPost).Name("resources.create")
	v1.HandleFunc("/resources", h.ListResources).Methods(http.MethodGet).Name("resources.list")
	v1.HandleFunc("/resources/{id}", h.GetResource).Methods(http.MethodGet).Name("resources.get")
	v1.HandleFunc("/resources/{id}/maintenance", h.SetMaintenance).Methods(http.MethodPut).Name("resources.status")
	v1.HandleFunc("/resources/{id}/availability", h.CheckAvailability).Methods(http.MethodGet).Name("availability.check")
	v1.HandleFunc("/resources/{id}/bookings", h.Calendar).Methods(http.MethodGet).Name("bookings.calendar")
	v1.HandleFunc("/resources/{id}/quote", h.Quote).Methods(http.MethodGet).Name("discounts.quote")
	v1.HandleFunc("/discounts", h.CreateDiscount).Methods(http.MethodPost).Name("discounts.create")

	v1.HandleFunc("/softlocks", h.AcquireSoftLock).Methods(http.MethodPost).Name("softlocks.acquire")
	v1.HandleFunc("/softlocks", h.ReleaseSoftLock).Methods(http.MethodDelete).Name("softlocks.release")
	v1.HandleFunc("/softlocks", h.GetSoftLock).Methods(http.MethodGet).Name("softlocks.get")

	v1.HandleFunc("/bookings", h.CreateBooking).Methods(http.MethodPost).Name("bookings.create")
	v1.HandleFunc("/bookings/{id}", h.GetBooking).Methods(http.MethodGet).Name("bookings.get")
	v1.HandleFunc("/bookings/{id}/cancel", h.CancelBooking).Methods(http.MethodPost).Name("bookings.cancel")
	v1.HandleFunc("/bookings/{id}/confirm", h.ConfirmBooking).Methods(http.MethodPost).Name("bookings.confirm")
	v1.HandleFunc("/bookings/{id}/complete", h.CompleteBooking).Methods(http.MethodPost).Name("bookings.complete")

	v1.HandleFunc("/penalties", h.CreatePenalty).Methods(http.MethodPost).Name("penalties.create")
	v1.HandleFunc("/penalties/{id}/approve", h.ApprovePenalty).Methods(http.MethodPost).Name("penalties.approve")
	v1.HandleFunc("/penalties/{id}/waive", h.WaivePenalty).Methods(http.MethodPost).Name("penalties.waive")
	v1.HandleFunc("/penalties/{id}/pay", h.PayPenalty).Methods(http.MethodPost).Name("penalties.pay")
	v1.HandleFunc("/penalties/{id}/dispute", h.DisputePenalty).Methods(http.MethodPost).Name("penalties.dispute")

	v1.HandleFunc("/users/{id}/rating", h.GetRating).Methods(http.MethodGet).Name("ratings.get")
	v1.HandleFunc("/users/{id}/credits", h.GrantCredits).Methods(http.MethodPost).Name("ratings.credit")

	v1.HandleFunc("/me/bookings", h.MyBookings).Methods(http.MethodGet).Name("bookings.mine")
	v1.HandleFunc("/me/rating", h.MyRating).Methods(http.MethodGet).Name("ratings.mine")
	v1.HandleFunc("/me/penalties", h.MyPenalties).Methods(http.MethodGet).Name("penalties.mine")
	v1.HandleFunc("/me/notifications", h.MyNotifications).Methods(http.MethodGet).Name("notifications.mine")
	v1.HandleFunc("/me/notifications/{id}/read", h.MarkNotificationRead).Methods(http.MethodPost).Name("notifications.read")

	v1.HandleFunc("/sweeps/overdue", h.RunOverdueSweep).Methods(http.MethodPost).Name("sweeps.overdue")
	v1.HandleFunc("/sweeps/expiry", h.RunExpirySweep).Methods(http.MethodPost).Name("sweeps.expiry")
	v1.HandleFunc("/sweeps/reminders", h.RunReminderSweep).Methods(http.MethodPost).Name("sweeps.reminders")
	v1.HandleFunc("/sweeps/status", h.RunStatusRefresh).Methods(http.MethodPost).Name("sweeps.status")

	return r
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unreachable", nil)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Resources and discounts

func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	var req createResourceRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	res := &domain.Resource{ID: req.ID, Name: req.Name, HourlyPrice: req.HourlyPrice, DailyPrice: req.DailyPrice}
	if err := h.engine.Resources.CreateResource(r.Context(), res); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.engine.Resources.ListResources(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(resources))
}

func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Resources.GetResource(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SetMaintenance takes a resource out of service ({"maintenance": true}) or puts it back.
func (h *Handler) SetMaintenance(w http.ResponseWriter, r *http.Request) {
	var req maintenanceRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	res, err := h.engine.Resources.SetMaintenance(r.Context(), mux.Vars(r)["id"], *req.Maintenance)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	win, err := windowFromQuery(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	avail, err := h.engine.CheckAvailability(r.Context(), mux.Vars(r)["id"], win)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, avail)
}

// Calendar lists the active bookings of a resource, optionally within ?start=&end=.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	var win *domain.Window
	q := r.URL.Query()
	if q.Get("start") != "" || q.Get("end") != "" {
		parsed, err := windowFromQuery(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		win = &parsed
	}
	bookings, err := h.engine.Bookings.ListByResource(r.Context(), mux.Vars(r)["id"], win)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(bookings))
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	win, err := windowFromQuery(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	quote, err := h.engine.Discounts.Quote(r.Context(), callerID(r.Context()), mux.Vars(r)["id"], win)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *Handler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	var req createDiscountRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	d := req.discount()
	if err := h.engine.Discounts.CreateDiscount(r.Context(), d); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// Soft locks

func (h *Handler) AcquireSoftLock(w http.ResponseWriter, r *http.Request) {
	var req acquireSoftLockRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	lock, err := h.engine.AcquireSoftLock(r.Context(), callerID(r.Context()), req.ResourceID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lock)
}

func (h *Handler) ReleaseSoftLock(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ReleaseSoftLock(r.Context(), callerID(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetSoftLock(w http.ResponseWriter, r *http.Request) {
	lock, err := h.engine.SoftLocks.Get(r.Context(), callerID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lock)
}

// Bookings

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	win, err := domain.NewWindow(req.Start, req.End)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	booking, err := h.engine.CreateBooking(r.Context(), callerID(r.Context()), req.ResourceID, win, nil)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// ownBooking loads the booking and hides it from callers who neither own it nor are admins.
func (h *Handler) ownBooking(r *http.Request) (*domain.Booking, error) {
	booking, err := h.engine.Bookings.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return nil, err
	}
	if booking.UserID != callerID(r.Context()) && !callerIsAdmin(r.Context()) {
		return nil, domain.ErrNotFound
	}
	return booking, nil
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.ownBooking(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	booking, err := h.ownBooking(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	booking, err = h.engine.CancelBooking(r.Context(), booking.ID, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.engine.ConfirmBooking(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	var req completeBookingRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	booking, err := h.engine.CompleteBooking(r.Context(), mux.Vars(r)["id"], req.outcome())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) MyBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.engine.Bookings.ListByUser(r.Context(), callerID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(bookings))
}

// Penalties

func (h *Handler) CreatePenalty(w http.ResponseWriter, r *http.Request) {
	var req createPenaltyRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	penalty, err := h.engine.Penalties.CreatePenalty(r.Context(), service.CreatePenaltyRequest{
		BookingID: req.BookingID,
		Kind:      domain.PenaltyKind(req.Kind),
		Amount:    req.Amount,
		Reason:    req.Reason,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, penalty)
}

func (h *Handler) ApprovePenalty(w http.ResponseWriter, r *http.Request) {
	h.writePenalty(w, r)(h.engine.Penalties.Approve(r.Context(), mux.Vars(r)["id"]))
}

func (h *Handler) PayPenalty(w http.ResponseWriter, r *http.Request) {
	h.writePenalty(w, r)(h.engine.Penalties.MarkPaid(r.Context(), mux.Vars(r)["id"]))
}

func (h *Handler) WaivePenalty(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writePenalty(w, r)(h.engine.Penalties.Waive(r.Context(), mux.Vars(r)["id"], req.Reason))
}

func (h *Handler) DisputePenalty(w http.ResponseWriter, r *http.Request) {
	var req disputeRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writePenalty(w, r)(h.engine.Penalties.Dispute(r.Context(), mux.Vars(r)["id"], callerID(r.Context()), req.Reason))
}

func (h *Handler) writePenalty(w http.ResponseWriter, r *http.Request) func(*domain.Penalty, error) {
	return func(p *domain.Penalty, err error) {
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (h *Handler) MyPenalties(w http.ResponseWriter, r *http.Request) {
	penalties, err := h.engine.Penalties.ListByUser(r.Context(), callerID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(penalties))
}

// Ratings

func (h *Handler) MyRating(w http.ResponseWriter, r *http.Request) {
	score, err := h.engine.GetUserRating(r.Context(), callerID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (h *Handler) GetRating(w http.ResponseWriter, r *http.Request) {
	score, err := h.engine.GetUserRating(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (h *Handler) GrantCredits(w http.ResponseWriter, r *http.Request) {
	var req creditRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	score, err := h.engine.Ratings.GrantLoyaltyCredit(r.Context(), mux.Vars(r)["id"], req.Credits)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

// Notifications

func (h *Handler) MyNotifications(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	notes, total, err := h.engine.Notifications.GetNotifications(r.Context(), callerID(r.Context()), page, pageSize)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if notes == nil {
		notes = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Notification]{Items: notes, Total: total})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Notifications.MarkAsRead(r.Context(), callerID(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sweeps can be triggered on demand in addition to the cron schedule.

func (h *Handler) RunOverdueSweep(w http.ResponseWriter, r *http.Request) {
	h.writeReport(w, r)(h.engine.RunOverdueSweep(r.Context()))
}

func (h *Handler) RunExpirySweep(w http.ResponseWriter, r *http.Request) {
	h.writeReport(w, r)(h.engine.RunExpirySweep(r.Context()))
}

func (h *Handler) RunReminderSweep(w http.ResponseWriter, r *http.Request) {
	h.writeReport(w, r)(h.engine.RunReminderSweep(r.Context()))
}

func (h *Handler) RunStatusRefresh(w http.ResponseWriter, r *http.Request) {
	h.writeReport(w, r)(h.engine.RunStatusRefresh(r.Context()))
}

func (h *Handler) writeReport(w http.ResponseWriter, r *http.Request) func(*service.SweepReport, error) {
	return func(report *service.SweepReport, err error) {
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}
