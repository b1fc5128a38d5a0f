package reservations

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/example/tablebook/internal/booking"
	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/slots"
)

// RestaurantLookup resolves the restaurant named by a submission.
type RestaurantLookup interface {
	Get(ctx context.Context, id string) (booking.Restaurant, error)
}

// Handler serves the booking endpoint:
//
//	POST   /book            200 created, 201 updated, 402 rejected
//	GET    /bookings        ?userEmail=&status=
//	DELETE /bookings/{id}   marks the booking Cancelled
//
// POST /book accepts either the service token or a signed-in owner whose
// email matches the payload. With neither Token nor Owner set it is open.
type Handler struct {
	Store Store

	// Token is the bearer credential of trusted server-side callers.
	Token string

	// Restaurants and Engine, when both set, make POST /book re-check that
	// the entry time is still offered.
	Restaurants RestaurantLookup
	Engine      *slots.Engine

	// Owner, when set, restricts listing and cancelling to the signed-in
	// user's own bookings.
	Owner func(r *http.Request) (email string, ok bool)

	// RequireAuth, when set, wraps the listing and cancel routes.
	RequireAuth func(http.Handler) http.Handler

	Logger *zap.Logger

	validate *validator.Validate
}

func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{Store: store, Logger: logger, validate: v}
}

// View is a stored booking as returned by the endpoint.
type View struct {
	ID int64 `json:"_id"`
	booking.Submission
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func ViewOf(r Reservation) View {
	return View{
		ID:         r.ID,
		Submission: r.Submission(),
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	guard := func(next http.Handler) http.Handler { return next }
	if h.RequireAuth != nil {
		guard = h.RequireAuth
	}
	mux.HandleFunc("POST /book", h.handleBook)
	mux.Handle("GET /bookings", guard(http.HandlerFunc(h.handleList)))
	mux.Handle("DELETE /bookings/{id}", guard(http.HandlerFunc(h.handleCancel)))
}

// Trusted reports whether r carries the service token.
func (h *Handler) Trusted(r *http.Request) bool {
	if h.Token == "" {
		return false
	}
	tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(strings.TrimSpace(tok)), []byte(h.Token)) == 1
}

func (h *Handler) maySubmit(r *http.Request, email string) bool {
	if h.Token == "" && h.Owner == nil {
		return true
	}
	if h.Trusted(r) {
		return true
	}
	if h.Owner != nil {
		owner, ok := h.Owner(r)
		return ok && strings.EqualFold(owner, strings.TrimSpace(email))
	}
	return false
}

// offeredAt finds t among the offered times. A midnight close is labelled
// "12:00 AM", so it arrives as minute 0.
func offeredAt(av slots.Availability, t slots.TimeOfDay) (slots.TimeOfDay, bool) {
	if slots.Contains(av.Lunch, t) || slots.Contains(av.Dinner, t) {
		return t, true
	}
	if t == 0 && slots.Contains(av.Dinner, slots.EndOfDay) {
		return slots.EndOfDay, true
	}
	return 0, false
}

type messageBody struct {
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
	Booking *View    `json:"booking,omitempty"`
}

func (h *Handler) handleBook(w http.ResponseWriter, r *http.Request) {
	var sub booking.Submission
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, messageBody{Message: "invalid JSON body"})
		return
	}
	if !h.maySubmit(r, sub.UserEmail) {
		writeJSON(w, http.StatusForbidden, messageBody{Message: "forbidden"})
		return
	}

	if err := h.validate.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeJSON(w, http.StatusInternalServerError, messageBody{Message: err.Error()})
			return
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		writeJSON(w, http.StatusPaymentRequired, messageBody{Message: booking.OutcomeRejected.Message(), Fields: fields})
		return
	}

	res, err := FromSubmission(sub)
	if err != nil {
		writeJSON(w, http.StatusPaymentRequired, messageBody{Message: err.Error()})
		return
	}

	if h.Restaurants != nil && h.Engine != nil {
		rest, err := h.Restaurants.Get(r.Context(), res.RestaurantID)
		if err != nil {
			if db.IsNotFound(err) {
				writeJSON(w, http.StatusPaymentRequired, messageBody{Message: "unknown restaurant", Fields: []string{"restaurantId"}})
				return
			}
			h.Logger.Error("restaurant lookup failed", zap.String("restaurant_id", res.RestaurantID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, messageBody{Message: "restaurant lookup failed"})
			return
		}
		entry, ok := offeredAt(h.Engine.Availability(rest.Hours, res.Date), res.EntryTime)
		if !ok {
			writeJSON(w, http.StatusConflict, messageBody{Message: "selected time is no longer available"})
			return
		}
		res.EntryTime = entry
		if res.RestaurantName == "" {
			res.RestaurantName = rest.Name
		}
	}

	id, created, err := h.Store.Upsert(r.Context(), res)
	if err != nil {
		h.Logger.Error("store booking failed", zap.String("user_email", res.UserEmail), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, messageBody{Message: "could not store booking"})
		return
	}
	res.ID = id

	status, outcome := http.StatusCreated, booking.OutcomeUpdated
	if created {
		status, outcome = http.StatusOK, booking.OutcomeCreated
	}
	h.Logger.Info("booking stored",
		zap.Int64("id", id),
		zap.String("restaurant_id", res.RestaurantID),
		zap.String("date", res.Date.String()),
		zap.String("entry", res.EntryTime.String()),
		zap.Int("party_size", res.PartySize),
		zap.Stringer("outcome", outcome),
	)
	v := ViewOf(res)
	writeJSON(w, status, messageBody{Message: outcome.Message(), Booking: &v})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("userEmail"))
	if email == "" {
		writeJSON(w, http.StatusBadRequest, messageBody{Message: "userEmail is required"})
		return
	}
	if h.Owner != nil {
		owner, ok := h.Owner(r)
		if !ok || !strings.EqualFold(owner, email) {
			writeJSON(w, http.StatusForbidden, messageBody{Message: "forbidden"})
			return
		}
	}
	status, _, err := ParseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messageBody{Message: err.Error()})
		return
	}

	list, err := h.Store.ListByUser(r.Context(), email, status)
	if err != nil {
		h.Logger.Error("list bookings failed", zap.String("user_email", email), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, messageBody{Message: "could not list bookings"})
		return
	}
	out := make([]View, 0, len(list))
	for _, res := range list {
		out = append(out, ViewOf(res))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messageBody{Message: "invalid booking id"})
		return
	}
	var owner string
	if h.Owner != nil {
		email, ok := h.Owner(r)
		if !ok {
			writeJSON(w, http.StatusNotFound, messageBody{Message: "booking not found"})
			return
		}
		owner = email
	}
	res, err := Cancel(r.Context(), h.Store, id, owner)
	switch {
	case err == nil:
	case db.IsNotFound(err), errors.Is(err, ErrNotOwner):
		writeJSON(w, http.StatusNotFound, messageBody{Message: "booking not found"})
		return
	case errors.Is(err, ErrNotCancellable):
		writeJSON(w, http.StatusConflict, messageBody{Message: "booking is already " + string(res.Status)})
		return
	default:
		h.Logger.Error("cancel booking failed", zap.Int64("id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, messageBody{Message: "could not cancel booking"})
		return
	}
	h.Logger.Info("booking cancelled", zap.Int64("id", id))
	v := ViewOf(res)
	writeJSON(w, http.StatusOK, messageBody{Message: "Reservation Cancelled Successfully.", Booking: &v})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
