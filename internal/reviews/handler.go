package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/example/tablebook/internal/booking"
	"github.com/example/tablebook/internal/db"
)

// RestaurantLookup confirms a reviewed restaurant exists.
type RestaurantLookup interface {
	Get(ctx context.Context, id string) (booking.Restaurant, error)
}

// Handler serves the review endpoints:
//
//	POST /add-review?restaurantId=   201 added, 200 updated, 402 rejected, 404 unknown restaurant
//	GET  /reviews                    ?restaurantId= or ?userEmail=
type Handler struct {
	Store       Store
	Restaurants RestaurantLookup

	// Owner, when set, restricts posting and per-user listing to the
	// signed-in user's own email.
	Owner func(r *http.Request) (email string, ok bool)

	// RequireAuth, when set, wraps POST /add-review.
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

// View is a stored review as returned by the endpoint.
type View struct {
	ID         int64  `json:"_id"`
	Restaurant string `json:"restaurant"`
	Submission
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func ViewOf(r Review) View {
	return View{ID: r.ID, Restaurant: r.RestaurantID, Submission: r.Submission(), CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func (h *Handler) Register(mux *http.ServeMux) {
	guard := func(next http.Handler) http.Handler { return next }
	if h.RequireAuth != nil {
		guard = h.RequireAuth
	}
	mux.Handle("POST /add-review", guard(http.HandlerFunc(h.handleAdd)))
	mux.HandleFunc("GET /reviews", h.handleList)
}

type messageBody struct {
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
	Review  *View    `json:"review,omitempty"`
}

func (h *Handler) owns(r *http.Request, email string) bool {
	if h.Owner == nil {
		return true
	}
	owner, ok := h.Owner(r)
	return ok && strings.EqualFold(owner, strings.TrimSpace(email))
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	restaurantID := strings.TrimSpace(r.URL.Query().Get("restaurantId"))
	var sub Submission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, messageBody{Message: "invalid JSON body"})
		return
	}
	if !h.owns(r, sub.UserEmail) {
		writeJSON(w, http.StatusForbidden, messageBody{Message: "forbidden"})
		return
	}

	var fields []string
	if restaurantID == "" {
		fields = append(fields, "restaurantId")
	}
	if err := h.validate.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeJSON(w, http.StatusInternalServerError, messageBody{Message: err.Error()})
			return
		}
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusPaymentRequired, messageBody{Message: "Some Attributes may Missing.", Fields: fields})
		return
	}

	if h.Restaurants != nil {
		if _, err := h.Restaurants.Get(r.Context(), restaurantID); err != nil {
			if db.IsNotFound(err) {
				writeJSON(w, http.StatusNotFound, messageBody{Message: "Restaurant not Found."})
				return
			}
			h.Logger.Error("restaurant lookup failed", zap.String("restaurant_id", restaurantID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, messageBody{Message: "restaurant lookup failed"})
			return
		}
	}

	rv := FromSubmission(restaurantID, sub)
	id, created, err := h.Store.Upsert(r.Context(), rv)
	if err != nil {
		h.Logger.Error("store review failed", zap.String("restaurant_id", restaurantID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, messageBody{Message: "could not store review"})
		return
	}
	rv.ID = id

	status, msg := http.StatusOK, "Review Updated successfully"
	if created {
		status, msg = http.StatusCreated, "Review Added successfully"
	}
	h.Logger.Info("review stored", zap.Int64("id", id), zap.String("restaurant_id", restaurantID), zap.Int("rating", rv.Rating), zap.Bool("created", created))
	v := ViewOf(rv)
	writeJSON(w, status, messageBody{Message: msg, Review: &v})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	f := Filter{
		RestaurantID: strings.TrimSpace(r.URL.Query().Get("restaurantId")),
		UserEmail:    strings.TrimSpace(r.URL.Query().Get("userEmail")),
	}
	if f.RestaurantID == "" && f.UserEmail == "" {
		writeJSON(w, http.StatusBadRequest, messageBody{Message: "restaurantId or userEmail is required"})
		return
	}
	if f.UserEmail != "" && !h.owns(r, f.UserEmail) {
		writeJSON(w, http.StatusForbidden, messageBody{Message: "forbidden"})
		return
	}

	list, err := h.Store.List(r.Context(), f)
	if err != nil {
		h.Logger.Error("list reviews failed", zap.String("restaurant_id", f.RestaurantID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, messageBody{Message: "could not list reviews"})
		return
	}
	out := make([]View, 0, len(list))
	for _, rv := range list {
		out = append(out, ViewOf(rv))
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
