package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/tablebook/internal/auth"
	"github.com/example/tablebook/internal/booking"
	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/reservations"
	"github.com/example/tablebook/internal/restaurants"
	"github.com/example/tablebook/internal/reviews"
	"github.com/example/tablebook/internal/slots"
)

//go:embed templates/*.html static/*
var fs embed.FS

// Users is the account store behind the login form.
type Users interface {
	Authenticate(ctx context.Context, email, password string) (booking.User, error)
	GetUser(ctx context.Context, id int64) (booking.User, error)
}

// Listings lists restaurants for the index page.
type Listings interface {
	List(ctx context.Context, city string) ([]restaurants.Restaurant, error)
}

type Server struct {
	Auth        *auth.Store
	Users       Users
	Restaurants restaurants.Source
	Listings    Listings
	Engine      *slots.Engine
	Submitter   booking.Submitter

	// Reservations serves the JSON booking endpoint; History backs the
	// signed-in user's booking list.
	Reservations *reservations.Handler
	History      reservations.Store

	// Reviews backs ratings on the listing and book pages; ReviewAPI
	// serves the JSON review endpoints.
	Reviews   reviews.Store
	ReviewAPI *reviews.Handler

	Logger          *zap.Logger
	RateLimitPerMin int
	// TrustedProxies may supply the client address in forwarding headers.
	TrustedProxies []netip.Prefix

	once     sync.Once
	sessions *registry
}

type tmplData struct {
	Title string
	User  string

	Flash   string
	Success bool
	Next    string

	City        string
	Restaurants []restaurants.Restaurant
	Ratings     map[string]string
	Book        *bookView
	Bookings    []historyRow
	Reviews     []reviews.View
}

type historyRow struct {
	reservations.View
	Open bool
}

func (s *Server) init() {
	s.once.Do(func() {
		if s.Logger == nil {
			s.Logger = zap.NewNop()
		}
		s.sessions = newRegistry()
	})
}

func (s *Server) Routes() http.Handler {
	s.init()
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.FileServer(http.FS(fs)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/restaurants", http.StatusFound)
	})
	mux.HandleFunc("GET /restaurants", s.handleRestaurants)
	mux.HandleFunc("GET /restaurants/{id}/book", s.handleBookPage)
	mux.HandleFunc("POST /restaurants/{id}/book/{action}", s.handleBookAction)

	mux.Handle("GET /account/bookings", s.Auth.RequireAuth(http.HandlerFunc(s.handleHistory)))
	mux.Handle("POST /account/bookings/{id}/cancel", s.Auth.RequireAuth(http.HandlerFunc(s.handleHistoryCancel)))
	if s.Reviews != nil {
		mux.Handle("POST /restaurants/{id}/reviews", s.Auth.RequireAuth(http.HandlerFunc(s.handleReviewPost)))
	}
	if s.ReviewAPI != nil {
		s.ReviewAPI.Register(mux)
	}

	// token-bearing submissions are not counted against the caller's IP
	var exempt func(*http.Request) bool
	if s.Reservations != nil {
		s.Reservations.Register(mux)
		exempt = s.Reservations.Trusted
	}

	return requestLog(s.Logger, s.TrustedProxies, rateLimit(s.RateLimitPerMin, s.TrustedProxies, exempt, s.Logger, mux))
}

func (s *Server) userEmail(r *http.Request) string {
	if sess, ok := s.Auth.GetSession(r); ok {
		return sess.Email
	}
	return ""
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "templates/login.html", tmplData{Title: "Sign in", Next: safeNext(r.URL.Query().Get("next"))})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	next := safeNext(r.FormValue("next"))

	u, err := s.Users.Authenticate(r.Context(), email, password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.Logger.Error("authenticate failed", zap.Error(err))
		}
		s.render(w, "templates/login.html", tmplData{Title: "Sign in", Flash: "Invalid email/password", Next: next})
		return
	}
	if err := s.Auth.SetSession(w, r, u); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.sessions.signIn(u)
	http.Redirect(w, r, next, http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.Auth.GetSession(r); ok {
		s.sessions.signOut(sess.UserID)
	}
	s.Auth.ClearSession(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleRestaurants(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	data := tmplData{Title: "Restaurants", User: s.userEmail(r), City: city}
	if s.Listings != nil {
		list, err := s.Listings.List(r.Context(), city)
		if err != nil {
			s.Logger.Error("list restaurants failed", zap.Error(err))
			http.Error(w, "could not list restaurants", http.StatusInternalServerError)
			return
		}
		data.Ratings = s.rankByRating(r, list)
		data.Restaurants = list
	}
	s.render(w, "templates/restaurants.html", data)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())
	s.renderHistory(w, r, sess.Email, "", false)
}

func (s *Server) handleHistoryCancel(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid booking id", http.StatusBadRequest)
		return
	}
	_, err = reservations.Cancel(r.Context(), s.History, id, sess.Email)
	switch {
	case err == nil:
		s.Logger.Info("booking cancelled by user", zap.Int64("id", id), zap.Int64("user_id", sess.UserID))
		s.renderHistory(w, r, sess.Email, "Reservation Cancelled Successfully.", true)
	case errors.Is(err, reservations.ErrNotCancellable):
		s.renderHistory(w, r, sess.Email, "This booking can no longer be cancelled.", false)
	case errors.Is(err, reservations.ErrNotOwner):
		http.NotFound(w, r)
	default:
		if db.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		s.Logger.Error("cancel booking failed", zap.Int64("id", id), zap.Error(err))
		http.Error(w, "could not cancel booking", http.StatusInternalServerError)
	}
}

func (s *Server) renderHistory(w http.ResponseWriter, r *http.Request, email, flash string, success bool) {
	status, _, err := reservations.ParseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	list, err := s.History.ListByUser(r.Context(), email, status)
	if err != nil {
		s.Logger.Error("list bookings failed", zap.String("user_email", email), zap.Error(err))
		http.Error(w, "could not list bookings", http.StatusInternalServerError)
		return
	}
	rows := make([]historyRow, 0, len(list))
	for _, res := range list {
		rows = append(rows, historyRow{View: reservations.ViewOf(res), Open: res.Open()})
	}
	s.render(w, "templates/bookings.html", tmplData{
		Title:    "My bookings",
		User:     email,
		Flash:    flash,
		Success:  success,
		Bookings: rows,
		Reviews:  s.myReviews(r, email),
	})
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/restaurants"
	}
	return next
}

func (s *Server) render(w http.ResponseWriter, name string, data tmplData) {
	t, err := template.ParseFS(fs,
		"templates/base.html",
		name,
	)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
	}
}

func Start(ctx context.Context, addr string, h http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
