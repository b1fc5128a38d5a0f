package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/tablebook/internal/booking"
	"github.com/example/tablebook/internal/db"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const sessionTTL = 14 * 24 * time.Hour

type Store struct {
	sc       *securecookie.SecureCookie
	db       *db.DB
	logger   *zap.Logger
	validate *validator.Validate
}

type ctxKey string

const sessionKey ctxKey = "session"

func NewStore(d *db.DB, hashKey, blockKey []byte, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(sessionTTL.Seconds()))
	return &Store{sc: sc, db: d, logger: logger, validate: validator.New()}
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
	return err == nil
}

// NormalizeEmail lower-cases and validates an account email.
func (s *Store) NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return "", errors.New("a valid email is required")
	}
	return email, nil
}

func (s *Store) CreateUser(ctx context.Context, email, password string) (booking.User, error) {
	email, err := s.NormalizeEmail(email)
	if err != nil {
		return booking.User{}, err
	}
	if len(password) < 8 {
		return booking.User{}, errors.New("password must be at least 8 characters")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return booking.User{}, err
	}
	u := booking.User{Email: email}
	err = s.db.QueryRow(ctx, `INSERT INTO users(email, password_bcrypt) VALUES ($1,$2) RETURNING id, created_at`, email, hash).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return booking.User{}, db.WrapNotFound(err)
	}
	return u, nil
}

// Authenticate checks the password and stamps the sign-in time.
func (s *Store) Authenticate(ctx context.Context, email, password string) (booking.User, error) {
	email, err := s.NormalizeEmail(email)
	if err != nil {
		return booking.User{}, ErrInvalidCredentials
	}
	var u booking.User
	var hash string
	err = s.db.QueryRow(ctx, `SELECT id, email, password_bcrypt, created_at FROM users WHERE email=$1`, email).
		Scan(&u.ID, &u.Email, &hash, &u.CreatedAt)
	if err != nil {
		if db.IsNotFound(err) {
			return booking.User{}, ErrInvalidCredentials
		}
		return booking.User{}, db.WrapNotFound(err)
	}
	if !CheckPassword(hash, password) {
		s.logger.Info("sign-in rejected", zap.String("email", email))
		return booking.User{}, ErrInvalidCredentials
	}
	if err := s.db.QueryRow(ctx, `UPDATE users SET last_sign_in_at=now() WHERE id=$1 RETURNING last_sign_in_at`, u.ID).
		Scan(&u.LastSignInAt); err != nil {
		return booking.User{}, db.WrapNotFound(err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (booking.User, error) {
	var u booking.User
	var last *time.Time
	err := s.db.QueryRow(ctx, `SELECT id, email, created_at, last_sign_in_at FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Email, &u.CreatedAt, &last)
	if err != nil {
		return booking.User{}, db.WrapNotFound(err)
	}
	if last != nil {
		u.LastSignInAt = *last
	}
	return u, nil
}

// Session is what the signed cookie carries.
type Session struct {
	UserID int64
	Email  string
}

const cookieName = "tablebook_session"

type cookieValue struct {
	V      int
	UserID int64
	Email  string
}

func (s *Store) SetSession(w http.ResponseWriter, r *http.Request, u booking.User) error {
	encoded, err := s.sc.Encode(cookieName, cookieValue{V: 1, UserID: u.ID, Email: u.Email})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int(sessionTTL.Seconds()),
	})
	return nil
}

func (s *Store) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (s *Store) GetSession(r *http.Request) (Session, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return Session{}, false
	}
	var val cookieValue
	if err := s.sc.Decode(cookieName, c.Value, &val); err != nil {
		s.logger.Debug("discarding session cookie", zap.Error(err))
		return Session{}, false
	}
	if val.V != 1 || val.UserID <= 0 {
		return Session{}, false
	}
	return Session{UserID: val.UserID, Email: val.Email}, true
}

// SessionEmail reports the signed-in user's email.
func (s *Store) SessionEmail(r *http.Request) (string, bool) {
	if sess, ok := SessionFromContext(r.Context()); ok {
		return sess.Email, true
	}
	sess, ok := s.GetSession(r)
	return sess.Email, ok
}

// RequireAuth redirects anonymous browsers to /login.
func (s *Store) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.GetSession(r)
		if !ok {
			http.Redirect(w, r, "/login?next="+urlPath(r), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

// RequireAuthAPI answers anonymous API calls with 401.
func (s *Store) RequireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.GetSession(r)
		if !ok {
			w.Header().Set("content-type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"authentication required"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionKey).(Session)
	return sess, ok
}

func urlPath(r *http.Request) string {
	p := r.URL.Path
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return "/"
	}
	return p
}
