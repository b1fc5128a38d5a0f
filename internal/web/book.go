package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/example/tablebook/internal/booking"
	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/restaurants"
	"github.com/example/tablebook/internal/reviews"
	"github.com/example/tablebook/internal/slots"
)

type option struct {
	Value    string
	Label    string
	Selected bool
}

type bookView struct {
	RestaurantID string
	Name         string
	Location     string
	Hours        string
	State        string
	SignedIn     bool

	Dates []option
	Meals []option
	Slots []option

	HasDate   bool
	HasTime   bool
	DateLabel string
	TimeLabel string

	PartySize    int
	MaxPartySize int
	CanAdd       bool
	CanRemove    bool

	GuestName      string
	PhoneNumber    string
	SpecialRequest string

	Rating      string
	Reviews     []reviews.View
	CanReview   bool
	RatingRange []int
}

func (s *Server) loadRestaurant(w http.ResponseWriter, r *http.Request) (restaurants.Restaurant, booking.Restaurant, bool) {
	rest, err := s.Restaurants.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if db.IsNotFound(err) {
			http.NotFound(w, r)
			return restaurants.Restaurant{}, booking.Restaurant{}, false
		}
		s.Logger.Error("load restaurant failed", zap.String("restaurant_id", r.PathValue("id")), zap.Error(err))
		http.Error(w, "could not load restaurant", http.StatusInternalServerError)
		return restaurants.Restaurant{}, booking.Restaurant{}, false
	}
	br, err := rest.ToBooking()
	if err != nil {
		s.Logger.Error("restaurant has invalid hours", zap.String("restaurant_id", rest.ID), zap.Error(err))
		http.Error(w, "restaurant hours are misconfigured", http.StatusInternalServerError)
		return restaurants.Restaurant{}, booking.Restaurant{}, false
	}
	return rest, br, true
}

// withSession runs fn against the caller's booking session for br. Anonymous
// visitors get a throwaway session with no user attached.
func (s *Server) withSession(r *http.Request, br booking.Restaurant, fn func(*booking.Session)) error {
	sess, ok := s.Auth.GetSession(r)
	if !ok {
		fn(booking.NewSession(br, s.Engine, s.Submitter, booking.WithLogger(s.Logger)))
		return nil
	}

	e, err := s.sessions.acquire(sessionKey{userID: sess.UserID, restaurantID: br.ID}, func() (*booking.Session, error) {
		u, err := s.Users.GetUser(r.Context(), sess.UserID)
		if err != nil {
			return nil, err
		}
		return s.newSession(br, &u), nil
	})
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	if e.session.Restaurant() != br {
		// hours or name changed since the session started
		e.session = s.newSession(br, e.session.User())
	}
	fn(e.session)
	return nil
}

func (s *Server) newSession(br booking.Restaurant, u *booking.User) *booking.Session {
	logger := s.Logger.With(zap.String("restaurant_id", br.ID))
	if u != nil {
		logger = logger.With(zap.Int64("user_id", u.ID))
	}
	return booking.NewSession(br, s.Engine, s.Submitter, booking.WithLogger(logger), booking.WithUser(u))
}

func (s *Server) handleBookPage(w http.ResponseWriter, r *http.Request) {
	rest, br, ok := s.loadRestaurant(w, r)
	if !ok {
		return
	}
	var view *bookView
	err := s.withSession(r, br, func(bs *booking.Session) {
		bs.Refresh()
		view = s.bookView(rest, bs)
	})
	if err != nil {
		s.sessionError(w, r, err)
		return
	}
	s.attachReviews(r, view)
	s.render(w, "templates/book.html", tmplData{Title: rest.Name, User: s.userEmail(r), Book: view})
}

func (s *Server) handleBookAction(w http.ResponseWriter, r *http.Request) {
	rest, br, ok := s.loadRestaurant(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	action := r.PathValue("action")
	var (
		view    *bookView
		flash   string
		success bool
		actErr  error
		unknown bool
	)
	err := s.withSession(r, br, func(bs *booking.Session) {
		bs.Refresh()
		switch action {
		case "date":
			d, err := slots.ParseDate(r.FormValue("date"))
			if err != nil {
				actErr = err
				break
			}
			actErr = bs.SelectDate(d)
		case "meal":
			m, err := slots.ParseMealPeriod(r.FormValue("meal"))
			if err != nil {
				actErr = err
				break
			}
			bs.SelectMeal(m)
		case "time":
			t, err := slots.ParseTimeOfDay(r.FormValue("time"))
			if err != nil {
				actErr = err
				break
			}
			actErr = bs.SelectTime(t)
		case "reselect":
			bs.ReselectTime()
		case "guests":
			if r.FormValue("op") == "dec" {
				actErr = bs.DecrementGuests()
			} else {
				actErr = bs.IncrementGuests()
			}
		case "details":
			bs.SetGuestDetails(r.FormValue("fullName"), r.FormValue("phoneNumber"), r.FormValue("specialRequest"))
		case "submit":
			bs.SetGuestDetails(r.FormValue("fullName"), r.FormValue("phoneNumber"), r.FormValue("specialRequest"))
			var outcome booking.Outcome
			outcome, actErr = bs.Submit(r.Context())
			if actErr == nil {
				flash, success = outcome.Message(), true
			}
		default:
			unknown = true
			return
		}
		view = s.bookView(rest, bs)
	})
	if err != nil {
		s.sessionError(w, r, err)
		return
	}
	if unknown {
		http.NotFound(w, r)
		return
	}
	if errors.Is(actErr, booking.ErrAuthenticationRequired) {
		http.Redirect(w, r, "/login?next="+url.QueryEscape("/restaurants/"+rest.ID+"/book"), http.StatusSeeOther)
		return
	}
	if actErr != nil {
		flash = flashFor(actErr)
	}
	s.attachReviews(r, view)
	s.render(w, "templates/book.html", tmplData{Title: rest.Name, User: s.userEmail(r), Flash: flash, Success: success, Book: view})
}

func (s *Server) attachReviews(r *http.Request, v *bookView) {
	if s.Reviews == nil || v == nil {
		return
	}
	v.Reviews, v.Rating = s.restaurantReviews(r, v.RestaurantID)
	v.CanReview = v.SignedIn
	for i := reviews.MinRating; i <= reviews.MaxRating; i++ {
		v.RatingRange = append(v.RatingRange, i)
	}
}

func (s *Server) sessionError(w http.ResponseWriter, r *http.Request, err error) {
	if db.IsNotFound(err) {
		// account removed while the cookie lives on
		s.Auth.ClearSession(w)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	s.Logger.Error("load booking session failed", zap.Error(err))
	http.Error(w, "could not load booking session", http.StatusInternalServerError)
}

func flashFor(err error) string {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		if len(verr.Missing) > 0 {
			return booking.OutcomeRejected.Message() + ": " + strings.Join(verr.Missing, ", ")
		}
		return booking.OutcomeRejected.Message()
	case errors.Is(err, booking.ErrTransientSubmission):
		return booking.OutcomeFailed.Message()
	}
	return err.Error()
}

func (s *Server) bookView(rest restaurants.Restaurant, bs *booking.Session) *bookView {
	br := bs.Restaurant()
	d := bs.Draft()
	v := &bookView{
		RestaurantID:   rest.ID,
		Name:           rest.Name,
		Location:       strings.Trim(rest.Area+", "+rest.City, ", "),
		Hours:          br.Hours.OpensAt.Label() + " to " + br.Hours.ClosesAt.Label(),
		State:          bs.State().String(),
		SignedIn:       bs.User() != nil,
		PartySize:      d.PartySize,
		MaxPartySize:   booking.MaxPartySize,
		CanAdd:         d.PartySize < booking.MaxPartySize,
		CanRemove:      d.PartySize > 0,
		GuestName:      d.GuestName,
		PhoneNumber:    d.PhoneNumber,
		SpecialRequest: d.SpecialRequest,
	}

	for _, day := range s.Engine.SelectableDates() {
		v.Dates = append(v.Dates, option{
			Value:    day.String(),
			Label:    day.Display(),
			Selected: d.Date != nil && *d.Date == day,
		})
	}
	for _, m := range []slots.MealPeriod{slots.Lunch, slots.Dinner} {
		v.Meals = append(v.Meals, option{Value: m.String(), Label: strings.ToUpper(m.String()[:1]) + m.String()[1:], Selected: d.Meal == m})
	}

	if d.Date != nil {
		v.HasDate = true
		v.DateLabel = d.Date.Display()
		for _, t := range bs.Offered() {
			v.Slots = append(v.Slots, option{
				Value:    t.String(),
				Label:    t.Label(),
				Selected: d.Time != nil && *d.Time == t,
			})
		}
	}
	if d.Time != nil {
		v.HasTime = true
		v.TimeLabel = d.Time.Label()
	}
	return v
}
