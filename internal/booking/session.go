// Package booking holds a customer's in-progress table reservation and the
// transitions allowed on it. A Session is not safe for concurrent use; the
// caller serialises events for one customer.
package booking

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/example/tablebook/internal/slots"
)

type Session struct {
	restaurant Restaurant
	engine     *slots.Engine
	submitter  Submitter
	logger     *zap.Logger

	user    *User
	draft   Draft
	offered []slots.TimeOfDay
}

type Option func(*Session)

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithUser starts the session already signed in.
func WithUser(u *User) Option {
	return func(s *Session) { s.user = u }
}

func NewSession(r Restaurant, engine *slots.Engine, submitter Submitter, opts ...Option) *Session {
	s := &Session{
		restaurant: r,
		engine:     engine,
		submitter:  submitter,
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) Restaurant() Restaurant { return s.restaurant }
func (s *Session) User() *User            { return s.user }

// Draft returns a copy of the current draft.
func (s *Session) Draft() Draft {
	d := s.draft
	if s.draft.Date != nil {
		v := *s.draft.Date
		d.Date = &v
	}
	if s.draft.Time != nil {
		v := *s.draft.Time
		d.Time = &v
	}
	return d
}

func (s *Session) State() State {
	switch {
	case s.draft.Date == nil:
		return StateEmpty
	case s.draft.Time == nil:
		return StateDateChosen
	case s.draft.PartySize == 0:
		return StateTimeChosen
	default:
		return StateGuestsChosen
	}
}

// Offered is the slot list for the current date and meal period.
func (s *Session) Offered() []slots.TimeOfDay {
	out := make([]slots.TimeOfDay, len(s.offered))
	copy(out, s.offered)
	return out
}

func (s *Session) OfferedLabels() []string {
	return slots.Labels(s.offered)
}

// SignIn attaches a user and starts a fresh draft.
func (s *Session) SignIn(u *User) {
	s.user = u
	s.reset()
}

// SignOut detaches the user and discards the draft.
func (s *Session) SignOut() {
	s.user = nil
	s.reset()
}

func (s *Session) reset() {
	s.draft = Draft{}
	s.offered = nil
}

// SelectDate commits a date. Without a signed-in user nothing changes and
// ErrAuthenticationRequired is returned so the caller can prompt for login.
func (s *Session) SelectDate(d slots.Date) error {
	if s.user == nil {
		return ErrAuthenticationRequired
	}
	if !s.engine.Selectable(d) {
		return ErrDateOutOfRange
	}
	s.draft.Date = &d
	s.draft.Time = nil
	s.draft.PartySize = 0
	s.recompute()
	return nil
}

// SelectMeal switches between lunch and dinner; any chosen time is dropped.
func (s *Session) SelectMeal(m slots.MealPeriod) {
	s.draft.Meal = m
	s.draft.Time = nil
	s.draft.PartySize = 0
	if s.draft.Date != nil {
		s.recompute()
	}
}

// SelectTime picks one of the offered slots.
func (s *Session) SelectTime(t slots.TimeOfDay) error {
	if s.user == nil {
		return ErrAuthenticationRequired
	}
	if s.draft.Date == nil {
		return ErrNoDate
	}
	if !slots.Contains(s.offered, t) {
		return ErrSlotUnavailable
	}
	s.draft.Time = &t
	s.draft.PartySize = 0
	return nil
}

// ReselectTime returns to the slot list.
func (s *Session) ReselectTime() {
	s.draft.Time = nil
	s.draft.PartySize = 0
}

func (s *Session) IncrementGuests() error {
	if s.draft.Time == nil {
		return ErrNoTime
	}
	if s.draft.PartySize < MaxPartySize {
		s.draft.PartySize++
	}
	return nil
}

func (s *Session) DecrementGuests() error {
	if s.draft.Time == nil {
		return ErrNoTime
	}
	if s.draft.PartySize > 0 {
		s.draft.PartySize--
	}
	return nil
}

func (s *Session) SetGuestDetails(name, phone, specialRequest string) {
	s.draft.GuestName = strings.TrimSpace(name)
	s.draft.PhoneNumber = strings.TrimSpace(phone)
	s.draft.SpecialRequest = strings.TrimSpace(specialRequest)
}

// Refresh recomputes the offered slots against the current time. A chosen
// time that is no longer offered is dropped together with the party size.
func (s *Session) Refresh() {
	if s.draft.Date == nil {
		return
	}
	s.recompute()
}

func (s *Session) recompute() {
	s.offered = s.engine.Slots(s.restaurant.Hours, *s.draft.Date, s.draft.Meal)
	if s.draft.Time != nil && !slots.Contains(s.offered, *s.draft.Time) {
		s.draft.Time = nil
		s.draft.PartySize = 0
	}
}

// Validate reports the mandatory fields that are still missing.
func (s *Session) Validate() error {
	var missing []string
	if s.draft.Date == nil {
		missing = append(missing, "date")
	}
	if s.draft.Time == nil {
		missing = append(missing, "time")
	}
	if s.draft.PartySize < 1 {
		missing = append(missing, "partySize")
	}
	if s.draft.GuestName == "" {
		missing = append(missing, "guestName")
	}
	if s.draft.PhoneNumber == "" {
		missing = append(missing, "phoneNumber")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Submission assembles the payload for the current draft.
func (s *Session) Submission() (Submission, error) {
	if s.user == nil {
		return Submission{}, ErrAuthenticationRequired
	}
	if err := s.Validate(); err != nil {
		return Submission{}, err
	}
	sub := Submission{
		UserEmail:      s.user.Email,
		RestaurantID:   s.restaurant.ID,
		RestaurantName: s.restaurant.Name,
		FullName:       s.draft.GuestName,
		PhoneNumber:    s.draft.PhoneNumber,
		NumberOfPeople: s.draft.PartySize,
		BookingDate:    s.draft.Date.Display(),
		EntryTime:      s.draft.Time.Label(),
		SpecialRequest: s.draft.SpecialRequest,
	}
	if !s.user.CreatedAt.IsZero() {
		sub.CreationTime = s.user.CreatedAt.UTC().Format(TimestampFormat)
	}
	if !s.user.LastSignInAt.IsZero() {
		sub.LastSignInTime = s.user.LastSignInAt.UTC().Format(TimestampFormat)
	}
	return sub, nil
}

// Submit sends the draft to the booking endpoint. On acceptance the draft is
// cleared; on any failure it is kept for a retry. The date and time are
// checked against the clock again first.
func (s *Session) Submit(ctx context.Context) (Outcome, error) {
	if s.user != nil && s.draft.Date != nil {
		if !s.engine.Selectable(*s.draft.Date) {
			return OutcomeRejected, ErrDateOutOfRange
		}
		s.Refresh()
	}
	sub, err := s.Submission()
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			return OutcomeRejected, err
		}
		return OutcomeFailed, err
	}

	outcome, status, err := s.submitter.Submit(ctx, sub)
	log := s.logger.With(
		zap.String("restaurant_id", sub.RestaurantID),
		zap.String("booking_date", sub.BookingDate),
		zap.String("entry_time", sub.EntryTime),
		zap.Int("status", status),
		zap.Stringer("outcome", outcome),
	)
	if err != nil {
		log.Warn("booking submission failed", zap.Error(err))
		var subErr *SubmissionError
		if errors.As(err, &subErr) {
			return OutcomeFailed, err
		}
		return OutcomeFailed, &SubmissionError{Status: status, Err: err}
	}

	switch outcome {
	case OutcomeCreated, OutcomeUpdated:
		log.Info("booking accepted")
		s.reset()
		return outcome, nil
	case OutcomeRejected:
		log.Info("booking rejected by endpoint")
		return outcome, &ValidationError{Rejected: true}
	default:
		log.Warn("booking submission failed")
		return OutcomeFailed, &SubmissionError{Status: status}
	}
}
