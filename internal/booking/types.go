package booking

import (
	"context"
	"net/http"
	"time"

	"github.com/example/tablebook/internal/slots"
)

// MaxPartySize is the most guests a single booking can hold.
const MaxPartySize = 20

// User is the authenticated customer as seen by a booking session.
type User struct {
	ID           int64
	Email        string
	CreatedAt    time.Time
	LastSignInAt time.Time
}

// Restaurant is the listing being booked.
type Restaurant struct {
	ID    string
	Name  string
	Hours slots.OperatingHours
}

// Draft is the in-progress booking. Date and Time are nil until chosen.
type Draft struct {
	Date           *slots.Date
	Meal           slots.MealPeriod
	Time           *slots.TimeOfDay
	PartySize      int
	GuestName      string
	PhoneNumber    string
	SpecialRequest string
}

type State int

const (
	StateEmpty State = iota
	StateDateChosen
	StateTimeChosen
	StateGuestsChosen
)

func (s State) String() string {
	switch s {
	case StateDateChosen:
		return "date_chosen"
	case StateTimeChosen:
		return "time_chosen"
	case StateGuestsChosen:
		return "guests_chosen"
	}
	return "empty"
}

// Submission is the payload accepted by the booking endpoint.
type Submission struct {
	UserEmail      string `json:"userEmail" validate:"required,email"`
	CreationTime   string `json:"creationTime"`
	LastSignInTime string `json:"lastSignInTime"`
	RestaurantID   string `json:"restaurantId" validate:"required"`
	RestaurantName string `json:"restaurantName"`
	FullName       string `json:"fullName" validate:"required"`
	PhoneNumber    string `json:"phoneNumber" validate:"required"`
	NumberOfPeople int    `json:"numberOfPeople" validate:"required,min=1,max=20"`
	BookingDate    string `json:"bookingDate" validate:"required"`
	EntryTime      string `json:"entryTime" validate:"required"`
	SpecialRequest string `json:"specialRequest"`
}

// Outcome is how the booking endpoint answered a submission.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeCreated
	OutcomeUpdated
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeRejected:
		return "rejected"
	}
	return "failed"
}

// Message is the text shown to the customer for an outcome.
func (o Outcome) Message() string {
	switch o {
	case OutcomeCreated:
		return "Thank You! Restaurant will contact You Shortly."
	case OutcomeUpdated:
		return "Booking updated successfully!"
	case OutcomeRejected:
		return "Marked Fields Are Mandatory"
	}
	return "Booking failed. Please try again."
}

// OutcomeForStatus maps a booking endpoint response onto an Outcome.
func OutcomeForStatus(status int, emptyBody bool) Outcome {
	switch {
	case status == http.StatusOK:
		return OutcomeCreated
	case status == http.StatusCreated:
		return OutcomeUpdated
	case status == http.StatusPaymentRequired || emptyBody:
		return OutcomeRejected
	}
	return OutcomeFailed
}

// Submitter delivers a submission to the booking endpoint. The returned
// status is the HTTP status observed, 0 when no response arrived.
type Submitter interface {
	Submit(ctx context.Context, s Submission) (Outcome, int, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, s Submission) (Outcome, int, error)

func (f SubmitterFunc) Submit(ctx context.Context, s Submission) (Outcome, int, error) {
	return f(ctx, s)
}

// TimestampFormat is how account times travel on the payload.
const TimestampFormat = http.TimeFormat
