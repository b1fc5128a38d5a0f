package reservations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/tablebook/internal/booking"
	"github.com/example/tablebook/internal/slots"
)

type Status string

const (
	StatusPending    Status = "Pending"
	StatusConfirmed  Status = "Confirmed"
	StatusCancelled  Status = "Cancelled"
	StatusUnattended Status = "Unattended"
	StatusFulfilled  Status = "Fulfilled"
)

// ParseStatusFilter maps a lower-case filter value to a status. "all" and ""
// mean no filter.
func ParseStatusFilter(s string) (Status, bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return "", false, nil
	case "pending":
		return StatusPending, true, nil
	case "confirmed":
		return StatusConfirmed, true, nil
	case "cancelled":
		return StatusCancelled, true, nil
	case "unattended":
		return StatusUnattended, true, nil
	case "fulfilled":
		return StatusFulfilled, true, nil
	}
	return "", false, fmt.Errorf("unknown status %q", s)
}

// Reservation is a stored booking.
type Reservation struct {
	ID             int64
	UserEmail      string
	CreationTime   string
	LastSignInTime string
	RestaurantID   string
	RestaurantName string
	FullName       string
	PhoneNumber    string
	PartySize      int
	Date           slots.Date
	EntryTime      slots.TimeOfDay
	SpecialRequest string
	Status         Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FromSubmission parses the display date and time of a submitted payload.
func FromSubmission(s booking.Submission) (Reservation, error) {
	day, err := time.Parse("Jan 2, 2006", strings.TrimSpace(s.BookingDate))
	if err != nil {
		return Reservation{}, fmt.Errorf("bookingDate %q: want e.g. Oct 18, 2026", s.BookingDate)
	}
	entry, err := slots.ParseLabel(s.EntryTime)
	if err != nil {
		return Reservation{}, fmt.Errorf("entryTime: %w", err)
	}
	return Reservation{
		UserEmail:      strings.TrimSpace(s.UserEmail),
		CreationTime:   s.CreationTime,
		LastSignInTime: s.LastSignInTime,
		RestaurantID:   strings.TrimSpace(s.RestaurantID),
		RestaurantName: strings.TrimSpace(s.RestaurantName),
		FullName:       strings.TrimSpace(s.FullName),
		PhoneNumber:    strings.TrimSpace(s.PhoneNumber),
		PartySize:      s.NumberOfPeople,
		Date:           slots.DateOf(day),
		EntryTime:      entry,
		SpecialRequest: strings.TrimSpace(s.SpecialRequest),
		Status:         StatusPending,
	}, nil
}

// Submission renders the reservation back into the wire payload.
func (r Reservation) Submission() booking.Submission {
	return booking.Submission{
		UserEmail:      r.UserEmail,
		CreationTime:   r.CreationTime,
		LastSignInTime: r.LastSignInTime,
		RestaurantID:   r.RestaurantID,
		RestaurantName: r.RestaurantName,
		FullName:       r.FullName,
		PhoneNumber:    r.PhoneNumber,
		NumberOfPeople: r.PartySize,
		BookingDate:    r.Date.Display(),
		EntryTime:      r.EntryTime.Label(),
		SpecialRequest: r.SpecialRequest,
	}
}

// Open reports whether the booking can still be cancelled.
func (r Reservation) Open() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

var (
	ErrNotCancellable = errors.New("booking can no longer be cancelled")
	ErrNotOwner       = errors.New("booking belongs to another user")
)

// Cancel marks a Pending or Confirmed booking Cancelled. A non-empty owner
// must match the booking's user email.
func Cancel(ctx context.Context, store Store, id int64, owner string) (Reservation, error) {
	res, err := store.Get(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	if owner != "" && !strings.EqualFold(owner, res.UserEmail) {
		return Reservation{}, ErrNotOwner
	}
	if !res.Open() {
		return res, fmt.Errorf("%w: already %s", ErrNotCancellable, res.Status)
	}
	if err := store.SetStatus(ctx, id, StatusCancelled); err != nil {
		return Reservation{}, err
	}
	res.Status = StatusCancelled
	return res, nil
}
