// Package restaurants stores restaurant listings and their operating hours.
package restaurants

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/tablebook/internal/booking"
	"github.com/example/tablebook/internal/slots"
)

type Restaurant struct {
	ID       string `json:"id"`
	Name     string `json:"name" validate:"required"`
	City     string `json:"city"`
	Area     string `json:"area"`
	OpensAt  string `json:"opensAt" validate:"required"`
	ClosesAt string `json:"closesAt" validate:"required"`
	OwnerID  *int64 `json:"ownerId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Hours parses the stored opening and closing times.
func (r Restaurant) Hours() (slots.OperatingHours, error) {
	h, err := slots.ParseHours(r.OpensAt, r.ClosesAt)
	if err != nil {
		return slots.OperatingHours{}, fmt.Errorf("restaurant %s: %w", r.ID, err)
	}
	return h, nil
}

// ToBooking is the view a booking session works against.
func (r Restaurant) ToBooking() (booking.Restaurant, error) {
	h, err := r.Hours()
	if err != nil {
		return booking.Restaurant{}, err
	}
	return booking.Restaurant{ID: r.ID, Name: r.Name, Hours: h}, nil
}

func (r *Restaurant) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.City = strings.TrimSpace(r.City)
	r.Area = strings.TrimSpace(r.Area)
	r.OpensAt = strings.TrimSpace(r.OpensAt)
	r.ClosesAt = strings.TrimSpace(r.ClosesAt)
}

// Source loads a restaurant by id.
type Source interface {
	Get(ctx context.Context, id string) (Restaurant, error)
}

// Directory adapts a Source to the booking view.
type Directory struct {
	Source Source
}

func (d Directory) Get(ctx context.Context, id string) (booking.Restaurant, error) {
	r, err := d.Source.Get(ctx, id)
	if err != nil {
		return booking.Restaurant{}, err
	}
	return r.ToBooking()
}
