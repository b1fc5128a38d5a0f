package restaurants

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"

	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/slots"
)

func TestToBooking(t *testing.T) {
	r := Restaurant{ID: "r-1", Name: "Saffron", OpensAt: "11:30", ClosesAt: "24:00"}
	b, err := r.ToBooking()
	if err != nil {
		t.Fatal(err)
	}
	if b.Hours.OpensAt != slots.At(11, 30) || b.Hours.ClosesAt != slots.EndOfDay {
		t.Errorf("hours = %+v", b.Hours)
	}
	if b.ID != "r-1" || b.Name != "Saffron" {
		t.Errorf("booking view = %+v", b)
	}
}

func TestValidate(t *testing.T) {
	v := validator.New()
	tests := []struct {
		name string
		in   Restaurant
		ok   bool
	}{
		{"ok", Restaurant{Name: "Saffron", OpensAt: "09:00", ClosesAt: "22:00"}, true},
		{"no name", Restaurant{OpensAt: "09:00", ClosesAt: "22:00"}, false},
		{"no hours", Restaurant{Name: "Saffron"}, false},
		{"bad hours", Restaurant{Name: "Saffron", OpensAt: "9am", ClosesAt: "22:00"}, false},
		{"25:00", Restaurant{Name: "Saffron", OpensAt: "09:00", ClosesAt: "25:00"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(v, tt.in)
			if (err == nil) != tt.ok {
				t.Errorf("Validate() err = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

type countingSource struct {
	calls int
	r     Restaurant
}

func (s *countingSource) Get(_ context.Context, id string) (Restaurant, error) {
	s.calls++
	if id != s.r.ID {
		return Restaurant{}, db.ErrNotFound
	}
	return s.r, nil
}

func TestCacheFallsBackWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	src := &countingSource{r: Restaurant{ID: "r-1", Name: "Saffron", OpensAt: "12:00", ClosesAt: "23:00"}}
	c := NewCache(client, src, time.Minute, nil)

	got, err := c.Get(context.Background(), "r-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Saffron" || src.calls != 1 {
		t.Errorf("got %+v after %d source calls", got, src.calls)
	}

	if _, err := c.Get(context.Background(), "r-2"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("missing id err = %v, want ErrNotFound", err)
	}
}

func TestDirectory(t *testing.T) {
	src := &countingSource{r: Restaurant{ID: "r-1", Name: "Saffron", OpensAt: "12:00", ClosesAt: "23:00"}}
	b, err := Directory{Source: src}.Get(context.Background(), "r-1")
	if err != nil {
		t.Fatal(err)
	}
	if b.Hours.ClosesAt != slots.At(23, 0) {
		t.Errorf("closes = %v", b.Hours.ClosesAt)
	}
}
