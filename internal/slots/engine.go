package slots

import (
	"sync"
	"time"
)

// BookingHorizonDays is how far ahead of today a date may be selected.
const BookingHorizonDays = 15

// DefaultZone is the zone used when none is configured.
const DefaultZone = "Asia/Kolkata"

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant; Set moves it.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixedClock(t time.Time) *FixedClock { return &FixedClock{t: t} }

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// Engine binds slot computation to a clock and a single time zone. Both the
// "is this date today" check and the current minute come from one clock read.
type Engine struct {
	clock Clock
	loc   *time.Location
}

// NewEngine returns an engine; nil arguments fall back to the system clock
// and UTC.
func NewEngine(clock Clock, loc *time.Location) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{clock: clock, loc: loc}
}

func (e *Engine) Location() *time.Location { return e.loc }

// Now reads the clock in the engine's zone.
func (e *Engine) Now() time.Time {
	return e.clock.Now().In(e.loc)
}

func (e *Engine) Today() Date {
	return DateOf(e.Now())
}

// Slots returns the times offered for a meal on date. Past dates have none.
func (e *Engine) Slots(h OperatingHours, date Date, meal MealPeriod) []TimeOfDay {
	return e.slotsAt(e.Now(), h, date, meal)
}

// Availability holds both sittings for one date.
type Availability struct {
	Date   Date
	Lunch  []TimeOfDay
	Dinner []TimeOfDay
}

// Availability computes both sittings from a single clock read.
func (e *Engine) Availability(h OperatingHours, date Date) Availability {
	now := e.Now()
	return Availability{
		Date:   date,
		Lunch:  e.slotsAt(now, h, date, Lunch),
		Dinner: e.slotsAt(now, h, date, Dinner),
	}
}

func (e *Engine) slotsAt(now time.Time, h OperatingHours, date Date, meal MealPeriod) []TimeOfDay {
	today := DateOf(now)
	if date.Before(today) {
		return nil
	}
	return For(meal, h, date.Equal(today), At(now.Hour(), now.Minute()))
}

// SelectableDates lists today through today+BookingHorizonDays.
func (e *Engine) SelectableDates() []Date {
	today := e.Today()
	out := make([]Date, 0, BookingHorizonDays+1)
	for i := 0; i <= BookingHorizonDays; i++ {
		out = append(out, today.AddDays(i))
	}
	return out
}

// Selectable reports whether date lies within the booking horizon.
func (e *Engine) Selectable(date Date) bool {
	today := e.Today()
	return !date.Before(today) && !date.After(today.AddDays(BookingHorizonDays))
}
