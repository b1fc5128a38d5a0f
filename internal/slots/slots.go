// Package slots computes the reservation times a restaurant can offer for a
// given day. Everything here works on minute integers; labels are produced
// only at the edge via TimeOfDay.Label.
package slots

import "fmt"

// Interval is the slot granularity in minutes.
const Interval = 15

// Fixed sitting boundaries, independent of restaurant hours.
var (
	LunchEnd    = At(16, 45)
	DinnerStart = At(17, 0)
)

type MealPeriod int

const (
	Lunch MealPeriod = iota
	Dinner
)

func (m MealPeriod) String() string {
	if m == Dinner {
		return "dinner"
	}
	return "lunch"
}

// ParseMealPeriod accepts "lunch" or "dinner".
func ParseMealPeriod(s string) (MealPeriod, error) {
	switch s {
	case "lunch", "Lunch":
		return Lunch, nil
	case "dinner", "Dinner":
		return Dinner, nil
	}
	return Lunch, fmt.Errorf("unknown meal period %q", s)
}

// OperatingHours are a restaurant's opening and closing times.
type OperatingHours struct {
	OpensAt  TimeOfDay
	ClosesAt TimeOfDay
}

// ParseHours parses "HH:MM" opening and closing strings.
func ParseHours(opensAt, closesAt string) (OperatingHours, error) {
	o, err := ParseTimeOfDay(opensAt)
	if err != nil {
		return OperatingHours{}, fmt.Errorf("opens at: %w", err)
	}
	c, err := ParseTimeOfDay(closesAt)
	if err != nil {
		return OperatingHours{}, fmt.Errorf("closes at: %w", err)
	}
	return OperatingHours{OpensAt: o, ClosesAt: c}, nil
}

// GenerateSlots emits times from start, rounded up to a multiple of interval,
// stepping by interval while the time is within both end and cutoff.
// A window that is empty after rounding yields no slots.
func GenerateSlots(start, end TimeOfDay, interval int, cutoff TimeOfDay) []TimeOfDay {
	if interval <= 0 {
		return nil
	}
	t := int(start)
	if rem := t % interval; rem != 0 {
		t += interval - rem
	}
	var out []TimeOfDay
	for ; t <= int(end) && t <= int(cutoff); t += interval {
		out = append(out, TimeOfDay(t))
	}
	return out
}

// LunchSlots returns lunch times for a day. today reports whether the day is
// the same calendar day as now; now is ignored otherwise.
func LunchSlots(h OperatingHours, today bool, now TimeOfDay) []TimeOfDay {
	if !today {
		if h.OpensAt > LunchEnd {
			return nil
		}
		return GenerateSlots(h.OpensAt, LunchEnd, Interval, h.ClosesAt)
	}
	switch {
	case now >= LunchEnd:
		return nil
	case now > h.OpensAt:
		return GenerateSlots(now, LunchEnd, Interval, h.ClosesAt)
	default:
		return GenerateSlots(h.OpensAt, LunchEnd, Interval, h.ClosesAt)
	}
}

// DinnerSlots returns dinner times for a day. today reports whether the day
// is the same calendar day as now; now is ignored otherwise.
func DinnerSlots(h OperatingHours, today bool, now TimeOfDay) []TimeOfDay {
	if !today {
		if h.OpensAt > DinnerStart {
			return GenerateSlots(h.OpensAt, h.ClosesAt, Interval, h.ClosesAt)
		}
		return GenerateSlots(DinnerStart, h.ClosesAt, Interval, h.ClosesAt)
	}
	switch {
	case h.OpensAt > DinnerStart:
		// late openers: never offer a time that has already gone by
		start := h.OpensAt
		if now > start {
			start = now
		}
		return GenerateSlots(start, h.ClosesAt, Interval, h.ClosesAt)
	case now > DinnerStart && now < h.ClosesAt:
		return GenerateSlots(now, h.ClosesAt, Interval, h.ClosesAt)
	default:
		return GenerateSlots(DinnerStart, h.ClosesAt, Interval, h.ClosesAt)
	}
}

// For dispatches to LunchSlots or DinnerSlots.
func For(meal MealPeriod, h OperatingHours, today bool, now TimeOfDay) []TimeOfDay {
	if meal == Dinner {
		return DinnerSlots(h, today, now)
	}
	return LunchSlots(h, today, now)
}

// Contains reports whether t is one of ts.
func Contains(ts []TimeOfDay, t TimeOfDay) bool {
	for _, s := range ts {
		if s == t {
			return true
		}
	}
	return false
}
