package slots

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
type TimeOfDay int

// EndOfDay is the only value above 23:59 that parses; restaurants closing at
// midnight enter it as "24:00".
const EndOfDay TimeOfDay = 24 * 60

// At builds a TimeOfDay from an hour and minute.
func At(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses a 24-hour "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q (want HH:MM)", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if h == 24 && m == 0 {
		return EndOfDay, nil
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return At(h, m), nil
}

// MustParseTimeOfDay is ParseTimeOfDay for constants and tests.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String renders the 24-hour "HH:MM" form accepted by ParseTimeOfDay.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Label renders the 12-hour display form, e.g. "3:15 PM".
func (t TimeOfDay) Label() string {
	h := t.Hour() % 24
	period := "AM"
	if h >= 12 {
		period = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, t.Minute(), period)
}

// ParseLabel parses a 12-hour "H:MM AM/PM" label produced by Label.
func ParseLabel(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	clock, period, ok := strings.Cut(s, " ")
	if !ok {
		return 0, fmt.Errorf("invalid slot label %q", s)
	}
	hh, mm, ok := strings.Cut(clock, ":")
	if !ok || len(mm) != 2 {
		return 0, fmt.Errorf("invalid slot label %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 1 || h > 12 {
		return 0, fmt.Errorf("invalid hour in slot label %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in slot label %q", s)
	}
	h %= 12
	switch strings.ToUpper(strings.TrimSpace(period)) {
	case "AM":
	case "PM":
		h += 12
	default:
		return 0, fmt.Errorf("invalid period in slot label %q", s)
	}
	return At(h, m), nil
}

// Labels converts minute values into display labels.
func Labels(ts []TimeOfDay) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Label())
	}
	return out
}
