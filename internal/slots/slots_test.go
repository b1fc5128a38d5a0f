package slots

import (
	"reflect"
	"testing"
	"time"
)

func labels(t *testing.T, ts []TimeOfDay) []string {
	t.Helper()
	return Labels(ts)
}

func TestGenerateSlots(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		start  string
		end    string
		cutoff string
		want   []string
	}{
		{"aligned start", "12:00", "13:00", "23:00", []string{"12:00 PM", "12:15 PM", "12:30 PM", "12:45 PM", "1:00 PM"}},
		{"rounds start up", "15:10", "16:00", "23:00", []string{"3:15 PM", "3:30 PM", "3:45 PM", "4:00 PM"}},
		{"cutoff below end", "11:00", "16:45", "11:30", []string{"11:00 AM", "11:15 AM", "11:30 AM"}},
		{"single slot", "16:45", "16:45", "23:00", []string{"4:45 PM"}},
		{"start after end", "18:00", "16:45", "23:00", nil},
		{"rounding pushes past end", "16:46", "16:45", "23:00", nil},
		{"start after cutoff", "12:00", "16:45", "11:45", nil},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := GenerateSlots(MustParseTimeOfDay(tc.start), MustParseTimeOfDay(tc.end), Interval, MustParseTimeOfDay(tc.cutoff))
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(labels(t, got), tc.want) {
				t.Fatalf("got %v, want %v", labels(t, got), tc.want)
			}
		})
	}
}

func TestGenerateSlotsProperties(t *testing.T) {
	t.Parallel()

	for _, interval := range []int{5, 10, 15, 20, 30, 60} {
		for start := TimeOfDay(0); start < EndOfDay; start += 37 {
			for _, span := range []TimeOfDay{0, 14, 61, 300} {
				end := start + span
				cutoff := end - 7
				got := GenerateSlots(start, end, interval, cutoff)
				limit := end
				if cutoff < limit {
					limit = cutoff
				}
				for i, s := range got {
					if int(s)%interval != 0 {
						t.Fatalf("slot %v not aligned to %d", s, interval)
					}
					if s < start || s > limit {
						t.Fatalf("slot %v outside [%v, %v]", s, start, limit)
					}
					if i > 0 && int(s-got[i-1]) != interval {
						t.Fatalf("slots %v and %v not %d apart", got[i-1], s, interval)
					}
				}
				again := GenerateSlots(start, end, interval, cutoff)
				if !reflect.DeepEqual(got, again) {
					t.Fatalf("non-deterministic output for start=%v end=%v", start, end)
				}
			}
		}
	}
}

func TestGenerateSlotsBadInterval(t *testing.T) {
	t.Parallel()
	if got := GenerateSlots(At(12, 0), At(13, 0), 0, At(23, 0)); got != nil {
		t.Fatalf("expected no slots for zero interval, got %v", got)
	}
}

func TestLabelRoundTrip(t *testing.T) {
	t.Parallel()

	cases := map[TimeOfDay]string{
		0:          "12:00 AM",
		900:        "3:00 PM",
		At(12, 0):  "12:00 PM",
		At(9, 5):   "9:05 AM",
		At(23, 45): "11:45 PM",
		EndOfDay:   "12:00 AM",
	}
	for tod, want := range cases {
		if got := tod.Label(); got != want {
			t.Fatalf("Label(%d) = %q, want %q", tod, got, want)
		}
	}

	for m := TimeOfDay(0); m < EndOfDay; m++ {
		back, err := ParseLabel(m.Label())
		if err != nil {
			t.Fatalf("ParseLabel(%q): %v", m.Label(), err)
		}
		if back != m {
			t.Fatalf("label round trip %d -> %q -> %d", m, m.Label(), back)
		}
		parsed, err := ParseTimeOfDay(m.String())
		if err != nil || parsed != m {
			t.Fatalf("string round trip %d -> %q -> %d (%v)", m, m.String(), parsed, err)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	if got := MustParseTimeOfDay("24:00"); got != EndOfDay {
		t.Fatalf("24:00 parsed as %d", got)
	}
	for _, bad := range []string{"", "7", "24:15", "12:60", "ab:cd", "12:5", "-1:00"} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	for _, bad := range []string{"13:00 PM", "0:15 AM", "3:00", "3:00 XM"} {
		if _, err := ParseLabel(bad); err == nil {
			t.Fatalf("expected error for label %q", bad)
		}
	}
}

func hours(t *testing.T, opens, closes string) OperatingHours {
	t.Helper()
	h, err := ParseHours(opens, closes)
	if err != nil {
		t.Fatalf("ParseHours: %v", err)
	}
	return h
}

func first(ts []TimeOfDay) string { return ts[0].Label() }
func last(ts []TimeOfDay) string  { return ts[len(ts)-1].Label() }

func TestScenarios(t *testing.T) {
	t.Parallel()

	t.Run("A: afternoon on an early opener", func(t *testing.T) {
		h := hours(t, "14:00", "23:45")
		lunch := LunchSlots(h, true, MustParseTimeOfDay("15:10"))
		if first(lunch) != "3:15 PM" || last(lunch) != "4:45 PM" || len(lunch) != 7 {
			t.Fatalf("unexpected lunch %v", Labels(lunch))
		}
		dinner := DinnerSlots(h, true, MustParseTimeOfDay("15:10"))
		if first(dinner) != "5:00 PM" || last(dinner) != "11:45 PM" || len(dinner) != 28 {
			t.Fatalf("unexpected dinner %v", Labels(dinner))
		}
	})

	t.Run("B: restaurant opens after lunch", func(t *testing.T) {
		h := hours(t, "18:00", "23:00")
		if lunch := LunchSlots(h, true, MustParseTimeOfDay("12:00")); len(lunch) != 0 {
			t.Fatalf("expected no lunch, got %v", Labels(lunch))
		}
		dinner := DinnerSlots(h, true, MustParseTimeOfDay("12:00"))
		if first(dinner) != "6:00 PM" || last(dinner) != "11:00 PM" {
			t.Fatalf("unexpected dinner %v", Labels(dinner))
		}
	})

	t.Run("C: evening after lunch cutoff", func(t *testing.T) {
		h := hours(t, "12:00", "23:30")
		if lunch := LunchSlots(h, true, MustParseTimeOfDay("17:30")); len(lunch) != 0 {
			t.Fatalf("expected no lunch, got %v", Labels(lunch))
		}
		dinner := DinnerSlots(h, true, MustParseTimeOfDay("17:30"))
		if first(dinner) != "5:30 PM" || last(dinner) != "11:30 PM" {
			t.Fatalf("unexpected dinner %v", Labels(dinner))
		}
	})

	t.Run("D: future day ignores now", func(t *testing.T) {
		h := hours(t, "12:00", "22:00")
		for _, now := range []string{"00:00", "13:37", "23:59"} {
			lunch := LunchSlots(h, false, MustParseTimeOfDay(now))
			if first(lunch) != "12:00 PM" || last(lunch) != "4:45 PM" {
				t.Fatalf("unexpected lunch %v", Labels(lunch))
			}
			dinner := DinnerSlots(h, false, MustParseTimeOfDay(now))
			if first(dinner) != "5:00 PM" || last(dinner) != "10:00 PM" {
				t.Fatalf("unexpected dinner %v", Labels(dinner))
			}
		}
	})
}

func TestLunchBranches(t *testing.T) {
	t.Parallel()

	h := hours(t, "11:00", "15:00")
	if got := LunchSlots(h, true, MustParseTimeOfDay("16:45")); len(got) != 0 {
		t.Fatalf("lunch at cutoff should be empty, got %v", Labels(got))
	}
	got := LunchSlots(h, true, MustParseTimeOfDay("09:00"))
	if first(got) != "11:00 AM" || last(got) != "3:00 PM" {
		t.Fatalf("closing time should cap lunch, got %v", Labels(got))
	}
	if got := LunchSlots(hours(t, "17:00", "23:00"), false, 0); len(got) != 0 {
		t.Fatalf("future lunch for a late opener should be empty, got %v", Labels(got))
	}
}

func TestDinnerBranches(t *testing.T) {
	t.Parallel()

	t.Run("now past closing falls back to dinner start", func(t *testing.T) {
		h := hours(t, "12:00", "22:00")
		got := DinnerSlots(h, true, MustParseTimeOfDay("22:30"))
		if first(got) != "5:00 PM" || last(got) != "10:00 PM" {
			t.Fatalf("unexpected dinner %v", Labels(got))
		}
	})

	t.Run("late opener is clamped to now", func(t *testing.T) {
		h := hours(t, "18:00", "23:00")
		got := DinnerSlots(h, true, MustParseTimeOfDay("19:05"))
		if first(got) != "7:15 PM" || last(got) != "11:00 PM" {
			t.Fatalf("unexpected dinner %v", Labels(got))
		}
	})

	t.Run("closing at midnight", func(t *testing.T) {
		h := hours(t, "12:00", "24:00")
		got := DinnerSlots(h, false, 0)
		if last(got) != "12:00 AM" {
			t.Fatalf("expected midnight as last slot, got %v", Labels(got))
		}
	})
}

func TestEngine(t *testing.T) {
	t.Parallel()

	ist := time.FixedZone("IST", 5*3600+30*60)
	// 09:40 UTC is 15:10 in IST.
	clock := NewFixedClock(time.Date(2026, time.October, 16, 9, 40, 0, 0, time.UTC))
	e := NewEngine(clock, ist)
	h := hours(t, "14:00", "23:45")
	today := Date{2026, time.October, 16}

	lunch := e.Slots(h, today, Lunch)
	if first(lunch) != "3:15 PM" {
		t.Fatalf("engine should read now in its zone, got %v", Labels(lunch))
	}

	av := e.Availability(h, today.AddDays(1))
	if first(av.Lunch) != "2:00 PM" || first(av.Dinner) != "5:00 PM" {
		t.Fatalf("unexpected tomorrow availability %v / %v", Labels(av.Lunch), Labels(av.Dinner))
	}

	if got := e.Slots(h, today.AddDays(-1), Dinner); len(got) != 0 {
		t.Fatalf("past dates should have no slots, got %v", Labels(got))
	}

	clock.Set(time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)) // 17:30 IST
	if got := e.Slots(h, today, Lunch); len(got) != 0 {
		t.Fatalf("expected lunch closed after clock advanced, got %v", Labels(got))
	}
}

func TestEngineHorizon(t *testing.T) {
	t.Parallel()

	e := NewEngine(NewFixedClock(time.Date(2026, time.December, 25, 20, 0, 0, 0, time.UTC)), time.UTC)
	dates := e.SelectableDates()
	if len(dates) != BookingHorizonDays+1 {
		t.Fatalf("expected %d dates, got %d", BookingHorizonDays+1, len(dates))
	}
	if dates[0] != (Date{2026, time.December, 25}) || dates[len(dates)-1] != (Date{2027, time.January, 9}) {
		t.Fatalf("unexpected horizon %v..%v", dates[0], dates[len(dates)-1])
	}
	if !e.Selectable(Date{2027, time.January, 9}) {
		t.Fatalf("last horizon day should be selectable")
	}
	if e.Selectable(Date{2027, time.January, 10}) || e.Selectable(Date{2026, time.December, 24}) {
		t.Fatalf("dates outside the horizon should not be selectable")
	}
}

func TestDate(t *testing.T) {
	t.Parallel()

	d, err := ParseDate("2026-02-28")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if got := d.AddDays(1).String(); got != "2026-03-01" {
		t.Fatalf("AddDays crossed month wrong: %s", got)
	}
	if got := d.Display(); got != "Feb 28, 2026" {
		t.Fatalf("Display = %q", got)
	}
	if !d.Before(d.AddDays(1)) || !d.AddDays(1).After(d) || !d.Equal(d) {
		t.Fatalf("comparison helpers disagree")
	}
	if _, err := ParseDate("28/02/2026"); err == nil {
		t.Fatalf("expected error for bad date")
	}
}
