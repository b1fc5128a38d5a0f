package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSlotsCommand(t *testing.T) {
	out, err := run(t, "slots", "--opens-at", "14:00", "--closes-at", "23:45",
		"--now", "2026-10-16T15:10", "--date", "2026-10-16")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("output = %q", out)
	}
	if lines[0] != "Oct 16, 2026 (Asia/Kolkata)" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "lunch:  3:15 PM, 3:30 PM,") || !strings.HasSuffix(lines[1], "4:45 PM") {
		t.Errorf("lunch = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "dinner: 5:00 PM,") || !strings.HasSuffix(lines[2], "11:45 PM") {
		t.Errorf("dinner = %q", lines[2])
	}
}

func TestSlotsCommandJSON(t *testing.T) {
	out, err := run(t, "slots", "--opens-at", "18:00", "--closes-at", "24:00",
		"--now", "2026-10-16T19:05", "--meal", "dinner", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Date   string   `json:"date"`
		Lunch  []string `json:"lunch"`
		Dinner []string `json:"dinner"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Date != "2026-10-16" || len(got.Lunch) != 0 {
		t.Errorf("got %+v", got)
	}
	if len(got.Dinner) == 0 || got.Dinner[0] != "7:15 PM" || got.Dinner[len(got.Dinner)-1] != "12:00 AM" {
		t.Errorf("dinner = %v", got.Dinner)
	}
}

func TestSlotsCommandErrors(t *testing.T) {
	tests := [][]string{
		{"slots", "--opens-at", "9am", "--closes-at", "22:00"},
		{"slots", "--opens-at", "09:00", "--closes-at", "22:00", "--tz", "Nowhere/City"},
		{"slots", "--opens-at", "09:00", "--closes-at", "22:00", "--now", "tomorrow"},
		{"slots", "--opens-at", "09:00", "--closes-at", "22:00", "--meal", "brunch"},
		{"slots", "--closes-at", "22:00"},
	}
	for _, args := range tests {
		if _, err := run(t, args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "tablebook dev") {
		t.Errorf("version = %q", out)
	}
}

func TestKeysCommand(t *testing.T) {
	out, err := run(t, "keys")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "export COOKIE_HASH_KEY=") || !strings.Contains(out, "export COOKIE_BLOCK_KEY=") {
		t.Errorf("keys = %q", out)
	}
}
