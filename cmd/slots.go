package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/tablebook/internal/slots"
)

func newSlotsCmd() *cobra.Command {
	var (
		opensAt, closesAt string
		date, now, tz     string
		meal              string
		asJSON            bool
	)

	c := &cobra.Command{
		Use:   "slots",
		Short: "Print the reservation times offered for a day",
		Example: `  tablebook slots --opens-at 14:00 --closes-at 23:45 --date 2026-10-18
  tablebook slots --opens-at 18:00 --closes-at 24:00 --now 2026-10-16T19:05 --meal dinner`,
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, err := slots.ParseHours(opensAt, closesAt)
			if err != nil {
				return err
			}
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("--tz: %w", err)
			}

			var clock slots.Clock = slots.SystemClock{}
			if now != "" {
				t, err := time.ParseInLocation("2006-01-02T15:04", now, loc)
				if err != nil {
					return fmt.Errorf("--now %q: want YYYY-MM-DDTHH:MM", now)
				}
				clock = slots.NewFixedClock(t)
			}
			engine := slots.NewEngine(clock, loc)

			day := engine.Today()
			if date != "" {
				if day, err = slots.ParseDate(date); err != nil {
					return err
				}
			}

			av := engine.Availability(hours, day)
			meal = strings.ToLower(meal)
			switch meal {
			case "lunch":
				av.Dinner = nil
			case "dinner":
				av.Lunch = nil
			case "both", "":
			default:
				return fmt.Errorf("--meal must be lunch, dinner or both")
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"date":   day.String(),
					"lunch":  nonNil(slots.Labels(av.Lunch)),
					"dinner": nonNil(slots.Labels(av.Dinner)),
				})
			}

			fmt.Fprintf(out, "%s (%s)\n", day.Display(), loc)
			if meal != "dinner" {
				fmt.Fprintf(out, "lunch:  %s\n", orNone(slots.Labels(av.Lunch)))
			}
			if meal != "lunch" {
				fmt.Fprintf(out, "dinner: %s\n", orNone(slots.Labels(av.Dinner)))
			}
			return nil
		},
	}

	c.Flags().StringVar(&opensAt, "opens-at", "", "opening time, HH:MM")
	c.Flags().StringVar(&closesAt, "closes-at", "", "closing time, HH:MM (24:00 for midnight)")
	c.Flags().StringVar(&date, "date", "", "day to compute, YYYY-MM-DD (default today)")
	c.Flags().StringVar(&now, "now", "", "pretend the current time is YYYY-MM-DDTHH:MM")
	c.Flags().StringVar(&tz, "tz", slots.DefaultZone, "IANA time zone the restaurant runs in")
	c.Flags().StringVar(&meal, "meal", "both", "lunch|dinner|both")
	c.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	_ = c.MarkFlagRequired("opens-at")
	_ = c.MarkFlagRequired("closes-at")
	return c
}

func orNone(labels []string) string {
	if len(labels) == 0 {
		return "(none)"
	}
	return strings.Join(labels, ", ")
}

func nonNil(labels []string) []string {
	if labels == nil {
		return []string{}
	}
	return labels
}
