package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/tablebook/internal/reservations"
	"github.com/example/tablebook/internal/scheduler"
	"github.com/example/tablebook/internal/slots"
)

func newBookingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "Inspect and manage stored bookings",
	}
	cmd.AddCommand(newBookingsListCmd(), newBookingsCancelCmd(), newBookingsSweepCmd())
	return cmd
}

func newBookingsListCmd() *cobra.Command {
	var email, status string

	c := &cobra.Command{
		Use:   "list",
		Short: "List a customer's bookings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, _, err := reservations.ParseStatusFilter(status)
			if err != nil {
				return err
			}
			cfg, logger, err := loadCLI()
			if err != nil {
				return err
			}
			ctx := context.Background()
			d, err := openDB(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer d.Close()

			list, err := reservations.NewRepo(d).ListByUser(ctx, email, filter)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tRESTAURANT\tDATE\tTIME\tGUESTS\tSTATUS")
			for _, r := range list {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", r.ID, r.RestaurantName, r.Date.Display(), r.EntryTime.Label(), r.PartySize, r.Status)
			}
			return tw.Flush()
		},
	}
	c.Flags().StringVar(&email, "email", "", "customer email")
	c.Flags().StringVar(&status, "status", "all", "all|pending|confirmed|cancelled|unattended|fulfilled")
	_ = c.MarkFlagRequired("email")
	return c
}

func newBookingsCancelCmd() *cobra.Command {
	var id int64

	c := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a Pending or Confirmed booking",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadCLI()
			if err != nil {
				return err
			}
			ctx := context.Background()
			d, err := openDB(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer d.Close()

			res, err := reservations.Cancel(ctx, reservations.NewRepo(d), id, "")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled booking %d (%s, %s %s)\n", res.ID, res.RestaurantName, res.Date.Display(), res.EntryTime.Label())
			return nil
		},
	}
	c.Flags().Int64Var(&id, "id", 0, "booking id")
	_ = c.MarkFlagRequired("id")
	return c
}

func newBookingsSweepCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "sweep",
		Short: "Mark overdue bookings Unattended once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadCLI()
			if err != nil {
				return err
			}
			ctx := context.Background()
			d, err := openDB(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer d.Close()

			grace, _ := cmd.Flags().GetDuration("grace")
			sw := &scheduler.Sweeper{
				Store:  reservations.NewRepo(d),
				Engine: slots.NewEngine(slots.SystemClock{}, cfg.Location),
				Grace:  grace,
				Logger: logger,
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked %d bookings unattended\n", sw.Sweep(ctx))
			return nil
		},
	}
	c.Flags().Duration("grace", 30*time.Minute, "how long after the entry time a booking counts as a no-show")
	return c
}
