package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/tablebook/internal/restaurants"
)

func newRestaurantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restaurant",
		Short: "Manage restaurant listings",
	}
	cmd.AddCommand(newRestaurantAddCmd(), newRestaurantListCmd(), newRestaurantHoursCmd())
	return cmd
}

func newRestaurantAddCmd() *cobra.Command {
	var in restaurants.Restaurant

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a restaurant with its operating hours",
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

			r, err := restaurants.NewRepo(d).Create(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created restaurant %q (id=%s)\n", r.Name, r.ID)
			return nil
		},
	}

	c.Flags().StringVar(&in.ID, "id", "", "listing id (default: random uuid)")
	c.Flags().StringVar(&in.Name, "name", "", "restaurant name")
	c.Flags().StringVar(&in.City, "city", "", "city")
	c.Flags().StringVar(&in.Area, "area", "", "neighbourhood")
	c.Flags().StringVar(&in.OpensAt, "opens-at", "", "opening time, HH:MM")
	c.Flags().StringVar(&in.ClosesAt, "closes-at", "", "closing time, HH:MM (24:00 for midnight)")
	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("opens-at")
	_ = c.MarkFlagRequired("closes-at")
	return c
}

func newRestaurantListCmd() *cobra.Command {
	var city string

	c := &cobra.Command{
		Use:   "list",
		Short: "List restaurants",
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

			list, err := restaurants.NewRepo(d).List(ctx, city)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCITY\tHOURS")
			for _, r := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s-%s\n", r.ID, r.Name, r.City, r.OpensAt, r.ClosesAt)
			}
			return tw.Flush()
		},
	}
	c.Flags().StringVar(&city, "city", "", "only list restaurants in this city")
	return c
}

func newRestaurantHoursCmd() *cobra.Command {
	var id, opensAt, closesAt string

	c := &cobra.Command{
		Use:   "hours",
		Short: "Change a restaurant's operating hours",
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

			if err := restaurants.NewRepo(d).UpdateHours(ctx, id, opensAt, closesAt); err != nil {
				return err
			}
			if rc := redisClient(ctx, cfg, logger); rc != nil {
				defer rc.Close()
				if err := restaurants.NewCache(rc, nil, cfg.RestaurantCacheTTL, logger).Invalidate(ctx, id); err != nil {
					logger.Warn("cache invalidation failed", zap.String("restaurant_id", id), zap.Error(err))
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated hours for %s: %s-%s\n", id, opensAt, closesAt)
			return nil
		},
	}
	c.Flags().StringVar(&id, "id", "", "restaurant id")
	c.Flags().StringVar(&opensAt, "opens-at", "", "opening time, HH:MM")
	c.Flags().StringVar(&closesAt, "closes-at", "", "closing time, HH:MM (24:00 for midnight)")
	_ = c.MarkFlagRequired("id")
	_ = c.MarkFlagRequired("opens-at")
	_ = c.MarkFlagRequired("closes-at")
	return c
}
