package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/tablebook/internal/auth"
	"github.com/example/tablebook/internal/bookingapi"
	"github.com/example/tablebook/internal/config"
	"github.com/example/tablebook/internal/logging"
	"github.com/example/tablebook/internal/reservations"
	"github.com/example/tablebook/internal/restaurants"
	"github.com/example/tablebook/internal/reviews"
	"github.com/example/tablebook/internal/scheduler"
	"github.com/example/tablebook/internal/slots"
	"github.com/example/tablebook/internal/web"
)

func newServerCmd() *cobra.Command {
	var (
		migrateUp bool
		noSweep   bool
		grace     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the booking UI, the booking endpoint and the no-show sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := openDB(ctx, cfg, logger, migrateUp)
			if err != nil {
				return err
			}
			defer d.Close()

			authStore := auth.NewStore(d, cfg.CookieHashKey, cfg.CookieBlockKey, logger.Named("auth"))
			restaurantRepo := restaurants.NewRepo(d)
			reservationRepo := reservations.NewRepo(d)
			engine := slots.NewEngine(slots.SystemClock{}, cfg.Location)

			var source restaurants.Source = restaurantRepo
			if rc := redisClient(ctx, cfg, logger); rc != nil {
				defer rc.Close()
				source = restaurants.NewCache(rc, restaurantRepo, cfg.RestaurantCacheTTL, logger.Named("cache"))
			}

			api := reservations.NewHandler(reservationRepo, logger.Named("reservations"))
			api.Restaurants = restaurants.Directory{Source: source}
			api.Engine = engine
			api.Owner = authStore.SessionEmail
			api.Token = cfg.BookingAPIToken
			api.RequireAuth = authStore.RequireAuthAPI

			reviewRepo := reviews.NewRepo(d)
			reviewAPI := reviews.NewHandler(reviewRepo, logger.Named("reviews"))
			reviewAPI.Restaurants = restaurants.Directory{Source: source}
			reviewAPI.Owner = authStore.SessionEmail
			reviewAPI.RequireAuth = authStore.RequireAuthAPI

			if !noSweep {
				sw := &scheduler.Sweeper{
					Store:    reservationRepo,
					Engine:   engine,
					Interval: cfg.SweepInterval,
					Grace:    grace,
					Logger:   logger.Named("sweeper"),
				}
				go func() { _ = sw.Run(ctx) }()
			}

			ws := &web.Server{
				Auth:            authStore,
				Users:           authStore,
				Restaurants:     source,
				Listings:        restaurantRepo,
				Engine:          engine,
				Submitter:       bookingapi.New(cfg.BookingAPIURL, cfg.BookingAPIToken, logger.Named("bookingapi")),
				Reservations:    api,
				History:         reservationRepo,
				Reviews:         reviewRepo,
				ReviewAPI:       reviewAPI,
				Logger:          logger.Named("web"),
				RateLimitPerMin: cfg.RateLimitPerMin,
				TrustedProxies:  cfg.TrustedProxies,
			}
			logger.Info("starting",
				zap.String("version", Version),
				zap.String("timezone", cfg.Location.String()),
				zap.String("booking_api", cfg.BookingAPIURL),
			)
			return web.Start(ctx, cfg.ListenAddr, ws.Routes(), logger)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	cmd.Flags().BoolVar(&noSweep, "no-sweep", false, "do not mark overdue bookings Unattended")
	cmd.Flags().DurationVar(&grace, "sweep-grace", 30*time.Minute, "how long after the entry time a booking counts as a no-show")
	return cmd
}

// redisClient returns a connected client, or nil when Redis is unreachable.
func redisClient(ctx context.Context, cfg config.Config, logger *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, restaurant cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = rc.Close()
		return nil
	}
	return rc
}
