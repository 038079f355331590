package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicops/clinicops/internal/config"
	"github.com/clinicops/clinicops/internal/domain/scheduling"
	"github.com/clinicops/clinicops/internal/platform/auth"
	"github.com/clinicops/clinicops/internal/platform/db"
	"github.com/clinicops/clinicops/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinicops-server",
		Short: "Clinic scheduling optimization service",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(capacityCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scheduling API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}
	return logger
}

func buildService(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*scheduling.Service, *pgxpool.Pool, error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}

	engine := scheduling.NewEngine(logger, scheduling.Options{
		GranularityMinutes: cfg.SlotGranularityMinutes,
		OptimisticFactor:   cfg.ForecastOptimisticFactor,
		PessimisticFactor:  cfg.ForecastPessimisticFactor,
	})
	svc := scheduling.NewService(engine,
		scheduling.NewHistoryRepoPG(pool),
		scheduling.NewPricingRepoPG(pool),
		logger)
	return svc, pool, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	svc, pool, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(auth.JWTMiddleware([]byte(cfg.JWTSigningKey), auth.HealthSkipper))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/readyz", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")
	scheduling.NewHandler(svc).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// capacityCmd runs the capacity planner once from the command line and
// prints the profile, for ops use without the HTTP surface.
func capacityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capacity",
		Short: "Print a capacity plan for a provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			providerID, _ := cmd.Flags().GetString("provider")
			start, _ := cmd.Flags().GetString("start")
			end, _ := cmd.Flags().GetString("end")
			target, _ := cmd.Flags().GetFloat64("target-utilization")
			tolerance, _ := cmd.Flags().GetString("risk-tolerance")

			startDate, err := time.Parse("2006-01-02", start)
			if err != nil {
				return fmt.Errorf("invalid --start date: %w", err)
			}
			endDate, err := time.Parse("2006-01-02", end)
			if err != nil {
				return fmt.Errorf("invalid --end date: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx := context.Background()
			svc, pool, err := buildService(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			profile, err := svc.PlanProviderCapacity(ctx, providerID,
				scheduling.DateRange{StartDate: startDate, EndDate: endDate},
				scheduling.SchedulingConstraints{
					WorkingHours:               scheduling.WorkingHours{Start: "08:00", End: "17:00"},
					BreakTimes:                 []scheduling.Window{{Start: "12:00", End: "13:00"}},
					MaxConsecutiveAppointments: 4,
				},
				target, scheduling.RiskTolerance(tolerance))
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(profile, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().String("provider", "", "Provider ID")
	cmd.Flags().String("start", "", "Range start date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "Range end date (YYYY-MM-DD)")
	cmd.Flags().Float64("target-utilization", 0.85, "Target utilization (0-1 exclusive)")
	cmd.Flags().String("risk-tolerance", "medium", "Risk tolerance: low, medium, or high")
	return cmd
}
