package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic_backend/internal/config"
	"clinic_backend/internal/handler"
	"clinic_backend/internal/logger"
	"clinic_backend/internal/metrics"
	"clinic_backend/internal/middleware"
	"clinic_backend/internal/repository"
	"clinic_backend/internal/service"
	"clinic_backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic records API server",
	}
	rootCmd.AddCommand(serveCmd(), createAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the shared wiring of every subcommand.
type app struct {
	cfg    *config.AppConfig
	logger *zap.Logger
	pool   *pgxpool.Pool
}

func bootstrap(ctx context.Context) (*app, error) {
	envLoaded := config.LoadEnv()

	cfg, err := config.LoadAppConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	if !envLoaded {
		log.Info("no .env file found, relying on environment variables")
	}

	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		return nil, err
	}
	pool, err := config.ConnectDB(ctx, dbCfg, log)
	if err != nil {
		return nil, err
	}
	if err := config.AutoMigrate(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}

	return &app{cfg: cfg, logger: log, pool: pool}, nil
}

func (a *app) close() {
	a.pool.Close()
	_ = a.logger.Sync()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve()
		},
	}
}

func createAdminCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			accounts := repository.NewAccountRepository(a.pool)
			authService := service.NewAuthService(accounts, utils.NewJWTUtil(a.cfg.JWTSecret, utils.TokenTTL), a.cfg.DefaultPassword, a.logger)
			account, err := authService.CreateAdmin(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (id %s)\n", account.Username, account.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "admin username")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) serve() error {
	log := a.logger

	// --- Initialize Utilities ---
	jwtUtil := utils.NewJWTUtil(a.cfg.JWTSecret, utils.TokenTTL)
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// --- Initialize Repositories ---
	accounts := repository.NewAccountRepository(a.pool)
	doctors := repository.NewDoctorRepository(a.pool)
	patients := repository.NewPatientRepository(a.pool)
	records := repository.NewMedicalRecordRepository(a.pool)
	tx := repository.NewTransactor(a.pool)

	// --- Initialize Services ---
	authService := service.NewAuthService(accounts, jwtUtil, a.cfg.DefaultPassword, log)
	profileService := service.NewProfileService(accounts, doctors, patients, tx, a.cfg.DefaultPassword, log)
	recordService := service.NewRecordService(accounts, patients, records, tx, a.cfg.DefaultPassword, log)

	if a.cfg.InitialAdminUsername != "" && a.cfg.InitialAdminPassword != "" {
		_, err := authService.CreateAdmin(context.Background(), a.cfg.InitialAdminUsername, a.cfg.InitialAdminPassword)
		switch {
		case errors.Is(err, service.ErrConflict):
			log.Info("initial admin already exists", zap.String("username", a.cfg.InitialAdminUsername))
		case err != nil:
			return fmt.Errorf("failed to create initial admin: %w", err)
		}
	}

	// --- Initialize Middlewares ---
	guard := middleware.NewGuard(jwtUtil, collector)
	loginLimiter := middleware.NewRateLimiter(a.cfg.LoginRatePerMinute, log)
	defer loginLimiter.Stop()

	// --- Setup Gin Router ---
	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(handler.RouterConfig{
		Auth:        handler.NewAuthHandler(authService, collector, log),
		Users:       handler.NewUserHandler(profileService, authService, log),
		Records:     handler.NewRecordHandler(recordService, log),
		Guard:       guard,
		Logger:      log,
		CORSOrigins: a.cfg.CORSOrigins,
		LoginLimit:  loginLimiter.Middleware(),
		Metrics:     collector.Middleware(),
		MetricsPage: metrics.Handler(registry),
		Health: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return a.pool.Ping(ctx)
		},
	})

	// --- Start Server ---
	srv := &http.Server{
		Addr:    ":" + a.cfg.ServerPort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", a.cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exiting")
	return nil
}
