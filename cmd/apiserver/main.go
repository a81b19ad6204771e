// API server entry point for the claims-engine backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/saludplena/claims-engine/internal/application/escalation"
	"github.com/saludplena/claims-engine/internal/application/internments"
	"github.com/saludplena/claims-engine/internal/application/medications"
	"github.com/saludplena/claims-engine/internal/config"
	"github.com/saludplena/claims-engine/internal/domain/calendar"
	"github.com/saludplena/claims-engine/internal/infrastructure/auth/token"
	"github.com/saludplena/claims-engine/internal/infrastructure/database/postgres"
	"github.com/saludplena/claims-engine/internal/infrastructure/database/postgres/repositories"
	"github.com/saludplena/claims-engine/internal/infrastructure/database/redis"
	"github.com/saludplena/claims-engine/internal/infrastructure/holidays"
	"github.com/saludplena/claims-engine/internal/infrastructure/messaging/kafka"
	"github.com/saludplena/claims-engine/internal/infrastructure/monitoring/logging"
	"github.com/saludplena/claims-engine/internal/infrastructure/monitoring/prometheus"
	apihttp "github.com/saludplena/claims-engine/internal/interfaces/http"
	"github.com/saludplena/claims-engine/internal/interfaces/http/handlers"
)

const defaultConfigPath = "configs/config.yaml"

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
	if *httpPort > 0 {
		cfg.Server.Port = *httpPort
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: logger initialization failed: %v\n", err)
		os.Exit(1)
	}

	logger.Info("starting claims-engine API server",
		logging.String("version", version),
		logging.String("commit", gitCommit),
		logging.String("build_date", buildDate),
		logging.Int("port", cfg.Server.Port),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited with error", logging.Err(err))
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	// ── Infrastructure ──

	conn, err := postgres.NewConnection(postgresConfig(cfg.Database), logger.Named("postgres"))
	if err != nil {
		return err
	}
	defer conn.Close()

	rdb, err := redis.NewClient(redisConfig(cfg.Redis), logger.Named("redis"))
	if err != nil {
		return err
	}
	defer rdb.Close()

	locks := redis.NewLockFactory(rdb, logger.Named("locks"))
	cache := redis.NewRedisCache(rdb, logger.Named("cache"))

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer, err = kafka.NewProducer(kafkaConfig(cfg.Kafka), logger.Named("kafka"))
		if err != nil {
			return err
		}
		defer producer.Close()
	}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "claims",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger.Named("metrics"))
	if err != nil {
		return err
	}
	metrics := prometheus.NewAppMetrics(collector)

	// ── Domain services ──

	holidaySource, err := holidays.NewProvider(holidays.Config{
		BaseURL:      cfg.Holidays.BaseURL,
		CountryCode:  cfg.Holidays.CountryCode,
		FetchTimeout: cfg.Holidays.FetchTimeout,
		CacheTTL:     cfg.Holidays.CacheTTL,
	}, logger.Named("holidays"), holidays.WithCache(cache))
	if err != nil {
		return err
	}

	calc, err := calendar.NewCalculator(holidaySource, cfg.Calendar.SkipWeekends)
	if err != nil {
		return err
	}

	codec, err := token.NewCodec(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	internmentRepo := repositories.NewInternmentRepository(conn.DB(), logger.Named("internment_repo"))
	medicationRepo := repositories.NewMedicationRepository(conn.DB(), logger.Named("medication_repo"))
	notificationRepo := repositories.NewNotificationRepository(conn.DB(), logger.Named("notification_repo"))

	var intPub internments.EventPublisher
	var medPub medications.EventPublisher
	var escPub escalation.EventPublisher
	if producer != nil {
		intPub, medPub, escPub = producer, producer, producer
	}

	internmentSvc, err := internments.NewService(
		internmentRepo, notificationRepo, calc, intPub, metrics, logger.Named("internments"))
	if err != nil {
		return err
	}
	medicationSvc, err := medications.NewService(
		medicationRepo, notificationRepo, calc, medPub, metrics, logger.Named("medications"),
		medications.Config{
			PharmacyQuorum:        cfg.Quotation.PharmacyQuorum,
			DeadlineBusinessHours: cfg.Quotation.DeadlineBusinessHours,
		})
	if err != nil {
		return err
	}
	escalationSvc, err := escalation.NewService(
		internmentRepo, medicationRepo, notificationRepo, calc, locks, escPub, metrics,
		logger.Named("escalation"),
		escalation.Config{
			InactivityThresholdHours: cfg.Escalation.InactivityThresholdHours,
			PreDeadlineWindowHours:   cfg.Escalation.PreDeadlineWindowHours,
			BatchLimit:               cfg.Jobs.BatchLimit,
		})
	if err != nil {
		return err
	}

	// ── HTTP interface ──

	internmentHandler, err := handlers.NewInternmentHandler(internmentSvc)
	if err != nil {
		return err
	}
	medicationHandler, err := handlers.NewMedicationHandler(medicationSvc)
	if err != nil {
		return err
	}
	publicHandler, err := handlers.NewPublicQuotationHandler(medicationSvc)
	if err != nil {
		return err
	}
	notificationHandler, err := handlers.NewNotificationHandler(notificationRepo)
	if err != nil {
		return err
	}
	jobsHandler, err := handlers.NewJobsHandler(escalationSvc)
	if err != nil {
		return err
	}
	healthHandler := handlers.NewHealthHandler(version, map[string]handlers.Pinger{
		"database": handlers.PingFunc(conn.HealthCheck),
		"redis":    handlers.PingFunc(rdb.Ping),
	})

	router := apihttp.NewRouter(apihttp.RouterConfig{
		Internments:      internmentHandler,
		Medications:      medicationHandler,
		Notifications:    notificationHandler,
		Public:           publicHandler,
		Jobs:             jobsHandler,
		Health:           healthHandler,
		TokenVerifier:    codec,
		JobTriggerSecret: cfg.Jobs.TriggerSecret,
		Logger:           logger.Named("http"),
		Metrics:          metrics,
		MetricsCollector: collector,
		Mode:             cfg.Server.Mode,
	})

	server := apihttp.NewServer(cfg.Server, router, logger.Named("http"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	}

	if err := server.Stop(context.Background()); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// loadConfig reads the config file when present and falls back to the
// environment-only loader for containerised deployments without one.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
