package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saludplena/claims-engine/internal/application/escalation"
	"github.com/saludplena/claims-engine/internal/config"
	"github.com/saludplena/claims-engine/internal/domain/calendar"
	"github.com/saludplena/claims-engine/internal/infrastructure/database/postgres"
	"github.com/saludplena/claims-engine/internal/infrastructure/database/postgres/repositories"
	"github.com/saludplena/claims-engine/internal/infrastructure/database/redis"
	"github.com/saludplena/claims-engine/internal/infrastructure/holidays"
)

// NewJobsCmd creates the "jobs" command group for running the escalation
// jobs from the command line.  The same jobs are exposed over HTTP under
// /jobs for external schedulers; this path exists for operators and cron
// on hosts without HTTP access to the server.
func NewJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Run scheduled escalation jobs",
	}

	cmd.AddCommand(
		newJobRunCmd("inactivation", "Inactivate internments past the inactivity threshold",
			func(ctx context.Context, svc *escalation.Service) (interface{}, error) {
				return svc.InactivateStale(ctx)
			}),
		newJobRunCmd("finalization", "Finalize expired internments without coverage extension",
			func(ctx context.Context, svc *escalation.Service) (interface{}, error) {
				return svc.FinalizeExpired(ctx)
			}),
		newJobRunCmd("quotation-expiry", "Expire quotation rounds past their submission deadline",
			func(ctx context.Context, svc *escalation.Service) (interface{}, error) {
				return svc.ExpireQuotations(ctx)
			}),
	)
	return cmd
}

func newJobRunCmd(name, short string, run func(context.Context, *escalation.Service) (interface{}, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			svc, cleanup, err := buildEscalationService(cc)
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := run(cmd.Context(), svc)
			if err != nil {
				return fmt.Errorf("job %s failed: %w", name, err)
			}
			return printJSON(cmd, summary)
		},
	}
}

// buildEscalationService wires the minimal dependency graph a job run needs:
// PostgreSQL repositories, the Redis lock factory, and the business calendar.
// Events and metrics are skipped; job summaries go to stdout instead.
func buildEscalationService(cc *CLIContext) (*escalation.Service, func(), error) {
	cfg := cc.Config

	conn, err := postgres.NewConnection(postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		Database:     cfg.Database.DBName,
		Username:     cfg.Database.User,
		Password:     cfg.Database.Password,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxConns,
	}, cc.Logger.Named("postgres"))
	if err != nil {
		return nil, nil, err
	}

	rdb, err := redis.NewClient(&redis.Config{
		Mode:     "standalone",
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cc.Logger.Named("redis"))
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	cleanup := func() {
		rdb.Close()
		conn.Close()
	}

	calc, err := buildCalculator(cfg, cc, rdb)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	svc, err := escalation.NewService(
		repositories.NewInternmentRepository(conn.DB(), cc.Logger.Named("internment_repo")),
		repositories.NewMedicationRepository(conn.DB(), cc.Logger.Named("medication_repo")),
		repositories.NewNotificationRepository(conn.DB(), cc.Logger.Named("notification_repo")),
		calc,
		redis.NewLockFactory(rdb, cc.Logger.Named("locks")),
		nil, nil,
		cc.Logger.Named("escalation"),
		escalation.Config{
			InactivityThresholdHours: cfg.Escalation.InactivityThresholdHours,
			PreDeadlineWindowHours:   cfg.Escalation.PreDeadlineWindowHours,
			BatchLimit:               cfg.Jobs.BatchLimit,
		})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

func buildCalculator(cfg *config.Config, cc *CLIContext, rdb *redis.Client) (*calendar.Calculator, error) {
	source, err := holidays.NewProvider(holidays.Config{
		BaseURL:      cfg.Holidays.BaseURL,
		CountryCode:  cfg.Holidays.CountryCode,
		FetchTimeout: cfg.Holidays.FetchTimeout,
		CacheTTL:     cfg.Holidays.CacheTTL,
	}, cc.Logger.Named("holidays"), holidays.WithCache(redis.NewRedisCache(rdb, cc.Logger.Named("cache"))))
	if err != nil {
		return nil, err
	}
	return calendar.NewCalculator(source, cfg.Calendar.SkipWeekends)
}
