package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/n0rdy/leadflow/api"
	"github.com/n0rdy/leadflow/clock"
	"github.com/n0rdy/leadflow/common"
	"github.com/n0rdy/leadflow/configs"
	"github.com/n0rdy/leadflow/db"
	"github.com/n0rdy/leadflow/jobs/cleanup"
	"github.com/n0rdy/leadflow/jobs/maintenance"
	metricsjobs "github.com/n0rdy/leadflow/jobs/metrics"
	"github.com/n0rdy/leadflow/leads"
	"github.com/n0rdy/leadflow/metrics"
	"github.com/n0rdy/leadflow/services"
	"github.com/n0rdy/leadflow/telemetry"
	"github.com/n0rdy/leadflow/transport"
	"github.com/n0rdy/leadflow/utils"
	"github.com/n0rdy/leadflow/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	appConfigs, err := configs.NewAppConfig()
	if err != nil {
		// a worker without a queue has nothing to do, failing fast is the only sensible option
		log.Fatal().Err(err).Msg("invalid configuration, worker will not start")
	}
	utils.SetupLogger(appConfigs.Env, appConfigs.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsService := metrics.NewMetricsService(appConfigs.MetricsEnabled, prometheus.DefaultRegisterer)

	var closers []io.Closer
	defer func() {
		// reverse order: jobs first, the store they use last
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close resource")
			}
		}
	}()

	rawTransport, localRepo := newTransport(ctx, appConfigs)
	if localRepo != nil {
		closers = append(closers, localRepo)
	}

	usageTracker := telemetry.NewUsageTracker(
		appConfigs.Usage.ReportEveryCalls,
		appConfigs.Usage.MonthlyQuota,
		clock.RealClock{},
		metricsService,
		log.Logger,
	)
	queueTransport := telemetry.InstrumentTransport(rawTransport, usageTracker, telemetry.NewLimiter(appConfigs.Usage.MaxCallsPerSecond))

	leadHandler := newLeadHandler(appConfigs, &closers)

	workerConfig := appConfigs.Worker
	deadLetterRouter := worker.NewDeadLetterRouter(queueTransport, appConfigs.QueueURL, appConfigs.DlqURL, workerConfig.MaxRetries, metricsService, log.Logger)
	retrier := worker.NewRetrier(queueTransport, appConfigs.QueueURL, workerConfig.MaxRetries, workerConfig.RetryDelay, deadLetterRouter, log.Logger)
	processor := worker.NewBatchProcessor(queueTransport, appConfigs.QueueURL, leadHandler, retrier, workerConfig.MaxRetries, workerConfig.BatchSize, metricsService, log.Logger)
	poller := worker.NewPoller(queueTransport, appConfigs.QueueURL, processor, workerConfig, clock.RealClock{}, metricsService, log.Logger)

	if appConfigs.MetricsEnabled {
		closers = append(closers, metricsjobs.NewQueuesDepthMetricsJob(metricsService, queueTransport, appConfigs.QueueURL, appConfigs.DlqURL, appConfigs.JobsIntervals.QueuesDepthMetricsMs))
	}
	if localRepo != nil {
		closers = append(closers, maintenance.NewLocalStoreMaintenanceJob(localRepo, appConfigs.JobsIntervals.LocalStoreMaintenanceMs, appConfigs.JobsIntervals.LocalStoreMaintenanceMaxDurationMs))
		if appConfigs.DlqURL != "" {
			closers = append(closers, cleanup.NewExpiredDlqMessagesCleanupJob(localRepo, appConfigs.DlqURL, appConfigs.JobsIntervals.LocalDlqRetentionMs, appConfigs.JobsIntervals.ExpiredDlqMessagesCleanupMs))
		}
	}

	leadsService := services.NewLeadsService(queueTransport, appConfigs.QueueURL, metricsService)
	queuesService := services.NewQueuesService(queueTransport, usageTracker, appConfigs.QueueURL, appConfigs.DlqURL)
	monitoringService := services.NewMonitoringService(poller, workerConfig.StaleHeartbeatAfter, clock.RealClock{})

	var metricsHandler http.Handler
	if appConfigs.MetricsEnabled {
		metricsHandler = promhttp.Handler()
	}
	if appConfigs.API.APIKey == "" {
		log.Warn().Msg("LEADFLOW_API_KEY is not set, lead and test event endpoints are unauthenticated")
	}
	leadflowRouter := api.NewRouter(leadsService, queuesService, monitoringService, metricsHandler, appConfigs.API.APIKey)

	leadflowServer := &http.Server{
		Addr:              appConfigs.API.Addr,
		Handler:           http.TimeoutHandler(leadflowRouter.NewRouter(), appConfigs.ServerConfig.Timeouts.Handle, "timeout"),
		WriteTimeout:      appConfigs.ServerConfig.Timeouts.Write,
		ReadTimeout:       appConfigs.ServerConfig.Timeouts.Read,
		ReadHeaderTimeout: appConfigs.ServerConfig.Timeouts.ReadHeader,
		IdleTimeout:       appConfigs.ServerConfig.Timeouts.Idle,
	}

	go func() {
		err := leadflowServer.ListenAndServe()
		if err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				log.Info().Msg("server shutdown")
			} else {
				log.Warn().Err(err).Msg("server failed")
			}
		}
	}()

	workerErr := poller.Run(ctx)

	log.Info().Msg("server shutdown requested")
	if err := leadflowServer.Shutdown(context.Background()); err != nil {
		if err := leadflowServer.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close server")
		}
	}

	if workerErr != nil {
		// deferred closers are skipped on purpose, the supervisor restarts a clean process
		log.Fatal().Err(workerErr).Msg("fatal error in worker")
	}
}

// newTransport returns the queue transport and, for the local one, the store behind it so that its jobs can be wired.
func newTransport(ctx context.Context, appConfigs *configs.AppConfigs) (transport.Transport, *db.LeadflowRepo) {
	if appConfigs.Transport == common.LocalTransport {
		dbPath, err := utils.GetOrCreateLocalQueueDBPath(appConfigs.LocalDBPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to get or create local queue database path")
		}
		if err := db.RunMigrations(dbPath); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		repo, err := db.NewSQLiteRepo(dbPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create SQLite repository")
		}
		log.Info().Str("path", dbPath).Msg("using local queue transport")
		return transport.NewLocalTransport(repo), repo
	}

	client, err := transport.NewSQSClient(ctx, appConfigs.AWS.Region, appConfigs.AWS.Endpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create SQS client")
	}
	log.Info().Str("region", appConfigs.AWS.Region).Msg("using SQS transport")
	return transport.NewSQSTransport(client), nil
}

func newLeadHandler(appConfigs *configs.AppConfigs, closers *[]io.Closer) leads.Handler {
	handler := leads.NewLoggingHandler(appConfigs.Worker.HandlerLatency, log.Logger)
	if appConfigs.Redis.Addr == "" {
		log.Warn().Msg("LEADFLOW_REDIS_ADDR is not set, duplicate deliveries of a lead will be processed again")
		return handler
	}

	rdb := redis.NewClient(&redis.Options{Addr: appConfigs.Redis.Addr, Password: appConfigs.Redis.Password})
	*closers = append(*closers, rdb)
	return leads.NewIdempotentHandler(handler, leads.NewRedisClaimStore(rdb), appConfigs.Redis.ClaimTtl, log.Logger)
}
