// cmd/worker-manager/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"buyer-group-workers/internal/common/aws"
	"buyer-group-workers/internal/common/camunda"
	"buyer-group-workers/internal/common/config"
	"buyer-group-workers/internal/common/database"
	"buyer-group-workers/internal/common/logger"
	"buyer-group-workers/internal/common/metrics"
	"buyer-group-workers/internal/common/observability"
	"buyer-group-workers/internal/common/zoho"
	"buyer-group-workers/internal/enrichment"
	"buyer-group-workers/internal/store"

	classifyroles "buyer-group-workers/internal/workers/buyer-group/classify-roles"
	"buyer-group-workers/internal/workers/buyer-group/compose"
	enrichcandidates "buyer-group-workers/internal/workers/buyer-group/enrich-candidates"
	requestremediation "buyer-group-workers/internal/workers/buyer-group/request-remediation"
	selectprimary "buyer-group-workers/internal/workers/buyer-group/select-primary"
	sendreport "buyer-group-workers/internal/workers/buyer-group/send-report"
	synccrm "buyer-group-workers/internal/workers/buyer-group/sync-crm"
	"buyer-group-workers/pkg/registry"
)

// checkRegistry warns about started task types the activity registry does
// not describe. A missing registry file is not fatal.
func checkRegistry(path string, taskTypes []string, log *zap.Logger) {
	if path == "" {
		return
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		log.Warn("Activity registry not loaded", zap.String("path", path), zap.Error(err))
		return
	}
	if missing := reg.Missing(taskTypes); len(missing) > 0 {
		log.Warn("Workers missing from activity registry", zap.Strings("taskTypes", missing))
	}
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// registration pairs a handler with its workers.* config entry.
type registration struct {
	taskType  string
	configKey string
	handler   worker.JobHandler
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "console").Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...", zap.String("version", cfg.App.Version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(observability.Options{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
	})
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	metrics.SetRecorder(obs)

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	redis := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Stores ---
	candidates := store.NewCandidateStore(pg.DB)
	groups := store.NewGroupStore(pg)
	loader := store.NewCandidateLoader(candidates, store.NewCandidateCache(redis.Client, cfg.BuyerGroup.CacheTTL()), log)
	index := store.NewGroupIndex(esClient.Client, cfg.BuyerGroup.IndexName)
	err = retryWithBackoff(func() error {
		return index.EnsureIndex(ctx)
	}, 5, 2*time.Second, zapLog, "Buyer group index setup")
	if err != nil {
		zapLog.Fatal("index setup failed", zap.Error(err))
	}

	constraints, err := cfg.BuyerGroup.Constraints()
	if err != nil {
		zapLog.Fatal("invalid buyer group constraints", zap.Error(err))
	}

	// --- External Service Clients ---
	var publisher *aws.RemediationPublisher
	if cfg.Integrations.AWS.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		publisher = aws.NewRemediationPublisher(snsClient, cfg.Integrations.AWS.SNS.RemediationTopicARN)
	}

	var mailer *aws.ReportMailer
	if cfg.Integrations.AWS.SES.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		mailer = aws.NewReportMailer(sesClient, cfg.Integrations.AWS.SES.FromEmail)
	}

	crm := zoho.NewCRMClient(cfg.Integrations.Zoho.BaseURL, cfg.Integrations.Zoho.APIKey, cfg.Integrations.Zoho.AuthToken, nil)
	enricher := enrichment.NewClient(cfg.Enrichment)

	zapLog.Info("All external service clients initialized",
		zap.Bool("sns", publisher != nil),
		zap.Bool("ses", mailer != nil),
		zap.String("enrichmentProvider", enricher.Provider()),
	)

	// --- Handlers ---
	var registrations []registration
	mustRegister := func(taskType, configKey string, handler worker.JobHandler, err error) {
		if err != nil {
			zapLog.Fatal("failed to create handler", zap.String("taskType", taskType), zap.Error(err))
		}
		registrations = append(registrations, registration{taskType: taskType, configKey: configKey, handler: handler})
	}

	composeDeps := compose.ServiceDependencies{Loader: loader, Groups: groups, Index: index, Telemetry: obs}
	if publisher != nil {
		composeDeps.Remediator = publisher
	}
	composeHandler, err := compose.NewHandler(compose.HandlerOptions{AppConfig: cfg, Logger: log, Dependencies: composeDeps})
	mustRegister(compose.TaskType, compose.ConfigKey, composeHandler.Handle, err)

	classifyHandler, err := classifyroles.NewHandler(classifyroles.HandlerOptions{
		AppConfig:    cfg,
		Logger:       log,
		Dependencies: classifyroles.ServiceDependencies{Loader: loader},
	})
	mustRegister(classifyroles.TaskType, classifyroles.ConfigKey, classifyHandler.Handle, err)

	primaryHandler, err := selectprimary.NewHandler(selectprimary.HandlerOptions{
		AppConfig:    cfg,
		Logger:       log,
		Dependencies: selectprimary.ServiceDependencies{Loader: loader, Constraints: constraints},
	})
	mustRegister(selectprimary.TaskType, selectprimary.ConfigKey, primaryHandler.Handle, err)

	enrichHandler, err := enrichcandidates.NewHandler(enrichcandidates.HandlerOptions{
		AppConfig:    cfg,
		Logger:       log,
		Dependencies: enrichcandidates.ServiceDependencies{Store: candidates, Enricher: enricher, Cache: loader},
	})
	mustRegister(enrichcandidates.TaskType, enrichcandidates.ConfigKey, enrichHandler.Handle, err)

	crmHandler, err := synccrm.NewHandler(synccrm.HandlerOptions{
		AppConfig:    cfg,
		Logger:       log,
		Dependencies: synccrm.ServiceDependencies{Groups: groups, CRM: crm},
	})
	mustRegister(synccrm.TaskType, synccrm.ConfigKey, crmHandler.Handle, err)

	if publisher != nil {
		remediationHandler, err := requestremediation.NewHandler(requestremediation.HandlerOptions{
			AppConfig:    cfg,
			Logger:       log,
			Dependencies: requestremediation.ServiceDependencies{Publisher: publisher},
		})
		mustRegister(requestremediation.TaskType, requestremediation.ConfigKey, remediationHandler.Handle, err)
	} else {
		zapLog.Warn("SNS disabled, not starting worker", zap.String("taskType", requestremediation.TaskType))
	}

	if mailer != nil {
		reportHandler, err := sendreport.NewHandler(sendreport.HandlerOptions{
			AppConfig:    cfg,
			Logger:       log,
			Dependencies: sendreport.ServiceDependencies{Groups: groups, Mailer: mailer},
		})
		mustRegister(sendreport.TaskType, sendreport.ConfigKey, reportHandler.Handle, err)
	} else {
		zapLog.Warn("SES disabled, not starting worker", zap.String("taskType", sendreport.TaskType))
	}

	// --- Start Workers ---
	workers := camunda.NewWorkerSet(log)
	started := 0
	for _, r := range registrations {
		if workers.StartWorker(zeebe.GetClient(), r.taskType, cfg.Workers[r.configKey], r.handler) {
			started++
		}
	}
	zapLog.Info("Workers registered", zap.Int("started", started), zap.Int("available", len(registrations)))
	checkRegistry(cfg.BuyerGroup.RegistryPath, workers.TaskTypes(), zapLog)

	// --- Health & Metrics Server ---
	server := &http.Server{
		Addr: cfg.Observability.MetricsAddress,
		Handler: newHealthMux(map[string]func(context.Context) error{
			"postgres":      pg.Ping,
			"redis":         redis.Ping,
			"elasticsearch": esClient.Ping,
			"zeebe":         zeebe.HealthCheck,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	workers.Close(30 * time.Second)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error flushing telemetry", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
