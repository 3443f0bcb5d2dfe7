package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/afyalink/reminder-service/internal/appointment"
	"github.com/afyalink/reminder-service/internal/config"
	"github.com/afyalink/reminder-service/internal/directory"
	"github.com/afyalink/reminder-service/internal/followup"
	"github.com/afyalink/reminder-service/internal/inbound"
	"github.com/afyalink/reminder-service/internal/messaging"
	"github.com/afyalink/reminder-service/internal/observability/metrics"
	"github.com/afyalink/reminder-service/internal/reminder"
	"github.com/afyalink/reminder-service/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("reminder worker requires DATABASE_URL")
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	appointments := appointment.NewStore(pool)
	reminders := reminder.NewStore(pool)
	people := directory.NewStore(pool)

	m := metrics.NewSchedulerMetrics(prometheus.DefaultRegisterer)

	buildCfg := messaging.BuildConfig{
		Twilio: messaging.TwilioConfig{
			AccountSID:   cfg.TwilioAccountSID,
			AuthToken:    cfg.TwilioAuthToken,
			FromNumber:   cfg.TwilioFromNumber,
			WhatsAppFrom: cfg.TwilioWhatsAppFrom,
		},
		EmailProvider: cfg.EmailProvider,
		SendGrid: messaging.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		},
		SES: messaging.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		},
	}
	if cfg.EmailProvider == messaging.EmailProviderSES || cfg.SESFromEmail != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load aws config", "error", err)
			os.Exit(1)
		}
		buildCfg.SESClient = sesv2.NewFromConfig(awsCfg)
	}
	registry, _ := messaging.BuildRegistry(buildCfg, logger)

	dispatch := reminder.NewWorker(reminders, appointments, people, registry, logger).
		WithInterval(cfg.DispatchTick).
		WithSendTimeout(cfg.SendTimeout).
		WithMetrics(m)

	follow := followup.NewWorker(appointments, people, registry, logger).
		WithInterval(cfg.FollowUpTick).
		WithWindow(time.Duration(cfg.FollowUpWindowDays) * 24 * time.Hour).
		WithMetrics(m)
	if cfg.GeminiAPIKey != "" {
		tips, err := followup.NewGeminiTipSource(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Warn("wellness tips disabled", "error", err)
		} else {
			defer tips.Close()
			follow = follow.WithTips(tips)
		}
	}

	processor := inbound.NewProcessor(reminders, appointments, registry, logger)
	webhooks := inbound.NewHandler(processor, logger).WithMetrics(m)
	if cfg.TwilioWebhookSecret != "" && cfg.WebhookURL != "" {
		webhooks = webhooks.WithSignatureValidation(cfg.TwilioWebhookSecret, cfg.WebhookURL)
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer func() { _ = rdb.Close() }()
		webhooks = webhooks.WithDeduper(inbound.NewRedisDeduper(rdb, cfg.InboundDedupeTTL))
	}

	go dispatch.Run(ctx)
	go follow.Run(ctx)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Mount("/webhooks", webhooks.Routes())

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http listener started", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http listener failed", "error", err)
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case <-ctx.Done():
	}
	logger.Info("reminder worker shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
	time.Sleep(2 * time.Second)
}
