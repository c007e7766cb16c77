package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/unclebandit/jobmailer-backend/internal/config"
	"github.com/unclebandit/jobmailer-backend/internal/logger"
	"github.com/unclebandit/jobmailer-backend/internal/notification"
	"github.com/unclebandit/jobmailer-backend/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.Component(logger.New(cfg.Log.Level, cfg.Log.Format), "relay-worker")

	consumer, err := queue.DialConsumer(cfg.AMQP.URL, cfg.AMQP.Queue, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to broker")
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fwd := buildForwarder(cfg, log)
	log.Info().Str("queue", cfg.AMQP.Queue).Msg("worker running, waiting for events...")
	if err := consumer.Run(ctx, fwd.Handle); err != nil {
		log.Error().Err(err).Msg("consumer stopped")
	}
}

// buildForwarder relays broker events to the webhook, or only logs them when no webhook is configured
func buildForwarder(cfg *config.Config, log zerolog.Logger) *notification.Forwarder {
	relays := notification.Fanout{&notification.LogRelay{Log: log}}
	if cfg.Webhook.URL != "" {
		relays = append(relays, notification.NewWebhookRelay(cfg.Webhook.URL, cfg.Webhook.Timeout))
	} else {
		log.Warn().Msg("webhook url not set, events are only logged")
	}
	return &notification.Forwarder{Relay: relays}
}
