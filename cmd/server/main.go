// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/unclebandit/jobmailer-backend/internal/config"
	"github.com/unclebandit/jobmailer-backend/internal/controller"
	"github.com/unclebandit/jobmailer-backend/internal/db"
	"github.com/unclebandit/jobmailer-backend/internal/handler"
	"github.com/unclebandit/jobmailer-backend/internal/logger"
	"github.com/unclebandit/jobmailer-backend/internal/mailer"
	"github.com/unclebandit/jobmailer-backend/internal/notification"
	"github.com/unclebandit/jobmailer-backend/internal/queue"
	"github.com/unclebandit/jobmailer-backend/internal/repository"
	"github.com/unclebandit/jobmailer-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	conn, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open database")
	}
	if err := db.Migrate(conn, cfg.Database.Driver); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	relay, closeRelay := buildRelay(cfg, log)
	events := service.NewEventWorker(relay, logger.Component(log, "events"), 256)
	events.Start(context.Background())

	attachment, err := mailer.LoadAttachment(cfg.Mail.AttachmentPath, cfg.Mail.AttachmentName, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load attachment")
	}

	clock := clockwork.NewRealClock()
	q := queue.NewDelayQueue(clock)
	recordRepo := repository.NewSendRecordRepository(conn)

	dispatcher := &service.Dispatcher{
		Queue:             q,
		Sender:            mailer.NewRouter(cfg.Mail, logger.Component(log, "mailer")),
		Repo:              recordRepo,
		Events:            events,
		Interval:          cfg.Dispatch.Interval,
		Grace:             cfg.Dispatch.Grace,
		Attachment:        attachment,
		FromAddress:       cfg.Mail.FromAddress,
		DefaultSenderName: cfg.Mail.DefaultSenderName,
		Log:               logger.Component(log, "dispatcher"),
	}

	mailService := &service.MailService{
		Repo:            recordRepo,
		Dispatcher:      dispatcher,
		Clock:           clock,
		Log:             logger.Component(log, "mail"),
		StatsWindowDays: cfg.Stats.WindowDays,
	}
	exportService := &service.ExportService{Repo: recordRepo, Clock: clock}

	mailController := controller.NewMailController(mailService, exportService, logger.Component(log, "http"))
	recordHandler := handler.NewRecordHandler(mailService, conn, logger.Component(log, "http"))

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: controller.NewRouter(mailController, recordHandler, logger.Component(log, "http")),
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("provider", cfg.Mail.Provider).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := q.Wait(ctx); err != nil {
		log.Warn().Int("pending", q.Len()).Msg("scheduled sends still pending at shutdown deadline")
		if n := q.Stop(); n > 0 {
			log.Warn().Int("cancelled", n).Msg("cancelled scheduled sends")
		}
		// let sends already talking to the provider record their outcome
		drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := q.Wait(drainCtx); err != nil {
			log.Warn().Msg("in-flight sends did not finish")
		}
		drainCancel()
	}
	events.Close()
	closeRelay()
	if err := conn.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close database")
	}
	log.Info().Msg("shutdown complete")
}

// buildRelay assembles the notification fan-out from config. The returned func releases broker resources.
func buildRelay(cfg *config.Config, log zerolog.Logger) (notification.Relay, func()) {
	relays := notification.Fanout{&notification.LogRelay{Log: logger.Component(log, "relay")}}
	closer := func() {}

	if cfg.Webhook.URL != "" {
		relays = append(relays, notification.NewWebhookRelay(cfg.Webhook.URL, cfg.Webhook.Timeout))
	}
	if cfg.AMQP.Enabled {
		pub, err := queue.DialPublisher(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			log.Error().Err(err).Msg("broker unavailable, lifecycle events will not be published")
		} else {
			relays = append(relays, &notification.AMQPRelay{Publisher: pub})
			closer = func() { pub.Close() }
		}
	}
	return relays, closer
}
