package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/advocate-booking/internal/config"
	"github.com/iliyamo/advocate-booking/internal/database"
	"github.com/iliyamo/advocate-booking/internal/gateway"
	"github.com/iliyamo/advocate-booking/internal/handler"
	"github.com/iliyamo/advocate-booking/internal/middleware"
	"github.com/iliyamo/advocate-booking/internal/notify"
	"github.com/iliyamo/advocate-booking/internal/queue"
	"github.com/iliyamo/advocate-booking/internal/repository"
	"github.com/iliyamo/advocate-booking/internal/router"
	"github.com/iliyamo/advocate-booking/internal/scheduler"
	"github.com/iliyamo/advocate-booking/internal/service"
	"github.com/iliyamo/advocate-booking/internal/storage"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb := config.NewRedisClient() // nil disables rate limiting and caching
	blobs, err := storage.NewDisk(cfg.DocumentDir, cfg.MaxDocumentBytes)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	users := repository.NewUserRepo(db)
	svc := service.New(
		repository.NewSQLStore(db),
		gateway.NewMidtrans(cfg.MidtransServerKey, cfg.MidtransProduction),
		service.NewAMQPNotifier(cfg.RabbitMQURL),
		blobs,
		service.WithLocation(cfg.BusinessTZ),
		service.WithDefaultDuration(cfg.DefaultDurationMin),
	)

	consumer := &queue.Consumer{URL: cfg.RabbitMQURL, Directory: users, Inbox: repository.NewNotificationRepo(db)}
	if cfg.SMTPHost != "" {
		consumer.Channels = append(consumer.Channels, notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom))
	}
	if cfg.TwilioAccountSID != "" {
		consumer.Channels = append(consumer.Channels, notify.NewSMS(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom))
	}
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("notify-consumer stopped: %v", err)
		}
	}()

	reminders, err := scheduler.New(cfg.ReminderCron, cfg.BusinessTZ, svc)
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	reminders.Start()
	defer reminders.Stop()

	cacheCfg := config.LoadCacheConfig()
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover(), echomw.Logger())

	router.Register(e, router.Handlers{
		Auth:         handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db)),
		Appointments: handler.NewAppointmentHandler(svc, cfg.BusinessTZ),
		Cases:        handler.NewCaseHandler(svc, cfg.MaxDocumentBytes),
		Payments:     handler.NewPaymentHandler(svc),
		Directory:    handler.NewDirectoryHandler(svc, middleware.NewCachePurger(cacheCfg, rdb)),
		Chats:        handler.NewChatHandler(svc),
		Health:       handler.Health(db),
	}, router.Middleware{
		JWTSecret:     cfg.JWTSecret,
		Actors:        users,
		RateLimit:     middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		AuthRateLimit: middleware.NewTokenBucket(config.LoadAuthRateLimitConfig(), rdb),
		Cache:         middleware.NewRedisCache(cacheCfg, rdb),
	})

	go func() {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
