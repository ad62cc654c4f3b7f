package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"

	"github.com/lulgamer69/event-ticket-system/internal/config"
	"github.com/lulgamer69/event-ticket-system/internal/database"
	"github.com/lulgamer69/event-ticket-system/internal/document"
	"github.com/lulgamer69/event-ticket-system/internal/handler"
	"github.com/lulgamer69/event-ticket-system/internal/middleware"
	"github.com/lulgamer69/event-ticket-system/internal/model"
	"github.com/lulgamer69/event-ticket-system/internal/notify"
	"github.com/lulgamer69/event-ticket-system/internal/payment"
	"github.com/lulgamer69/event-ticket-system/internal/queue"
	"github.com/lulgamer69/event-ticket-system/internal/repository"
	"github.com/lulgamer69/event-ticket-system/internal/router"
	"github.com/lulgamer69/event-ticket-system/internal/service"
	"github.com/lulgamer69/event-ticket-system/internal/ticket"
)

func main() {
	_ = godotenv.Load() // .env is optional
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg.DB.Driver); err != nil {
		log.Fatalf("db: %v", err)
	}
	gdb, err := database.OpenGorm(cfg.DB.Driver, db)
	if err != nil {
		log.Fatalf("gorm: %v", err)
	}
	if err := database.MigrateOutbox(gdb); err != nil {
		log.Fatalf("gorm: migrate outbox: %v", err)
	}

	// Redis (optional: limiter and cache pass through without it)
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	// Repositories
	regs := repository.NewRegistrationRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	outbox := repository.NewOutboxRepo(gdb)

	// Documents
	renderer := document.NewRenderer(cfg.Storage.Dir)
	proofs := document.NewProofStore(cfg.Storage.Dir, cfg.Storage.ProofMaxBytes)
	decoder := document.NewQRDecoder(cfg.Storage.ProofMaxBytes)

	// Payment gateway, only in gateway mode
	var gateway service.PaymentGateway
	if cfg.Payment.Mode == "gateway" {
		gateway = payment.NewMidtransGateway(cfg.Payment.MidtransServerKey, cfg.Payment.MidtransProduction)
	}

	// Notification channels
	dispatcher := notify.NewDispatcher()
	if m := notify.NewMailer(cfg.Notify); m != nil {
		dispatcher.Register(model.ChannelEmail, m)
	} else {
		log.Printf("SMTP not configured; email notifications disabled")
	}
	if w := notify.NewWhatsApp(cfg.Notify); w != nil {
		dispatcher.Register(model.ChannelWhatsApp, w)
	} else {
		log.Printf("WhatsApp not configured; WhatsApp notifications disabled")
	}
	publisher := queue.NewPublisher(cfg.RabbitURL)
	notifier := service.NewOutboxNotifier(outbox, publisher, dispatcher.Enabled)

	// Services
	regSvc := service.NewRegistrationService(service.RegistrationDeps{
		Store:     regs,
		Tickets:   ticket.NewGenerator(cfg.Event.TicketPrefix, cfg.Event.TicketDigits),
		Documents: renderer,
		Proofs:    proofs,
		Gateway:   gateway,
		Notifier:  notifier,
		Event:     cfg.Event,
		Payment:   cfg.Payment,
		Notify:    cfg.Notify,
		BaseURL:   cfg.Storage.PublicBaseURL,
	})
	gateSvc := service.NewGateService(regs, decoder, nil)
	adminSvc := service.NewAdminService(service.AdminDeps{
		Store:     regs,
		Outbox:    outbox,
		Publisher: publisher,
		Documents: renderer,
		Notifier:  notifier,
		Event:     cfg.Event,
		Notify:    cfg.Notify,
		BaseURL:   cfg.Storage.PublicBaseURL,
	})

	// Notification consumer
	worker := service.NewDeliveryWorker(outbox, dispatcher)
	go func() {
		if err := queue.StartNotificationConsumer(ctx, cfg.RabbitURL, worker.Deliver); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("notify-consumer: stopped: %v", err)
		}
	}()

	// HTTP
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())
	e.Use(echoMw.BodyLimit("12M"))

	rl := config.LoadRateLimitConfig()
	publicLimit := middleware.NewTokenBucket(rl, rdb)
	gateLimit := middleware.NewTokenBucket(rl.GateRateLimit(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e, db)
	router.RegisterPublic(e, handler.NewRegistrationHandler(regSvc), publicLimit, cache)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterGate(e, handler.NewGateHandler(gateSvc), cfg.JWTSecret, gateLimit)
	router.RegisterAdmin(e, handler.NewAdminHandler(adminSvc), handler.NewStaffHandler(cfg, users, tokens), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s, payment=%s)", addr, cfg.Env, cfg.Payment.Mode)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
