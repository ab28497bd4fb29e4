package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"stripe-checkout/internal/config"
	"stripe-checkout/internal/events"
	"stripe-checkout/internal/httperr"
	"stripe-checkout/internal/order"
	"stripe-checkout/internal/payment"
	"stripe-checkout/internal/store"
	"stripe-checkout/internal/stripe"
	"stripe-checkout/internal/telemetry"
	"stripe-checkout/internal/webhook"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	tel, err := telemetry.Setup(ctx, "checkout-api")
	if err != nil {
		panic("failed to initialize telemetry: " + err.Error())
	}
	defer tel.Shutdown(context.Background())
	log := tel.Log

	metrics, err := telemetry.NewMetrics(tel.Meter)
	if err != nil {
		panic("failed to create metrics: " + err.Error())
	}

	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	client, db, err := store.Connect(connectCtx, cfg.MongoURI, cfg.MongoDB)
	connectCancel()
	if err != nil {
		log.Error("failed to connect to mongo", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()
	orders := store.NewMongoStore(db)
	if err := orders.EnsureIndexes(ctx); err != nil {
		log.Warn("failed to ensure indexes", zap.Error(err))
	}
	log.Info("mongo connected", zap.String("database", cfg.MongoDB))

	if err := events.EnsureTopic(ctx, cfg.KafkaBroker, 3, 1); err != nil {
		log.Warn("failed to create payment-events topic (may already exist)", zap.Error(err))
	}
	publisher := events.NewKafkaPublisher([]string{cfg.KafkaBroker})
	defer publisher.Close()

	gateway := stripe.NewClient(cfg.StripeSecretKey)

	orderUC := order.NewUseCase(orders, publisher, metrics, log, tel.Tracer)
	orderCtrl := order.NewController(orderUC, log, tel.Tracer)

	paymentUC := payment.NewUseCase(orders, gateway, publisher, metrics, log, tel.Tracer, cfg.FrontendURL)
	paymentCtrl := payment.NewController(paymentUC, log, tel.Tracer)

	webhookHandler := webhook.NewHandler(orders, gateway, publisher, metrics, log, tel.Tracer, cfg.StripeWebhookSecret)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          httperr.Handler(log, cfg.Production()),
	})
	app.Use(otelfiber.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowCredentials: true,
	}))

	api := app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"success":   true,
			"message":   "Server is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	orderCtrl.Register(api)
	paymentCtrl.Register(api)
	webhookHandler.Register(api)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down checkout-api...")
		_ = app.Shutdown()
		cancel()
	}()

	addr := ":" + cfg.Port
	log.Info("checkout-api listening", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Error("server error", zap.Error(err))
	}
}
