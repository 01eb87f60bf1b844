package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/electrosolucion2025/Whats2Want/internal/client"
	"github.com/electrosolucion2025/Whats2Want/internal/config"
	"github.com/electrosolucion2025/Whats2Want/internal/events"
	"github.com/electrosolucion2025/Whats2Want/internal/logging"
	"github.com/electrosolucion2025/Whats2Want/internal/redisx"
	"github.com/electrosolucion2025/Whats2Want/internal/redsys"
	"github.com/electrosolucion2025/Whats2Want/internal/repository"
	"github.com/electrosolucion2025/Whats2Want/internal/server"
	"github.com/electrosolucion2025/Whats2Want/internal/service"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync()

	db := client.InitMysqlClient(cfg.DatabaseURL)
	rdb := redisx.New(cfg.RedisAddr)

	gateway, err := redsys.NewClient(&cfg.Redsys)
	if err != nil {
		log.Fatal("init payment gateway", zap.Error(err))
	}

	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	contactRepo := repository.NewContactRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	vipRepo := repository.NewVIPRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	relay := events.NewRelay(cfg.KafkaBrokers, events.TopicOrderSettled, outboxRepo, log)
	relay.Start(ctx)
	publisher := events.NewPublisher(outboxRepo, "settlement-api")

	whatsapp := client.NewWhatsAppClient(cfg.WhatsApp.BaseApiURL)

	vipPolicy := service.NewVIPPolicy(vipRepo)
	ticketService := service.NewTicketService(db, log, orderRepo, ticketRepo, tenantRepo)
	materializer := service.NewMaterializerService(
		db, log, cfg.BaseURL,
		catalogRepo, orderRepo, paymentRepo, contactRepo, tenantRepo,
		vipPolicy, ticketService, whatsapp,
	)
	settlement := service.NewSettlementService(
		db, log, rdb, gateway, cfg.BaseURL,
		orderRepo, paymentRepo, sessionRepo, notifRepo, publisher,
	)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	srv := server.NewServer(materializer, settlement, ticketService, gateway, orderRepo)

	log.Info("starting HTTP server", zap.String("addr", serverAddr))
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info("signal received, starting graceful shutdown")

	// Stop accepting webhooks first, then let the relay make a final drain
	// pass over whatever those webhooks staged.
	if err := srv.Shutdown(); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	cancel()
	relay.WaitClosed()
}
