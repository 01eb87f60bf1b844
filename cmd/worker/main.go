package main

import (
	"context"
	"fmt"
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
	"github.com/electrosolucion2025/Whats2Want/internal/repository"
	"github.com/electrosolucion2025/Whats2Want/internal/service"
	"github.com/electrosolucion2025/Whats2Want/internal/worker"
)

func main() {
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

	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	tenantRepo := repository.NewTenantRepository(db)

	tickets := service.NewTicketService(db, log, orderRepo, ticketRepo, tenantRepo)
	whatsapp := client.NewWhatsAppClient(cfg.WhatsApp.BaseApiURL)
	mailer := client.NewMailer(&cfg.SMTP)
	printer := client.NewPrinterClient()

	dedup := redisx.NewDeduper(rdb, "settlement-worker")
	w := worker.NewSettlementWorker(log, dedup, tickets, paymentRepo, tenantRepo, whatsapp, mailer, printer)

	consumer := events.NewConsumer(cfg.KafkaBrokers, "settlement-worker", events.TopicOrderSettled, 4, log)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan
		log.Info("signal received, stopping consumer")
		cancel()
	}()

	log.Info("settlement worker consuming", zap.Strings("brokers", cfg.KafkaBrokers))
	if err := consumer.Start(ctx, w.Handle); err != nil {
		log.Fatal("consumer stopped", zap.Error(err))
	}
}
