package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/electrosolucion2025/Whats2Want/internal/handler"
	"github.com/electrosolucion2025/Whats2Want/internal/redsys"
	"github.com/electrosolucion2025/Whats2Want/internal/repository"
	"github.com/electrosolucion2025/Whats2Want/internal/service"
)

type Server struct {
	echo           *echo.Echo
	orderHandler   *handler.OrderHandler
	paymentHandler *handler.PaymentHandler
	printerHandler *handler.PrinterHandler
}

func NewServer(
	materializer service.MaterializerService,
	settlement service.SettlementService,
	tickets service.TicketService,
	gateway *redsys.Client,
	orderRepo repository.OrderRepository,
) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:           e,
		orderHandler:   handler.NewOrderHandler(materializer),
		paymentHandler: handler.NewPaymentHandler(gateway, settlement, orderRepo),
		printerHandler: handler.NewPrinterHandler(tickets),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	api.POST("/orders/intent", s.orderHandler.IngestIntent)

	// -------- redsys redirect / callbacks --------
	payments := api.Group("/payments/redsys")
	payments.GET("/:orderID", s.paymentHandler.RedirectForm)
	payments.POST("/notify", s.paymentHandler.Notification)
	payments.GET("/success/:orderID/", s.paymentHandler.Success)
	payments.GET("/failure/:orderID/", s.paymentHandler.Failure)

	// -------- printing agent pull API --------
	printers := api.Group("/printers")
	printers.GET("/tickets", s.printerHandler.PendingTickets)
	printers.POST("/tickets/printed", s.printerHandler.MarkPrinted)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
