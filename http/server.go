package http

import (
	"context"
	"errors"
	"net/http"

	echoHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"qrmang/entity"
	"qrmang/qr"
	"qrmang/scanner"
)

type EventsRepository interface {
	Store(ctx context.Context, event entity.Event) error
	Get(ctx context.Context, eventID string) (entity.Event, error)
}

type BookingsRepository interface {
	Store(ctx context.Context, booking entity.Booking) error
	GetByReference(ctx context.Context, bookingReference string) (entity.Booking, error)
	UpdatePaymentStatus(ctx context.Context, bookingReference string, status entity.PaymentStatus) (entity.Booking, error)
}

type Verifier interface {
	Verify(ctx context.Context, bookingReference string) entity.VerificationResult
}

type ScanPipeline interface {
	Process(ctx context.Context, raw string) scanner.Outcome
}

type CommandBus interface {
	Send(ctx context.Context, cmd any) error
}

type Server struct {
	addr string
	e    *echo.Echo

	commandBus   CommandBus
	eventsRepo   EventsRepository
	bookingsRepo BookingsRepository
	verifier     Verifier
	pipeline     ScanPipeline
	codec        qr.Codec
	renderer     qr.Renderer
}

func NewServer(
	addr string,
	commandBus CommandBus,
	eventsRepo EventsRepository,
	bookingsRepo BookingsRepository,
	verifier Verifier,
	pipeline ScanPipeline,
	codec qr.Codec,
	renderer qr.Renderer,
	jwtSecret string,
) *Server {
	if commandBus == nil {
		panic("missing commandBus")
	}
	if eventsRepo == nil {
		panic("missing eventsRepo")
	}
	if bookingsRepo == nil {
		panic("missing bookingsRepo")
	}
	if verifier == nil {
		panic("missing verifier")
	}
	if pipeline == nil {
		panic("missing pipeline")
	}

	e := echoHTTP.NewEcho()
	e.Use(otelecho.Middleware("qrmang"))

	server := &Server{
		addr:         addr,
		e:            e,
		commandBus:   commandBus,
		eventsRepo:   eventsRepo,
		bookingsRepo: bookingsRepo,
		verifier:     verifier,
		pipeline:     pipeline,
		codec:        codec,
		renderer:     renderer,
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/events", server.PostEvents)
	e.POST("/bookings", server.PostBookings)
	e.PUT("/bookings/:reference/payment-status", server.PutPaymentStatus)
	e.GET("/bookings/:reference/qr", server.GetTicketQR)

	scannerAuth := NewScannerAuthMiddleware(jwtSecret)
	e.POST("/scan", server.PostScan, scannerAuth)
	e.POST("/bookings/:reference/verify", server.PostVerify, scannerAuth)
	e.PUT("/bookings/:reference/ticket/cancel", server.PutCancelTicket, scannerAuth)

	return server
}

// Handler exposes the routes without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		err := s.e.Shutdown(context.Background())
		if err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown HTTP server")
		}
	}()
	log.FromContext(ctx).WithField("addr", s.addr).Info("[HTTP] server listening")
	if err := s.e.Start(s.addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
