package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	dbLib "qrmang/db"
	"qrmang/http"
	"qrmang/pubsub"
	"qrmang/pubsub/bus"
	"qrmang/pubsub/command"
	"qrmang/pubsub/event"
	"qrmang/pubsub/outbox"
	"qrmang/qr"
	"qrmang/scanner"
	"qrmang/verification"
)

func init() {
	log.Init(logrus.InfoLevel)
}

type Config struct {
	HTTPAddr       string
	TicketQRSecret string
	JWTSecret      string
	Location       *time.Location
	QRSize         int
}

type App struct {
	db              *sqlx.DB
	watermillRouter *message.Router
	forwarder       *forwarder.Forwarder
	httpServer      *http.Server
	traceProvider   *tracesdk.TracerProvider
}

func New(
	cfg Config,
	db *sqlx.DB,
	redisClient *redis.Client,
	filesService event.FilesService,
	traceProvider *tracesdk.TracerProvider,
) App {
	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))
	redisPublisher := pubsub.NewRedisPublisher(redisClient, watermillLogger)

	eventBus, err := bus.NewEventBus(redisPublisher)
	if err != nil {
		panic(fmt.Errorf("failed to create event bus: %w", err))
	}

	commandBus, err := bus.NewCommandBus(redisPublisher)
	if err != nil {
		panic(fmt.Errorf("failed to create command bus: %w", err))
	}

	eventsRepo := dbLib.NewEventsPostgresRepository(db)
	bookingsRepo := dbLib.NewBookingsPostgresRepository(db)
	ticketsRepo := dbLib.NewTicketsPostgresRepository(db)
	dataLake := dbLib.NewDataLake(db)

	codec := qr.NewCodec(cfg.TicketQRSecret)
	renderer := qr.NewRenderer(cfg.QRSize)
	verifier := verification.NewService(bookingsRepo, ticketsRepo, cfg.Location)
	pipeline := scanner.NewPipeline(codec, verifier)

	eventsHandler := event.NewHandler(
		eventBus,
		bookingsRepo,
		ticketsRepo,
		filesService,
		codec,
		renderer,
	)
	commandsHandler := command.NewHandler(
		bookingsRepo,
		ticketsRepo,
	)

	watermillRouter, err := pubsub.NewWatermillRouter(
		redisClient,
		redisPublisher,
		event.NewProcessorConfig(redisClient, watermillLogger),
		eventsHandler,
		command.NewProcessorConfig(redisClient, watermillLogger),
		commandsHandler,
		dataLake,
		watermillLogger,
	)
	if err != nil {
		panic(fmt.Errorf("failed to create watermill router: %w", err))
	}

	// events written in repository transactions reach Redis through the forwarder
	fwd, err := outbox.NewForwarder(
		outbox.NewPostgresSubscriber(db.DB, watermillLogger),
		redisPublisher,
		watermillLogger,
	)
	if err != nil {
		panic(fmt.Errorf("failed to create outbox forwarder: %w", err))
	}

	httpServer := http.NewServer(
		cfg.HTTPAddr,
		commandBus,
		eventsRepo,
		bookingsRepo,
		verifier,
		pipeline,
		codec,
		renderer,
		cfg.JWTSecret,
	)

	return App{
		db:              db,
		watermillRouter: watermillRouter,
		forwarder:       fwd,
		httpServer:      httpServer,
		traceProvider:   traceProvider,
	}
}

func (s App) Run(ctx context.Context) error {
	if err := dbLib.InitializeDatabaseSchema(s.db); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		if s.traceProvider == nil {
			return nil
		}
		return s.traceProvider.Shutdown(context.Background())
	})

	g.Go(func() error {
		return s.watermillRouter.Run(ctx)
	})

	g.Go(func() error {
		return s.forwarder.Run(ctx)
	})

	g.Go(func() error {
		// we don't want to start HTTP server before Watermill router (so app won't be healthy before it's ready)
		<-s.watermillRouter.Running()

		return s.httpServer.Run(ctx)
	})

	return g.Wait()
}
