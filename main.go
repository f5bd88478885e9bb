package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"qrmang/app"
	"qrmang/config"
	"qrmang/gateway"
	"qrmang/pubsub"
	"qrmang/tracing"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.FromContext(ctx).WithError(err).Fatal("invalid configuration")
	}

	traceProvider, err := tracing.ConfigureTraceProvider("qrmang", cfg.JaegerEndpoint, cfg.GatewayAddr)
	if err != nil {
		panic(err)
	}

	traceDB, err := otelsql.Open("postgres", cfg.PostgresURL,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithDBName("qrmang"),
	)
	if err != nil {
		panic(err)
	}
	db := sqlx.NewDb(traceDB, "postgres")
	defer db.Close()

	redisClient := pubsub.NewRedisClient(cfg.RedisAddr)
	defer redisClient.Close()

	apiClients, err := gateway.NewClients(cfg.GatewayAddr)
	if err != nil {
		panic(err)
	}

	err = app.New(
		app.Config{
			HTTPAddr:       cfg.HTTPAddr,
			TicketQRSecret: cfg.TicketQRSecret,
			JWTSecret:      cfg.JWTSecret,
			Location:       cfg.Location(),
			QRSize:         cfg.QRSize,
		},
		db,
		redisClient,
		gateway.NewFilesClient(apiClients),
		traceProvider,
	).Run(ctx)
	if err != nil {
		panic(err)
	}
}
