package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr       string `long:"http-addr" env:"HTTP_ADDR" default:":8080" description:"address the HTTP server listens on"`
	PostgresURL    string `long:"postgres-url" env:"POSTGRES_URL" description:"Postgres connection string"`
	RedisAddr      string `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" description:"Redis address"`
	GatewayAddr    string `long:"gateway-addr" env:"GATEWAY_ADDR" description:"address of the files API gateway"`
	JaegerEndpoint string `long:"jaeger-endpoint" env:"JAEGER_ENDPOINT" description:"Jaeger collector endpoint, tracing goes through the gateway when empty"`

	TicketQRSecret string `long:"ticket-qr-secret" env:"TICKET_QR_SECRET" description:"secret the ticket QR codes are encrypted with"`
	JWTSecret      string `long:"jwt-secret" env:"JWT_SECRET" description:"HS256 secret of the scanner tokens"`
	VenueTimezone  string `long:"venue-timezone" env:"VENUE_TIMEZONE" default:"UTC" description:"timezone of events without their own"`
	QRSize         int    `long:"qr-size" env:"QR_SIZE" default:"256" description:"rendered QR code size in pixels"`
}

// Load reads an optional .env file and then parses args on top of the environment.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("could not load .env: %w", err)
	}

	var cfg Config
	parser := flags.NewParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error

	if c.TicketQRSecret == "" {
		errs = append(errs, errors.New("TICKET_QR_SECRET is required"))
	}
	if c.PostgresURL == "" {
		errs = append(errs, errors.New("POSTGRES_URL is required"))
	}
	if c.QRSize <= 0 {
		errs = append(errs, fmt.Errorf("QR_SIZE must be positive, got %d", c.QRSize))
	}
	if _, err := time.LoadLocation(c.VenueTimezone); err != nil {
		errs = append(errs, fmt.Errorf("unknown VENUE_TIMEZONE %q: %w", c.VenueTimezone, err))
	}

	return errors.Join(errs...)
}

func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.VenueTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
