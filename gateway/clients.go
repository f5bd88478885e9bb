package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// NewClients creates the gateway API clients, forwarding correlation id and trace context.
func NewClients(gatewayAddr string) (*clients.Clients, error) {
	c, err := clients.NewClients(gatewayAddr, func(ctx context.Context, req *http.Request) error {
		req.Header.Set("Correlation-ID", log.CorrelationIDFromContext(ctx))
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not create gateway clients: %w", err)
	}

	return c, nil
}
