package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"qrmang/entity"
)

// VerificationClient verifies tickets against a remote qrmang server, for scanners
// running away from the database.
type VerificationClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewVerificationClient(baseURL, token string, timeout time.Duration) VerificationClient {
	if baseURL == "" {
		panic("missing verification server url")
	}

	return VerificationClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}
}

// Verify never fails: transport problems are reported as a VerificationError result.
func (c VerificationClient) Verify(ctx context.Context, bookingReference string) entity.VerificationResult {
	result, err := c.verify(ctx, bookingReference)
	if err != nil {
		log.FromContext(ctx).WithError(err).WithField("booking_reference", bookingReference).Error("Remote verification failed")
		return entity.NewVerificationFailure(entity.VerificationError)
	}

	return result
}

func (c VerificationClient) verify(ctx context.Context, bookingReference string) (entity.VerificationResult, error) {
	endpoint := fmt.Sprintf("%s/bookings/%s/verify", c.baseURL, url.PathEscape(bookingReference))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return entity.VerificationResult{}, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Correlation-ID", log.CorrelationIDFromContext(ctx))
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return entity.VerificationResult{}, fmt.Errorf("could not call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return entity.VerificationResult{}, fmt.Errorf("scanner not authorized, status %d", resp.StatusCode)
	}

	var result entity.VerificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return entity.VerificationResult{}, fmt.Errorf("could not decode response with status %d: %w", resp.StatusCode, err)
	}
	if result.Status == "" {
		return entity.VerificationResult{}, fmt.Errorf("response with status %d carries no verification status", resp.StatusCode)
	}

	return result, nil
}
