// Package scanner turns camera frames into ticket verification outcomes.
package scanner

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"

	"qrmang/entity"
	"qrmang/metrics"
	"qrmang/qr"
)

type State string

const (
	StateScanning State = "scanning"
	StateDecoded  State = "decoded"
	StateValid    State = "valid"
	StateInvalid  State = "invalid"
)

const (
	ReasonUnreadable  = "unreadable code"
	ReasonUnknownType = "unknown QR type"
)

type Verifier interface {
	Verify(ctx context.Context, bookingReference string) entity.VerificationResult
}

// Outcome is the terminal state of one scan, shown to the operator until they resume.
type Outcome struct {
	State     State                      `json:"state"`
	Reason    string                     `json:"reason,omitempty"`
	Reference string                     `json:"booking_reference,omitempty"`
	Result    *entity.VerificationResult `json:"result,omitempty"`
}

type Pipeline struct {
	codec    qr.Codec
	verifier Verifier
}

func NewPipeline(codec qr.Codec, verifier Verifier) Pipeline {
	if verifier == nil {
		panic("missing verifier")
	}

	return Pipeline{codec: codec, verifier: verifier}
}

// Process decodes raw and verifies the ticket it carries. Failures are reported in the
// returned Outcome, never as an error.
func (p Pipeline) Process(ctx context.Context, raw string) Outcome {
	outcome := p.process(ctx, raw)
	metrics.ScanOutcomes.WithLabelValues(string(outcome.State), outcome.Reason).Inc()

	return outcome
}

func (p Pipeline) process(ctx context.Context, raw string) Outcome {
	logger := log.FromContext(ctx)

	payload, err := p.codec.Decode(raw)
	if errors.Is(err, qr.ErrUnknownPayloadType) {
		logger.Info("Scanned QR code of unknown type")
		return invalid(ReasonUnknownType)
	}
	if err != nil {
		logger.WithError(err).Info("Scanned unreadable QR code")
		return invalid(ReasonUnreadable)
	}

	switch payload := payload.(type) {
	case qr.VerifyPayload:
		// a started verification is a single idempotent write, let it finish
		result := p.verifier.Verify(context.WithoutCancel(ctx), payload.Reference)

		outcome := Outcome{
			State:     StateValid,
			Reference: payload.Reference,
			Result:    &result,
		}
		if !result.OK() {
			outcome.State = StateInvalid
			outcome.Reason = result.Message
		}
		return outcome
	default:
		return invalid(ReasonUnknownType)
	}
}

func invalid(reason string) Outcome {
	return Outcome{State: StateInvalid, Reason: reason}
}
