package scanner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrmang/db/memory"
	"qrmang/entity"
	"qrmang/qr"
	"qrmang/scanner"
	"qrmang/verification"
)

const testSecret = "test-secret-key-32bytes-long!!"

func seededService(t *testing.T, status entity.PaymentStatus) (verification.Service, entity.Booking) {
	t.Helper()

	store := memory.NewStore()
	booking := entity.Booking{
		BookingID:        "booking-1",
		BookingReference: "BR-AB12CD34",
		EventID:          "event-1",
		PaymentStatus:    status,
		Attendees: entity.Attendees{
			{Name: "Grace", Age: 45, IDDocumentNumber: "G-1", Gender: "female"},
			{Name: "Linus", Age: 28, IDDocumentNumber: "L-1", Gender: "male"},
		},
		TicketType:    "Standard",
		Quantity:      2,
		TotalAmount:   "50.00",
		TotalCurrency: "USD",
	}
	require.NoError(t, store.Seed(
		entity.Event{EventID: "event-1", Title: "Opening", Venue: "Main Stage", EventStart: time.Now()},
		booking,
		&entity.Ticket{BookingID: booking.BookingID, EventID: booking.EventID},
	))

	return verification.NewService(store, store, time.Local), booking
}

func TestPipeline_Process_validTicket(t *testing.T) {
	ctx := context.Background()
	svc, booking := seededService(t, entity.PaymentStatusCompleted)
	codec := qr.NewCodec(testSecret)

	raw, err := codec.EncodeForDisplay(booking.BookingReference)
	require.NoError(t, err)

	outcome := scanner.NewPipeline(codec, svc).Process(ctx, raw)

	assert.Equal(t, scanner.StateValid, outcome.State)
	assert.Empty(t, outcome.Reason)
	assert.Equal(t, "BR-AB12CD34", outcome.Reference)
	require.NotNil(t, outcome.Result)
	require.NotNil(t, outcome.Result.Detail)
	assert.Equal(t, []entity.Attendee(booking.Attendees), outcome.Result.Detail.Attendees)
}

func TestPipeline_Process_verificationFailure(t *testing.T) {
	ctx := context.Background()
	svc, booking := seededService(t, entity.PaymentStatusPending)
	codec := qr.NewCodec(testSecret)

	raw, err := codec.EncodeForDisplay(booking.BookingReference)
	require.NoError(t, err)

	outcome := scanner.NewPipeline(codec, svc).Process(ctx, raw)

	assert.Equal(t, scanner.StateInvalid, outcome.State)
	assert.Equal(t, "Payment not completed", outcome.Reason)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, entity.VerificationPaymentIncomplete, outcome.Result.Status)
}

func TestPipeline_Process_rejectedCodes(t *testing.T) {
	envelope, err := qr.Encrypt("other:xyz", testSecret)
	require.NoError(t, err)
	unknownType := qr.Obfuscate(envelope)

	otherKey, err := qr.NewCodec("another-secret").EncodeForDisplay("BR-AB12CD34")
	require.NoError(t, err)

	testCases := []struct {
		name   string
		raw    string
		reason string
	}{
		{name: "not base64", raw: "%%%not-base64%%%", reason: scanner.ReasonUnreadable},
		{name: "random text", raw: qr.Obfuscate("hello world"), reason: scanner.ReasonUnreadable},
		{name: "wrong key", raw: otherKey, reason: scanner.ReasonUnreadable},
		{name: "empty", raw: "", reason: scanner.ReasonUnreadable},
		{name: "unknown type", raw: unknownType, reason: scanner.ReasonUnknownType},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			verifier := &recordingVerifier{}

			outcome := scanner.NewPipeline(qr.NewCodec(testSecret), verifier).Process(context.Background(), tc.raw)

			assert.Equal(t, scanner.StateInvalid, outcome.State)
			assert.Equal(t, tc.reason, outcome.Reason)
			assert.Nil(t, outcome.Result)
			assert.Empty(t, verifier.references, "verifier must not be called")
		})
	}
}

func TestPipeline_Process_verificationSurvivesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	verifier := &recordingVerifier{}
	codec := qr.NewCodec(testSecret)
	raw, err := codec.EncodeForDisplay("BR-1")
	require.NoError(t, err)

	outcome := scanner.NewPipeline(codec, verifier).Process(ctx, raw)

	assert.Equal(t, scanner.StateValid, outcome.State)
	require.Len(t, verifier.contextErrors, 1)
	assert.NoError(t, verifier.contextErrors[0])
}

type recordingVerifier struct {
	references    []string
	contextErrors []error
}

func (v *recordingVerifier) Verify(ctx context.Context, bookingReference string) entity.VerificationResult {
	v.references = append(v.references, bookingReference)
	v.contextErrors = append(v.contextErrors, ctx.Err())

	return entity.NewVerificationSuccess(entity.VerificationDetail{BookingReference: bookingReference})
}
