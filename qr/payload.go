package qr

import (
	"fmt"
	"strings"
)

const (
	payloadSeparator = ":"

	TypeVerify = "verify"
)

// Payload is the decrypted content of a ticket QR code.
// VerifyPayload is the only variant today; new variants add a type here and a case in ParsePayload.
type Payload interface {
	Type() string
	String() string
}

// VerifyPayload asks the door to verify the booking with the given reference.
type VerifyPayload struct {
	Reference string
}

func (p VerifyPayload) Type() string { return TypeVerify }

func (p VerifyPayload) String() string {
	return TypeVerify + payloadSeparator + p.Reference
}

// BuildTicketPayload returns the wire form of a verify payload.
func BuildTicketPayload(reference string) string {
	return VerifyPayload{Reference: reference}.String()
}

// ValidateReference checks that reference can travel inside a payload unambiguously.
func ValidateReference(reference string) error {
	if reference == "" {
		return fmt.Errorf("%w: empty", ErrInvalidReference)
	}
	if strings.Contains(reference, payloadSeparator) {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidReference, reference, payloadSeparator)
	}
	return nil
}

// ParsePayload maps the wire string "<type>:<payload>" to a Payload, splitting on the first separator.
func ParsePayload(s string) (Payload, error) {
	typ, rest, ok := strings.Cut(s, payloadSeparator)
	if !ok {
		return nil, fmt.Errorf("%w: missing separator", ErrUnknownPayloadType)
	}

	switch typ {
	case TypeVerify:
		if rest == "" {
			return nil, fmt.Errorf("%w: empty reference", ErrInvalidReference)
		}
		return VerifyPayload{Reference: rest}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPayloadType, typ)
	}
}
