package qr

import (
	"fmt"
)

// Codec binds the pipeline to one shared secret.
type Codec struct {
	secret string
}

func NewCodec(secret string) Codec {
	if secret == "" {
		panic("missing ticket secret")
	}

	return Codec{secret: secret}
}

// EncodeForDisplay produces the string embedded into a ticket QR code.
func (c Codec) EncodeForDisplay(reference string) (string, error) {
	return EncodeForDisplay(reference, c.secret)
}

// Decode reverses EncodeForDisplay: deobfuscate, decrypt, parse.
// Errors wrap ErrFormat, ErrDecryption or ErrUnknownPayloadType.
func (c Codec) Decode(raw string) (Payload, error) {
	envelope, err := Deobfuscate(raw)
	if err != nil {
		return nil, err
	}

	plaintext, err := Decrypt(envelope, c.secret)
	if err != nil {
		return nil, err
	}

	return ParsePayload(plaintext)
}

func EncodeForDisplay(reference, secret string) (string, error) {
	if err := ValidateReference(reference); err != nil {
		return "", err
	}

	envelope, err := Encrypt(BuildTicketPayload(reference), secret)
	if err != nil {
		return "", fmt.Errorf("could not encrypt ticket payload: %w", err)
	}

	return Obfuscate(envelope), nil
}
