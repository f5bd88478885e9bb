package qr

import "errors"

var (
	// ErrEncryption is returned when a payload cannot be sealed, e.g. the secret is missing.
	ErrEncryption = errors.New("qr: encryption failed")

	// ErrDecryption covers every way an envelope can fail to open: missing separator,
	// bad hex or base64, wrong key or a tampered ciphertext. Callers never learn which.
	ErrDecryption = errors.New("qr: invalid code")

	// ErrFormat is returned when the obfuscated string is not valid base64.
	ErrFormat = errors.New("qr: malformed code")

	ErrUnknownPayloadType = errors.New("qr: unknown payload type")
	ErrInvalidReference   = errors.New("qr: invalid booking reference")
)
