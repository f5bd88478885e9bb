package qr

import (
	"encoding/base64"
)

// Obfuscate reverses s and base64-encodes the result. It only hides the envelope
// structure from a casual look; it is not a security boundary.
func Obfuscate(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(reverse(s)))
}

// Deobfuscate is the inverse of Obfuscate.
func Deobfuscate(s string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", ErrFormat
	}

	return reverse(string(decoded)), nil
}

// reverse works on bytes, so any input round-trips. Envelopes are ASCII, where
// this is the same as reversing characters.
func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
