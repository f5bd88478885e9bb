package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	envelopeSeparator = ":"
	nonceSize         = 12
	keySize           = 32
)

var keyInfo = []byte("qrmang ticket payload v1")

// Encrypt seals plaintext with AES-256-GCM under a key derived from secret.
// The envelope is hex(nonce) + ":" + base64(ciphertext||tag), with a fresh random nonce per call.
func Encrypt(plaintext, secret string) (string, error) {
	aead, err := newAEAD(secret)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrEncryption, err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: could not read nonce: %s", ErrEncryption, err)
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)

	return hex.EncodeToString(nonce) + envelopeSeparator + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens an envelope produced by Encrypt. Any failure is reported as ErrDecryption.
func Decrypt(envelope, secret string) (string, error) {
	nonceHex, sealedB64, ok := strings.Cut(envelope, envelopeSeparator)
	if !ok {
		return "", ErrDecryption
	}

	nonce, err := hex.DecodeString(nonceHex)
	if err != nil || len(nonce) != nonceSize {
		return "", ErrDecryption
	}

	sealed, err := base64.StdEncoding.DecodeString(sealedB64)
	if err != nil {
		return "", ErrDecryption
	}

	aead, err := newAEAD(secret)
	if err != nil {
		return "", ErrDecryption
	}

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryption
	}

	return string(plaintext), nil
}

func newAEAD(secret string) (cipher.AEAD, error) {
	if secret == "" {
		return nil, fmt.Errorf("secret is empty")
	}

	key, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCMWithNonceSize(block, nonceSize)
}

// deriveKey stretches the shared secret into an AES-256 key, so secrets of any length work.
func deriveKey(secret string) ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, keyInfo), key); err != nil {
		return nil, fmt.Errorf("could not derive key: %w", err)
	}

	return key, nil
}
