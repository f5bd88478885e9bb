package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const DefaultSize = 256

type Renderer struct {
	size  int
	level qrcode.RecoveryLevel
}

func NewRenderer(size int) Renderer {
	if size <= 0 {
		size = DefaultSize
	}

	return Renderer{
		size:  size,
		level: qrcode.Medium,
	}
}

// WithRecoveryLevel returns a renderer using level, e.g. qrcode.High for printed tickets.
func (r Renderer) WithRecoveryLevel(level qrcode.RecoveryLevel) Renderer {
	r.level = level
	return r
}

// PNG renders content as a PNG QR code.
func (r Renderer) PNG(content string) ([]byte, error) {
	png, err := qrcode.Encode(content, r.level, r.size)
	if err != nil {
		return nil, fmt.Errorf("could not render qr code: %w", err)
	}

	return png, nil
}

func (r Renderer) DataURI(content string) (string, error) {
	png, err := r.PNG(content)
	if err != nil {
		return "", err
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
