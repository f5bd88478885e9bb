package scanner

import (
	"image"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
)

// FrameDecoder finds a QR code in a single frame.
type FrameDecoder interface {
	DecodeFrame(frame image.Image) (string, bool)
}

type ZXingDecoder struct {
	hints map[gozxing.DecodeHintType]interface{}
}

func NewZXingDecoder() ZXingDecoder {
	return ZXingDecoder{
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

func (d ZXingDecoder) DecodeFrame(frame image.Image) (string, bool) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(frame)
	if err != nil {
		return "", false
	}

	result, err := zxingqr.NewQRCodeReader().Decode(bmp, d.hints)
	if err != nil {
		return "", false
	}

	return result.GetText(), true
}
