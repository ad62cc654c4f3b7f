package document

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/skip2/go-qrcode"
)

// ErrNoQRCode is returned when no QR code can be read from an image.
var ErrNoQRCode = errors.New("no qr code detected")

// qrPixels is the side of the PNG embedded in ticket documents.
const qrPixels = 512

// EncodeQR returns a PNG holding content as a QR code.
func EncodeQR(content string) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, qrPixels)
}

// QRDecoder reads the first QR code from a photo or screenshot.
type QRDecoder struct {
	maxBytes int64
}

// NewQRDecoder returns a decoder that refuses images larger than maxBytes.
func NewQRDecoder(maxBytes int64) *QRDecoder { return &QRDecoder{maxBytes: maxBytes} }

// Decode returns the text of the QR code in the image.
func (d *QRDecoder) Decode(src io.Reader) (string, error) {
	raw, err := readLimited(src, d.maxBytes)
	if err != nil {
		return "", err
	}
	img, err := decodeImage(raw)
	if err != nil {
		return "", err
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoQRCode, err)
	}
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	res, err := zxingqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoQRCode, err)
	}
	text := strings.TrimSpace(res.GetText())
	if text == "" {
		return "", ErrNoQRCode
	}
	return text, nil
}
