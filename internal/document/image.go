// Package document renders ticket PDFs, stores payment proofs and reads
// QR codes back from photos taken at the gate.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

var (
	// ErrInvalidImage is returned for empty input or anything that is not a
	// decodable jpeg, png or webp image.
	ErrInvalidImage = errors.New("not a jpeg, png or webp image")
	// ErrTooLarge is returned when an upload exceeds the configured limit.
	ErrTooLarge = errors.New("image too large")
)

// readLimited reads at most max bytes from r, failing with ErrTooLarge when
// there is more.  max <= 0 disables the limit.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	b, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > max {
		return nil, ErrTooLarge
	}
	return b, nil
}

// decodeImage sniffs the content type and decodes jpeg, png or webp.  EXIF
// orientation is applied to jpegs so phone photos come out upright.
func decodeImage(all []byte) (image.Image, error) {
	if len(all) == 0 {
		return nil, ErrInvalidImage
	}
	head := all
	if len(head) > 512 {
		head = head[:512]
	}
	ct := http.DetectContentType(head)

	var (
		img image.Image
		err error
	)
	switch {
	case strings.Contains(ct, "jpeg"), strings.Contains(ct, "png"):
		img, err = imaging.Decode(bytes.NewReader(all), imaging.AutoOrientation(true))
	case strings.Contains(ct, "webp"):
		img, err = webp.Decode(bytes.NewReader(all))
	default:
		return nil, ErrInvalidImage
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// downscaleIfNeeded keeps the aspect ratio and never upscales.
func downscaleIfNeeded(src image.Image, maxW, maxH int) image.Image {
	b := src.Bounds()
	if (maxW <= 0 || b.Dx() <= maxW) && (maxH <= 0 || b.Dy() <= maxH) {
		return src
	}
	return imaging.Fit(src, maxW, maxH, imaging.Lanczos)
}
