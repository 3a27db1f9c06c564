package imageprocessor

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// DataURIPrefix starts every encoded image returned by JPEGEncoder.
const DataURIPrefix = "data:image/jpeg;base64,"

// DefaultJPEGQuality is used when NewJPEGEncoder receives an out of range quality.
const DefaultJPEGQuality = 75

// Encoder turns an uploaded image into a transport safe data URI.
type Encoder interface {
	EncodeDataURI(ctx context.Context, data []byte) (string, error)
}

// JPEGEncoder decodes JPEG, PNG, GIF, BMP, TIFF and WebP input and re-encodes it as RGB JPEG.
type JPEGEncoder struct {
	quality int
}

// NewJPEGEncoder returns an encoder writing JPEGs at the given quality (1-100).
func NewJPEGEncoder(quality int) *JPEGEncoder {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &JPEGEncoder{quality: quality}
}

// EncodeDataURI decodes data, drops any alpha channel and returns the image as a base64 JPEG data URI.
func (e *JPEGEncoder) EncodeDataURI(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, ToRGB(img), imaging.JPEG, imaging.JPEGQuality(e.quality)); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}

	return DataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ToRGB copies img into an opaque NRGBA image. Color values are kept as they are and the
// alpha channel is discarded rather than blended against a background.
func ToRGB(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// DecodeDataURI parses a data URI produced by EncodeDataURI back into an image.
func DecodeDataURI(uri string) (image.Image, error) {
	payload, ok := strings.CutPrefix(uri, DataURIPrefix)
	if !ok {
		return nil, errors.New("imageprocessor: not a jpeg data uri")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("imageprocessor: decode base64: %w", err)
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("imageprocessor: decode payload: %w", err)
	}
	if format != "jpeg" {
		return nil, fmt.Errorf("imageprocessor: unexpected payload format %q", format)
	}
	return img, nil
}
