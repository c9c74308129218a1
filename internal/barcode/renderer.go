package barcode

import (
	"encoding/base64"

	qrcode "github.com/skip2/go-qrcode"
)

const dataURLPrefix = "data:image/png;base64,"

// Renderer produces scannable QR images for issued tokens.
type Renderer struct {
	size int
}

// NewRenderer builds a renderer with the given image size in pixels.
func NewRenderer(size int) *Renderer {
	if size <= 0 {
		size = 256
	}
	return &Renderer{size: size}
}

// DataURL renders the payload as a PNG and returns it as a base64 data URL,
// ready for printing pipelines and admin previews.
func (r *Renderer) DataURL(payload string) (string, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, r.size)
	if err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}
