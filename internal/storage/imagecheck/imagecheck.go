// Package imagecheck validates uploaded photos before they are persisted.
package imagecheck

import (
	"bytes"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"net/http"

	_ "golang.org/x/image/webp" // register decoder

	"github.com/citysnap/gateway/internal/domain"
)

// Format describes an accepted image type.
type Format struct {
	Ext         string
	ContentType string
}

var formats = map[string]Format{
	"image/jpeg": {Ext: "jpg", ContentType: "image/jpeg"},
	"image/png":  {Ext: "png", ContentType: "image/png"},
	"image/gif":  {Ext: "gif", ContentType: "image/gif"},
	"image/webp": {Ext: "webp", ContentType: "image/webp"},
}

// Detect sniffs the format and checks that the header decodes.
// maxBytes <= 0 disables the size check. Failures wrap domain.ErrValidation.
func Detect(data []byte, maxBytes int64) (Format, error) {
	if len(data) == 0 {
		return Format{}, domain.Validationf("image is empty")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return Format{}, domain.Validationf("image is %d bytes, limit is %d", len(data), maxBytes)
	}

	f, ok := formats[http.DetectContentType(data)]
	if !ok {
		return Format{}, domain.Validationf("unsupported image format")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Format{}, domain.Validationf("image is not decodable: %v", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Format{}, domain.Validationf("image has no pixels")
	}

	return f, nil
}
