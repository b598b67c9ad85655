package document

import (
	"errors"
	"image"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned when the declared media type is not
	// one the pipeline can decode.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrCorruptDocument is returned when decoding or rasterization fails.
	ErrCorruptDocument = errors.New("corrupt document")
)

// Raw is an ingested document before normalization: the uploaded bytes plus
// the media type the caller declared for them.
type Raw struct {
	Data      []byte
	MediaType string
}

// Page is a single normalized raster page. A pipeline run owns its pages
// exclusively; they are never shared between runs.
type Page struct {
	Image *image.NRGBA
	Index int
}

// Width returns the page width in pixels.
func (p Page) Width() int {
	return p.Image.Bounds().Dx()
}

// Height returns the page height in pixels.
func (p Page) Height() int {
	return p.Image.Bounds().Dy()
}

// CanonicalMediaType lowercases the declared type and strips any parameters
// (e.g. "image/png; charset=binary" -> "image/png").
func CanonicalMediaType(mediaType string) string {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.Index(mt, ";"); i != -1 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}

// isHEIC checks the ftyp box for HEIC/HEIF brands. Phones routinely upload
// HEIC photos with a generic or wrong declared type.
func isHEIC(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	if string(data[4:8]) != "ftyp" {
		return false
	}
	brand := string(data[8:12])
	return brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1"
}
