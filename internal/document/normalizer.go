package document

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// DefaultDPI is the rasterization resolution for PDF pages.
const DefaultDPI = 300

// Config holds normalizer settings.
type Config struct {
	// DPI controls PDF rasterization resolution. Zero means DefaultDPI.
	DPI int
}

// Normalizer converts any accepted input into one or more raster pages.
type Normalizer struct {
	dpi int
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(cfg Config) *Normalizer {
	dpi := cfg.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Normalizer{dpi: dpi}
}

// Normalize decodes a raw document into normalized pages. PDFs produce one
// page per document page; images produce a single page with any embedded
// EXIF rotation applied.
func (n *Normalizer) Normalize(raw Raw) ([]Page, error) {
	switch mt := CanonicalMediaType(raw.MediaType); mt {
	case "application/pdf":
		return n.rasterizePDF(raw.Data)
	case "image/jpeg", "image/jpg", "image/png", "image/tiff":
		if isHEIC(raw.Data) {
			// Mislabeled phone upload
			return decodeHEIC(raw.Data)
		}
		return decodeImage(raw.Data)
	case "image/heic", "image/heif":
		return decodeHEIC(raw.Data)
	default:
		return nil, fmt.Errorf("media type %q: %w", raw.MediaType, ErrUnsupportedFormat)
	}
}

// rasterizePDF renders every page of a PDF at the configured DPI.
func (n *Normalizer) rasterizePDF(data []byte) ([]Page, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w: %w", ErrCorruptDocument, err)
	}
	defer doc.Close()

	pages := make([]Page, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.ImageDPI(i, float64(n.dpi))
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page %d: %w: %w", i, ErrCorruptDocument, err)
		}
		pages = append(pages, Page{Image: imaging.Clone(img), Index: i})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("PDF has no pages: %w", ErrCorruptDocument)
	}
	return pages, nil
}

func decodeImage(data []byte) ([]Page, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w: %w", ErrCorruptDocument, err)
	}
	return []Page{{Image: toNRGBA(img), Index: 0}}, nil
}

func decodeHEIC(data []byte) ([]Page, error) {
	img, err := heic.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding HEIC image: %w: %w", ErrCorruptDocument, err)
	}
	return []Page{{Image: toNRGBA(img), Index: 0}}, nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Bounds().Min == (image.Point{}) {
		return nrgba
	}
	return imaging.Clone(img)
}
