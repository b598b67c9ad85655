package invoice

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"

	"golang.org/x/sync/semaphore"

	"github.com/invoicescan/invoicescan/internal/document"
	"github.com/invoicescan/invoicescan/internal/extract"
	"github.com/invoicescan/invoicescan/internal/ocr"
)

// Normalizer converts raw document bytes into raster pages.
type Normalizer interface {
	Normalize(raw document.Raw) ([]document.Page, error)
}

// Enhancer prepares a page image for recognition.
type Enhancer interface {
	Enhance(img *image.NRGBA) *image.NRGBA
}

// FieldExtractor populates header fields from raw text.
type FieldExtractor interface {
	Extract(text string) extract.Fields
}

// ServiceConfig tunes the extraction service.
type ServiceConfig struct {
	// Workers bounds concurrent extractions; recognition is CPU-bound, so
	// the default is the number of CPUs.
	Workers int
	// Language hint passed to the recognition engine.
	Language string
	// LayoutAware requests positional metadata from the engine.
	LayoutAware bool
}

// Service is the function-level contract the transport layer consumes:
// Upload runs the whole extraction pipeline, DownloadCSV serves the stored
// result.
type Service struct {
	normalizer Normalizer
	enhancer   Enhancer
	engine     ocr.Engine
	fields     FieldExtractor
	assembler  *Assembler
	store      Store
	archive    Storage // optional
	sem        *semaphore.Weighted
	opts       ocr.Options
}

// NewService wires the pipeline together. archive may be nil to disable
// archiving of original documents.
func NewService(
	normalizer Normalizer,
	enhancer Enhancer,
	engine ocr.Engine,
	fields FieldExtractor,
	assembler *Assembler,
	store Store,
	archive Storage,
	cfg ServiceConfig,
) *Service {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Service{
		normalizer: normalizer,
		enhancer:   enhancer,
		engine:     engine,
		fields:     fields,
		assembler:  assembler,
		store:      store,
		archive:    archive,
		sem:        semaphore.NewWeighted(int64(workers)),
		opts:       ocr.Options{Language: cfg.Language, LayoutAware: cfg.LayoutAware},
	}
}

// Upload runs extraction on one document and stores the resulting record.
// Extraction degrades field by field: recognition that yields nothing, rules
// that match nothing and tables that cannot be parsed all still produce a
// record. Only input errors and engine unavailability fail the request.
func (s *Service) Upload(ctx context.Context, data []byte, mediaType string) (*Record, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquiring extraction slot: %w", err)
	}
	defer s.sem.Release(1)

	pages, err := s.normalizer.Normalize(document.Raw{Data: data, MediaType: mediaType})
	if err != nil {
		return nil, fmt.Errorf("normalizing document: %w", err)
	}

	var warnings []string
	combined := &ocr.Result{}
	for _, page := range pages {
		enhanced := document.Page{Image: s.enhancer.Enhance(page.Image), Index: page.Index}
		result, err := s.engine.Recognize(ctx, enhanced, s.opts)
		if err != nil {
			if errors.Is(err, ocr.ErrEmptyRecognition) {
				warnings = append(warnings, fmt.Sprintf("page %d: no legible text recognized", page.Index+1))
				continue
			}
			return nil, fmt.Errorf("recognizing page %d: %w", page.Index, err)
		}
		combined.Lines = append(combined.Lines, result.Lines...)
	}

	rawText := combined.Text()
	fields := s.fields.Extract(rawText)
	items := extract.LineItems(combined)

	record, err := s.assembler.Assemble(fields, items, rawText, warnings)
	if err != nil {
		return nil, fmt.Errorf("assembling record: %w", err)
	}

	if s.archive != nil {
		name := record.InvoiceID + extensionFor(mediaType)
		if _, err := s.archive.Save(name, data); err != nil {
			slog.Warn("Failed to archive document", "invoice_id", record.InvoiceID, "error", err)
		}
	}

	if err := s.store.Put(record); err != nil {
		return nil, fmt.Errorf("storing record: %w", err)
	}

	slog.Info("Invoice processed",
		"invoice_id", record.InvoiceID,
		"pages", len(pages),
		"line_items", len(record.LineItems),
		"totals_mismatch", record.TotalsMismatch,
	)
	return record, nil
}

// DownloadCSV serializes a stored record. Returns the CSV bytes and the
// conventional filename.
func (s *Service) DownloadCSV(id string) ([]byte, string, error) {
	record, err := s.store.Get(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting invoice: %w", err)
	}
	data, err := ExportCSV(record)
	if err != nil {
		return nil, "", err
	}
	return data, Filename(id), nil
}

func extensionFor(mediaType string) string {
	switch document.CanonicalMediaType(mediaType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/tiff":
		return ".tif"
	case "image/heic", "image/heif":
		return ".heic"
	case "application/pdf":
		return ".pdf"
	default:
		return ".bin"
	}
}
