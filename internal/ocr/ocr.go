// Package ocr defines the text-recognition contract for the pipeline and
// the adapters that implement it. Adapters isolate engine-specific
// configuration and failure modes behind the Engine interface.
package ocr

import (
	"context"
	"errors"
	"strings"

	"github.com/invoicescan/invoicescan/internal/document"
)

var (
	// ErrEngineUnavailable means the recognition engine could not be
	// invoked at all (missing binary, unreachable API). Fatal for the
	// request.
	ErrEngineUnavailable = errors.New("ocr engine unavailable")

	// ErrEmptyRecognition means the engine ran but produced no text.
	// Common for severely degraded scans; callers treat it as a warning.
	ErrEmptyRecognition = errors.New("recognition produced no text")
)

// Box is a word bounding box in page pixel coordinates.
type Box struct {
	X, Y, W, H int
}

// Word is a recognized token with optional position and confidence.
// Box is nil for engines that only return plain text.
type Word struct {
	Text       string
	Box        *Box
	Confidence float64
}

// Line is an ordered sequence of words. Raw preserves the engine's original
// spacing when it only produced plain text; positional engines leave it
// empty and the text is rebuilt from the words.
type Line struct {
	Words []Word
	Raw   string
}

// Text returns the line text.
func (l Line) Text() string {
	if l.Raw != "" {
		return l.Raw
	}
	parts := make([]string, 0, len(l.Words))
	for _, w := range l.Words {
		parts = append(parts, w.Text)
	}
	return strings.Join(parts, " ")
}

// HasBoxes reports whether every word on the line carries a bounding box.
func (l Line) HasBoxes() bool {
	if len(l.Words) == 0 {
		return false
	}
	for _, w := range l.Words {
		if w.Box == nil {
			return false
		}
	}
	return true
}

// Result is the recognized text of one page, immutable after creation.
type Result struct {
	Lines []Line
}

// Text returns the full page text, one recognized line per output line.
func (r *Result) Text() string {
	parts := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		parts = append(parts, l.Text())
	}
	return strings.Join(parts, "\n")
}

// Empty reports whether the result contains no non-whitespace text.
func (r *Result) Empty() bool {
	return strings.TrimSpace(r.Text()) == ""
}

// Options tune a recognition call.
type Options struct {
	// Language hint, e.g. "eng".
	Language string
	// LayoutAware requests positional metadata when the engine supports it.
	LayoutAware bool
}

// Engine is the recognition contract. Implementations must be safe for
// concurrent use; each call owns its page exclusively.
type Engine interface {
	Recognize(ctx context.Context, page document.Page, opts Options) (*Result, error)
	Close() error
}
