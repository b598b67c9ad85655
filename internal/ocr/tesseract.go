package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/invoicescan/invoicescan/internal/document"
)

// Runner executes an external command, split out so tests can fake the
// tesseract binary.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var out, errb bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	return out.Bytes(), errb.Bytes(), err
}

// TesseractConfig configures the tesseract adapter.
type TesseractConfig struct {
	Binary      string // binary name or absolute path; empty means "tesseract"
	Language    string // default "eng"
	TessdataDir string
	PSM         int // page segmentation mode; 0 leaves tesseract's default
	OEM         int // engine mode; 0 leaves tesseract's default
}

// Tesseract recognizes text by running the tesseract binary in TSV mode,
// which yields per-word bounding boxes and confidences.
type Tesseract struct {
	cfg    TesseractConfig
	runner Runner
}

// NewTesseract creates a Tesseract adapter.
func NewTesseract(cfg TesseractConfig) *Tesseract {
	return NewTesseractWithRunner(cfg, execRunner{})
}

// NewTesseractWithRunner creates a Tesseract adapter with a custom Runner.
func NewTesseractWithRunner(cfg TesseractConfig, runner Runner) *Tesseract {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	return &Tesseract{cfg: cfg, runner: runner}
}

// Recognize writes the page to a temp file, runs tesseract and parses its
// TSV output. A result with ErrEmptyRecognition is returned when tesseract
// ran but found no text.
func (t *Tesseract) Recognize(ctx context.Context, page document.Page, opts Options) (*Result, error) {
	tmp, err := os.CreateTemp("", "invoicescan-*.png")
	if err != nil {
		return nil, fmt.Errorf("creating temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, page.Image); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("encoding page image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("writing temp image: %w", err)
	}

	lang := opts.Language
	if lang == "" {
		lang = t.cfg.Language
	}
	args := []string{tmp.Name(), "stdout", "-l", lang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, args...)
	if err != nil {
		return nil, fmt.Errorf("running tesseract: %w: %w (%s)", ErrEngineUnavailable, err, strings.TrimSpace(string(errb)))
	}

	result := parseTSV(string(out))
	if result.Empty() {
		return result, ErrEmptyRecognition
	}
	return result, nil
}

// Close releases nothing; the adapter holds no resources between calls.
func (t *Tesseract) Close() error {
	return nil
}

// parseTSV turns tesseract TSV output into a Result. Columns:
// level page_num block_num par_num line_num word_num left top width height conf text.
// Word rows are level 5; rows are grouped into lines by block/par/line.
func parseTSV(tsv string) *Result {
	result := &Result{}
	index := make(map[string]int)

	for i, row := range strings.Split(tsv, "\n") {
		if i == 0 || strings.TrimSpace(row) == "" {
			continue // header or trailing blank
		}
		cols := strings.Split(row, "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}

		left, _ := strconv.Atoi(cols[6])
		top, _ := strconv.Atoi(cols[7])
		width, _ := strconv.Atoi(cols[8])
		height, _ := strconv.Atoi(cols[9])
		conf, _ := strconv.ParseFloat(cols[10], 64)
		if conf < 0 {
			conf = 0
		}

		word := Word{
			Text:       text,
			Box:        &Box{X: left, Y: top, W: width, H: height},
			Confidence: conf / 100.0,
		}

		key := cols[2] + ":" + cols[3] + ":" + cols[4]
		if li, ok := index[key]; ok {
			result.Lines[li].Words = append(result.Lines[li].Words, word)
		} else {
			index[key] = len(result.Lines)
			result.Lines = append(result.Lines, Line{Words: []Word{word}})
		}
	}
	return result
}
