package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/invoicescan/invoicescan/internal/document"
	"github.com/invoicescan/invoicescan/internal/enhance"
	"github.com/invoicescan/invoicescan/internal/extract"
	"github.com/invoicescan/invoicescan/internal/invoice"
	"github.com/invoicescan/invoicescan/internal/ocr"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("invoicescan")
	var (
		engineType  = fs.StringLong("engine", "tesseract", "OCR engine: 'tesseract' or 'gemini'")
		tessBinary  = fs.StringLong("tesseract-binary", "tesseract", "Tesseract executable")
		tessData    = fs.StringLong("tessdata", "", "Tesseract data directory (optional)")
		language    = fs.StringLong("lang", "eng", "Recognition language")
		psm         = fs.IntLong("psm", 6, "Tesseract page segmentation mode")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		dpi         = fs.IntLong("dpi", 300, "PDF rasterization resolution")
		noGrayscale = fs.BoolLong("no-grayscale", "Disable grayscale conversion")
		noBinarize  = fs.BoolLong("no-binarize", "Disable adaptive binarization")
		noDenoise   = fs.BoolLong("no-denoise", "Disable median denoising")
		noDeskew    = fs.BoolLong("no-deskew", "Disable deskewing")
		storeType   = fs.StringLong("store", "memory", "Session store: 'memory' or 'bolt'")
		dbPath      = fs.StringLong("db", "invoicescan.db", "Database file path (bolt store)")
		ttl         = fs.DurationLong("ttl", 30*time.Minute, "Record retention duration")
		capacity    = fs.IntLong("capacity", 100, "Record capacity (memory store)")
		archiveDir  = fs.StringLong("archive", "", "Directory for archiving originals (optional)")
		workers     = fs.IntLong("workers", 0, "Concurrent extraction limit (0 = number of CPUs)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("INVOICESCAN"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	files := fs.GetArgs()
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: no input files")
		os.Exit(1)
	}

	// Initialize recognition engine
	var engine ocr.Engine
	var err error
	switch *engineType {
	case "tesseract":
		slog.Info("Initializing Tesseract engine...", "binary", *tessBinary, "lang", *language)
		engine = ocr.NewTesseract(ocr.TesseractConfig{
			Binary:      *tessBinary,
			Language:    *language,
			TessdataDir: *tessData,
			PSM:         *psm,
		})
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini engine...", "model", *geminiModel)
		engine, err = ocr.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid engine type", "type", *engineType, "valid", "tesseract or gemini")
		os.Exit(1)
	}
	defer engine.Close()

	// Initialize session store
	var store invoice.Store
	switch *storeType {
	case "memory":
		store = invoice.NewMemoryStore(invoice.MemoryStoreConfig{TTL: *ttl, Capacity: *capacity})
	case "bolt":
		slog.Info("Initializing database...", "path", *dbPath)
		store, err = invoice.NewBoltStore(*dbPath, *ttl)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid store type", "type", *storeType, "valid", "memory or bolt")
		os.Exit(1)
	}
	defer store.Close()

	// Initialize archive storage
	var archive invoice.Storage
	if *archiveDir != "" {
		archive, err = invoice.NewLocalStorage(*archiveDir)
		if err != nil {
			slog.Error("Failed to initialize archive storage", "error", err)
			os.Exit(1)
		}
	}

	service := invoice.NewService(
		document.NewNormalizer(document.Config{DPI: *dpi}),
		enhance.New(enhance.Config{
			Grayscale: !*noGrayscale,
			Binarize:  !*noBinarize,
			Denoise:   !*noDenoise,
			Deskew:    !*noDeskew,
		}),
		ocr.NewGuard(engine),
		extract.NewDefaultEngine(),
		invoice.NewAssembler(),
		store,
		archive,
		invoice.ServiceConfig{Workers: *workers, Language: *language},
	)

	ctx := context.Background()
	failed := false
	for _, path := range files {
		if err := processFile(ctx, service, path); err != nil {
			slog.Error("Failed to process file", "file", path, "error", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func processFile(ctx context.Context, service *invoice.Service, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	record, err := service.Upload(ctx, data, mediaTypeFor(path))
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	csvData, filename, err := service.DownloadCSV(record.InvoiceID)
	if err != nil {
		if errors.Is(err, invoice.ErrNothingToExport) {
			slog.Warn("Nothing to export", "file", path, "invoice_id", record.InvoiceID)
			return nil
		}
		return err
	}
	csvPath := filepath.Join(filepath.Dir(path), filename)
	if err := os.WriteFile(csvPath, csvData, 0644); err != nil {
		return err
	}
	slog.Info("Wrote CSV", "file", csvPath)
	return nil
}

func mediaTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".heic", ".heif":
		return "image/heic"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
