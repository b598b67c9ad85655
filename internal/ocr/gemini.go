package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/invoicescan/invoicescan/internal/document"
)

// transcribePrompt asks the vision model to act as a plain OCR engine.
const transcribePrompt = `Transcribe every line of text visible in this document image.
Return the text exactly as it appears, one output line per line of text in the
image, preserving the left-to-right order of values on each line. Separate
columns of tabular data with two or more spaces. Do not add commentary,
markdown, or code fences. If the image contains no legible text, return an
empty response.`

// Gemini implements Engine using a Google Gemini vision model. It returns
// plain text lines without bounding boxes.
type Gemini struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
}

// NewGemini creates a Gemini recognition engine.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client:  client,
		model:   client.GenerativeModel(modelName),
		timeout: 30 * time.Second,
	}, nil
}

// Recognize sends the page image with a transcription prompt.
func (g *Gemini) Recognize(ctx context.Context, page document.Page, _ Options) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var buf bytes.Buffer
	if err := png.Encode(&buf, page.Image); err != nil {
		return nil, fmt.Errorf("encoding page image: %w", err)
	}

	parts := []genai.Part{
		genai.ImageData("png", buf.Bytes()),
		genai.Text(transcribePrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w: %w", ErrEngineUnavailable, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return &Result{}, ErrEmptyRecognition
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	result := plainTextResult(text.String())
	if result.Empty() {
		return result, ErrEmptyRecognition
	}
	return result, nil
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// plainTextResult builds a Result from raw text, keeping each line's
// original spacing so downstream column heuristics still work.
func plainTextResult(text string) *Result {
	text = strings.TrimSpace(text)
	// Models sometimes fence their output despite the prompt, with or
	// without a language tag; drop the whole opening fence line.
	if strings.HasPrefix(text, "```") {
		if i := strings.IndexByte(text, '\n'); i != -1 {
			text = text[i+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	result := &Result{}
	for _, raw := range strings.Split(text, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		line := Line{Raw: strings.TrimRight(raw, " \t")}
		for _, token := range strings.Fields(raw) {
			line.Words = append(line.Words, Word{Text: token})
		}
		result.Lines = append(result.Lines, line)
	}
	return result
}
