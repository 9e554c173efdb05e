// Package ingestion turns uploaded prescription PDFs into plain text for
// the prescription workflow.
package ingestion

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/healthmate/backend/internal/validate"
	"github.com/healthmate/backend/pkg/logger"
)

// maxTextChars matches the input validator's upper bound so extracted text
// is never rejected downstream for length alone.
const maxTextChars = validate.MaxLength

var whitespace = regexp.MustCompile(`\s+`)

type Processor struct {
	maxChars int
}

func NewProcessor() *Processor {
	return &Processor{maxChars: maxTextChars}
}

// ExtractText pulls plain text out of a PDF upload and normalizes
// whitespace. Image-only scans yield no text and are rejected; OCR is out
// of scope.
func (p *Processor) ExtractText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract PDF text: %w", err)
	}

	raw, err := io.ReadAll(textReader)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}

	text := p.normalize(string(raw))
	if text == "" {
		return "", fmt.Errorf("no text found in PDF; scanned images are not supported")
	}

	logger.Debug("Prescription PDF text extracted",
		zap.Int("pages", reader.NumPage()),
		zap.Int("chars", len(text)),
	)

	return text, nil
}

// normalize collapses whitespace and truncates to the cap, trimming again so
// the cut never leaves a trailing space.
func (p *Processor) normalize(raw string) string {
	text := whitespace.ReplaceAllString(raw, " ")
	text = strings.TrimSpace(text)
	if len(text) > p.maxChars {
		text = strings.TrimSpace(text[:p.maxChars])
	}
	return text
}
