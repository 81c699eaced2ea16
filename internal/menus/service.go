package menus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"menuflow-backend/internal/extract"
	"menuflow-backend/internal/ocr"
	"menuflow-backend/internal/pdftext"
	"menuflow-backend/internal/shared/telemetry"
)

var (
	// ErrEmptyInput is returned when the upload carries no usable bytes.
	ErrEmptyInput = errors.New("empty document")

	// ErrUnreadableDocument is returned when a PDF yields no text from
	// either the text layer or OCR.
	ErrUnreadableDocument = errors.New("document could not be read")

	// ErrMalformedCSV is returned when a CSV upload cannot be parsed.
	ErrMalformedCSV = errors.New("malformed csv")
)

// Extraction is the outcome of a synchronous boundary run.
type Extraction struct {
	Items      []extract.MenuItem
	Categories []string
	Source     string
	Quality    extract.Quality
}

// Service runs the synchronous extraction pipeline on uploaded documents.
// The OCR extractor is optional; without it a text-layer miss is terminal.
type Service struct {
	OCR         *ocr.Extractor
	PDFMinChars int
}

// NewService constructs a Service.
func NewService(ocrExtractor *ocr.Extractor, pdfMinChars int) *Service {
	if pdfMinChars <= 0 {
		pdfMinChars = pdftext.DefaultMinTextChars
	}
	return &Service{OCR: ocrExtractor, PDFMinChars: pdfMinChars}
}

// Extract picks the ingestion tier from the upload's name, declared type and
// magic bytes, then parses the resulting text deterministically.
func (s *Service) Extract(ctx context.Context, fileName, contentType string, buf []byte) (Extraction, error) {
	if len(bytes.TrimSpace(buf)) == 0 {
		return Extraction{}, ErrEmptyInput
	}

	switch {
	case isCSV(fileName, contentType):
		return s.fromCSV(buf)
	case isPDF(buf, fileName, contentType):
		return s.fromPDF(ctx, buf)
	default:
		return s.fromText(buf)
	}
}

func (s *Service) fromCSV(buf []byte) (Extraction, error) {
	items, err := extract.ParseMenuCSV(buf)
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
	}
	return build(items, "csv", extract.QualityCSV), nil
}

func (s *Service) fromText(buf []byte) (Extraction, error) {
	text := extract.NormalizeBufferToUTF8(buf)
	items := extract.ParseMenuLines(text)
	return build(items, "text", extract.QualityDeterministic), nil
}

func (s *Service) fromPDF(ctx context.Context, buf []byte) (Extraction, error) {
	lines, err := pdftext.ExtractTextLines(buf, s.PDFMinChars)
	if err != nil {
		// Structural parse failures fall through to OCR like a missing
		// text layer would.
		telemetry.Error("menus.pdftext", map[string]any{"err": err.Error()})
		lines = nil
	}
	if len(lines) > 0 {
		items := extract.ParseMenuLines(strings.Join(lines, "\n"))
		return build(items, "pdf-text", extract.QualityDeterministic), nil
	}

	if s.OCR != nil {
		if ocrLines := s.OCR.PDFLines(ctx, buf); len(ocrLines) > 0 {
			items := extract.ParseMenuLines(strings.Join(ocrLines, "\n"))
			return build(items, "pdf-ocr", extract.QualityOCR), nil
		}
	}

	return Extraction{}, ErrUnreadableDocument
}

func build(items []extract.MenuItem, source string, quality extract.Quality) Extraction {
	if items == nil {
		items = []extract.MenuItem{}
	}
	return Extraction{
		Items:      items,
		Categories: extract.Categories(items),
		Source:     source,
		Quality:    quality,
	}
}

func isCSV(fileName, contentType string) bool {
	if strings.HasSuffix(strings.ToLower(fileName), ".csv") {
		return true
	}
	return strings.Contains(strings.ToLower(contentType), "text/csv")
}

func isPDF(buf []byte, fileName, contentType string) bool {
	if bytes.HasPrefix(bytes.TrimLeft(buf, " \t\r\n"), []byte("%PDF-")) {
		return true
	}
	if strings.HasSuffix(strings.ToLower(fileName), ".pdf") {
		return true
	}
	return strings.Contains(strings.ToLower(contentType), "application/pdf")
}
