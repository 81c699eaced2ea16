// Package ocr rasterizes PDF pages and runs optical character recognition on
// them. It is a best-effort enhancement: when the poppler or tesseract
// binaries are missing, or any stage fails, extraction degrades to an empty
// line set rather than an error.
package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"menuflow-backend/internal/shared/telemetry"
)

const maxPagesCeiling = 20

// Config selects the external binaries and recognition parameters.
type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Lang     string // tesseract language, default "eng"
	DPI      int    // rasterization DPI, default 300; higher trades latency for accuracy
	MaxPages int    // page cap, default and ceiling maxPagesCeiling
}

// Extractor runs the rasterize-then-recognize loop.
type Extractor struct {
	cfg    Config
	runner Runner
}

// NewExtractor applies defaults and clamps MaxPages to the ceiling.
func NewExtractor(cfg Config) *Extractor {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MaxPages <= 0 || cfg.MaxPages > maxPagesCeiling {
		cfg.MaxPages = maxPagesCeiling
	}
	return &Extractor{cfg: cfg, runner: execRunner{}}
}

// PDFLines renders up to MaxPages pages of the PDF and recognizes each one,
// returning the trimmed non-empty lines of all pages in order. Every failure
// path, including missing binaries, yields an empty result.
func (e *Extractor) PDFLines(ctx context.Context, buf []byte) []string {
	if len(buf) == 0 {
		return nil
	}
	if !e.available() {
		telemetry.Info("ocr.unavailable", map[string]any{
			"pdftoppm":  e.cfg.Pdftoppm,
			"tesseract": e.cfg.Tesseract,
		})
		return nil
	}

	tmpDir, err := os.MkdirTemp("", "menuflow-ocr-*")
	if err != nil {
		return nil
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			telemetry.Error("ocr.tmpdir.cleanup", map[string]any{"dir": tmpDir, "err": rmErr.Error()})
		}
	}()

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, buf, 0o600); err != nil {
		return nil
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png -l <maxPages> input.pdf <tmp>/page
	_, _, err = e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-r", fmt.Sprintf("%d", e.cfg.DPI),
		"-png",
		"-l", fmt.Sprintf("%d", e.cfg.MaxPages),
		pdfPath, prefix)
	if err != nil {
		return nil
	}

	pages, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(pages)
	if len(pages) > e.cfg.MaxPages {
		pages = pages[:e.cfg.MaxPages]
	}

	var lines []string
	for _, page := range pages {
		out, _, err := e.runner.Run(ctx, e.cfg.Tesseract, page, "stdout", "-l", e.cfg.Lang)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(out), "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				lines = append(lines, trimmed)
			}
		}
	}
	return lines
}

func (e *Extractor) available() bool {
	if _, err := e.runner.LookPath(e.cfg.Pdftoppm); err != nil {
		return false
	}
	if _, err := e.runner.LookPath(e.cfg.Tesseract); err != nil {
		return false
	}
	return true
}
