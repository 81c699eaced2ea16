// Package pdftext reconstructs reading-order lines from a PDF's embedded
// text layer. Extraction uses github.com/ledongthuc/pdf positioned text runs;
// scanned PDFs with no usable layer report an empty line set so callers can
// fall back to OCR.
package pdftext

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	// Text layers totaling fewer characters than this are treated as absent.
	DefaultMinTextChars = 50

	// Runs whose y anchors differ by no more than this share a line. Covers
	// sub-pixel rendering jitter only, not multi-line grouping.
	yTolerance = 2.0
)

type run struct {
	x, y float64
	text string
}

// ExtractTextLines reads the positioned text runs of every page and returns
// them as top-to-bottom lines. It fails on documents the PDF library cannot
// parse (corrupted or encrypted files); callers catch that and try OCR.
// When the whole document carries fewer than minChars characters of text the
// result is empty, the explicit signal that the text layer is useless.
func ExtractTextLines(buf []byte, minChars int) (lines []string, err error) {
	if minChars <= 0 {
		minChars = DefaultMinTextChars
	}

	// The library panics on some malformed font and xref structures.
	defer func() {
		if rec := recover(); rec != nil {
			lines = nil
			err = fmt.Errorf("pdf text extraction panic: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		runs := make([]run, 0, len(content.Text))
		for _, t := range content.Text {
			if t.S == "" {
				continue
			}
			runs = append(runs, run{x: t.X, y: t.Y, text: t.S})
		}
		lines = append(lines, assembleLines(runs)...)
	}

	if totalRunes(lines) < minChars {
		return nil, nil
	}
	return lines, nil
}

// totalRunes counts characters, not bytes, so accented menus don't clear
// the threshold on encoding weight alone.
func totalRunes(lines []string) int {
	total := 0
	for _, line := range lines {
		total += utf8.RuneCountInString(line)
	}
	return total
}

// assembleLines buckets runs on their y anchor, orders buckets top-to-bottom
// (descending y, PDF origin is bottom-left) and joins each bucket's runs
// left-to-right with single spaces.
func assembleLines(runs []run) []string {
	type bucket struct {
		y    float64
		runs []run
	}
	var buckets []*bucket

	for _, r := range runs {
		var target *bucket
		for _, b := range buckets {
			if r.y >= b.y-yTolerance && r.y <= b.y+yTolerance {
				target = b
				break
			}
		}
		if target == nil {
			target = &bucket{y: r.y}
			buckets = append(buckets, target)
		}
		target.runs = append(target.runs, r)
	}

	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].y > buckets[j].y })

	lines := make([]string, 0, len(buckets))
	for _, b := range buckets {
		sort.SliceStable(b.runs, func(i, j int) bool { return b.runs[i].x < b.runs[j].x })
		parts := make([]string, 0, len(b.runs))
		for _, r := range b.runs {
			parts = append(parts, r.text)
		}
		line := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
