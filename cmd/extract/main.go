package main

// One-shot local extraction:
//   go run ./cmd/extract -file menu.pdf

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"menuflow-backend/internal/menus"
	"menuflow-backend/internal/ocr"
	"menuflow-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	filePath := flag.String("file", "", "Path to menu document (pdf, csv or plain text)")
	outPath := flag.String("out", "", "Path to write JSON output (optional, defaults to stdout)")
	flag.Parse()

	if strings.TrimSpace(*filePath) == "" {
		exitErr("file path is required")
	}

	buf, err := os.ReadFile(*filePath)
	if err != nil {
		exitErr(fmt.Sprintf("read file: %v", err))
	}

	ocrExtractor := ocr.NewExtractor(ocr.Config{
		Lang:     cfg.OCRLang,
		DPI:      cfg.OCRDPI,
		MaxPages: cfg.OCRMaxPages,
	})
	svc := menus.NewService(ocrExtractor, cfg.PDFTextMinChars)

	fileName := filepath.Base(*filePath)
	contentType := mime.TypeByExtension(filepath.Ext(fileName))

	ex, err := svc.Extract(context.Background(), fileName, contentType, buf)
	if err != nil {
		exitErr(fmt.Sprintf("extract: %v", err))
	}

	out, err := json.MarshalIndent(map[string]any{
		"items":      ex.Items,
		"categories": ex.Categories,
		"source":     ex.Source,
		"quality":    ex.Quality,
	}, "", "  ")
	if err != nil {
		exitErr(fmt.Sprintf("encode output: %v", err))
	}

	if strings.TrimSpace(*outPath) != "" {
		if err := os.WriteFile(*outPath, out, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
		return
	}
	fmt.Println(string(out))
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
