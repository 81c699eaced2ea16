package menus

import "menuflow-backend/internal/extract"

// ExtractionResponse is the outward-facing shape of a synchronous run.
type ExtractionResponse struct {
	Items      []extract.MenuItem `json:"items"`
	Categories []string           `json:"categories"`
	Source     string             `json:"source"`
	Quality    extract.Quality    `json:"quality"`
}

func toResponse(ex Extraction) ExtractionResponse {
	return ExtractionResponse{
		Items:      ex.Items,
		Categories: ex.Categories,
		Source:     ex.Source,
		Quality:    ex.Quality,
	}
}
