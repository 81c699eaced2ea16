package broker

import (
	"encoding/json"
	"strings"

	"menuflow-backend/internal/extract"
)

// BuildExtractionPrompt embeds the document text in a JSON-only extraction
// instruction. The contract with every provider is the same: a JSON object
// holding {name, price, category} records, nothing else.
func BuildExtractionPrompt(text string) string {
	var b strings.Builder
	b.WriteString("You are a restaurant menu extraction engine.\n")
	b.WriteString("Extract every menu item from the document below.\n\n")
	b.WriteString("Respond with ONLY a JSON object of the form:\n")
	b.WriteString(`{"items":[{"name":"...","price":12.5,"category":"..."}]}` + "\n")
	b.WriteString("Rules: name is required; omit price when the document has none; ")
	b.WriteString("omit category when unclear; never invent items; no markdown, no prose.\n\n")
	b.WriteString("Document:\n")
	b.WriteString(text)
	return b.String()
}

type itemsEnvelope struct {
	Items []extract.MenuItem `json:"items"`
}

// DecodeItems parses a provider response into menu items. Markdown code
// fences are stripped first; both the {"items":[...]} envelope and a bare
// array are accepted. Unparseable responses yield nil, which callers treat
// as an empty but successful extraction.
func DecodeItems(raw string) []extract.MenuItem {
	cleaned := StripCodeFences(raw)
	if cleaned == "" {
		return nil
	}

	var envelope itemsEnvelope
	if err := json.Unmarshal([]byte(cleaned), &envelope); err == nil && envelope.Items != nil {
		return sanitizeItems(envelope.Items)
	}

	var bare []extract.MenuItem
	if err := json.Unmarshal([]byte(cleaned), &bare); err == nil {
		return sanitizeItems(bare)
	}
	return nil
}

// StripCodeFences removes a wrapping ```json ... ``` block if present.
func StripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:] // drop the language tag line
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// sanitizeItems enforces the MenuItem invariants on model output: names are
// label-safe and non-empty, prices non-negative, categories defaulted.
func sanitizeItems(items []extract.MenuItem) []extract.MenuItem {
	out := make([]extract.MenuItem, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			continue
		}
		clean := extract.MenuItem{Name: extract.SafeLabel(item.Name)}
		if item.Price != nil && *item.Price >= 0 {
			price := *item.Price
			clean.Price = &price
		}
		if strings.TrimSpace(item.Category) != "" {
			clean.Category = extract.SafeLabel(item.Category)
		} else {
			clean.Category = extract.DefaultCategory
		}
		out = append(out, clean)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
