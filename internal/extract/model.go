package extract

// Quality labels the provenance of an extraction result so callers can
// decide how much to trust it.
type Quality string

const (
	QualityCSV           Quality = "csv"
	QualityDeterministic Quality = "deterministic"
	QualityOCR           Quality = "ocr"
	QualityAI            Quality = "ai"
	QualityDegraded      Quality = "degraded"
)

// MenuItem is the normalized record every extraction tier produces.
// Name is always present and sanitized; Price, when set, is non-negative.
type MenuItem struct {
	Name     string   `json:"name"`
	Price    *float64 `json:"price,omitempty"`
	Category string   `json:"category,omitempty"`
}

// Result is the output contract of the extraction pipeline.
type Result struct {
	Items   []MenuItem `json:"items"`
	Quality Quality    `json:"quality"`
}

// DefaultCategory is used whenever a category is missing or sanitizes to nothing.
const DefaultCategory = "Uncategorized"

// Categories returns the de-duplicated category set in first-seen order,
// substituting DefaultCategory for unset categories.
func Categories(items []MenuItem) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		cat := item.Category
		if cat == "" {
			cat = DefaultCategory
		}
		if _, ok := seen[cat]; ok {
			continue
		}
		seen[cat] = struct{}{}
		out = append(out, cat)
	}
	return out
}
