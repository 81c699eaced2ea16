package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// Lines without a trailing price are still emitted as name-only items
	// when at least this long. Menus without prices are valid input.
	minNameOnlyLen = 6

	// Junk filter: a line whose allowed-character ratio falls below this
	// is treated as leaked PDF object syntax, not menu content.
	minAllowedRatio = 0.6
)

var (
	// <name> <separator>* <decimal with 1-2 fraction digits> <currency>? at line end.
	trailingPriceRe = regexp.MustCompile(`^(.*?)[\s\-–—:.]*([0-9]{1,5}[.,][0-9]{1,2})\s*(?:[€$£₹]|(?i:eur|usd|gbp|inr|rs))?\s*$`)

	// Anything that looks like money disqualifies a line from being a header.
	priceLikeRe = regexp.MustCompile(`[€$£₹]|[0-9]+[.,][0-9]{1,2}`)

	currencyTokenRe = regexp.MustCompile(`[€$£₹]|(?i:\b(?:eur|usd|gbp|inr|rs)\b)`)

	// Failed PDF parsing elsewhere can leak raw object syntax into the line
	// stream; none of it may ever surface as a menu item.
	pdfStructureRe = regexp.MustCompile(`<<|>>|\b(?:obj|endobj|stream|endstream|xref|startxref|trailer)\b|/(?:Type|Pages?|Catalog|Contents|Resources|Producer|Creator|MediaBox|Font\w*|Filter|FlateDecode|Length)\b`)

	pdfVersionRe = regexp.MustCompile(`(?i)^%?pdf-?[0-9]+(?:\.[0-9]+)?$`)
)

// ParseMenuLines turns a block of normalized text into menu items using
// line-classification heuristics. It is purely local and intentionally
// conservative: ambiguous lines are dropped rather than fabricated into
// structure, leaving them for the AI tier.
func ParseMenuLines(text string) []MenuItem {
	category := DefaultCategory
	seen := make(map[string]struct{})
	var items []MenuItem

	emit := func(item MenuItem) {
		key := dedupeKey(item)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		items = append(items, item)
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.Join(strings.Fields(raw), " ")
		if line == "" || isPDFJunk(line) {
			continue
		}

		if isCategoryHeader(line) {
			category = SafeLabel(line)
			continue
		}

		if m := trailingPriceRe.FindStringSubmatch(line); m != nil && strings.TrimSpace(m[1]) != "" {
			if price, ok := ParsePrice(m[2]); ok {
				emit(MenuItem{Name: SafeLabel(m[1]), Price: &price, Category: category})
				continue
			}
		}

		if utf8.RuneCountInString(line) >= minNameOnlyLen && !currencyTokenRe.MatchString(line) {
			emit(MenuItem{Name: SafeLabel(line), Category: category})
		}
	}

	return items
}

// ParsePrice parses a decimal with either '.' or ',' as fraction separator.
// Negative or unparseable values report false.
func ParsePrice(s string) (float64, bool) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.Trim(cleaned, "€$£₹ ")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || price < 0 {
		return 0, false
	}
	return price, true
}

// isCategoryHeader reports whether a line reads as a section heading: no
// price-looking substring, and either short or shouted in upper-case.
func isCategoryHeader(line string) bool {
	if priceLikeRe.MatchString(line) {
		return false
	}
	return len(strings.Fields(line)) <= 5 || isAllUpper(line)
}

func isAllUpper(line string) bool {
	hasLetter := false
	for _, r := range line {
		if !unicode.IsLetter(r) {
			continue
		}
		hasLetter = true
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return hasLetter
}

func isPDFJunk(line string) bool {
	if strings.HasPrefix(line, "%") || strings.HasPrefix(line, "/") {
		return true
	}
	if pdfVersionRe.MatchString(line) || pdfStructureRe.MatchString(line) {
		return true
	}

	total := 0
	allowed := 0
	letters := 0
	for _, r := range line {
		total++
		switch {
		case unicode.IsLetter(r):
			letters++
			allowed++
		case unicode.IsDigit(r) || r == ' ' || strings.ContainsRune(labelPunct, r) || strings.ContainsRune("€$£₹*", r):
			allowed++
		}
	}
	if total == 0 {
		return true
	}
	if float64(allowed)/float64(total) < minAllowedRatio {
		return true
	}

	minLetters := float64(total) * 0.10
	if minLetters > 3 {
		minLetters = 3
	}
	return float64(letters) < minLetters
}

func dedupeKey(item MenuItem) string {
	price := ""
	if item.Price != nil {
		price = strconv.FormatFloat(*item.Price, 'f', -1, 64)
	}
	return fmt.Sprintf("%s|%s|%s", item.Name, item.Category, price)
}
