package extract

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// csvColumns maps header spellings onto the three fields we care about.
var csvColumns = map[string]string{
	"name": "name", "item": "name", "dish": "name", "title": "name",
	"price": "price", "cost": "price", "amount": "price", "rate": "price",
	"category": "category", "section": "category", "group": "category", "type": "category",
}

// ParseMenuCSV parses a CSV menu export. The first row is treated as a
// header when it names any recognized column; otherwise columns are assumed
// to be name, price, category in that order. Rows without a usable name are
// skipped rather than failing the whole document.
func ParseMenuCSV(buf []byte) ([]MenuItem, error) {
	reader := csv.NewReader(strings.NewReader(NormalizeBufferToUTF8(buf)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	nameCol, priceCol, catCol := 0, 1, 2
	rows := records
	if cols, ok := sniffHeader(records[0]); ok {
		nameCol, priceCol, catCol = cols[0], cols[1], cols[2]
		rows = records[1:]
	}

	var items []MenuItem
	for _, row := range rows {
		name := field(row, nameCol)
		if strings.TrimSpace(name) == "" {
			continue
		}
		item := MenuItem{Name: SafeLabel(name)}
		if raw := field(row, priceCol); raw != "" {
			if price, ok := ParsePrice(raw); ok {
				item.Price = &price
			}
		}
		if raw := field(row, catCol); strings.TrimSpace(raw) != "" {
			item.Category = SafeLabel(raw)
		} else {
			item.Category = DefaultCategory
		}
		items = append(items, item)
	}
	return items, nil
}

// sniffHeader returns (name, price, category) column indexes when the first
// row looks like a header.
func sniffHeader(header []string) ([3]int, bool) {
	cols := [3]int{-1, -1, -1}
	matched := false
	for i, cell := range header {
		role, ok := csvColumns[strings.ToLower(strings.TrimSpace(cell))]
		if !ok {
			continue
		}
		matched = true
		switch role {
		case "name":
			if cols[0] < 0 {
				cols[0] = i
			}
		case "price":
			if cols[1] < 0 {
				cols[1] = i
			}
		case "category":
			if cols[2] < 0 {
				cols[2] = i
			}
		}
	}
	if !matched {
		return cols, false
	}
	if cols[0] < 0 {
		cols[0] = 0
	}
	return cols, true
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
