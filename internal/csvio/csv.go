// Package csvio parses and renders the product import/export CSV format.
//
// The parser works line by line instead of on the whole stream so every
// reported problem carries the 1-based physical line number the user sees
// in their spreadsheet. Quoted fields with doubled-quote escapes are
// supported and may span lines; a record is reported under the physical
// line it starts on.
package csvio

import (
	"fmt"
	"strconv"
	"strings"

	"catadmin/internal/models"
)

// Row is one data line with its raw field values. Validation and type
// conversion happen in the import preview, not here.
type Row struct {
	Line          int
	Name          string
	Price         string
	SKU           string
	Description   string
	StockQuantity string
	CategoryID    string
	CategoryName  string
}

// Header aliases accepted for each logical column.
var columnAliases = map[string]string{
	"name":           "name",
	"price":          "price",
	"sku":            "sku",
	"description":    "description",
	"stock_quantity": "stock_quantity",
	"stock":          "stock_quantity",
	"category_id":    "category_id",
	"category_name":  "category_name",
	"category":       "category_name",
}

// Parse splits text into rows. Structural problems (bad header, wrong
// field count, unterminated quote) are returned as "Row N: ..." strings;
// parsing continues past them so one bad line does not hide the rest.
func Parse(text string) ([]Row, []string) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	headerLine := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			headerLine = i
			break
		}
	}
	if headerLine == -1 {
		return nil, []string{"file is empty"}
	}

	headerFields, err := splitFields(lines[headerLine])
	if err != nil {
		return nil, []string{fmt.Sprintf("Row %d: %v", headerLine+1, err)}
	}
	columns := make([]string, len(headerFields))
	seen := map[string]bool{}
	for i, h := range headerFields {
		name := columnAliases[strings.ToLower(strings.TrimSpace(h))]
		columns[i] = name
		if name != "" {
			seen[name] = true
		}
	}
	if !seen["name"] || !seen["price"] {
		return nil, []string{"header must include name and price columns"}
	}

	var rows []Row
	var errs []string
	for i := headerLine + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		lineNo := i + 1
		record := lines[i]
		// A quote left open means the field continues on the next
		// physical line; fold lines until it closes.
		for openQuote(record) && i+1 < len(lines) {
			i++
			record += "\n" + lines[i]
		}
		fields, err := splitFields(record)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Row %d: %v", lineNo, err))
			continue
		}
		if len(fields) != len(columns) {
			errs = append(errs, fmt.Sprintf("Row %d: expected %d fields, got %d", lineNo, len(columns), len(fields)))
			continue
		}
		row := Row{Line: lineNo}
		for j, value := range fields {
			value = strings.TrimSpace(value)
			switch columns[j] {
			case "name":
				row.Name = value
			case "price":
				row.Price = value
			case "sku":
				row.SKU = value
			case "description":
				row.Description = value
			case "stock_quantity":
				row.StockQuantity = value
			case "category_id":
				row.CategoryID = value
			case "category_name":
				row.CategoryName = value
			}
		}
		rows = append(rows, row)
	}
	return rows, errs
}

// splitFields splits one record on commas, honoring double quotes with
// "" as the escape for a literal quote.
func splitFields(line string) ([]string, error) {
	var fields []string
	var field strings.Builder
	inQuotes := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case inQuotes && ch == '"':
			if i+1 < len(line) && line[i+1] == '"' {
				field.WriteByte('"')
				i++
			} else {
				inQuotes = false
			}
		case inQuotes:
			field.WriteByte(ch)
		case ch == '"':
			inQuotes = true
		case ch == ',':
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteByte(ch)
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quoted field")
	}
	fields = append(fields, field.String())
	return fields, nil
}

// openQuote reports whether s ends inside an unclosed quoted field.
func openQuote(s string) bool {
	inQuotes := false
	for i := 0; i < len(s); i++ {
		if s[i] != '"' {
			continue
		}
		if inQuotes && i+1 < len(s) && s[i+1] == '"' {
			i++
			continue
		}
		inQuotes = !inQuotes
	}
	return inQuotes
}

// WriteProducts renders products in the export format, which round-trips
// through Parse.
func WriteProducts(products []*models.ProductWithCategory) string {
	var b strings.Builder
	b.WriteString("sku,name,description,price,category_name,stock_quantity\n")
	for _, p := range products {
		sku := ""
		if p.SKU != nil {
			sku = *p.SKU
		}
		description := ""
		if p.Description != nil {
			description = *p.Description
		}
		b.WriteString(strings.Join([]string{
			quoteField(sku),
			quoteField(p.Name),
			quoteField(description),
			strconv.FormatFloat(p.Price, 'f', 2, 64),
			quoteField(p.CategoryName),
			strconv.Itoa(p.StockQuantity),
		}, ","))
		b.WriteByte('\n')
	}
	return b.String()
}

func quoteField(value string) string {
	if strings.ContainsAny(value, ",\"\n") {
		return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
	}
	return value
}
