package catalog

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/carblue/pricing-cli/internal/model"
)

// Import is the outcome of reading one report.
type Import struct {
	Header  []string           `json:"header"`
	Layout  Layout             `json:"-"`
	Rows    []model.ProductRow `json:"rows"`
	Skipped []Skipped          `json:"skipped,omitempty"`
}

// Skipped is a record that could not be turned into a row. Line is 1-based
// and counts the header.
type Skipped struct {
	Line   int    `json:"line"`
	SKU    string `json:"sku,omitempty"`
	Reason string `json:"reason"`
}

// NumberStyle selects how a lone '.' in a number is read.
type NumberStyle int

const (
	// PointDecimal reads a lone '.' as the decimal separator.
	PointDecimal NumberStyle = iota
	// CommaDecimal follows pt-BR reports: a lone '.' followed by exactly
	// three digits groups thousands, so "1.234" is 1234.
	CommaDecimal
)

// Parse maps records to rows with PointDecimal numbers.
func Parse(records [][]string) (*Import, error) {
	return ParseStyle(records, PointDecimal)
}

// ParseStyle maps records to rows. The first record is the header. Blank
// records are ignored; records with an empty SKU or a malformed number are
// skipped.
func ParseStyle(records [][]string, style NumberStyle) (*Import, error) {
	if len(records) == 0 {
		return nil, model.NewValidationError("report", "is empty")
	}
	layout, err := MapHeader(records[0])
	if err != nil {
		return nil, err
	}

	imp := &Import{Header: records[0], Layout: layout}
	for i, rec := range records[1:] {
		line := i + 2
		if blank(rec) {
			continue
		}
		row, err := layout.row(rec, style)
		if err != nil {
			imp.Skipped = append(imp.Skipped, Skipped{Line: line, SKU: row.SKU, Reason: err.Error()})
			continue
		}
		imp.Rows = append(imp.Rows, row)
	}
	return imp, nil
}

func (l Layout) row(rec []string, style NumberStyle) (model.ProductRow, error) {
	row := model.ProductRow{
		SKU:         l.cell(rec, ColSKU),
		Description: l.cell(rec, ColDescription),
		Category:    l.cell(rec, ColCategory),
		AdTier:      model.ParseAdTier(l.cell(rec, ColAdTier)),
	}
	if row.SKU == "" {
		return row, eris.New("empty sku")
	}

	for _, f := range []struct {
		col Column
		dst *float64
	}{
		{ColUnitCost, &row.UnitCost},
		{ColShipping, &row.ShippingCost},
		{ColPrice, &row.Price},
		{ColUnits, &row.UnitsSold},
		{ColRevenue, &row.Revenue},
		{ColWeight, &row.WeightKg},
	} {
		v, err := ParseNumberStyle(l.cell(rec, f.col), style)
		if err != nil {
			return row, eris.Wrapf(err, "column %s", f.col)
		}
		*f.dst = v
	}
	return row, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseNumber reads a number written either way a Brazilian report writes
// it: "R$ 1.234,56", "1234.56", "12,5" or "15%". An empty cell is zero.
// When both separators appear, the last one is the decimal separator; a
// lone separator repeated more than once is a thousands separator. A single
// '.' is decimal; see ParseNumberStyle for reports that group with it.
func ParseNumber(s string) (float64, error) {
	return ParseNumberStyle(s, PointDecimal)
}

// ParseNumberStyle is ParseNumber with the reading of a lone '.' chosen by
// style.
func ParseNumberStyle(s string, style NumberStyle) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" || s == "-" {
		return 0, nil
	}

	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case dot >= 0 && strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	case dot >= 0 && style == CommaDecimal && groupsThousands(s, dot):
		s = strings.Replace(s, ".", "", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Errorf("catalog: malformed number %q", s)
	}
	return v, nil
}

// groupsThousands reports whether the '.' at dot separates a non-zero group
// of one to three digits from exactly three digits.
func groupsThousands(s string, dot int) bool {
	head := strings.TrimPrefix(s[:dot], "-")
	tail := s[dot+1:]
	return len(head) >= 1 && len(head) <= 3 && head[0] != '0' &&
		len(tail) == 3 && digits(head) && digits(tail)
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
