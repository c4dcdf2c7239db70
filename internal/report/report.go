// Package report writes priced catalogs, ABC summaries and promotion
// templates as CSV or XLSX.
package report

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// FormatOf picks the format from a file extension. Unknown extensions are
// written as CSV.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return FormatXLSX
	case ".json":
		return FormatJSON
	default:
		return FormatCSV
	}
}

// Money is a value written with two decimals and a currency format.
type Money float64

// Percent is a percentage written with two decimals.
type Percent float64

// Table is one sheet of output. Cells hold string, int, float64, Money or
// Percent values.
type Table struct {
	Sheet  string
	Header []string
	Rows   [][]any
}

// Write writes tables to path in the format of its extension. An XLSX file
// gets one sheet per table. A CSV path receives the first table; further
// tables go next to it as <name>.<sheet>.csv.
func Write(path string, tables ...Table) error {
	if len(tables) == 0 {
		return eris.New("report: nothing to write")
	}
	switch FormatOf(path) {
	case FormatXLSX:
		return WriteXLSX(path, tables...)
	case FormatJSON:
		return eris.Errorf("report: %s: json output is written by the caller", path)
	}

	for i, t := range tables {
		p := path
		if i > 0 {
			ext := filepath.Ext(path)
			p = strings.TrimSuffix(path, ext) + "." + sheetFile(t.Sheet) + ext
		}
		if err := writeCSVFile(p, t); err != nil {
			return err
		}
	}
	return nil
}

func sheetFile(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func writeCSVFile(path string, t Table) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "report: create file")
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrap(err, "report: close file")
	}
	return nil
}

// WriteCSV writes t with a header row.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return eris.Wrap(err, "report: write header")
	}
	rec := make([]string, len(t.Header))
	for _, row := range t.Rows {
		rec = rec[:0]
		for _, v := range row {
			rec = append(rec, formatCell(v))
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrap(err, "report: write row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "report: flush csv")
	}
	return nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case Money:
		return strconv.FormatFloat(float64(x), 'f', 2, 64)
	case Percent:
		return strconv.FormatFloat(float64(x), 'f', 2, 64)
	case bool:
		if x {
			return "sim"
		}
		return "não"
	default:
		return ""
	}
}

// WriteXLSX writes each table to its own sheet with a styled header row.
func WriteXLSX(path string, tables ...Table) error {
	f := xlsx.NewFile()
	header := headerStyle()

	for _, t := range tables {
		sheet, err := f.AddSheet(t.Sheet)
		if err != nil {
			return eris.Wrapf(err, "report: add sheet %q", t.Sheet)
		}
		row := sheet.AddRow()
		for _, h := range t.Header {
			cell := row.AddCell()
			cell.SetString(h)
			cell.SetStyle(header)
		}
		for _, values := range t.Rows {
			row := sheet.AddRow()
			for _, v := range values {
				setCell(row.AddCell(), v)
			}
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "report: save xlsx")
	}
	return nil
}

func headerStyle() *xlsx.Style {
	s := xlsx.NewStyle()
	s.Font.Bold = true
	s.Font.Color = "FFFFFFFF"
	s.Fill = *xlsx.NewFill("solid", "FF1F4E78", "FF1F4E78")
	s.ApplyFont = true
	s.ApplyFill = true
	return s
}

func setCell(c *xlsx.Cell, v any) {
	switch x := v.(type) {
	case nil:
	case string:
		c.SetString(x)
	case int:
		c.SetInt(x)
	case float64:
		c.SetFloat(x)
	case Money:
		c.SetFloatWithFormat(float64(x), "#,##0.00")
	case Percent:
		c.SetFloatWithFormat(float64(x), "0.00")
	default:
		c.SetString(formatCell(v))
	}
}
