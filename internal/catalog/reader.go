package catalog

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// Options configures report reading.
type Options struct {
	// Sheet selects an XLSX sheet by name; the first sheet otherwise.
	Sheet string
	// Delimiter overrides CSV delimiter detection.
	Delimiter rune
}

// Read imports the report at path. The format follows the file extension:
// .xlsx is read as a workbook, anything else as delimited text.
// Semicolon-delimited reports read numbers with CommaDecimal.
func Read(ctx context.Context, path string, opts Options) (*Import, error) {
	var (
		records [][]string
		style   = PointDecimal
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		records, err = ReadXLSX(ctx, path, opts)
	default:
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "catalog: open file")
		}
		defer f.Close() //nolint:errcheck
		br := bufio.NewReader(f)
		if opts.Delimiter == 0 {
			opts.Delimiter = sniffDelimiter(br)
		}
		if opts.Delimiter == ';' {
			style = CommaDecimal
		}
		records, err = ReadCSV(ctx, br, opts)
	}
	if err != nil {
		return nil, err
	}

	imp, err := ParseStyle(records, style)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: %s", filepath.Base(path))
	}
	for _, s := range imp.Skipped {
		zap.L().Warn("catalog: skipped record",
			zap.String("file", filepath.Base(path)),
			zap.Int("line", s.Line),
			zap.String("sku", s.SKU),
			zap.String("reason", s.Reason),
		)
	}
	zap.L().Debug("catalog: report read",
		zap.String("file", filepath.Base(path)),
		zap.Int("rows", len(imp.Rows)),
		zap.Int("skipped", len(imp.Skipped)),
	)
	return imp, nil
}

// ReadCSV reads all records of a delimited report. Without an explicit
// delimiter, ';' is used when the header line has more semicolons than
// commas.
func ReadCSV(ctx context.Context, r io.Reader, opts Options) ([][]string, error) {
	br := bufio.NewReader(r)
	delim := opts.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(br)
	}

	reader := csv.NewReader(br)
	reader.Comma = delim
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true

	var records [][]string
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "catalog: context cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "catalog: read csv row")
		}
		records = append(records, record)
	}
}

func sniffDelimiter(br *bufio.Reader) rune {
	line, _ := br.Peek(4096)
	if i := strings.IndexByte(string(line), '\n'); i >= 0 {
		line = line[:i]
	}
	if strings.Count(string(line), ";") > strings.Count(string(line), ",") {
		return ';'
	}
	return ','
}

// ReadXLSX reads all rows of one sheet of a workbook.
func ReadXLSX(ctx context.Context, path string, opts Options) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: open xlsx")
	}
	sheet, err := getSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}

	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "catalog: context cancelled")
		}
		if row == nil {
			records = append(records, nil)
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		records = append(records, cells)
	}
	return records, nil
}

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("catalog: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("catalog: workbook has no sheets")
	}
	return f.Sheets[0], nil
}
