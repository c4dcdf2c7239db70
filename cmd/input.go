package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/carblue/pricing-cli/internal/catalog"
	"github.com/carblue/pricing-cli/internal/model"
)

type inputFlags struct {
	path      string
	sheet     string
	aggregate bool
}

// readRows imports a marketplace report and optionally merges duplicate SKUs.
func readRows(ctx context.Context, in inputFlags) ([]model.ProductRow, error) {
	sheet := in.sheet
	if sheet == "" {
		sheet = cfg.Import.Sheet
	}
	imp, err := catalog.Read(ctx, in.path, catalog.Options{Sheet: sheet})
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", in.path)
	}

	rows := imp.Rows
	if in.aggregate || cfg.Import.Aggregate {
		rows = catalog.Aggregate(rows)
	}

	zap.L().Info("catalog imported",
		zap.String("path", in.path),
		zap.Int("rows", len(rows)),
		zap.Int("skipped", len(imp.Skipped)),
	)
	if len(rows) == 0 {
		return nil, model.NewValidationError("input", "no usable rows in %s", in.path)
	}
	return rows, nil
}
