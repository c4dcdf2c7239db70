package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/carblue/pricing-cli/internal/abc"
	"github.com/carblue/pricing-cli/internal/catalog"
	"github.com/carblue/pricing-cli/internal/model"
	"github.com/carblue/pricing-cli/internal/promotion"
	"github.com/carblue/pricing-cli/internal/solver"
)

func pricedRows() []model.PricedRow {
	return []model.PricedRow{
		{
			ProductRow:   model.ProductRow{SKU: "A1", Description: "Teclado, ABNT2", UnitCost: 30, ShippingCost: 5, Price: 99.9, UnitsSold: 10, Category: "Informática"},
			NetProfit:    20.5,
			NetMarginPct: 20.52,
			Status:       model.StatusWarning,
			Tier:         model.TierA,
			Fallbacks:    []string{"weight:ml"},
		},
		{
			ProductRow: model.ProductRow{SKU: "B2", Price: 10, UnitsSold: 1},
			Status:     model.StatusLoss,
			Tier:       model.TierC,
		},
	}
}

func TestFormatOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, FormatXLSX, FormatOf("out.XLSX"))
	assert.Equal(t, FormatJSON, FormatOf("a/b.json"))
	assert.Equal(t, FormatCSV, FormatOf("out.csv"))
	assert.Equal(t, FormatCSV, FormatOf("out"))
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := WriteCSV(&buf, Table{
		Header: []string{"a", "b", "c", "d", "e", "f"},
		Rows:   [][]any{{"x,y", 3, Money(1.005), Percent(12.346), true, nil}},
	})
	require.NoError(t, err)
	assert.Equal(t, "a,b,c,d,e,f\n\"x,y\",3,1.00,12.35,sim,\n", buf.String())
}

func TestPricedRowsRoundTripThroughImport(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "precos.csv")
	require.NoError(t, Write(path, PricedRows(pricedRows())))

	imp, err := catalog.Read(context.Background(), path, catalog.Options{})
	require.NoError(t, err)
	require.Len(t, imp.Rows, 2)
	assert.Empty(t, imp.Skipped)

	got := imp.Rows[0]
	assert.Equal(t, "A1", got.SKU)
	assert.Equal(t, "Teclado, ABNT2", got.Description)
	assert.Equal(t, "Informática", got.Category)
	assert.InDelta(t, 30, got.UnitCost, 1e-9)
	assert.InDelta(t, 5, got.ShippingCost, 1e-9)
	assert.InDelta(t, 99.9, got.Price, 1e-9)
	assert.InDelta(t, 10, got.UnitsSold, 1e-9)
	assert.InDelta(t, 999, got.Revenue, 1e-9)
}

func TestWriteCSVExtraTables(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "precos.csv")
	summary := Summary([]abc.TierSummary{{Tier: model.TierA, Count: 1, Revenue: 999, Share: 1}})

	require.NoError(t, Write(path, PricedRows(pricedRows()), summary))
	_, err := os.Stat(path)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "precos.resumo.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "A,1,999.00,100.00")
}

func TestWriteErrors(t *testing.T) {
	t.Parallel()
	assert.Error(t, Write(filepath.Join(t.TempDir(), "x.csv")))
	assert.Error(t, Write(filepath.Join(t.TempDir(), "x.json"), Table{}))
	assert.Error(t, Write(filepath.Join(t.TempDir(), "missing", "x.csv"), Table{}))
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "precos.xlsx")
	require.NoError(t, Write(path, PricedRows(pricedRows()), Failures([]model.RowFailure{{Index: 3, SKU: "Z", Error: "bad"}})))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)

	sheet := f.Sheet["Precificação"]
	require.NotNil(t, sheet)
	assert.Equal(t, "SKU", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "A1", sheet.Rows[1].Cells[0].String())
	price, err := sheet.Rows[1].Cells[7].Float()
	require.NoError(t, err)
	assert.InDelta(t, 99.9, price, 1e-9)

	errs := f.Sheet["Erros"]
	require.NotNil(t, errs)
	assert.Equal(t, "4", errs.Rows[1].Cells[0].String())

	imp, err := catalog.Read(context.Background(), path, catalog.Options{Sheet: "Precificação"})
	require.NoError(t, err)
	assert.Len(t, imp.Rows, 2)
}

func TestPricedRowsLayout(t *testing.T) {
	t.Parallel()
	tbl := PricedRows(pricedRows())
	require.Len(t, tbl.Rows, 2)
	for _, r := range tbl.Rows {
		assert.Len(t, r, len(tbl.Header))
	}
	idx := func(h string) int {
		for i, x := range tbl.Header {
			if x == h {
				return i
			}
		}
		t.Fatalf("no column %s", h)
		return -1
	}
	assert.Equal(t, "Alerta", tbl.Rows[0][idx("Status")])
	assert.Equal(t, "A", tbl.Rows[0][idx("Curva ABC")])
	assert.Equal(t, "weight:ml", tbl.Rows[0][idx("Alertas")])
	assert.Equal(t, Money(999), tbl.Rows[0][idx("Faturamento")])
}

func TestRanking(t *testing.T) {
	t.Parallel()
	tbl := Ranking([]abc.Ranked{
		{Item: abc.Item{ID: "x", Revenue: 80}, Rank: 1, Share: 0.8, CumulativeShare: 0.8, Tier: model.TierA},
		{Item: abc.Item{ID: "y"}, Tier: model.TierUnclassified},
	})
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, 1, tbl.Rows[0][0])
	assert.Equal(t, Percent(80), tbl.Rows[0][3])
	assert.Nil(t, tbl.Rows[1][0])
}

func TestQuotation(t *testing.T) {
	t.Parallel()
	q := solver.Quote(solver.Input{DirectCost: 25, FixedFee: 6, VariableRate: 0.29, TargetMarginPct: 30}, 10)
	tbl := Quotation(q)
	require.Len(t, tbl.Rows, 2)
	assert.InDelta(t, 75.61, float64(tbl.Rows[0][1].(Money)), 0.01)
	assert.Equal(t, true, tbl.Rows[0][4])
}

func TestSuggestionsLeaveInfeasiblePriceEmpty(t *testing.T) {
	t.Parallel()
	q := solver.Quote(solver.Input{DirectCost: 10, VariableRate: 0.8, TargetMarginPct: 30}, 10)
	tbl := Suggestions([]Suggestion{{SKU: "X", CurrentPrice: 50, Quote: q}})
	require.Len(t, tbl.Rows, 1)
	row := tbl.Rows[0]
	assert.Nil(t, row[3])
	assert.InDelta(t, 100, float64(row[5].(Money)), 0.01)
	assert.Equal(t, string(solver.ReasonInfeasible), row[7])

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))
	assert.Contains(t, buf.String(), "X,,50.00,,")
}

func TestPromotionTemplates(t *testing.T) {
	t.Parallel()
	res, err := promotion.Apply(pricedRows(), 0.10, nil)
	require.NoError(t, err)

	shopee := Promotion(res.Rows, ShopeeTemplate)
	require.Len(t, shopee.Header, 9)
	assert.Equal(t, "Preço de desconto", shopee.Header[7])
	require.Len(t, shopee.Rows, 2)
	row := shopee.Rows[0]
	assert.Equal(t, "A1", row[0])
	assert.Equal(t, "Teclado, ABNT2", row[1])
	assert.Nil(t, row[2])
	assert.Equal(t, "A1", row[3])
	assert.Equal(t, Money(99.9), row[6])
	assert.Equal(t, Money(89.91), row[7])

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, shopee))
	assert.Contains(t, buf.String(), "A1,\"Teclado, ABNT2\",,A1,,A1,99.90,89.91,\n")

	detail := Promotion(res.Rows, DetailTemplate)
	assert.Len(t, detail.Rows[0], len(DetailTemplate.Columns))

	impact := Impact(res.Impact)
	assert.Equal(t, 2, impact.Rows[0][1])
}

func TestLookupTemplate(t *testing.T) {
	t.Parallel()
	tmpl, ok := LookupTemplate(" Shopee ")
	require.True(t, ok)
	assert.Equal(t, "shopee", tmpl.Name)
	_, ok = LookupTemplate("ebay")
	assert.False(t, ok)
	assert.Equal(t, []string{"detalhe", "shopee"}, TemplateNames())
}

func TestStatusLabel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Saudável", StatusLabel(model.StatusHealthy))
	assert.Equal(t, "Prejuízo", StatusLabel(model.StatusLoss))
	assert.Equal(t, "odd", StatusLabel("odd"))
}
