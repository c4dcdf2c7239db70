package report

import (
	"sort"
	"strings"

	"github.com/carblue/pricing-cli/internal/abc"
	"github.com/carblue/pricing-cli/internal/model"
	"github.com/carblue/pricing-cli/internal/promotion"
	"github.com/carblue/pricing-cli/internal/solver"
)

var statusLabels = map[model.HealthStatus]string{
	model.StatusHealthy: "Saudável",
	model.StatusWarning: "Alerta",
	model.StatusLoss:    "Prejuízo",
}

// StatusLabel is the report label of a health status.
func StatusLabel(s model.HealthStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// PricedRows lays out priced rows. The identifying columns use labels the
// catalog importer recognizes, so an export can be read back as input.
func PricedRows(rows []model.PricedRow) Table {
	t := Table{
		Sheet: "Precificação",
		Header: []string{
			"SKU", "Título", "Categoria", "Tipo de Anúncio", "Peso (kg)",
			"Custo", "Frete", "Preço",
			"Comissão %", "Comissão", "Tarifa Fixa", "Subsídio Frete", "Crédito",
			"Impostos", "Anúncios", "Devoluções", "Custo Fixo Operacional",
			"Lucro Bruto", "Margem Bruta %", "Lucro Líquido", "Margem Líquida %",
			"Desconto Máximo %", "Status", "Curva ABC", "Quantidade", "Faturamento", "Alertas",
		},
		Rows: make([][]any, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.SKU, r.Description, r.Category, string(r.AdTier), r.WeightKg,
			Money(r.UnitCost), Money(r.ShippingCost), Money(r.Price),
			Percent(r.CommissionRate * 100), Money(r.CommissionValue), Money(r.FixedFee), Money(r.ShippingSubsidy), Money(r.CreditValue),
			Money(r.TaxValue), Money(r.AdValue), Money(r.ReturnValue), Money(r.FixedOperatingCost),
			Money(r.GrossProfit), Percent(r.GrossMarginPct), Money(r.NetProfit), Percent(r.NetMarginPct),
			Percent(r.MaxDiscountPct), StatusLabel(r.Status), string(r.Tier), r.UnitsSold, Money(r.SalesRevenue()),
			strings.Join(r.Fallbacks, "; "),
		})
	}
	return t
}

// Failures lays out rows the engine rejected.
func Failures(failures []model.RowFailure) Table {
	t := Table{Sheet: "Erros", Header: []string{"Linha", "SKU", "Erro"}}
	for _, f := range failures {
		t.Rows = append(t.Rows, []any{f.Index + 1, f.SKU, f.Error})
	}
	return t
}

// Ranking lays out an ABC ranking.
func Ranking(ranked []abc.Ranked) Table {
	t := Table{
		Sheet:  "Curva ABC",
		Header: []string{"Posição", "SKU", "Faturamento", "Participação %", "Acumulado %", "Curva ABC"},
	}
	for _, r := range ranked {
		var rank any
		if r.Rank > 0 {
			rank = r.Rank
		}
		t.Rows = append(t.Rows, []any{
			rank, r.ID, Money(r.Revenue), Percent(r.Share * 100), Percent(r.CumulativeShare * 100), string(r.Tier),
		})
	}
	return t
}

// Summary lays out per-tier totals.
func Summary(summary []abc.TierSummary) Table {
	t := Table{
		Sheet:  "Resumo",
		Header: []string{"Curva ABC", "Produtos", "Faturamento", "Participação %", "Preço Médio", "Unidades"},
	}
	for _, s := range summary {
		t.Rows = append(t.Rows, []any{
			string(s.Tier), s.Count, Money(s.Revenue), Percent(s.Share * 100), Money(s.AvgPrice), s.Units,
		})
	}
	return t
}

// Quotation lays out a solver quotation.
func Quotation(q solver.Quotation) Table {
	t := Table{
		Sheet:  "Simulação",
		Header: []string{"Cenário", "Preço", "Lucro", "Margem %", "Viável", "Motivo"},
	}
	for _, s := range []struct {
		name string
		r    solver.Result
	}{
		{"Preço sugerido", q.Suggested},
		{"Preço mínimo promocional", q.Floor},
	} {
		t.Rows = append(t.Rows, []any{s.name, Money(s.r.Price), Money(s.r.Profit), Percent(s.r.MarginPct), s.r.Feasible, string(s.r.Reason)})
	}
	return t
}

// Suggestion is the solved price pair of one catalog row.
type Suggestion struct {
	SKU          string           `json:"sku"`
	Description  string           `json:"description,omitempty"`
	CurrentPrice float64          `json:"current_price"`
	Quote        solver.Quotation `json:"quote"`
}

// Suggestions lays out per-row suggested and floor prices. Infeasible
// targets leave the price cell empty.
func Suggestions(s []Suggestion) Table {
	t := Table{
		Sheet: "Sugestões",
		Header: []string{
			"SKU", "Título", "Preço Atual", "Preço Sugerido", "Margem Sugerida %",
			"Preço Mínimo", "Margem Mínima %", "Motivo",
		},
	}
	price := func(r solver.Result) any {
		if !r.Feasible {
			return nil
		}
		return Money(r.Price)
	}
	for _, x := range s {
		reason := x.Quote.Suggested.Reason
		if reason == "" {
			reason = x.Quote.Floor.Reason
		}
		t.Rows = append(t.Rows, []any{
			x.SKU, x.Description, Money(x.CurrentPrice),
			price(x.Quote.Suggested), Percent(x.Quote.Suggested.MarginPct),
			price(x.Quote.Floor), Percent(x.Quote.Floor.MarginPct),
			string(reason),
		})
	}
	return t
}

// Impact lays out the aggregate effect of a promotion.
func Impact(imp promotion.Impact) Table {
	t := Table{
		Sheet:  "Impacto",
		Header: []string{"Métrica", "Valor"},
		Rows: [][]any{
			{"Total de produtos", imp.ItemCount},
			{"Desconto total", Money(imp.TotalDiscount)},
			{"Desconto médio por produto", Money(imp.AvgDiscount)},
			{"Desconto médio %", Percent(imp.AvgDiscountPct)},
			{"Preço médio original", Money(imp.AvgOriginalPrice)},
			{"Preço médio com desconto", Money(imp.AvgDiscountedPrice)},
			{"Produtos abaixo do piso", imp.UnsafeCount},
		},
	}
	for _, ti := range imp.ByTier {
		t.Rows = append(t.Rows, []any{"Desconto total curva " + string(ti.Tier), Money(ti.TotalDiscount)})
	}
	return t
}

// Template is a marketplace's promotion upload layout: each column takes a
// field of the discounted row, or stays empty.
type Template struct {
	Name    string
	Columns []TemplateColumn
}

// TemplateColumn is one column of a Template. A nil Value leaves the column
// empty.
type TemplateColumn struct {
	Header string
	Value  func(promotion.Discounted) any
}

func sku(d promotion.Discounted) any         { return d.SKU }
func description(d promotion.Discounted) any { return d.Description }
func original(d promotion.Discounted) any    { return Money(d.OriginalPrice) }
func discounted(d promotion.Discounted) any  { return Money(d.DiscountedPrice) }

// ShopeeTemplate is the Shopee bulk discount upload layout.
var ShopeeTemplate = Template{
	Name: "shopee",
	Columns: []TemplateColumn{
		{"ID do produto", sku},
		{"Nome do Produto. (Opcional)", description},
		{"Nº de Ref. Parent SKU. (Opcional)", nil},
		{"ID de variação", sku},
		{"Variação de nome. (Opcional)", nil},
		{"Nº de Ref. SKU. (Opcional)", sku},
		{"Preço original (opcional)", original},
		{"Preço de desconto", discounted},
		{"Limite de compra (Opcional)", nil},
	},
}

// DetailTemplate lists every discounted row with its floor and safety flag.
var DetailTemplate = Template{
	Name: "detalhe",
	Columns: []TemplateColumn{
		{"SKU", sku},
		{"Título", description},
		{"Curva ABC", func(d promotion.Discounted) any { return string(d.Tier) }},
		{"Status", func(d promotion.Discounted) any { return StatusLabel(d.Status) }},
		{"Preço original", original},
		{"Preço com desconto", discounted},
		{"Desconto", func(d promotion.Discounted) any { return Money(d.DiscountAmount) }},
		{"Desconto %", func(d promotion.Discounted) any { return Percent(d.DiscountPct) }},
		{"Desconto Máximo %", func(d promotion.Discounted) any { return Percent(d.MaxDiscountPct) }},
		{"Preço mínimo", func(d promotion.Discounted) any { return Money(d.FloorPrice) }},
		{"Seguro", func(d promotion.Discounted) any { return d.Safe }},
	},
}

var templates = map[string]Template{
	ShopeeTemplate.Name: ShopeeTemplate,
	DetailTemplate.Name: DetailTemplate,
}

// TemplateNames lists the registered promotion templates.
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for n := range templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LookupTemplate returns a registered template by name.
func LookupTemplate(name string) (Template, bool) {
	t, ok := templates[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Promotion lays out discounted rows with tmpl.
func Promotion(rows []promotion.Discounted, tmpl Template) Table {
	t := Table{Sheet: "Promoções", Header: make([]string, len(tmpl.Columns))}
	for i, c := range tmpl.Columns {
		t.Header[i] = c.Header
	}
	for _, d := range rows {
		values := make([]any, len(tmpl.Columns))
		for i, c := range tmpl.Columns {
			if c.Value != nil {
				values[i] = c.Value(d)
			}
		}
		t.Rows = append(t.Rows, values)
	}
	return t
}
