// Package engine runs pricing batches: every row is priced in parallel,
// then the whole catalog is ranked by revenue in one pass.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/carblue/pricing-cli/internal/abc"
	"github.com/carblue/pricing-cli/internal/category"
	"github.com/carblue/pricing-cli/internal/commission"
	"github.com/carblue/pricing-cli/internal/config"
	"github.com/carblue/pricing-cli/internal/feetable"
	"github.com/carblue/pricing-cli/internal/margin"
	"github.com/carblue/pricing-cli/internal/model"
)

// Observer receives batch events. Implementations must be safe for
// concurrent use.
type Observer interface {
	RowPriced(marketplace string, status model.HealthStatus)
	RowFailed(marketplace string)
	Fallback(marketplace, kind string)
	BatchDone(marketplace string, rows int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) RowPriced(string, model.HealthStatus) {}
func (nopObserver) RowFailed(string)                     {}
func (nopObserver) Fallback(string, string)              {}
func (nopObserver) BatchDone(string, int, time.Duration) {}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver reports batch events to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.obs = o }
}

// WithGuesser fills empty row categories with g before pricing.
func WithGuesser(g category.Guesser) Option {
	return func(e *Engine) { e.guesser = g }
}

// Engine prices catalogs against one configuration and fee catalog. It keeps
// no state between calls.
type Engine struct {
	cfg         *config.Config
	catalog     *feetable.Catalog
	rules       *commission.Rules
	calc        *margin.Calculator
	classifier  *abc.Classifier
	obs         Observer
	guesser     category.Guesser
	concurrency int
}

// New builds an Engine. A nil catalog selects the built-in fee snapshot.
func New(cfg *config.Config, cat *feetable.Catalog, opts ...Option) (*Engine, error) {
	if cat == nil {
		cat = feetable.Default()
	}
	classifier, err := abc.NewClassifier(abc.Limits{A: cfg.ABC.A, B: cfg.ABC.B, C: cfg.ABC.C})
	if err != nil {
		return nil, eris.Wrap(err, "engine: abc limits")
	}
	rules := commission.NewRules(cat, cfg.Marketplaces)
	e := &Engine{
		cfg:         cfg,
		catalog:     cat,
		rules:       rules,
		calc:        margin.NewCalculator(rules),
		classifier:  classifier,
		obs:         nopObserver{},
		concurrency: max(cfg.Engine.Concurrency, 1),
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// LoadCatalog returns the fee snapshot at path, or the built-in snapshot
// when path is empty.
func LoadCatalog(path string) (*feetable.Catalog, error) {
	if path == "" {
		return feetable.Default(), nil
	}
	return feetable.LoadCatalog(path)
}

// Catalog returns the fee catalog in use.
func (e *Engine) Catalog() *feetable.Catalog { return e.catalog }

// Request selects the marketplace, tax regime and cost parameters of a call.
type Request struct {
	Marketplace string        `json:"marketplace"`
	Regime      string        `json:"regime"`
	Params      margin.Params `json:"-"`
}

// DefaultRequest builds a Request from the pricing section of the config.
func (e *Engine) DefaultRequest() Request {
	return Request{
		Marketplace: e.cfg.Pricing.Marketplace,
		Regime:      e.cfg.Pricing.Regime,
		Params:      margin.ParamsFromConfig(e.cfg.Pricing),
	}
}

func (e *Engine) resolve(req Request) (config.MarketplaceConfig, config.TaxRegimeConfig, error) {
	m, ok := e.cfg.Marketplace(req.Marketplace)
	if !ok {
		return m, config.TaxRegimeConfig{}, eris.Wrapf(model.ErrUnknownMarketplace, "engine: %q", req.Marketplace)
	}
	r, ok := e.cfg.Regime(req.Regime)
	if !ok {
		return m, r, eris.Wrapf(model.ErrUnknownRegime, "engine: %q", req.Regime)
	}
	return m, r, nil
}

// Batch is the outcome of pricing a catalog.
type Batch struct {
	ID          string             `json:"id"`
	Marketplace string             `json:"marketplace"`
	Regime      string             `json:"regime"`
	FeeVersion  string             `json:"fee_version"`
	Rows        []model.PricedRow  `json:"rows"`
	Failures    []model.RowFailure `json:"failures,omitempty"`
	Summary     []abc.TierSummary  `json:"summary,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	Elapsed     time.Duration      `json:"elapsed"`
}

// PriceCatalog prices every row, isolates failing rows into
// Batch.Failures and ranks the priced rows by revenue. Rows keep their input
// order.
func (e *Engine) PriceCatalog(ctx context.Context, rows []model.ProductRow, req Request) (*Batch, error) {
	if len(rows) == 0 {
		return nil, model.NewValidationError("catalog", "is empty")
	}
	market, regime, err := e.resolve(req)
	if err != nil {
		return nil, err
	}

	batch := &Batch{
		ID:          uuid.NewString(),
		Marketplace: market.Slug,
		Regime:      regime.Slug,
		FeeVersion:  e.catalog.Version(),
		StartedAt:   time.Now(),
	}
	log := zap.L().With(zap.String("batch", batch.ID), zap.String("marketplace", market.Slug), zap.Int("rows", len(rows)))
	log.Debug("engine: pricing batch")

	priced := make([]model.PricedRow, len(rows))
	errs := make([]error, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, row := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			priced[i], errs[i] = e.computeRow(e.prepare(row), market, regime, req.Params)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "engine: price batch")
	}

	batch.Rows = make([]model.PricedRow, 0, len(rows))
	for i, err := range errs {
		if err != nil {
			log.Warn("engine: row failed", zap.Int("index", i), zap.String("sku", rows[i].SKU), zap.Error(err))
			e.obs.RowFailed(market.Slug)
			batch.Failures = append(batch.Failures, model.RowFailure{Index: i, SKU: rows[i].SKU, Error: err.Error()})
			continue
		}
		for _, fb := range priced[i].Fallbacks {
			kind, detail := margin.FallbackKind(fb)
			log.Warn("engine: bracket fallback", zap.String("sku", rows[i].SKU), zap.String("kind", kind), zap.String("table", detail))
			e.obs.Fallback(market.Slug, kind)
		}
		batch.Rows = append(batch.Rows, priced[i])
	}

	if len(batch.Rows) > 0 {
		tiers, err := e.classifier.Assign(abc.ItemsFromRows(batch.Rows))
		if err != nil {
			return nil, eris.Wrap(err, "engine: classify")
		}
		for i := range batch.Rows {
			batch.Rows[i] = batch.Rows[i].WithTier(tiers[i])
			e.obs.RowPriced(market.Slug, batch.Rows[i].Status)
		}
		batch.Summary = abc.Summarize(batch.Rows)
	}

	batch.Elapsed = time.Since(batch.StartedAt)
	e.obs.BatchDone(market.Slug, len(rows), batch.Elapsed)
	log.Info("engine: batch priced",
		zap.Int("priced", len(batch.Rows)),
		zap.Int("failed", len(batch.Failures)),
		zap.Duration("elapsed", batch.Elapsed))
	return batch, nil
}

// ComputeRow prices a single row under req.
func (e *Engine) ComputeRow(row model.ProductRow, req Request) (model.PricedRow, error) {
	market, regime, err := e.resolve(req)
	if err != nil {
		return model.PricedRow{}, err
	}
	return e.computeRow(e.prepare(row), market, regime, req.Params)
}

func (e *Engine) computeRow(row model.ProductRow, market config.MarketplaceConfig, regime config.TaxRegimeConfig, p margin.Params) (model.PricedRow, error) {
	return e.calc.ComputeRow(row, market, regime, p)
}

func (e *Engine) prepare(row model.ProductRow) model.ProductRow {
	if e.guesser != nil && row.Category == "" {
		if c, ok := e.guesser.Guess(row.Description); ok {
			row.Category = c
		}
	}
	return row
}

// Classify ranks arbitrary (id, revenue) pairs with the configured limits.
func (e *Engine) Classify(items []abc.Item) ([]abc.Ranked, error) {
	return e.classifier.Rank(items)
}

// Limits returns the ABC limits in use.
func (e *Engine) Limits() abc.Limits { return e.classifier.Limits() }
