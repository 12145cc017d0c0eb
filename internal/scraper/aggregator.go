package scraper

import (
	"context"
	"time"

	"catercal/internal/browser"
	"catercal/internal/order"
	"catercal/logger"
)

// AggregatorConfig shapes a full extraction run
type AggregatorConfig struct {
	// MaxOrders stops the run once this many orders were extracted;
	// 0 means no cutoff.
	MaxOrders int
	// StartFromRow is the 1-based row the first page starts at;
	// later pages always start at row 1.
	StartFromRow int
	// ActionLabel is the dropdown entry opening the detail popup
	ActionLabel string
	// PageDelay is the pause after a page transition
	PageDelay time.Duration
	// PopupDelay is the pause after opening a popup, before extraction
	PopupDelay time.Duration
}

func (c AggregatorConfig) withDefaults() AggregatorConfig {
	if c.StartFromRow == 0 {
		c.StartFromRow = 1
	}
	if c.ActionLabel == "" {
		c.ActionLabel = "View Order Text"
	}
	if c.PageDelay == 0 {
		c.PageDelay = 3 * time.Second
	}
	if c.PopupDelay == 0 {
		c.PopupDelay = 3 * time.Second
	}
	return c
}

// Aggregator drives the navigator, row orchestrator and extractor across
// all pages, assembling ordered, sequenced Order records. It owns the
// browser session for the run's duration and runs strictly one row at
// a time.
type Aggregator struct {
	d    browser.Driver
	nav  *Navigator
	rows *RowActions
	det  *Extractor
	cfg  AggregatorConfig
	log  *logger.Logger
}

// NewAggregator wires the extraction pipeline over a frame-scoped driver
func NewAggregator(d browser.Driver, nav *Navigator, rows *RowActions, det *Extractor, cfg AggregatorConfig) *Aggregator {
	return &Aggregator{
		d:    d,
		nav:  nav,
		rows: rows,
		det:  det,
		cfg:  cfg.withDefaults(),
		log:  logger.ForScraper(),
	}
}

// Run extracts orders from every page until the last page, a structural
// failure, or the configured cutoff. An order is kept only when it
// carries an identifier; its sequence number increases monotonically
// across the whole run, independent of page and row numbering.
func (a *Aggregator) Run(ctx context.Context) ([]order.Order, error) {
	var all []order.Order
	processed := 0
	page := 1

	a.log.Info().Msg("Starting order extraction")

	for {
		a.log.Info().Int("page", page).Msg("Processing page")

		if cur, total, err := a.nav.PageInfo(ctx); err == nil && total > 0 {
			a.log.Info().Int("current", cur).Int("total", total).Msg("Page position")
		}

		rowCount, err := a.nav.RowCount(ctx)
		if err != nil {
			// Continuing without knowing the grid's shape risks silent
			// data loss, so the run ends here.
			a.log.Warn().Err(err).Msg("Could not determine number of rows, skipping page")
			return all, nil
		}
		a.log.Info().Int("rows", rowCount).Msg("Found orders on this page")

		startRow := 1
		if page == 1 {
			startRow = a.cfg.StartFromRow
		}

		for row := startRow; row <= rowCount; row++ {
			if a.cfg.MaxOrders > 0 && processed >= a.cfg.MaxOrders {
				a.log.Info().Int("max", a.cfg.MaxOrders).Msg("Reached maximum orders limit")
				return all, nil
			}

			a.log.Info().
				Int("order", processed+1).
				Int("page", page).
				Int("row", row).
				Msg("Processing order")

			detail, err := a.extractRow(ctx, row)
			if err != nil {
				a.log.Warn().Int("row", row).Err(err).Msg("Failed to extract details for row")
				continue
			}
			if detail.ATGOrderID == "" {
				a.log.Warn().Int("row", row).Msg("Extracted detail carries no identifier, dropping")
				continue
			}

			processed++
			all = append(all, detail.ToOrder(page, row, processed))
			a.log.Info().Str("atg_order_id", detail.ATGOrderID).Msg("Successfully extracted order")
		}

		ok, err := a.nav.Advance(ctx)
		if err != nil {
			a.log.Warn().Err(err).Msg("Page advance failed, ending run")
			return all, nil
		}
		if !ok {
			a.log.Info().Msg("No more pages to process")
			break
		}
		page++
		if err := a.d.Sleep(ctx, a.cfg.PageDelay); err != nil {
			return all, err
		}
	}

	a.log.Info().Int("total", len(all)).Msg("Extraction complete")
	return all, nil
}

// extractRow opens one row's popup, extracts it and always attempts to
// close the popup again, leaving the grid ready for the next row.
func (a *Aggregator) extractRow(ctx context.Context, row int) (Detail, error) {
	// Clear any dialog a previous row left behind
	_ = a.d.PressEscape(ctx)
	_ = a.d.Sleep(ctx, 500*time.Millisecond)

	if err := a.rows.OpenRowDetail(ctx, row, a.cfg.ActionLabel); err != nil {
		return Detail{}, err
	}
	if err := a.d.Sleep(ctx, a.cfg.PopupDelay); err != nil {
		return Detail{}, err
	}

	detail, err := a.det.Extract(ctx)
	a.rows.CloseDetail(ctx)
	return detail, err
}
