package scraper

import (
	"context"
	"time"

	"catercal/internal/browser"
	"catercal/logger"
	"catercal/pkg/errors"
)

// RowActionsConfig bounds the popup open/close state machine
type RowActionsConfig struct {
	MaxAttempts     int           // attempts to open or close before giving up
	GridTimeout     time.Duration // wait for the grid before touching a row
	RowTimeout      time.Duration // wait for the target row
	DropdownTimeout time.Duration // wait for the action dropdown
	ActionTimeout   time.Duration // wait for the action entry
	StepDelay       time.Duration // pause after clicks, scaled per step
}

func (c RowActionsConfig) withDefaults() RowActionsConfig {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.GridTimeout == 0 {
		c.GridTimeout = 20 * time.Second
	}
	if c.RowTimeout == 0 {
		c.RowTimeout = 15 * time.Second
	}
	if c.DropdownTimeout == 0 {
		c.DropdownTimeout = 8 * time.Second
	}
	if c.ActionTimeout == 0 {
		c.ActionTimeout = 5 * time.Second
	}
	if c.StepDelay == 0 {
		c.StepDelay = time.Second
	}
	return c
}

// RowActions opens and closes a row's detail popup. The dropdown menu is
// a known flakiness class: it intermittently fails to render on the
// first interaction, so every step runs inside a bounded retry loop with
// an Escape-based recovery between attempts.
type RowActions struct {
	d   browser.Driver
	cfg RowActionsConfig
	log *logger.Logger
}

// NewRowActions creates a row orchestrator over a frame-scoped driver
func NewRowActions(d browser.Driver, cfg RowActionsConfig) *RowActions {
	return &RowActions{
		d:   d,
		cfg: cfg.withDefaults(),
		log: logger.ForScraper(),
	}
}

// OpenRowDetail opens the detail popup of the given 1-based row by
// selecting the dropdown entry whose text matches actionLabel. A nil
// return means the popup's action was clicked; a UI error means the
// retry budget was exhausted and the row should be abandoned.
func (r *RowActions) OpenRowDetail(ctx context.Context, rowIndex int, actionLabel string) error {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		r.log.Debug().
			Int("attempt", attempt).
			Int("row", rowIndex).
			Msg("Opening row action menu")

		if err := r.openOnce(ctx, rowIndex, actionLabel); err == nil {
			return nil
		} else {
			lastErr = err
			r.log.Debug().
				Int("attempt", attempt).
				Int("row", rowIndex).
				Err(err).
				Msg("Row action attempt failed")
		}

		if attempt < r.cfg.MaxAttempts {
			if err := r.recover(ctx); err != nil {
				return err
			}
		}
	}
	return errors.NewUI("row-actions", "action menu never opened", lastErr)
}

func (r *RowActions) openOnce(ctx context.Context, rowIndex int, actionLabel string) error {
	if err := r.d.WaitVisible(ctx, selGridContent, r.cfg.GridTimeout); err != nil {
		return err
	}
	if err := r.d.Sleep(ctx, r.cfg.StepDelay); err != nil {
		return err
	}

	row := rowSelector(rowIndex)
	if err := r.d.WaitVisible(ctx, row, r.cfg.RowTimeout); err != nil {
		return err
	}
	if err := r.d.ScrollIntoView(ctx, row); err != nil {
		return err
	}
	if err := r.d.Sleep(ctx, r.cfg.StepDelay/2); err != nil {
		return err
	}

	if err := r.d.Click(ctx, actionButtonSelector(rowIndex)); err != nil {
		return err
	}
	if err := r.d.Sleep(ctx, r.cfg.StepDelay*3/2); err != nil {
		return err
	}

	if err := r.d.WaitVisible(ctx, selDropdown, r.cfg.DropdownTimeout); err != nil {
		return err
	}

	item := actionItemXPath(actionLabel)
	if err := r.d.WaitVisible(ctx, item, r.cfg.ActionTimeout); err != nil {
		return err
	}
	if err := r.d.Click(ctx, item); err != nil {
		// A second try after scrolling covers items rendered below the fold
		if err := r.d.ScrollIntoView(ctx, item); err != nil {
			return err
		}
		return r.d.Click(ctx, item)
	}
	return nil
}

// recover clears any partially-open menu before the next attempt
func (r *RowActions) recover(ctx context.Context) error {
	if err := r.d.Sleep(ctx, r.cfg.StepDelay*2); err != nil {
		return err
	}
	if err := r.d.PressEscape(ctx); err != nil {
		r.log.Debug().Err(err).Msg("Escape during recovery failed")
	}
	return r.d.Sleep(ctx, r.cfg.StepDelay)
}

// CloseDetail dismisses the detail popup. It tries the explicit close
// controls first and an Escape keypress second; "popup no longer
// present" counts as success regardless of which strategy fired.
func (r *RowActions) CloseDetail(ctx context.Context) {
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		clicked := false
		for _, sel := range closeSelectors {
			count, err := r.d.Count(ctx, sel)
			if err != nil || count == 0 {
				continue
			}
			if err := r.d.Click(ctx, sel); err != nil {
				continue
			}
			_ = r.d.Sleep(ctx, r.cfg.StepDelay)
			clicked = true
			break
		}
		if clicked {
			return
		}

		if err := r.d.PressEscape(ctx); err != nil {
			r.log.Debug().Int("attempt", attempt).Err(err).Msg("Escape close failed")
		}
		_ = r.d.Sleep(ctx, r.cfg.StepDelay)

		count, err := r.d.Count(ctx, selPopup)
		if err != nil || count == 0 {
			return
		}
	}

	// Last resort sweep; an ambiguous half-open popup poisons every
	// later row, so hammer Escape before returning.
	for i := 0; i < 3; i++ {
		_ = r.d.PressEscape(ctx)
		_ = r.d.Sleep(ctx, r.cfg.StepDelay/2)
	}
}
