package scraper

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"catercal/internal/browser"
	"catercal/logger"
	"catercal/pkg/errors"
)

// NavigatorConfig bounds the navigator's waits. Zero values fall back to
// the defaults the portal was tuned against.
type NavigatorConfig struct {
	GridTimeout   time.Duration // wait for the grid to render
	PagerTimeout  time.Duration // wait for the pager to render
	ConfirmWait   time.Duration // wait for page-selection state after a click
	SettleWait    time.Duration // generic network-settled fallback
	RetryAttempts int           // row-count attempts before structural failure
	RetryBackoff  time.Duration // wait between row-count attempts
}

func (c NavigatorConfig) withDefaults() NavigatorConfig {
	if c.GridTimeout == 0 {
		c.GridTimeout = 20 * time.Second
	}
	if c.PagerTimeout == 0 {
		c.PagerTimeout = 10 * time.Second
	}
	if c.ConfirmWait == 0 {
		c.ConfirmWait = 10 * time.Second
	}
	if c.SettleWait == 0 {
		c.SettleWait = 5 * time.Second
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = 2 * time.Second
	}
	return c
}

// Navigator discovers the grid's shape and advances its pagination
type Navigator struct {
	d   browser.Driver
	cfg NavigatorConfig
	log *logger.Logger
}

// NewNavigator creates a navigator over a frame-scoped driver
func NewNavigator(d browser.Driver, cfg NavigatorConfig) *Navigator {
	return &Navigator{
		d:   d,
		cfg: cfg.withDefaults(),
		log: logger.ForScraper(),
	}
}

var nonDigitRe = regexp.MustCompile(`[^\d]`)

// RowCount returns the number of data rows on the current page. It
// retries a bounded number of times with backoff; exhaustion is a
// structural failure and the caller must abandon the page.
func (n *Navigator) RowCount(ctx context.Context) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= n.cfg.RetryAttempts; attempt++ {
		count, err := n.rowCountOnce(ctx)
		if err == nil {
			return count, nil
		}
		lastErr = err
		n.log.Warn().
			Int("attempt", attempt).
			Err(err).
			Msg("Failed to get row count")
		if attempt < n.cfg.RetryAttempts {
			if err := n.d.Sleep(ctx, n.cfg.RetryBackoff); err != nil {
				return 0, err
			}
		}
	}
	return 0, errors.NewStructural("grid", "row count could not be determined", n.cfg.RetryAttempts, lastErr)
}

func (n *Navigator) rowCountOnce(ctx context.Context) (int, error) {
	if err := n.d.WaitVisible(ctx, selGridContent, n.cfg.GridTimeout); err != nil {
		return 0, err
	}
	return n.d.Count(ctx, selDataRows)
}

// PageInfo returns the current page number and the total page count.
// total is 0 when the pager exposes no numeric labels.
func (n *Navigator) PageInfo(ctx context.Context) (current, total int, err error) {
	if err := n.d.WaitVisible(ctx, selPagerRoot, n.cfg.PagerTimeout); err != nil {
		return 0, 0, errors.NewStructural("grid", "pager not visible", 1, err)
	}

	curText, err := n.d.Text(ctx, selSelectedPage)
	if err != nil {
		return 0, 0, errors.NewStructural("grid", "selected page not found", 1, err)
	}
	current, err = strconv.Atoi(nonDigitRe.ReplaceAllString(strings.TrimSpace(curText), ""))
	if err != nil {
		return 0, 0, errors.NewStructural("grid", "selected page label is not numeric", 1, err)
	}

	labels, err := n.d.TextAll(ctx, selPageButtons)
	if err != nil {
		return 0, 0, errors.NewStructural("grid", "page buttons not found", 1, err)
	}
	for _, label := range labels {
		if v, err := strconv.Atoi(strings.TrimSpace(label)); err == nil && v > total {
			total = v
		}
	}
	return current, total, nil
}

// Advance moves to the next page. It returns false, without clicking,
// when the current page is the last one. The transition is confirmed by
// the pager's selection state or by the first row's text changing; when
// neither is observed it falls back to a bounded network-settle wait.
func (n *Navigator) Advance(ctx context.Context) (bool, error) {
	current, total, err := n.PageInfo(ctx)
	if err != nil {
		return false, err
	}
	if total > 0 && current >= total {
		return false, nil
	}

	if err := n.d.WaitVisible(ctx, selFirstDataRow, n.cfg.PagerTimeout); err != nil {
		return false, errors.NewStructural("grid", "first row not visible before paging", 1, err)
	}
	before, err := n.d.Text(ctx, selFirstDataRow)
	if err != nil {
		return false, errors.NewStructural("grid", "first row unreadable before paging", 1, err)
	}

	target := current + 1
	if err := n.d.WaitVisible(ctx, pageButtonXPath(target), n.cfg.PagerTimeout); err != nil {
		return false, errors.NewUI("grid", "next page button not visible", err)
	}
	if err := n.d.Click(ctx, pageButtonXPath(target)); err != nil {
		return false, errors.NewUI("grid", "next page click failed", err)
	}

	// First-tier confirmation: pager selection moved to the target page
	if err := n.d.WaitVisible(ctx, selectedPageXPath(target), n.cfg.ConfirmWait); err != nil {
		n.log.Debug().Int("target", target).Msg("Page selection state not observed")
	}

	if err := n.d.WaitVisible(ctx, selFirstDataRow, n.cfg.PagerTimeout); err == nil {
		_ = n.d.Sleep(ctx, 300*time.Millisecond)
		if after, err := n.d.Text(ctx, selFirstDataRow); err == nil && after != before {
			return true, nil
		}
	}

	// Second-tier fallback: the grid repaints in place without a usable
	// signal, so settle on network quiescence.
	if err := n.d.WaitNetworkSettle(ctx, n.cfg.SettleWait); err != nil {
		return false, err
	}
	return true, nil
}
