package scraper

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// fakePage scripts one grid page for the fake driver
type fakePage struct {
	rows   []string       // first-cell text per data row
	popups map[int]string // 1-based row index -> popup markup
}

// fakeDriver implements browser.Driver against scripted pages. It
// records clicks and escapes so tests can assert on the interaction
// sequence, and can be told to fail the action button a number of times
// to exercise the retry paths.
type fakeDriver struct {
	pages []fakePage
	cur   int // 0-based current page

	clicks  []string
	escapes int
	settles int

	menuOpen  bool
	menuRow   int
	popupOpen bool
	popupHTML string

	// remaining action-button failures per row, keyed by row index
	actionFailures map[int]int
	// remaining grid-visibility failures (forces RowCount retries)
	gridFailures int
	// whether the popup has an explicit close control
	hasCloseButton bool
}

func newFakeDriver(pages ...fakePage) *fakeDriver {
	return &fakeDriver{
		pages:          pages,
		actionFailures: make(map[int]int),
		hasCloseButton: true,
	}
}

func (f *fakeDriver) page() fakePage {
	return f.pages[f.cur]
}

func (f *fakeDriver) Navigate(ctx context.Context, url string) error { return nil }

func (f *fakeDriver) Fill(ctx context.Context, selector, value string) error { return nil }

func (f *fakeDriver) Click(ctx context.Context, selector string) error {
	f.clicks = append(f.clicks, selector)

	for n := 1; n <= len(f.pages); n++ {
		if selector == pageButtonXPath(n) {
			f.cur = n - 1
			return nil
		}
	}

	for row := 1; row <= len(f.page().rows); row++ {
		if selector == actionButtonSelector(row) {
			if f.actionFailures[row] > 0 {
				f.actionFailures[row]--
				return fmt.Errorf("dropdown did not render")
			}
			f.menuOpen = true
			f.menuRow = row
			return nil
		}
	}

	if f.menuOpen && strings.Contains(selector, "dx-list-item") {
		f.menuOpen = false
		f.popupOpen = true
		f.popupHTML = f.page().popups[f.menuRow]
		return nil
	}

	for _, sel := range closeSelectors {
		if selector == sel {
			f.popupOpen = false
			return nil
		}
	}
	return nil
}

func (f *fakeDriver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	switch {
	case selector == selGridContent:
		if f.gridFailures > 0 {
			f.gridFailures--
			return fmt.Errorf("grid not visible")
		}
		return nil
	case selector == selPagerRoot, selector == selFirstDataRow:
		return nil
	case selector == selDropdown:
		if f.menuOpen {
			return nil
		}
		return fmt.Errorf("dropdown not visible")
	case selector == selPopup:
		if f.popupOpen {
			return nil
		}
		return fmt.Errorf("popup not visible")
	case strings.Contains(selector, "dx-list-item"):
		if f.menuOpen {
			return nil
		}
		return fmt.Errorf("menu closed")
	case strings.Contains(selector, "dx-selection"):
		return nil
	default:
		return nil
	}
}

func (f *fakeDriver) Count(ctx context.Context, selector string) (int, error) {
	switch selector {
	case selDataRows:
		return len(f.page().rows), nil
	case selPopup:
		if f.popupOpen {
			return 1, nil
		}
		return 0, nil
	}
	for _, sel := range closeSelectors {
		if selector == sel {
			if f.popupOpen && f.hasCloseButton {
				return 1, nil
			}
			return 0, nil
		}
	}
	return 0, nil
}

func (f *fakeDriver) Text(ctx context.Context, selector string) (string, error) {
	switch selector {
	case selSelectedPage:
		return strconv.Itoa(f.cur + 1), nil
	case selFirstDataRow:
		if len(f.page().rows) == 0 {
			return "", fmt.Errorf("no rows")
		}
		return f.page().rows[0], nil
	}
	return "", nil
}

func (f *fakeDriver) TextAll(ctx context.Context, selector string) ([]string, error) {
	if selector == selPageButtons {
		labels := make([]string, 0, len(f.pages)+2)
		for n := 1; n <= len(f.pages); n++ {
			labels = append(labels, strconv.Itoa(n))
		}
		// pager arrows carry no digits
		labels = append(labels, "‹", "›")
		return labels, nil
	}
	return nil, nil
}

func (f *fakeDriver) HTML(ctx context.Context, selector string) (string, error) {
	if selector == selPopup && f.popupOpen {
		return f.popupHTML, nil
	}
	return "", fmt.Errorf("no markup for %s", selector)
}

func (f *fakeDriver) ScrollIntoView(ctx context.Context, selector string) error { return nil }

func (f *fakeDriver) PressEscape(ctx context.Context) error {
	f.escapes++
	f.menuOpen = false
	f.popupOpen = false
	return nil
}

func (f *fakeDriver) WaitNetworkSettle(ctx context.Context, timeout time.Duration) error {
	f.settles++
	return nil
}

func (f *fakeDriver) Sleep(ctx context.Context, d time.Duration) error { return nil }

func (f *fakeDriver) CurrentURL(ctx context.Context) (string, error) {
	return "https://portal.example.com/VendorPortal/Orders", nil
}

func (f *fakeDriver) Close() error { return nil }
