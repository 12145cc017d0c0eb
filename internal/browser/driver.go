package browser

import (
	"context"
	"time"
)

// Driver is the capability surface the scraper needs from a browser.
// Selectors are CSS queries unless they start with "//", in which case
// they are treated as XPath. Every blocking call is context-bound.
//
// The scraper depends only on this interface; tests exercise the
// extraction state machine against scripted fakes.
type Driver interface {
	// Navigate loads the given URL and waits for the load event
	Navigate(ctx context.Context, url string) error

	// Fill sets the value of the first element matching the selector
	Fill(ctx context.Context, selector, value string) error

	// Click clicks the first element matching the selector
	Click(ctx context.Context, selector string) error

	// WaitVisible blocks until the selector is visible or the timeout expires
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// Count returns the number of elements matching the selector
	Count(ctx context.Context, selector string) (int, error)

	// Text returns the inner text of the first element matching the selector
	Text(ctx context.Context, selector string) (string, error)

	// TextAll returns the inner text of every element matching the selector
	TextAll(ctx context.Context, selector string) ([]string, error)

	// HTML returns the outer HTML of the first element matching the selector
	HTML(ctx context.Context, selector string) (string, error)

	// ScrollIntoView scrolls the first element matching the selector into view
	ScrollIntoView(ctx context.Context, selector string) error

	// PressEscape issues an Escape keypress, clearing menus and dialogs
	PressEscape(ctx context.Context) error

	// WaitNetworkSettle blocks until in-flight activity quiets down or
	// the timeout expires. Expiry is not an error; it is the generic
	// fallback signal after navigation.
	WaitNetworkSettle(ctx context.Context, timeout time.Duration) error

	// Sleep pauses for the given duration, honoring context cancellation
	Sleep(ctx context.Context, d time.Duration) error

	// CurrentURL returns the page's current location
	CurrentURL(ctx context.Context) (string, error)

	// Close releases the browser session
	Close() error
}
