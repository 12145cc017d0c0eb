package browser

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"catercal/logger"
	"catercal/pkg/errors"
)

// Options configures the Chrome-backed driver
type Options struct {
	Headless bool
	// FrameSelector, when set, scopes element queries to the content of
	// the matching iframe. The vendor portal renders its grid inside
	// iframe[name="frame"].
	FrameSelector string
	UserAgent     string
}

// DefaultUserAgent mirrors a current desktop Chrome build
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// ChromeDriver implements Driver on top of chromedp
type ChromeDriver struct {
	ctx       context.Context
	cancels   []context.CancelFunc
	opts      Options
	frameNode *cdp.Node
	log       *logger.Logger
}

// NewChromeDriver launches a Chrome instance and returns a driver bound
// to a fresh tab. Close must be called to release the browser.
func NewChromeDriver(opts Options) (*ChromeDriver, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(opts.UserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	d := &ChromeDriver{
		ctx:     tabCtx,
		cancels: []context.CancelFunc{cancelTab, cancelAlloc},
		opts:    opts,
		log:     logger.ForBrowser(),
	}

	// Start the browser eagerly so a missing Chrome binary surfaces here
	if err := chromedp.Run(tabCtx); err != nil {
		d.Close()
		return nil, errors.NewUI("browser", "failed to launch chrome", err)
	}
	return d, nil
}

// Close releases the tab and the browser process
func (d *ChromeDriver) Close() error {
	for _, cancel := range d.cancels {
		cancel()
	}
	return nil
}

// run executes chromedp actions under the caller's deadline
func (d *ChromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := d.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(d.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

// queryOpts builds the match options for a selector, scoping it to the
// configured iframe when one is set.
func (d *ChromeDriver) queryOpts(ctx context.Context, selector string) ([]chromedp.QueryOption, error) {
	var opts []chromedp.QueryOption
	if strings.HasPrefix(selector, "//") {
		opts = append(opts, chromedp.BySearch)
	} else {
		opts = append(opts, chromedp.ByQuery)
	}

	if d.opts.FrameSelector != "" {
		node, err := d.frameRoot(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chromedp.FromNode(node))
	}
	return opts, nil
}

// frameRoot resolves (and caches) the iframe node queries are scoped to
func (d *ChromeDriver) frameRoot(ctx context.Context) (*cdp.Node, error) {
	if d.frameNode != nil {
		return d.frameNode, nil
	}

	var nodes []*cdp.Node
	err := d.run(ctx, chromedp.Nodes(d.opts.FrameSelector, &nodes, chromedp.ByQuery))
	if err != nil {
		return nil, errors.NewUI("browser", "portal frame not found", err)
	}
	if len(nodes) == 0 {
		return nil, errors.NewUI("browser", "portal frame not found", nil)
	}
	d.frameNode = nodes[0]
	return d.frameNode, nil
}

// ResetFrame drops the cached iframe node. Call after a full navigation.
func (d *ChromeDriver) ResetFrame() {
	d.frameNode = nil
}

// WithFrame returns a driver sharing this tab whose queries are scoped
// to the content of the matching iframe. Closing the parent closes both.
func (d *ChromeDriver) WithFrame(selector string) *ChromeDriver {
	opts := d.opts
	opts.FrameSelector = selector
	return &ChromeDriver{
		ctx:  d.ctx,
		opts: opts,
		log:  d.log,
	}
}

func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	d.frameNode = nil
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *ChromeDriver) Fill(ctx context.Context, selector, value string) error {
	opts, err := d.queryOpts(ctx, selector)
	if err != nil {
		return err
	}
	return d.run(ctx,
		chromedp.WaitVisible(selector, opts...),
		chromedp.Clear(selector, opts...),
		chromedp.SendKeys(selector, value, opts...),
	)
}

func (d *ChromeDriver) Click(ctx context.Context, selector string) error {
	opts, err := d.queryOpts(ctx, selector)
	if err != nil {
		return err
	}
	return d.run(ctx, chromedp.Click(selector, opts...))
}

func (d *ChromeDriver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	opts, err := d.queryOpts(ctx, selector)
	if err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.run(waitCtx, chromedp.WaitVisible(selector, opts...))
}

func (d *ChromeDriver) Count(ctx context.Context, selector string) (int, error) {
	opts, err := d.queryOpts(ctx, selector)
	if err != nil {
		return 0, err
	}
	var nodes []*cdp.Node
	// AtLeast(0) keeps Nodes from blocking when nothing matches
	opts = append(opts, chromedp.AtLeast(0))
	if err := d.run(ctx, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return 0, err
	}
	return len(nodes), nil
}

func (d *ChromeDriver) Text(ctx context.Context, selector string) (string, error) {
	opts, err := d.queryOpts(ctx, selector)
	if err != nil {
		return "", err
	}
	var text string
	if err := d.run(ctx, chromedp.Text(selector, &text, opts...)); err != nil {
		return "", err
	}
	return text, nil
}

func (d *ChromeDriver) TextAll(ctx context.Context, selector string) ([]string, error) {
	opts, err := d.queryOpts(ctx, selector)
	if err != nil {
		return nil, err
	}
	var nodes []*cdp.Node
	opts = append(opts, chromedp.AtLeast(0))
	if err := d.run(ctx, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(nodes))
	for _, node := range nodes {
		var text string
		if err := d.run(ctx, chromedp.Text([]cdp.NodeID{node.NodeID}, &text, chromedp.ByNodeID)); err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func (d *ChromeDriver) HTML(ctx context.Context, selector string) (string, error) {
	opts, err := d.queryOpts(ctx, selector)
	if err != nil {
		return "", err
	}
	var html string
	if err := d.run(ctx, chromedp.OuterHTML(selector, &html, opts...)); err != nil {
		return "", err
	}
	return html, nil
}

func (d *ChromeDriver) ScrollIntoView(ctx context.Context, selector string) error {
	opts, err := d.queryOpts(ctx, selector)
	if err != nil {
		return err
	}
	return d.run(ctx, chromedp.ScrollIntoView(selector, opts...))
}

func (d *ChromeDriver) PressEscape(ctx context.Context) error {
	return d.run(ctx, chromedp.KeyEvent(kb.Escape))
}

func (d *ChromeDriver) WaitNetworkSettle(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// readyState plus a short grace period approximates "network idle";
	// the page has no single deterministic signal for it.
	err := d.run(waitCtx, chromedp.Poll(
		`document.readyState === "complete"`, nil,
		chromedp.WithPollingInterval(200*time.Millisecond),
	))
	if err != nil {
		d.log.Debug().Err(err).Msg("network settle wait expired")
		return nil
	}
	return d.Sleep(ctx, 300*time.Millisecond)
}

func (d *ChromeDriver) Sleep(ctx context.Context, duration time.Duration) error {
	select {
	case <-time.After(duration):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *ChromeDriver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := d.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}
