// Package browser wraps chromedp with the small automation surface the
// crawler needs: launching a visible or headless Chrome, opening pages,
// waiting for content, and managing the shared cookie jar.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"go.uber.org/zap"
)

// DefaultUserAgent is sent with every page unless overridden via config.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36"

// Options controls how the Chrome process is launched.
type Options struct {
	// ExecPath overrides chromedp's executable discovery when non-empty.
	ExecPath string
	// Headless selects the crawl profile; the interactive session refresh
	// launches with Headless=false so challenge pages can resolve.
	Headless bool
	// UserAgent defaults to DefaultUserAgent when empty.
	UserAgent string
}

// Browser owns one Chrome process and the tabs opened within it. All pages
// share the process-level cookie jar.
type Browser struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	logger        *zap.Logger

	mu     sync.Mutex
	pages  map[int64]*Page
	nextID int64
	closed bool
}

// Launch starts a Chrome process and warms up the browser context.
func Launch(opts Options, logger *zap.Logger) (*Browser, error) {
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("disable-features", "TranslateUI"),
		chromedp.Flag("disable-session-crashed-bubble", true),
		chromedp.Flag("lang", "en_US"),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserAgent(ua),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Browser{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        logger,
		pages:         map[int64]*Page{},
	}, nil
}

// Close tears down every open tab and the Chrome process.
func (b *Browser) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	pages := make([]*Page, 0, len(b.pages))
	for _, p := range b.pages {
		pages = append(pages, p)
	}
	b.pages = map[int64]*Page{}
	b.mu.Unlock()

	for _, p := range pages {
		p.cancel()
	}
	b.browserCancel()
	b.allocCancel()
}

// SetCookies installs cookies into the shared jar.
func (b *Browser) SetCookies(cookies []*network.CookieParam) error {
	if len(cookies) == 0 {
		return nil
	}
	err := chromedp.Run(b.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return storage.SetCookies(cookies).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("set cookies: %w", err)
	}
	return nil
}

// Cookies reads back the full cookie jar.
func (b *Browser) Cookies() ([]*network.Cookie, error) {
	var cookies []*network.Cookie
	err := chromedp.Run(b.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}
	return cookies, nil
}

// ResetPages bounds tab growth between crawl iterations: a fresh blank tab is
// opened first so the browser never drops to zero targets, then every
// previously tracked tab is closed.
func (b *Browser) ResetPages() error {
	b.mu.Lock()
	stale := make([]*Page, 0, len(b.pages))
	for _, p := range b.pages {
		stale = append(stale, p)
	}
	b.mu.Unlock()

	if _, err := b.NewPage(); err != nil {
		return err
	}
	for _, p := range stale {
		p.Close()
	}
	return nil
}

func (b *Browser) register(p *Page) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	p.id = b.nextID
	b.pages[p.id] = p
}

func (b *Browser) unregister(p *Page) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pages, p.id)
}
