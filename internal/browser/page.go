package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// Page is one browser tab. Pages opened within the same Browser share its
// cookie jar and are tracked so ResetPages can close them in bulk.
type Page struct {
	b         *Browser
	ctx       context.Context
	cancel    context.CancelFunc
	id        int64
	closeOnce sync.Once
}

// NewPage opens a blank tab.
func (b *Browser) NewPage() (*Page, error) {
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	if err := chromedp.Run(tabCtx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		return nil, fmt.Errorf("open blank page: %w", err)
	}
	p := &Page{b: b, ctx: tabCtx, cancel: cancel}
	b.register(p)
	return p, nil
}

// OpenPage opens a tab at url and, when selector is non-empty, waits up to
// timeout for that element to be present. A positive timeout also bounds the
// navigation itself. The page is closed again on any failure.
func (b *Browser) OpenPage(url, selector string, timeout time.Duration) (*Page, error) {
	p, err := b.NewPage()
	if err != nil {
		return nil, err
	}
	if err := p.Navigate(url, timeout); err != nil {
		p.Close()
		return nil, err
	}
	if selector != "" {
		if err := p.WaitFor(selector, timeout); err != nil {
			p.Close()
			return nil, err
		}
	}
	return p, nil
}

// FetchContent navigates a fresh tab to url, waits for selector, reads its
// text, and closes the tab again. Both the navigation and the selector wait
// are bounded by timeout.
func (b *Browser) FetchContent(url, selector string, timeout time.Duration) (string, error) {
	p, err := b.OpenPage(url, selector, timeout)
	if err != nil {
		return "", err
	}
	defer p.Close()

	return p.Text(selector)
}

// Navigate drives the tab to url and waits for the navigation to commit. A
// positive timeout bounds the navigation; zero leaves it open-ended, which
// the interactive session flow relies on while a challenge page resolves.
func (p *Page) Navigate(url string, timeout time.Duration) error {
	navCtx, cancel := deadlineFor(p.ctx, timeout)
	defer cancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitFor blocks until the selector is present in the DOM or the timeout
// elapses.
func (p *Page) WaitFor(selector string, timeout time.Duration) error {
	waitCtx, cancel := deadlineFor(p.ctx, timeout)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

// deadlineFor bounds ctx when timeout is positive; a non-positive timeout
// leaves ctx open-ended.
func deadlineFor(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// Text reads the inner text of the first element matching selector.
func (p *Page) Text(selector string) (string, error) {
	var out string
	if err := chromedp.Run(p.ctx, chromedp.Text(selector, &out, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read %q: %w", selector, err)
	}
	return out, nil
}

// URL reports the tab's current location.
func (p *Page) URL() (string, error) {
	var out string
	if err := chromedp.Run(p.ctx, chromedp.Location(&out)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return out, nil
}

// Close closes the tab. Safe to call more than once.
func (p *Page) Close() {
	p.closeOnce.Do(func() {
		p.b.unregister(p)
		p.cancel()
	})
}
