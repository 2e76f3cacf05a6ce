// Package session acquires and persists the browser session (cookie jar)
// that authorizes subsequent API-style page fetches.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/network"
	"go.uber.org/zap"

	"pyaterochka-price-crawler/internal/browser"
	"pyaterochka-price-crawler/internal/pyaterochka"
)

const (
	// settleDelay gives the landing page time to start any challenge flow
	// before URL polling begins.
	settleDelay  = 5 * time.Second
	pollInterval = time.Second
)

// Manager drives the interactive cookie refresh. The refresh runs in a
// visible browser because the site's bot-detection challenge does not resolve
// in a headless context.
type Manager struct {
	cookiePath string
	execPath   string
	userAgent  string
	logger     *zap.Logger
}

// NewManager builds a Manager persisting the jar at cookiePath.
func NewManager(cookiePath, execPath, userAgent string, logger *zap.Logger) *Manager {
	return &Manager{
		cookiePath: cookiePath,
		execPath:   execPath,
		userAgent:  userAgent,
		logger:     logger,
	}
}

// Refresh launches a visible browser, replays any previously persisted
// cookies, navigates to the home page, and waits for the challenge/redirect
// flow to settle on the home URL. The resulting jar is written back to the
// cookie path. Any failure here is fatal for the whole run: without a session
// the crawl cannot fetch anything.
func (m *Manager) Refresh(ctx context.Context) ([]*network.Cookie, error) {
	b, err := browser.Launch(browser.Options{
		ExecPath:  m.execPath,
		Headless:  false,
		UserAgent: m.userAgent,
	}, m.logger)
	if err != nil {
		return nil, fmt.Errorf("launch interactive browser: %w", err)
	}
	defer b.Close()

	if err := SeedFromFile(b, m.cookiePath); err != nil {
		return nil, err
	}

	page, err := b.OpenPage(pyaterochka.HomeURL, "", 0)
	if err != nil {
		return nil, fmt.Errorf("open home page: %w", err)
	}
	defer page.Close()

	if err := m.awaitSettled(ctx, page); err != nil {
		return nil, err
	}

	cookies, err := b.Cookies()
	if err != nil {
		return nil, err
	}
	if err := save(m.cookiePath, cookies); err != nil {
		return nil, err
	}
	m.logger.Info("session refreshed",
		zap.Int("cookies", len(cookies)),
		zap.String("path", m.cookiePath),
	)
	return cookies, nil
}

// awaitSettled polls until the page URL equals the home URL, meaning any
// redirect or challenge flow has completed. There is no detection of a
// permanently stuck challenge; the poll runs until ctx is canceled.
func (m *Manager) awaitSettled(ctx context.Context, page *browser.Page) error {
	select {
	case <-time.After(settleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		url, err := page.URL()
		if err != nil {
			return fmt.Errorf("poll page url: %w", err)
		}
		if url == pyaterochka.HomeURL {
			return nil
		}
		m.logger.Debug("waiting for challenge to settle", zap.String("url", url))
		select {
		case <-time.After(pollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SeedFromFile installs a previously persisted cookie jar into b. A missing
// file is not an error; the session simply starts cold.
func SeedFromFile(b *browser.Browser, path string) error {
	cookies, err := Load(path)
	if err != nil {
		return err
	}
	if len(cookies) == 0 {
		return nil
	}
	return b.SetCookies(browser.CookieParams(cookies))
}

// Load reads a persisted cookie jar. A missing file yields an empty jar.
func Load(path string) ([]*network.Cookie, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}
	var cookies []*network.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("decode cookie file: %w", err)
	}
	return cookies, nil
}

func save(path string, cookies []*network.Cookie) error {
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cookie jar: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}
	return nil
}
