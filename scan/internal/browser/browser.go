// Package browser manages the headless Chrome session used to acquire
// rendered pages: launch (or connect to a remote instance) via Rod with
// stealth applied, navigate, wait for asynchronous content to settle, and
// serialize the DOM as outer HTML. Everything downstream of the returned
// markup is browser-free.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// ErrAcquisition marks unrecoverable session failures: the browser could
// not be started or a tab could not be created. Callers must treat it as a
// hard failure with no findings possible.
var ErrAcquisition = errors.New("browser: acquisition failed")

// ErrLoadTimeout marks a page that navigated but did not finish loading
// within the acquisition timeout. Callers may degrade rather than fail.
var ErrLoadTimeout = errors.New("browser: page load timed out")

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Headless controls the launch mode. Default: true.
	Headless *bool

	// AcquireTimeout bounds navigation plus load wait. Default: 30s.
	AcquireTimeout time.Duration

	// SettleDelay is the fixed wait after load for asynchronous content
	// to render. Default: 10s.
	SettleDelay time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Headless == nil {
		t := true
		c.Headless = &t
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = 30 * time.Second
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns one Chrome session, launched lazily on first Acquire and
// reused across scans until Close.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager creates a browser Manager. Chrome is not started until the
// first Acquire call.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Acquire navigates a fresh stealth tab to the URL, waits for the page to
// settle, and returns the rendered DOM as outer HTML. The tab is always
// closed before returning.
func (m *Manager) Acquire(ctx context.Context, pageURL string) (string, error) {
	b, err := m.session()
	if err != nil {
		return "", err
	}

	page, err := stealth.Page(b)
	if err != nil {
		return "", fmt.Errorf("%w: create tab: %v", ErrAcquisition, err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, m.cfg.AcquireTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return "", fmt.Errorf("%w: navigate %s: %v", ErrLoadTimeout, pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		return "", fmt.Errorf("%w: wait load %s: %v", ErrLoadTimeout, pageURL, err)
	}

	// Fixed settle wait: grid frameworks render rows well after load.
	select {
	case <-time.After(m.cfg.SettleDelay):
	case <-ctx.Done():
		return "", fmt.Errorf("%w: settle wait %s: %v", ErrLoadTimeout, pageURL, ctx.Err())
	}

	res, err := page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("%w: serialize DOM %s: %v", ErrAcquisition, pageURL, err)
	}
	return res.Value.Str(), nil
}

// session returns the live browser handle, launching Chrome on first use.
func (m *Manager) session() (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("%w: manager is closed", ErrAcquisition)
	}
	if m.browser != nil {
		return m.browser, nil
	}

	log := m.cfg.Logger
	var wsURL string

	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Headless(*m.cfg.Headless)
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("%w: launch: %v", ErrAcquisition, err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL)
	}

	// The browser handle outlives the first scan's context on purpose;
	// per-scan deadlines are applied to the tab, not the session.
	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("%w: connect: %v", ErrAcquisition, err)
	}

	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}

	m.browser = b
	return b, nil
}

// Close shuts down Chrome. The manager cannot be reused afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return nil
}
