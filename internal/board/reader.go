// Package board captures guess rows from a live game page over the
// Chrome DevTools protocol, so feedback can be read straight off the
// board instead of pasted by hand.
package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dounan/diffle-solver/internal/logging"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Config holds browser capture configuration.
type Config struct {
	DebuggerURL       string // attach to a running Chrome; empty launches one
	Headless          bool
	GameURL           string
	RowSelector       string // CSS selector matching one element per guess row
	NavigationTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:          false,
		GameURL:           "https://diffle.org",
		RowSelector:       ".guess-row",
		NavigationTimeout: 30 * time.Second,
	}
}

// Reader owns the browser connection and the game page.
type Reader struct {
	cfg        Config
	mu         sync.RWMutex
	browser    *rod.Browser
	page       *rod.Page
	controlURL string
}

// NewReader creates a reader; Start establishes the connection.
func NewReader(cfg Config) *Reader {
	if cfg.RowSelector == "" {
		cfg.RowSelector = ".guess-row"
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	return &Reader{cfg: cfg}
}

// Start connects to an existing Chrome or launches a new one.
func (r *Reader) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		if _, err := r.browser.Version(); err == nil {
			return nil // connection is healthy
		}
		logging.Board("stale browser connection, reconnecting")
		_ = r.browser.Close()
		r.browser = nil
		r.page = nil
		r.controlURL = ""
	}

	controlURL := r.cfg.DebuggerURL
	if controlURL == "" {
		url, err := launcher.New().Headless(r.cfg.Headless).Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}
	r.browser = browser
	r.controlURL = controlURL
	logging.Board("connected to chrome at %s", controlURL)
	return nil
}

// ControlURL returns the DevTools websocket URL.
func (r *Reader) ControlURL() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.controlURL
}

// Open navigates to the game page and waits for it to load.
func (r *Reader) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return fmt.Errorf("reader not started")
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.NavigationTimeout)
	defer cancel()

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: r.cfg.GameURL})
	if err != nil {
		return fmt.Errorf("open game page: %w", err)
	}
	page = page.Context(ctx)
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait for game page: %w", err)
	}
	r.page = page
	logging.Board("game page open: %s", r.cfg.GameURL)
	return nil
}

// RowsHTML returns the outer HTML of every guess row on the board, in
// board order.
func (r *Reader) RowsHTML(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	page := r.page
	r.mu.RUnlock()
	if page == nil {
		return nil, fmt.Errorf("game page not open")
	}

	elements, err := page.Context(ctx).Elements(r.cfg.RowSelector)
	if err != nil {
		return nil, fmt.Errorf("query rows %q: %w", r.cfg.RowSelector, err)
	}
	out := make([]string, 0, len(elements))
	for _, el := range elements {
		html, err := el.HTML()
		if err != nil {
			return nil, fmt.Errorf("read row html: %w", err)
		}
		out = append(out, html)
	}
	logging.BoardDebug("captured %d board rows", len(out))
	return out, nil
}

// LatestRowHTML returns the most recent guess row.
func (r *Reader) LatestRowHTML(ctx context.Context) (string, error) {
	rows, err := r.RowsHTML(ctx)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("no guess rows on the board yet")
	}
	return rows[len(rows)-1], nil
}

// Close shuts the browser connection down.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.page = nil
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	return err
}
