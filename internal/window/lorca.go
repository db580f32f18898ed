package window

import (
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"sync"

	"github.com/zserge/lorca"
)

// Default window geometry.
const (
	DefaultWidth  = 1280
	DefaultHeight = 850
)

// LorcaConfig configures a Lorca window.
type LorcaConfig struct {
	Title  string
	Width  int // zero uses DefaultWidth
	Height int // zero uses DefaultHeight

	// ProfileDir is the Chrome user data dir. Empty lets lorca use a
	// temporary directory removed on Close.
	ProfileDir string

	// Args are extra Chrome command-line flags.
	Args []string
}

// browser is the subset of lorca.UI that Lorca uses.
type browser interface {
	Load(url string) error
	Eval(js string) error
	Done() <-chan struct{}
	Close() error
}

// lorcaUI adapts lorca.UI's Eval, which returns a Value, to browser.
type lorcaUI struct {
	ui lorca.UI
}

func (l lorcaUI) Load(u string) error { return l.ui.Load(u) }
func (l lorcaUI) Eval(js string) error { return l.ui.Eval(js).Err() }
func (l lorcaUI) Done() <-chan struct{} { return l.ui.Done() }
func (l lorcaUI) Close() error { return l.ui.Close() }

// Lorca is a Chrome app window.
type Lorca struct {
	b         browser
	closeOnce sync.Once
	closeErr  error
}

var _ Window = (*Lorca)(nil)

// OpenLorca starts Chrome on the splash page for cfg.Title. It fails if no
// Chrome or Chromium is installed.
func OpenLorca(cfg LorcaConfig) (*Lorca, error) {
	w, h := cfg.Width, cfg.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	if lorca.LocateChrome() == "" {
		return nil, fmt.Errorf("open window: no Chrome or Chromium executable found")
	}
	ui, err := lorca.New(SplashURL(cfg.Title), cfg.ProfileDir, w, h, cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("open window: %w", err)
	}
	return newLorca(lorcaUI{ui: ui}), nil
}

func newLorca(b browser) *Lorca {
	return &Lorca{b: b}
}

// Navigate loads u in the window.
func (l *Lorca) Navigate(u string) error {
	if err := l.b.Load(u); err != nil {
		return fmt.Errorf("navigate to %s: %w", u, err)
	}
	return nil
}

// Emit dispatches event on window with payload encoded as JSON detail.
func (l *Lorca) Emit(event string, payload any) error {
	js, err := dispatchScript(event, payload)
	if err != nil {
		return err
	}
	if err := l.b.Eval(js); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

// Done is closed when Chrome exits.
func (l *Lorca) Done() <-chan struct{} {
	return l.b.Done()
}

// Close terminates Chrome. Later calls return the first result.
func (l *Lorca) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.b.Close()
	})
	return l.closeErr
}

func dispatchScript(event string, payload any) (string, error) {
	name, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("encode event name: %w", err)
	}
	detail, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", event, err)
	}
	return fmt.Sprintf("window.dispatchEvent(new CustomEvent(%s, {detail: %s}))", name, detail), nil
}

const splashHTML = `<!doctype html>
<html><head><meta charset="utf-8"><title>%[1]s</title>
<style>body{margin:0;height:100vh;display:flex;align-items:center;justify-content:center;font:16px system-ui,sans-serif;color:#555;background:#fafafa}</style>
</head><body><p id="status">Starting %[1]s…</p>
<script>window.addEventListener(%[2]s,function(){document.getElementById("status").textContent="Ready"})</script>
</body></html>`

// SplashURL returns a data URL for the page shown until the sidecar is ready.
func SplashURL(title string) string {
	if title == "" {
		title = "app"
	}
	ev, _ := json.Marshal(ReadyEvent)
	page := fmt.Sprintf(splashHTML, html.EscapeString(title), ev)
	return "data:text/html," + url.PathEscape(page)
}

