package publish

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/notepress/pkg/config"
	"github.com/entrhq/notepress/pkg/page"
)

// testConfig returns the default configuration with every workflow wait
// shrunk to milliseconds so failure paths exhaust their budgets quickly.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Workflow = config.WorkflowConfig{
		Navigation:        100 * time.Millisecond,
		Login:             80 * time.Millisecond,
		LoginPoll:         10 * time.Millisecond,
		UploadTabProbe:    20 * time.Millisecond,
		UploadInput:       40 * time.Millisecond,
		SettleBase:        5 * time.Millisecond,
		SettlePerImg:      time.Millisecond,
		SettleMax:         10 * time.Millisecond,
		ContentFieldProbe: 20 * time.Millisecond,
		ControlProbe:      20 * time.Millisecond,
		ElementProbe:      10 * time.Millisecond,
		ConfirmWindow:     60 * time.Millisecond,
		FallbackProbe:     10 * time.Millisecond,
		RetryCooldown:     5 * time.Millisecond,
		MaxAttempts:       3,
	}
	return cfg
}

// queryKey flattens a query into a map key, ignoring its wait bound.
func queryKey(q page.Query) string {
	if q.By == page.ByRole {
		return fmt.Sprintf("%s:%s:%s", q.By, q.Role, q.Value)
	}
	return fmt.Sprintf("%s:%s", q.By, q.Value)
}

// fakePage is an in-memory page whose element state tests mutate directly.
// All state is mutex-guarded because confirmation probes run concurrently.
type fakePage struct {
	mu       sync.Mutex
	url      string
	title    string
	html     string
	visible  map[string]bool
	attached map[string]bool

	navigations []string
	navErr      error
	// landURL, when set, is where navigation actually ends up regardless
	// of the requested address.
	landURL string

	clicks  map[string]int
	fills   map[string]string
	files   map[string][]string
	pressed []string
	typed   []string

	// onClick runs after each successful click, outside the lock.
	onClick func(p *fakePage, key string)
}

var _ page.Page = (*fakePage)(nil)

func newFakePage() *fakePage {
	return &fakePage{
		visible:  make(map[string]bool),
		attached: make(map[string]bool),
		clicks:   make(map[string]int),
		fills:    make(map[string]string),
		files:    make(map[string][]string),
	}
}

func (p *fakePage) setVisible(key string, v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible[key] = v
}

func (p *fakePage) setAttached(key string, v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attached[key] = v
}

func (p *fakePage) setURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

func (p *fakePage) clickCount(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clicks[key]
}

func (p *fakePage) isVisible(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible[key]
}

func (p *fakePage) isPresent(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible[key] || p.attached[key]
}

func (p *fakePage) navigated() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

func (p *fakePage) filled(key string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fills[key]
}

func (p *fakePage) attachedFiles(key string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.files[key]...)
}

func (p *fakePage) typedText() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.typed...)
}

func (p *fakePage) pressedKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.pressed...)
}

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *fakePage) Title(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title, nil
}

func (p *fakePage) Content(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

func (p *fakePage) Navigate(ctx context.Context, url string, opts page.NavigateOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.navErr != nil {
		return p.navErr
	}
	p.navigations = append(p.navigations, url)
	if p.landURL != "" {
		p.url = p.landURL
	} else {
		p.url = url
	}
	return nil
}

func (p *fakePage) Find(q page.Query) page.Element {
	return &fakeElement{p: p, q: q, key: queryKey(q)}
}

func (p *fakePage) PressKey(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pressed = append(p.pressed, key)
	return nil
}

func (p *fakePage) TypeText(ctx context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.typed = append(p.typed, text)
	return nil
}

// fakeElement polls the page's state maps the way a real locator polls the
// DOM, honoring the query's wait bound.
type fakeElement struct {
	p   *fakePage
	q   page.Query
	key string
}

func (e *fakeElement) poll(ctx context.Context, cond func() bool, what string) error {
	timeout := e.q.Timeout
	if timeout <= 0 {
		timeout = 50 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%s timed out for %s", what, e.key)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func (e *fakeElement) WaitAttached(ctx context.Context) error {
	return e.poll(ctx, func() bool { return e.p.isPresent(e.key) }, "attachment wait")
}

func (e *fakeElement) WaitVisible(ctx context.Context) error {
	return e.poll(ctx, func() bool { return e.p.isVisible(e.key) }, "visibility wait")
}

func (e *fakeElement) Click(ctx context.Context) error {
	if err := e.poll(ctx, func() bool { return e.p.isVisible(e.key) }, "click"); err != nil {
		return err
	}
	e.p.mu.Lock()
	e.p.clicks[e.key]++
	hook := e.p.onClick
	e.p.mu.Unlock()
	if hook != nil {
		hook(e.p, e.key)
	}
	return nil
}

func (e *fakeElement) Fill(ctx context.Context, text string) error {
	if err := e.poll(ctx, func() bool { return e.p.isPresent(e.key) }, "fill"); err != nil {
		return err
	}
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	e.p.fills[e.key] = text
	return nil
}

func (e *fakeElement) SetFiles(ctx context.Context, paths []string) error {
	if err := e.poll(ctx, func() bool { return e.p.isPresent(e.key) }, "set files"); err != nil {
		return err
	}
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	e.p.files[e.key] = append([]string(nil), paths...)
	return nil
}
