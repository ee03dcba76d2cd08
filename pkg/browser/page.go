package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/notepress/pkg/page"
)

// defaultActionTimeoutMs bounds element waits when neither the query nor
// the context carries a deadline.
const defaultActionTimeoutMs = 30000.0

// playwrightPage adapts a driver page to the page.Page surface the
// workflow consumes.
type playwrightPage struct {
	p playwright.Page
}

func newPlaywrightPage(p playwright.Page) page.Page {
	return &playwrightPage{p: p}
}

func (pg *playwrightPage) URL() string {
	return pg.p.URL()
}

func (pg *playwrightPage) Title(ctx context.Context) (string, error) {
	return pg.p.Title()
}

func (pg *playwrightPage) Content(ctx context.Context) (string, error) {
	return pg.p.Content()
}

func (pg *playwrightPage) Navigate(ctx context.Context, url string, opts page.NavigateOptions) error {
	gotoOpts := playwright.PageGotoOptions{}
	if opts.WaitNetworkIdle {
		gotoOpts.WaitUntil = playwright.WaitUntilStateNetworkidle
	}
	if opts.Timeout > 0 {
		gotoOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}

	if _, err := pg.p.Goto(url, gotoOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (pg *playwrightPage) Find(q page.Query) page.Element {
	return &playwrightElement{p: pg.p, q: q}
}

func (pg *playwrightPage) PressKey(ctx context.Context, key string) error {
	return pg.p.Keyboard().Press(key)
}

func (pg *playwrightPage) TypeText(ctx context.Context, text string) error {
	return pg.p.Keyboard().Type(text)
}

// playwrightElement resolves its query lazily on each operation, matching
// the driver's locator semantics.
type playwrightElement struct {
	p playwright.Page
	q page.Query
}

func (e *playwrightElement) locator() playwright.Locator {
	switch e.q.By {
	case page.ByExactText:
		return e.p.GetByText(e.q.Value, playwright.PageGetByTextOptions{
			Exact: playwright.Bool(true),
		}).First()
	case page.ByRole:
		return e.p.GetByRole(playwright.AriaRole(e.q.Role), playwright.PageGetByRoleOptions{
			Name:  e.q.Value,
			Exact: playwright.Bool(true),
		}).First()
	case page.BySelector:
		return e.p.Locator(e.q.Value).First()
	default:
		return e.p.GetByText(e.q.Value).First()
	}
}

// timeoutMs resolves the wait bound: explicit query timeout first, then
// the remaining context budget, then the driver default.
func (e *playwrightElement) timeoutMs(ctx context.Context) float64 {
	if e.q.Timeout > 0 {
		return float64(e.q.Timeout.Milliseconds())
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 {
			return float64(remaining.Milliseconds())
		}
	}
	return defaultActionTimeoutMs
}

func (e *playwrightElement) WaitAttached(ctx context.Context) error {
	return e.locator().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(e.timeoutMs(ctx)),
	})
}

func (e *playwrightElement) WaitVisible(ctx context.Context) error {
	return e.locator().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(e.timeoutMs(ctx)),
	})
}

func (e *playwrightElement) Click(ctx context.Context) error {
	return e.locator().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(e.timeoutMs(ctx)),
	})
}

func (e *playwrightElement) Fill(ctx context.Context, text string) error {
	return e.locator().Fill(text, playwright.LocatorFillOptions{
		Timeout: playwright.Float(e.timeoutMs(ctx)),
	})
}

func (e *playwrightElement) SetFiles(ctx context.Context, paths []string) error {
	return e.locator().SetInputFiles(paths, playwright.LocatorSetInputFilesOptions{
		Timeout: playwright.Float(e.timeoutMs(ctx)),
	})
}
