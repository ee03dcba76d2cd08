package browser

import (
	"context"
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/entrhq/notepress/pkg/page"
)

// playwrightConnector attaches over the Chrome DevTools Protocol. Attaching
// to an existing endpoint, rather than launching through the driver, keeps
// the browser free of automation flags the platform could fingerprint.
type playwrightConnector struct {
	logger *zap.Logger
}

func newPlaywrightConnector(logger *zap.Logger) Connector {
	return &playwrightConnector{logger: logger}
}

func (c *playwrightConnector) Connect(ctx context.Context, cdpURL string) (Conn, error) {
	// Driver output is discarded so stdout stays reserved for the result
	// object and stderr for structured log lines.
	opts := &playwright.RunOptions{
		SkipInstallBrowsers: true,
		Verbose:             false,
		Stdout:              io.Discard,
		Stderr:              io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("installing playwright driver: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("starting playwright driver: %w", err)
	}

	browser, err := pw.Chromium.ConnectOverCDP(cdpURL)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("attaching to %s: %w", cdpURL, err)
	}

	c.logger.Debug("attached to browser", zap.String("endpoint", cdpURL))
	return &playwrightConn{pw: pw, browser: browser}, nil
}

type playwrightConn struct {
	pw      *playwright.Playwright
	browser playwright.Browser
}

func (c *playwrightConn) Contexts() []Context {
	existing := c.browser.Contexts()
	contexts := make([]Context, len(existing))
	for i, bc := range existing {
		contexts[i] = &playwrightContext{bc: bc}
	}
	return contexts
}

func (c *playwrightConn) NewContext(width, height int) (Context, error) {
	bc, err := c.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  width,
			Height: height,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating browser context: %w", err)
	}
	return &playwrightContext{bc: bc}, nil
}

// Close disconnects from the endpoint. On a browser obtained through
// ConnectOverCDP this drops the attachment only; the process keeps running.
func (c *playwrightConn) Close() error {
	err := c.browser.Close()
	if stopErr := c.pw.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}

type playwrightContext struct {
	bc playwright.BrowserContext
}

func (c *playwrightContext) Pages() []page.Page {
	existing := c.bc.Pages()
	pages := make([]page.Page, len(existing))
	for i, p := range existing {
		pages[i] = newPlaywrightPage(p)
	}
	return pages
}

func (c *playwrightContext) NewPage() (page.Page, error) {
	p, err := c.bc.NewPage()
	if err != nil {
		return nil, fmt.Errorf("creating page: %w", err)
	}
	return newPlaywrightPage(p), nil
}
