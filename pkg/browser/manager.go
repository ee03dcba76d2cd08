// Package browser attaches automation to a long-lived, user-visible
// browser over its remote-debugging endpoint. The browser process is a
// shared resource: if one is already listening it is reused, otherwise
// one is launched detached, and disconnecting never terminates it.
package browser

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/entrhq/notepress/pkg/config"
	"github.com/entrhq/notepress/pkg/page"
	"github.com/entrhq/notepress/pkg/types"
)

// Conn is an attached automation handle over a running browser.
type Conn interface {
	// Contexts lists the browser's existing browsing contexts.
	Contexts() []Context

	// NewContext creates a fresh browsing context with the given viewport.
	NewContext(width, height int) (Context, error)

	// Close drops the automation attachment. The browser process and its
	// profile stay up.
	Close() error
}

// Context is one browsing context within a connected browser.
type Context interface {
	Pages() []page.Page
	NewPage() (page.Page, error)
}

// Connector attaches to a debugging endpoint.
type Connector interface {
	Connect(ctx context.Context, cdpURL string) (Conn, error)
}

// Manager drives the acquisition state machine: probe the endpoint,
// launch a browser if nothing answers, poll until reachable, attach,
// and hand back a ready page.
type Manager struct {
	cfg       *config.Config
	logger    *zap.Logger
	prober    Prober
	launcher  Launcher
	connector Connector
}

// NewManager creates a manager wired to the real endpoint prober,
// detached launcher, and automation driver.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	log := logger.Named("browser")
	return &Manager{
		cfg:       cfg,
		logger:    log,
		prober:    NewProber(cfg.Endpoint.VersionURL()),
		launcher:  newDetachedLauncher(log),
		connector: newPlaywrightConnector(log),
	}
}

// Acquire returns a session holding a ready page. If the endpoint is
// already alive no process is spawned, making acquisition idempotent
// under an already-running browser.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	if m.prober.Alive(ctx) {
		m.logger.Info("reusing running browser", zap.String("endpoint", m.cfg.Endpoint.VersionURL()))
	} else {
		m.logger.Info("no debuggable browser detected, launching one")
		if err := m.launcher.Launch(m.cfg.Browser, m.cfg.Endpoint.Port); err != nil {
			return nil, err
		}
		if err := m.awaitEndpoint(ctx); err != nil {
			return nil, err
		}
	}

	conn, err := m.connector.Connect(ctx, m.cfg.Endpoint.CDPURL())
	if err != nil {
		return nil, err
	}

	pg, err := m.acquirePage(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Session{Page: pg, conn: conn, logger: m.logger}, nil
}

// awaitEndpoint polls the liveness probe at a fixed interval until the
// freshly launched browser answers or the attempt budget runs out.
func (m *Manager) awaitEndpoint(ctx context.Context) error {
	interval := m.cfg.Browser.ProbeInterval
	attempts := m.cfg.Browser.ProbeAttempts

	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-ctx.Done():
			return types.WrapFailure(types.CodeLaunchTimeout, ctx.Err(), "waiting for debugging endpoint")
		case <-time.After(interval):
		}
		if m.prober.Alive(ctx) {
			m.logger.Info("debugging endpoint is up", zap.Int("attempt", attempt))
			return nil
		}
		m.logger.Debug("debugging endpoint not ready", zap.Int("attempt", attempt))
	}

	return types.Failf(types.CodeLaunchTimeout, "browser did not open %s within %s",
		m.cfg.Endpoint.VersionURL(), time.Duration(attempts)*interval)
}

// acquirePage prefers reuse: the first existing context's first existing
// page, then a new page in an existing context, then a new context plus
// page. Reuse keeps continuity with whatever the user already had open
// and avoids fresh-context fingerprints.
func (m *Manager) acquirePage(conn Conn) (page.Page, error) {
	contexts := conn.Contexts()
	if len(contexts) > 0 {
		if pages := contexts[0].Pages(); len(pages) > 0 {
			m.logger.Debug("reusing existing page", zap.String("url", pages[0].URL()))
			return pages[0], nil
		}
		m.logger.Debug("opening page in existing context")
		return contexts[0].NewPage()
	}

	m.logger.Debug("creating context and page")
	bc, err := conn.NewContext(m.cfg.Browser.ViewportWidth, m.cfg.Browser.ViewportHeight)
	if err != nil {
		return nil, err
	}
	return bc.NewPage()
}
