package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"github.com/entrhq/notepress/pkg/config"
	"github.com/entrhq/notepress/pkg/page"
)

// Signal names recorded with a confirmed outcome.
const (
	SignalSuccessText    = "success_text"
	SignalAltSuccessText = "alt_success_text"
	SignalDetailURL      = "detail_url"
	SignalFallbackText   = "fallback_text"
)

// urlPollInterval is how often the detail-URL probe samples the address.
const urlPollInterval = 200 * time.Millisecond

// Detector inspects page state for the platform's publish signals. The
// platform is inconsistent about which signal it surfaces, so confirmation
// is a race over several, not a conjunction.
type Detector struct {
	workflow  config.WorkflowConfig
	platform  config.PlatformConfig
	detailURL glob.Glob
	logger    *zap.Logger
}

// NewDetector compiles the detail-URL pattern and returns a detector.
func NewDetector(cfg *config.Config, logger *zap.Logger) (*Detector, error) {
	detailURL, err := glob.Compile(cfg.Platform.DetailURLGlob)
	if err != nil {
		return nil, fmt.Errorf("compiling detail URL pattern %q: %w", cfg.Platform.DetailURLGlob, err)
	}
	return &Detector{
		workflow:  cfg.Workflow,
		platform:  cfg.Platform,
		detailURL: detailURL,
		logger:    logger.Named("detector"),
	}, nil
}

// probe is one named wait operation competing in the confirmation race.
type probe struct {
	name string
	wait func(ctx context.Context) error
}

// Confirmed races the success signals against a shared window and returns
// the name of the first one that fires. Whichever probe resolves first
// wins; the rest are abandoned when the window context is cancelled.
func (d *Detector) Confirmed(ctx context.Context, pg page.Page) (string, bool) {
	raceCtx, cancel := context.WithTimeout(ctx, d.workflow.ConfirmWindow)
	defer cancel()

	probes := []probe{
		{name: SignalSuccessText, wait: func(ctx context.Context) error {
			return pg.Find(page.Text(d.platform.SuccessText).Within(d.workflow.ConfirmWindow)).WaitVisible(ctx)
		}},
		{name: SignalAltSuccessText, wait: func(ctx context.Context) error {
			return pg.Find(page.Text(d.platform.SuccessTextAlt).Within(d.workflow.ConfirmWindow)).WaitVisible(ctx)
		}},
		{name: SignalDetailURL, wait: func(ctx context.Context) error {
			return waitForURLMatch(ctx, pg, d.detailURL)
		}},
	}

	// Buffered to the probe count so losers finishing late never block.
	won := make(chan string, len(probes))
	for _, p := range probes {
		p := p
		go func() {
			if err := p.wait(raceCtx); err == nil {
				won <- p.name
			}
		}()
	}

	select {
	case name := <-won:
		d.logger.Info("success signal detected", zap.String("signal", name))
		return name, true
	case <-raceCtx.Done():
		return "", false
	}
}

// FallbackConfirmed re-scans for the secondary success phrases the platform
// uses in some experiment cohorts. Each phrase gets a short probe.
func (d *Detector) FallbackConfirmed(ctx context.Context, pg page.Page) bool {
	for _, phrase := range d.platform.FallbackSuccessPhrases {
		q := page.Text(phrase).Within(d.workflow.FallbackProbe)
		if err := pg.Find(q).WaitVisible(ctx); err == nil {
			d.logger.Info("fallback success phrase visible", zap.String("phrase", phrase))
			return true
		}
	}
	return false
}

// Processing reports whether any transient processing indicator is visible,
// meaning a click may have been swallowed by the platform's upload gating.
func (d *Detector) Processing(ctx context.Context, pg page.Page) (string, bool) {
	for _, phrase := range d.platform.ProcessingPhrases {
		q := page.Text(phrase).Within(d.workflow.ElementProbe)
		if err := pg.Find(q).WaitVisible(ctx); err == nil {
			return phrase, true
		}
	}
	return "", false
}

// waitForURLMatch polls the page address until it matches the pattern or
// the context ends.
func waitForURLMatch(ctx context.Context, pg page.Page, pattern glob.Glob) error {
	ticker := time.NewTicker(urlPollInterval)
	defer ticker.Stop()

	for {
		if pattern.Match(pg.URL()) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
