// Package publish drives a logged-in creator-studio page through
// upload, populate, submit, and confirmation for one post.
package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"github.com/entrhq/notepress/pkg/config"
	"github.com/entrhq/notepress/pkg/images"
	"github.com/entrhq/notepress/pkg/page"
	"github.com/entrhq/notepress/pkg/types"
)

// Workflow executes one publish run against a single page. It borrows the
// page for the duration of the run and owns the attempt counters and the
// confirmation race exclusively.
type Workflow struct {
	cfg         *config.Config
	detector    *Detector
	publishPage glob.Glob
	logger      *zap.Logger
}

// NewWorkflow compiles the page patterns and wires the signal detector.
func NewWorkflow(cfg *config.Config, logger *zap.Logger) (*Workflow, error) {
	detector, err := NewDetector(cfg, logger)
	if err != nil {
		return nil, err
	}
	publishPage, err := glob.Compile(cfg.Platform.PublishURLGlob)
	if err != nil {
		return nil, fmt.Errorf("compiling publish URL pattern %q: %w", cfg.Platform.PublishURLGlob, err)
	}
	return &Workflow{
		cfg:         cfg,
		detector:    detector,
		publishPage: publishPage,
		logger:      logger.Named("workflow"),
	}, nil
}

// Run drives the full pipeline and returns the outcome. Errors are coded
// precondition failures only; uncertainty inside the submit loop degrades
// to an unconfirmed-success outcome instead of an error.
func (w *Workflow) Run(ctx context.Context, req types.PublishRequest, resolved []images.Resolved, pg page.Page) (types.PublishOutcome, error) {
	log := w.logger.With(zap.String("correlationId", req.CorrelationID))

	log.Info("opening publish page", zap.String("url", w.cfg.Platform.PublishURL))
	if err := pg.Navigate(ctx, w.cfg.Platform.PublishURL, page.NavigateOptions{
		WaitNetworkIdle: true,
		Timeout:         w.cfg.Workflow.Navigation,
	}); err != nil {
		return types.PublishOutcome{}, types.WrapFailure(types.CodeNavigationTimeout, err, "opening %s", w.cfg.Platform.PublishURL)
	}

	if err := w.awaitPublishPage(ctx, pg, log); err != nil {
		return types.PublishOutcome{}, err
	}

	w.selectUploadTab(ctx, pg, log)

	if err := w.uploadImages(ctx, pg, resolved, log); err != nil {
		return types.PublishOutcome{}, err
	}

	w.settle(ctx, len(resolved), log)

	if err := w.populate(ctx, pg, req, log); err != nil {
		return types.PublishOutcome{}, err
	}

	confirmed, signal, err := w.submitLoop(ctx, pg, log)
	if err != nil {
		return types.PublishOutcome{}, err
	}

	if confirmed {
		log.Info("publish confirmed", zap.String("signal", signal))
		return types.PublishOutcome{
			CorrelationID: req.CorrelationID,
			State:         types.StateConfirmedSuccess,
			Message:       w.cfg.Platform.ConfirmedMessage,
		}, nil
	}

	// An unconfirmed click may still have succeeded server-side. The caller
	// reconciles against the platform's own records.
	log.Warn("publish not explicitly confirmed, reporting for manual verification")
	return types.PublishOutcome{
		CorrelationID: req.CorrelationID,
		State:         types.StateUnconfirmedSuccess,
		Message:       w.cfg.Platform.UnconfirmedMessage,
	}, nil
}

// awaitPublishPage waits for the page to reach the publish URL. Login and
// any redirects happen manually in the visible browser, outside
// automation's control, so this is a patient poll with progress logs.
func (w *Workflow) awaitPublishPage(ctx context.Context, pg page.Page, log *zap.Logger) error {
	if w.publishPage.Match(pg.URL()) {
		return nil
	}

	log.Info("waiting for publish page, log in if prompted",
		zap.String("current", pg.URL()),
		zap.Duration("budget", w.cfg.Workflow.Login))

	var waited time.Duration
	for waited < w.cfg.Workflow.Login {
		select {
		case <-ctx.Done():
			return types.WrapFailure(types.CodeLoginTimeout, ctx.Err(), "waiting for publish page")
		case <-time.After(w.cfg.Workflow.LoginPoll):
		}
		waited += w.cfg.Workflow.LoginPoll

		if w.publishPage.Match(pg.URL()) {
			log.Info("publish page reached", zap.Duration("waited", waited))
			return nil
		}
		log.Info("still waiting for publish page", zap.Duration("waited", waited))
	}

	return types.Failf(types.CodeLoginTimeout, "publish page not reached within %s", w.cfg.Workflow.Login)
}

// selectUploadTab clicks the image-upload tab when the UI variant has one.
// Older variants land directly on the upload pane, so absence is fine.
func (w *Workflow) selectUploadTab(ctx context.Context, pg page.Page, log *zap.Logger) {
	tab := pg.Find(page.ExactText(w.cfg.Platform.UploadTabLabel).Within(w.cfg.Workflow.UploadTabProbe))
	if err := tab.WaitVisible(ctx); err != nil {
		log.Debug("upload tab not present, continuing")
		return
	}
	if err := tab.Click(ctx); err != nil {
		log.Warn("could not select upload tab", zap.Error(err))
		return
	}
	log.Info("selected image upload tab")
}

// uploadImages attaches every resolved file to the first matching file
// input in one batch, preserving order.
func (w *Workflow) uploadImages(ctx context.Context, pg page.Page, resolved []images.Resolved, log *zap.Logger) error {
	input := pg.Find(page.Selector(w.cfg.Platform.FileInputSelector).Within(w.cfg.Workflow.UploadInput))
	if err := input.WaitAttached(ctx); err != nil {
		return types.WrapFailure(types.CodeUploadElementMissing, err, "file input %q", w.cfg.Platform.FileInputSelector)
	}

	paths := images.Paths(resolved)
	if err := input.SetFiles(ctx, paths); err != nil {
		return types.WrapFailure(types.CodeUploadElementMissing, err, "attaching %d images", len(paths))
	}
	log.Info("uploaded images", zap.Int("count", len(paths)))
	return nil
}

// settle waits out the platform's client-side image processing. Processing
// time tracks payload size and exposes no reliable completion signal, so
// the wait scales with image count up to a cap.
func (w *Workflow) settle(ctx context.Context, count int, log *zap.Logger) {
	wait := w.cfg.Workflow.SettleBase
	if count > 1 {
		wait += time.Duration(count-1) * w.cfg.Workflow.SettlePerImg
	}
	if wait > w.cfg.Workflow.SettleMax {
		wait = w.cfg.Workflow.SettleMax
	}

	log.Info("waiting for upload processing", zap.Duration("wait", wait), zap.Int("images", count))
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

// populate fills the title, then writes the body as title plus content on
// separate lines; the platform repeats the first line as a headline.
func (w *Workflow) populate(ctx context.Context, pg page.Page, req types.PublishRequest, log *zap.Logger) error {
	title := pg.Find(page.Selector(w.cfg.Platform.TitleSelector).Within(w.cfg.Workflow.UploadInput))
	if err := title.Fill(ctx, req.Title); err != nil {
		return fmt.Errorf("filling title: %w", err)
	}
	log.Info("filled title")

	body := req.Title + "\n" + req.Content

	content := pg.Find(page.Selector(w.cfg.Platform.ContentSelector).Within(w.cfg.Workflow.ContentFieldProbe))
	if err := content.WaitVisible(ctx); err == nil {
		if err := content.Click(ctx); err != nil {
			return fmt.Errorf("focusing content field: %w", err)
		}
		if err := pg.TypeText(ctx, body); err != nil {
			return fmt.Errorf("typing content: %w", err)
		}
		log.Info("filled content")
		return nil
	}

	// UI variants without a stable content field: tab out of the title and
	// inject keystrokes into whatever takes focus.
	log.Info("content field not found, using keyboard fallback")
	if err := pg.PressKey(ctx, "Tab"); err != nil {
		return fmt.Errorf("keyboard fallback: %w", err)
	}
	if err := pg.TypeText(ctx, body); err != nil {
		return fmt.Errorf("keyboard fallback: %w", err)
	}
	return nil
}

// submitLoop clicks the publish control and races the confirmation signals,
// retrying up to the attempt budget.
func (w *Workflow) submitLoop(ctx context.Context, pg page.Page, log *zap.Logger) (bool, string, error) {
	for attempt := 1; attempt <= w.cfg.Workflow.MaxAttempts; attempt++ {
		attemptLog := log.With(zap.Int("attempt", attempt))

		control, err := w.findPublishControl(ctx, pg)
		if err != nil {
			return false, "", err
		}
		if err := control.Click(ctx); err != nil {
			return false, "", types.WrapFailure(types.CodePublishControlNotFound, err, "clicking publish control")
		}
		attemptLog.Info("clicked publish")

		// The platform gates early clicks behind its own upload completion;
		// a visible processing hint means the click may have been swallowed.
		if phrase, busy := w.detector.Processing(ctx, pg); busy {
			attemptLog.Info("processing indicator visible, re-clicking after cooldown", zap.String("phrase", phrase))
			w.cooldown(ctx)
			if err := control.Click(ctx); err != nil {
				attemptLog.Warn("re-click failed", zap.Error(err))
			}
		}

		if signal, ok := w.detector.Confirmed(ctx, pg); ok {
			return true, signal, nil
		}
		if w.detector.FallbackConfirmed(ctx, pg) {
			return true, SignalFallbackText, nil
		}

		if attempt < w.cfg.Workflow.MaxAttempts {
			attemptLog.Info("no success signal, retrying")
			w.cooldown(ctx)
			continue
		}
		w.reportDiagnostics(ctx, pg, attemptLog)
	}
	return false, "", nil
}

// findPublishControl tries the lookup strategies in preference order:
// exact-name button role, exact text, then the alternate note label.
func (w *Workflow) findPublishControl(ctx context.Context, pg page.Page) (page.Element, error) {
	candidates := []page.Query{
		page.Role("button", w.cfg.Platform.PublishButtonLabel),
		page.ExactText(w.cfg.Platform.PublishButtonLabel),
		page.ExactText(w.cfg.Platform.PublishNoteLabel),
	}
	for _, q := range candidates {
		el := pg.Find(q.Within(w.cfg.Workflow.ControlProbe))
		if err := el.WaitVisible(ctx); err == nil {
			return el, nil
		}
	}
	return nil, types.Failf(types.CodePublishControlNotFound,
		"no publish control matched %q or %q", w.cfg.Platform.PublishButtonLabel, w.cfg.Platform.PublishNoteLabel)
}

func (w *Workflow) cooldown(ctx context.Context) {
	select {
	case <-time.After(w.cfg.Workflow.RetryCooldown):
	case <-ctx.Done():
	}
}

// reportDiagnostics logs page context after the last unconfirmed attempt.
// The run still finishes with an outcome; nothing is raised from here.
func (w *Workflow) reportDiagnostics(ctx context.Context, pg page.Page, log *zap.Logger) {
	title, _ := pg.Title(ctx)

	html, err := pg.Content(ctx)
	if err != nil {
		log.Warn("could not capture page content for diagnostics", zap.Error(err))
		return
	}

	diag := Diagnose(html)
	log.Warn("publish unconfirmed after final attempt",
		zap.String("pageTitle", title),
		zap.String("visibleText", diag.Text),
		zap.Strings("buttons", diag.Buttons))
}
