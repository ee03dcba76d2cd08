package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/entrhq/notepress/pkg/browser"
	"github.com/entrhq/notepress/pkg/config"
	"github.com/entrhq/notepress/pkg/images"
	"github.com/entrhq/notepress/pkg/logging"
	"github.com/entrhq/notepress/pkg/publish"
	"github.com/entrhq/notepress/pkg/types"
)

// maxRequestLine caps the stdin request line. Inline data URLs carry whole
// images, so the scanner default of 64K is far too small.
const maxRequestLine = 16 * 1024 * 1024

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "notepress [image] [title] [content]",
		Short: "Publish an image note to the creator studio through your own browser",
		Long: `Notepress publishes multi-image notes to the creator studio by attaching
to a locally running Chrome over its remote debugging port. The browser is
launched once with a persistent profile and reused across runs, so you log
in once in the real window and every later run rides that session.

The request is read from stdin as a single JSON object when piped, or from
positional arguments. Exactly one JSON result object is written to standard
output; all diagnostics go to standard error.`,
		Example: `  # JSON request on stdin
  echo '{"images":["./cover.jpg"],"title":"秋日穿搭","content":"三套通勤搭配"}' | notepress

  # Positional arguments
  notepress ./cover.jpg "秋日穿搭" "三套通勤搭配"

  # Remote and inline images work too
  echo '{"images":["https://cdn.example.com/a.jpg"],"title":"标题"}' | notepress`,
		Args: cobra.MaximumNArgs(3),
		// Stdout carries exactly one JSON result object; usage and error
		// chatter would corrupt the stream.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, configPath, args)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")

	return cmd
}

// runPublish reads one request and answers with one result object on
// standard output. A parse failure is the only path that exits non-zero:
// everything after a correlation id exists resolves to a result instead.
func runPublish(cmd *cobra.Command, configPath string, args []string) error {
	logger := logging.New()
	defer func() { _ = logger.Sync() }()

	req, err := readRequest(cmd.InOrStdin(), args)
	if err != nil {
		writeResult(cmd.OutOrStdout(), types.ErrorResult("", err), logger)
		return err
	}
	req.EnsureCorrelationID()

	outcome := execute(cmd.Context(), configPath, *req, logger)
	writeResult(cmd.OutOrStdout(), outcome.Result(), logger)
	return nil
}

// execute runs the pipeline and always comes back with an outcome: errors
// and panics past this point become Failure outcomes under the request's
// correlation id rather than crashing the process.
func execute(ctx context.Context, configPath string, req types.PublishRequest, logger *zap.Logger) (outcome types.PublishOutcome) {
	log := logger.With(zap.String("correlationId", req.CorrelationID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("run panicked", zap.Any("panic", r))
			outcome = failureOutcome(req.CorrelationID, fmt.Errorf("unexpected error: %v", r))
		}
	}()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fail(log, req.CorrelationID, err)
	}

	resolved, err := images.NewResolver(cfg.Images, logger).Resolve(ctx, req.Images)
	if err != nil {
		return fail(log, req.CorrelationID, err)
	}

	session, err := browser.NewManager(cfg, logger).Acquire(ctx)
	if err != nil {
		return fail(log, req.CorrelationID, err)
	}
	defer session.Close()

	workflow, err := publish.NewWorkflow(cfg, logger)
	if err != nil {
		return fail(log, req.CorrelationID, err)
	}

	outcome, err = workflow.Run(ctx, req, resolved, session.Page)
	if err != nil {
		return fail(log, req.CorrelationID, err)
	}
	return outcome
}

func fail(log *zap.Logger, correlationID string, err error) types.PublishOutcome {
	fields := []zap.Field{zap.Error(err)}
	if code, ok := types.CodeOf(err); ok {
		fields = append(fields, zap.String("code", string(code)))
	}
	log.Error("run failed", fields...)
	return failureOutcome(correlationID, err)
}

func failureOutcome(correlationID string, err error) types.PublishOutcome {
	return types.PublishOutcome{
		CorrelationID: correlationID,
		State:         types.StateFailed,
		Message:       err.Error(),
	}
}

// readRequest builds the request from piped stdin when it carries a line,
// falling back to positional arguments.
func readRequest(in io.Reader, args []string) (*types.PublishRequest, error) {
	if stdinPiped(in) {
		if line, ok := firstNonBlankLine(in); ok {
			return types.ParseRequest(line)
		}
	}
	if len(args) > 0 {
		return types.RequestFromArgs(args)
	}
	return nil, errors.New("no request given: pipe a JSON object to stdin or pass <image> <title> [content]")
}

// stdinPiped reports whether the input carries piped data. An interactive
// terminal must never be read from, or the tool would hang waiting for it.
func stdinPiped(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		// Anything other than a real file is a substituted buffer.
		return true
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}

func firstNonBlankLine(r io.Reader) (string, bool) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRequestLine)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, true
		}
	}
	return "", false
}

// writeResult emits the run's single machine-readable stdout line.
func writeResult(w io.Writer, res types.Result, logger *zap.Logger) {
	if err := json.NewEncoder(w).Encode(res); err != nil {
		logger.Error("could not write result", zap.Error(err))
	}
}
