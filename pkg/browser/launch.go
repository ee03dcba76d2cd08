package browser

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"

	"github.com/entrhq/notepress/pkg/config"
	"github.com/entrhq/notepress/pkg/types"
)

// Launcher starts a browser process with remote debugging enabled. The
// process must outlive the current run; it is shared across invocations
// through the fixed profile directory.
type Launcher interface {
	Launch(cfg config.BrowserConfig, port int) error
}

type detachedLauncher struct {
	logger *zap.Logger
}

func newDetachedLauncher(logger *zap.Logger) Launcher {
	return &detachedLauncher{logger: logger}
}

func (l *detachedLauncher) Launch(cfg config.BrowserConfig, port int) error {
	executable, err := discoverExecutable(cfg.Executable)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.ProfileDir, 0o755); err != nil {
		return fmt.Errorf("creating profile dir %s: %w", cfg.ProfileDir, err)
	}

	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", port),
		fmt.Sprintf("--user-data-dir=%s", cfg.ProfileDir),
		"--no-first-run",
		"--no-default-browser-check",
	}
	args = append(args, cfg.ExtraArgs...)

	// Deliberately not exec.CommandContext: the browser must survive this
	// process and serve later invocations.
	cmd := exec.Command(executable, args...)
	if err := cmd.Start(); err != nil {
		return types.WrapFailure(types.CodeBrowserNotFound, err, "starting %s", executable)
	}
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("detaching browser process: %w", err)
	}

	l.logger.Info("launched browser",
		zap.String("executable", executable),
		zap.Int("port", port),
		zap.String("profile", cfg.ProfileDir))
	return nil
}

// discoverExecutable returns the first usable browser binary. An explicit
// override wins; if it is set but absent that is an error rather than a
// silent fallback.
func discoverExecutable(override string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", types.WrapFailure(types.CodeBrowserNotFound, err, "configured browser %s", override)
		}
		return override, nil
	}

	for _, candidate := range knownInstallPaths() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", types.Failf(types.CodeBrowserNotFound,
		"no Chrome/Chromium/Edge install found; set NOTEPRESS_BROWSER_PATH to the browser executable")
}

func knownInstallPaths() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
		}
	case "windows":
		return []string{
			filepath.Join(os.Getenv("ProgramFiles"), "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(os.Getenv("ProgramFiles(x86)"), "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(os.Getenv("LocalAppData"), "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(os.Getenv("ProgramFiles"), "Microsoft", "Edge", "Application", "msedge.exe"),
		}
	default:
		return []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
			"/usr/bin/microsoft-edge",
		}
	}
}
