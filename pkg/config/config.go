// Package config carries every tunable of a publish run: the debugging
// endpoint, the shared browser profile, the image staging directory, the
// workflow timeouts, and the platform profile (labels, selectors and phrases
// of the target creator studio). Runs and tests isolate themselves by
// injecting distinct configs instead of sharing process globals.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	env "github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration for one invocation.
type Config struct {
	Endpoint EndpointConfig `yaml:"endpoint"`
	Browser  BrowserConfig  `yaml:"browser"`
	Images   ImagesConfig   `yaml:"images"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Platform PlatformConfig `yaml:"platform"`
}

// EndpointConfig locates the remote-debugging endpoint of the shared
// browser process.
type EndpointConfig struct {
	Host string `yaml:"host" env:"NOTEPRESS_DEBUG_HOST"`
	Port int    `yaml:"port" env:"NOTEPRESS_DEBUG_PORT"`
}

// VersionURL is the liveness/handshake endpoint of the debugging protocol.
func (e EndpointConfig) VersionURL() string {
	return fmt.Sprintf("http://%s:%d/json/version", e.Host, e.Port)
}

// CDPURL is the endpoint the automation client attaches to.
func (e EndpointConfig) CDPURL() string {
	return fmt.Sprintf("http://%s:%d", e.Host, e.Port)
}

// BrowserConfig controls how a debuggable browser process is found,
// launched, and reused across invocations.
type BrowserConfig struct {
	// Executable overrides install-path discovery when set.
	Executable string `yaml:"executable" env:"NOTEPRESS_BROWSER_PATH"`

	// ProfileDir is the persistent user-data directory shared across runs.
	// Reusing it keeps cookies, login state and fingerprint stable.
	ProfileDir string `yaml:"profile_dir" env:"NOTEPRESS_PROFILE_DIR"`

	// ExtraArgs are appended to the launch command line.
	ExtraArgs []string `yaml:"extra_args"`

	// ProbeInterval and ProbeAttempts bound the post-launch poll of the
	// liveness endpoint.
	ProbeInterval time.Duration `yaml:"probe_interval"`
	ProbeAttempts int           `yaml:"probe_attempts"`

	// ViewportWidth/Height apply only when a fresh context must be created.
	ViewportWidth  int `yaml:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height"`
}

// ImagesConfig controls image staging.
type ImagesConfig struct {
	// TempDir receives downloaded and decoded images. Files are not cleaned
	// up by this tool.
	TempDir string `yaml:"temp_dir" env:"NOTEPRESS_IMAGE_DIR"`

	// DownloadTimeout bounds each remote image fetch.
	DownloadTimeout time.Duration `yaml:"download_timeout"`
}

// WorkflowConfig bounds every blocking step of the publish workflow.
// Nothing in the workflow may block without one of these limits.
type WorkflowConfig struct {
	Navigation        time.Duration `yaml:"navigation"`          // publish-page load, network quiescence
	Login             time.Duration `yaml:"login"`               // total budget for manual login/navigation
	LoginPoll         time.Duration `yaml:"login_poll"`          // URL re-check interval while waiting
	UploadTabProbe    time.Duration `yaml:"upload_tab_probe"`    // image-tab lookup before giving up
	UploadInput       time.Duration `yaml:"upload_input"`        // file input attachment wait
	SettleBase        time.Duration `yaml:"settle_base"`         // client-side processing floor
	SettlePerImg      time.Duration `yaml:"settle_per_img"`      // added per image beyond the first
	SettleMax         time.Duration `yaml:"settle_max"`          // processing wait ceiling
	ContentFieldProbe time.Duration `yaml:"content_field_probe"` // rich-text editor lookup before keyboard fallback
	ControlProbe      time.Duration `yaml:"control_probe"`       // per-candidate publish control lookup
	ElementProbe      time.Duration `yaml:"element_probe"`       // short per-element visibility probe
	ConfirmWindow     time.Duration `yaml:"confirm_window"`      // shared window of the success race
	FallbackProbe     time.Duration `yaml:"fallback_probe"`      // per-phrase secondary success scan
	RetryCooldown     time.Duration `yaml:"retry_cooldown"`      // pause between submit attempts
	MaxAttempts       int           `yaml:"max_attempts"`        // submit-and-confirm attempt budget
}

// PlatformConfig is the profile of the target platform's publish surface.
// Every value is an override point: the platform's copy and markup shift
// across experiment cohorts, and tests substitute their own profile.
type PlatformConfig struct {
	PublishURL        string `yaml:"publish_url"`
	PublishURLGlob    string `yaml:"publish_url_glob"`
	DetailURLGlob     string `yaml:"detail_url_glob"`
	UploadTabLabel    string `yaml:"upload_tab_label"`
	FileInputSelector string `yaml:"file_input_selector"`
	TitleSelector     string `yaml:"title_selector"`
	ContentSelector   string `yaml:"content_selector"`

	// Publish control lookup order: exact role-button name, exact text,
	// then the alternate label some UI variants use.
	PublishButtonLabel string `yaml:"publish_button_label"`
	PublishNoteLabel   string `yaml:"publish_note_label"`

	// ProcessingPhrases are transient "please wait" indicators that gate an
	// early click.
	ProcessingPhrases []string `yaml:"processing_phrases"`

	// SuccessText and SuccessTextAlt are the racing textual success
	// signals; FallbackSuccessPhrases are re-scanned after a race timeout.
	SuccessText            string   `yaml:"success_text"`
	SuccessTextAlt         string   `yaml:"success_text_alt"`
	FallbackSuccessPhrases []string `yaml:"fallback_success_phrases"`

	// ConfirmedMessage and UnconfirmedMessage are the outcome messages for
	// the two success states.
	ConfirmedMessage   string `yaml:"confirmed_message"`
	UnconfirmedMessage string `yaml:"unconfirmed_message"`
}

// DefaultConfig returns the configuration a plain invocation runs with.
// Platform defaults target the note platform's creator studio this tool was
// built against.
func DefaultConfig() *Config {
	profileDir := ".notepress/browser-profile"
	if home, err := os.UserHomeDir(); err == nil {
		profileDir = filepath.Join(home, ".notepress", "browser-profile")
	}

	return &Config{
		Endpoint: EndpointConfig{
			Host: "127.0.0.1",
			Port: 9222,
		},
		Browser: BrowserConfig{
			ProfileDir:     profileDir,
			ProbeInterval:  500 * time.Millisecond,
			ProbeAttempts:  20,
			ViewportWidth:  1280,
			ViewportHeight: 720,
		},
		Images: ImagesConfig{
			TempDir:         filepath.Join(os.TempDir(), "notepress-images"),
			DownloadTimeout: 30 * time.Second,
		},
		Workflow: WorkflowConfig{
			Navigation:        30 * time.Second,
			Login:             120 * time.Second,
			LoginPoll:         3 * time.Second,
			UploadTabProbe:    5 * time.Second,
			UploadInput:       10 * time.Second,
			SettleBase:        30 * time.Second,
			SettlePerImg:      5 * time.Second,
			SettleMax:         60 * time.Second,
			ContentFieldProbe: 2 * time.Second,
			ControlProbe:      2 * time.Second,
			ElementProbe:      time.Second,
			ConfirmWindow:     8 * time.Second,
			FallbackProbe:     2 * time.Second,
			RetryCooldown:     3 * time.Second,
			MaxAttempts:       3,
		},
		Platform: PlatformConfig{
			PublishURL:         "https://creator.xiaohongshu.com/publish/publish?from=menu",
			PublishURLGlob:     "*creator.xiaohongshu.com/publish/publish*",
			DetailURLGlob:      "*xiaohongshu.com/explore/*",
			UploadTabLabel:     "上传图文",
			FileInputSelector:  `input[type="file"]`,
			TitleSelector:      `input[placeholder*="标题"]`,
			ContentSelector:    `div[contenteditable="true"]`,
			PublishButtonLabel: "发布",
			PublishNoteLabel:   "发布笔记",
			ProcessingPhrases:  []string{"上传中", "处理中", "发布中", "请稍候", "请稍等"},
			SuccessText:        "发布成功",
			SuccessTextAlt:     "笔记发布成功",
			FallbackSuccessPhrases: []string{
				"发布完成",
				"已发布",
			},
			ConfirmedMessage:   "发布成功！",
			UnconfirmedMessage: "未检测到明确的发布成功提示，请前往创作中心手动确认发布结果",
		},
	}
}

// Load builds the effective configuration: defaults, then the optional YAML
// file, then environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Endpoint.Host == "" {
		return fmt.Errorf("endpoint host is required")
	}
	if c.Endpoint.Port <= 0 || c.Endpoint.Port > 65535 {
		return fmt.Errorf("endpoint port must be in 1..65535, got %d", c.Endpoint.Port)
	}
	if c.Browser.ProfileDir == "" {
		return fmt.Errorf("browser profile directory is required")
	}
	if c.Browser.ProbeInterval <= 0 {
		return fmt.Errorf("probe interval must be positive")
	}
	if c.Browser.ProbeAttempts <= 0 {
		return fmt.Errorf("probe attempts must be positive")
	}
	if c.Images.TempDir == "" {
		return fmt.Errorf("image temp directory is required")
	}
	if c.Workflow.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.Workflow.Navigation <= 0 || c.Workflow.Login <= 0 || c.Workflow.ConfirmWindow <= 0 {
		return fmt.Errorf("workflow timeouts must be positive")
	}
	if c.Platform.PublishURL == "" || c.Platform.PublishURLGlob == "" {
		return fmt.Errorf("platform publish URL and URL pattern are required")
	}
	if c.Platform.FileInputSelector == "" {
		return fmt.Errorf("platform file input selector is required")
	}
	if c.Platform.PublishButtonLabel == "" {
		return fmt.Errorf("platform publish button label is required")
	}
	return nil
}
