package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://127.0.0.1:9222/json/version", cfg.Endpoint.VersionURL())
	assert.Equal(t, "http://127.0.0.1:9222", cfg.Endpoint.CDPURL())
	assert.Equal(t, 500*time.Millisecond, cfg.Browser.ProbeInterval)
	assert.Equal(t, 20, cfg.Browser.ProbeAttempts)
	assert.Equal(t, 3, cfg.Workflow.MaxAttempts)
	assert.Equal(t, "发布成功！", cfg.Platform.ConfirmedMessage)
}

func TestLoadAppliesFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notepress.yaml")
	yaml := `
endpoint:
  port: 9333
platform:
  publish_button_label: Publish
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("NOTEPRESS_DEBUG_PORT", "9444")
	t.Setenv("NOTEPRESS_PROFILE_DIR", filepath.Join(dir, "profile"))

	cfg, err := Load(path)
	require.NoError(t, err)

	// env beats file beats default
	assert.Equal(t, 9444, cfg.Endpoint.Port)
	assert.Equal(t, "Publish", cfg.Platform.PublishButtonLabel)
	assert.Equal(t, filepath.Join(dir, "profile"), cfg.Browser.ProfileDir)
	// untouched defaults survive the overlay
	assert.Equal(t, "127.0.0.1", cfg.Endpoint.Host)
	assert.Equal(t, 8*time.Second, cfg.Workflow.ConfirmWindow)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Endpoint.Port = 0 }},
		{"port too large", func(c *Config) { c.Endpoint.Port = 70000 }},
		{"empty profile dir", func(c *Config) { c.Browser.ProfileDir = "" }},
		{"zero probe attempts", func(c *Config) { c.Browser.ProbeAttempts = 0 }},
		{"zero max attempts", func(c *Config) { c.Workflow.MaxAttempts = 0 }},
		{"empty publish url", func(c *Config) { c.Platform.PublishURL = "" }},
		{"empty file input selector", func(c *Config) { c.Platform.FileInputSelector = "" }},
		{"zero confirm window", func(c *Config) { c.Workflow.ConfirmWindow = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
