package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, 512, cfg.Width)
	assert.Equal(t, 512, cfg.Height)
	assert.Equal(t, 30, cfg.FPS)
	assert.Equal(t, 10, cfg.CCWindow)
	assert.Equal(t, 1.0, cfg.CCRate)
	assert.False(t, cfg.CCApply)
	assert.Equal(t, MismatchLockstep, cfg.Mismatch)
	assert.Equal(t, "passthrough", cfg.Generator)
	assert.Equal(t, 5*time.Minute, cfg.GeneratorTimeout)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("FRAMECTL_CC_WINDOW", "-1")
	t.Setenv("FRAMECTL_GENERATOR_URL", "http://127.0.0.1:7860")

	cfg, err := Load(newViper())
	require.NoError(t, err)
	assert.Equal(t, -1, cfg.CCWindow)
	assert.Equal(t, "http://127.0.0.1:7860", cfg.GeneratorURL)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framectl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("width: 768\ncc-rate: 0.5\nmismatch: resample\n"), 0o644))

	v := newViper()
	v.Set("config", path)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 768, cfg.Width)
	assert.Equal(t, 0.5, cfg.CCRate)
	assert.Equal(t, MismatchResample, cfg.Mismatch)
}

func TestLoadMissingFile(t *testing.T) {
	v := newViper()
	v.Set("config", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load(v)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{Width: 512, Height: 512, FPS: 30, CCWindow: 10, CCRate: 1, Mismatch: MismatchLockstep, LogFormat: "text"}
	}

	ok := base()
	assert.NoError(t, ok.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"zero fps", func(c *Config) { c.FPS = 0 }},
		{"window below -1", func(c *Config) { c.CCWindow = -2 }},
		{"negative rate", func(c *Config) { c.CCRate = -0.1 }},
		{"strength above one", func(c *Config) { c.CCInputStrength = 1.5 }},
		{"unknown policy", func(c *Config) { c.Mismatch = "stretch" }},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestDefaultQuality(t *testing.T) {
	assert.Equal(t, 75, DefaultQuality("h264_videotoolbox"))
	assert.Equal(t, 28, DefaultQuality("h264_nvenc"))
	assert.Equal(t, 23, DefaultQuality("libx264"))
}
