package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Политики расхождения длины сценария и входа
const (
	MismatchLockstep = "lockstep"
	MismatchFail     = "fail"
	MismatchResample = "resample"
)

const EnvPrefix = "FRAMECTL"

type Config struct {
	InputPath   string `mapstructure:"input"`
	InitImage   string `mapstructure:"init-image"`
	OutputVideo string `mapstructure:"output"`
	ScriptPath  string `mapstructure:"script"`
	ScriptsDir  string `mapstructure:"scripts-dir"`

	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
	FPS    int `mapstructure:"fps"`
	DPI    int `mapstructure:"dpi"`

	CCWindow        int     `mapstructure:"cc-window"`
	CCRate          float64 `mapstructure:"cc-rate"`
	CCApply         bool    `mapstructure:"cc-apply"`
	CCInputStrength float64 `mapstructure:"cc-input-strength"`

	Generator        string        `mapstructure:"generator"`
	GeneratorURL     string        `mapstructure:"generator-url"`
	GeneratorTimeout time.Duration `mapstructure:"generator-timeout"`
	Prompt           string        `mapstructure:"prompt"`

	Mismatch     string `mapstructure:"mismatch"`
	SaveFrames   string `mapstructure:"save-frames"`
	VideoEncoder string `mapstructure:"encoder"`
	Quality      int    `mapstructure:"quality"`
	NoAudio      bool   `mapstructure:"no-audio"`

	MetricsAddr string `mapstructure:"metrics-addr"`
	ReportPath  string `mapstructure:"report"`
	LogLevel    string `mapstructure:"log-level"`
	LogFormat   string `mapstructure:"log-format"`
	Quiet       bool   `mapstructure:"quiet"`

	BuildVersion string `mapstructure:"-"`
}

// SetDefaults регистрирует в v все значения по умолчанию.
func SetDefaults(v *viper.Viper) {
	// Пустые значения тоже регистрируются: без них Unmarshal не видит
	// переменные окружения
	for _, key := range []string{"input", "init-image", "output", "script", "generator-url", "prompt", "save-frames", "encoder", "metrics-addr", "report"} {
		v.SetDefault(key, "")
	}
	v.SetDefault("quality", 0)
	v.SetDefault("no-audio", false)
	v.SetDefault("quiet", false)
	v.SetDefault("scripts-dir", "scripts")
	v.SetDefault("width", 512)
	v.SetDefault("height", 512)
	v.SetDefault("fps", 30)
	v.SetDefault("dpi", 150)
	v.SetDefault("cc-window", 10)
	v.SetDefault("cc-rate", 1.0)
	v.SetDefault("cc-apply", false)
	v.SetDefault("cc-input-strength", 0.0)
	v.SetDefault("generator", "passthrough")
	v.SetDefault("generator-timeout", 5*time.Minute)
	v.SetDefault("mismatch", MismatchLockstep)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
}

// Load сводит необязательный файл из ключа "config", переменные окружения
// FRAMECTL_* и привязанные к v флаги, затем проверяет результат.
func Load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет значения, с которыми конвейер работать не может.
func (c *Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid size %dx%d", c.Width, c.Height))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", c.FPS))
	}
	if c.CCWindow < -1 {
		errs = append(errs, fmt.Errorf("cc-window must be -1 (unbounded) or >= 0, got %d", c.CCWindow))
	}
	if c.CCRate < 0 {
		errs = append(errs, fmt.Errorf("cc-rate must be >= 0, got %g", c.CCRate))
	}
	if c.CCInputStrength < 0 || c.CCInputStrength > 1 {
		errs = append(errs, fmt.Errorf("cc-input-strength must be in [0,1], got %g", c.CCInputStrength))
	}
	switch c.Mismatch {
	case MismatchLockstep, MismatchFail, MismatchResample:
	default:
		errs = append(errs, fmt.Errorf("unknown mismatch policy %q", c.Mismatch))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// DefaultQuality подбирает качество для энкодера, если оно не задано.
func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75 // Хорошее качество для VideoToolbox
	case "h264_nvenc":
		return 28 // Эквивалент CRF для NVENC
	default:
		return 23 // Стандартный CRF для x264
	}
}
