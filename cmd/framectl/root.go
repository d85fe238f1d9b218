package main

import (
	"io"
	"os"

	"github.com/ivlev/framectl/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version задаётся при сборке: -ldflags "-X main.version=..."
var version = "dev"

func execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)

	rootCmd := &cobra.Command{
		Use:           "framectl",
		Short:         "Frame-by-frame generative video driven by a parameter script",
		Long:          "framectl warps, blends and regenerates every frame of an input video according to a per-frame parameter script, keeping colours stable across the run.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (yaml, json or toml)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", "text", "Log format: text, json")
	pf.Bool("quiet", false, "Disable the progress bar")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(v),
		newValidateCmd(v),
		newProbeCmd(),
	)
	return rootCmd
}

// bindFlags привязывает к v флаги выполняемой команды. Привязка делается
// при каждом запуске, чтобы команды с одинаковыми флагами не перетирали
// друг друга.
func bindFlags(v *viper.Viper) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return v.BindPFlags(cmd.Flags())
	}
}

func newLogger(cfg *config.Config, out io.Writer) *logrus.Logger {
	log := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	log.SetOutput(out)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
	}
	log.SetLevel(level)

	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
