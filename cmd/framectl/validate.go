package main

import (
	"fmt"

	"github.com/ivlev/framectl/internal/config"
	"github.com/ivlev/framectl/internal/director"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newValidateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "validate",
		Short:   "Load a parameter script and report problems",
		PreRunE: bindFlags(v),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			log := newLogger(cfg, cmd.ErrOrStderr())

			path, err := scriptPath(cfg)
			if err != nil {
				return err
			}
			s, err := director.ReadScript(path, log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "[*] Script: %s\n", path)
			fmt.Fprintf(out, "[*] Frames defined: %d, last frame: %d\n", s.Len(), s.MaxIndex())
			if missing := s.FrameCount() - s.Len(); missing > 0 {
				fmt.Fprintf(out, "[!] Missing frames: %d (the run stops at the first gap)\n", missing)
			}
			fmt.Fprintf(out, "[*] Max loopback: %d\n", s.MaxLoopback())
			return nil
		},
	}
	cmd.Flags().String("script", "", "Parameter script (json or yaml); default: latest in --scripts-dir")
	cmd.Flags().String("scripts-dir", director.ScriptsDir, "Directory searched for the latest script")
	return cmd
}

func scriptPath(cfg *config.Config) (string, error) {
	if cfg.ScriptPath != "" {
		return cfg.ScriptPath, nil
	}
	path, err := director.FindLatestScript(cfg.ScriptsDir)
	if err != nil {
		return "", fmt.Errorf("no --script given: %w", err)
	}
	return path, nil
}
