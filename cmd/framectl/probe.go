package main

import (
	"fmt"

	"github.com/ivlev/framectl/internal/video"
	"github.com/spf13/cobra"
)

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <video>",
		Short: "Print frame count, size and audio presence of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := video.Probe(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "frames: %d\n", info.Frames)
			fmt.Fprintf(out, "size: %dx%d\n", info.Width, info.Height)
			fmt.Fprintf(out, "fps: %.3f\n", info.FPS)
			fmt.Fprintf(out, "duration: %.2fs\n", info.Duration)
			fmt.Fprintf(out, "audio: %t\n", info.HasAudio)
			return nil
		},
	}
}
