package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/framectl/internal/config"
	"github.com/ivlev/framectl/internal/director"
	"github.com/ivlev/framectl/internal/engine"
	"github.com/ivlev/framectl/internal/frame"
	"github.com/ivlev/framectl/internal/generator"
	"github.com/ivlev/framectl/internal/metrics"
	"github.com/ivlev/framectl/internal/source"
	"github.com/ivlev/framectl/internal/system"
	"github.com/ivlev/framectl/internal/video"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Process an input video frame by frame",
		PreRunE: bindFlags(v),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			cfg.BuildVersion = version
			log := newLogger(cfg, cmd.ErrOrStderr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runPipeline(ctx, cfg, log, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.String("input", "", "Input video, image directory, still image or PDF")
	f.String("init-image", "", "Initial image for loopback mode (used when --input is empty)")
	f.String("output", "", "Output video (default: output/<input>_<timestamp>.mp4)")
	f.String("script", "", "Parameter script (json or yaml); default: latest in --scripts-dir")
	f.String("scripts-dir", director.ScriptsDir, "Directory searched for the latest script")
	f.Int("width", 512, "Output width")
	f.Int("height", 512, "Output height")
	f.Int("fps", 30, "Decode and encode frame rate")
	f.Int("dpi", 150, "DPI for PDF inputs")
	f.Int("cc-window", 10, "Colour correction window size (-1: all earlier frames, 0: off)")
	f.Float64("cc-rate", 1.0, "Colour correction window rate")
	f.Bool("cc-apply", false, "Emit colour-corrected frames")
	f.Float64("cc-input-strength", 0, "Mix of colour-corrected input fed to the generator, 0..1")
	f.String("generator", generator.KindPassthrough, "Generator: passthrough, annotate, webui")
	f.String("generator-url", "", "Base URL of the WebUI API")
	f.Duration("generator-timeout", 5*time.Minute, "Timeout of one generator call")
	f.String("prompt", "", "Prompt used when a script frame has none")
	f.String("mismatch", config.MismatchLockstep, "Script/input length mismatch policy: lockstep, fail, resample")
	f.String("save-frames", "", "Also write every output frame as PNG into this directory")
	f.String("encoder", "", "Video encoder (default: best available H.264)")
	f.Int("quality", 0, "Quality (0: auto; x264 CRF, VideoToolbox bitrate = Q*100 kbit/s)")
	f.Bool("no-audio", false, "Do not copy the input audio track")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	f.String("report", "", "Write a YAML run report to this path")
	return cmd
}

func runPipeline(ctx context.Context, cfg *config.Config, log *logrus.Logger, stdout, stderr io.Writer) (err error) {
	system.InitResourceLimits(log)

	path, err := scriptPath(cfg)
	if err != nil {
		return err
	}
	script, err := director.ReadScript(path, log)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "[*] Script: %s (%d frames)\n", path, script.Len())

	src, audioFrom, err := openSource(ctx, cfg, log, stdout)
	if err != nil {
		return err
	}

	output := cfg.OutputVideo
	if output == "" {
		output = defaultOutput(cfg)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		src.Close()
		return err
	}

	encoderName := cfg.VideoEncoder
	if encoderName == "" {
		encoderName = system.GetBestH264Encoder()
		if encoderName != "libx264" {
			fmt.Fprintf(stdout, "[*] Hardware encoder detected: %s\n", encoderName)
		}
	}
	quality := cfg.Quality
	if quality == 0 {
		quality = config.DefaultQuality(encoderName)
	}

	gen, err := generator.New(cfg.Generator, cfg.GeneratorURL, cfg.GeneratorTimeout, log)
	if err != nil {
		src.Close()
		return err
	}

	sink, err := video.NewEncoder(ctx, output, video.EncoderOptions{
		Width:     cfg.Width,
		Height:    cfg.Height,
		FPS:       cfg.FPS,
		Codec:     encoderName,
		Quality:   quality,
		AudioFrom: audioFrom,
	}, log)
	if err != nil {
		src.Close()
		return err
	}

	opts := engine.Options{
		Width:           cfg.Width,
		Height:          cfg.Height,
		CCWindow:        cfg.CCWindow,
		CCRate:          cfg.CCRate,
		CCApply:         cfg.CCApply,
		CCInputStrength: cfg.CCInputStrength,
		Mismatch:        cfg.Mismatch,
		DefaultPrompt:   cfg.Prompt,
		ReportPath:      cfg.ReportPath,
		BuildVersion:    cfg.BuildVersion,
	}
	if cfg.SaveFrames != "" {
		dir, err := video.NewFrameDir(cfg.SaveFrames)
		if err != nil {
			src.Close()
			sink.Close()
			return err
		}
		opts.FrameSink = dir
	}

	if cfg.MetricsAddr != "" {
		srv := metrics.StartServer(cfg.MetricsAddr, log)
		defer srv.Shutdown(context.Background())
	}

	var bar *progressbar.ProgressBar
	if !cfg.Quiet {
		bar = progressbar.NewOptions(script.FrameCount(),
			progressbar.OptionSetWriter(stderr),
			progressbar.OptionSetDescription("Generating"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetWidth(50),
			progressbar.OptionSetRenderBlankState(true),
		)
		opts.Progress = func(done, total int) {
			if total > 0 {
				bar.ChangeMax(total)
			}
			bar.Set(done)
		}
	}

	fmt.Fprintln(stdout, "--- [FRAMECTL] ---")
	fmt.Fprintf(stdout, "[*] Input: %s | Output: %s\n", inputLabel(cfg), output)
	fmt.Fprintf(stdout, "[*] Size: %dx%d @ %d FPS | Generator: %s\n", cfg.Width, cfg.Height, cfg.FPS, cfg.Generator)
	fmt.Fprintln(stdout, "------------------")

	p := &engine.Pipeline{
		Script:    script,
		Source:    src,
		Sink:      sink,
		Generator: gen,
		Options:   opts,
		Log:       log,
	}
	res, err := p.Run(ctx)
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(stderr)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("interrupted after %d frames: %w", res.FrameCount, err)
		}
		return err
	}

	fmt.Fprintf(stdout, "[+++] Done! %d frames (%s) in %.2fs. Result: %s\n",
		res.FrameCount, res.StopReason, res.Duration.Seconds(), output)
	return nil
}

// openSource открывает вход и, для видео со звуком, возвращает путь, откуда
// брать аудиодорожку.
func openSource(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, stdout io.Writer) (source.Source, string, error) {
	if cfg.InputPath == "" {
		if cfg.InitImage == "" {
			return nil, "", errors.New("either --input or --init-image is required")
		}
		img, err := source.LoadImage(cfg.InitImage)
		if err != nil {
			return nil, "", err
		}
		fmt.Fprintf(stdout, "[*] Loopback mode from %s\n", cfg.InitImage)
		return source.NewLoopback(frame.Resize(frame.FromImage(img), cfg.Width, cfg.Height)), "", nil
	}
	if cfg.InitImage != "" {
		log.WithField("init_image", cfg.InitImage).Warn("Ignoring --init-image because --input is set")
	}

	src, err := source.Open(ctx, cfg.InputPath, source.Options{FPS: cfg.FPS, DPI: cfg.DPI}, log)
	if err != nil {
		return nil, "", fmt.Errorf("open input: %w", err)
	}
	audioFrom := ""
	if vs, ok := src.(*source.VideoSource); ok && vs.Info().HasAudio && !cfg.NoAudio {
		audioFrom = cfg.InputPath
	}
	return src, audioFrom, nil
}

func inputLabel(cfg *config.Config) string {
	if cfg.InputPath != "" {
		return cfg.InputPath
	}
	return cfg.InitImage + " (loopback)"
}

func defaultOutput(cfg *config.Config) string {
	name := cfg.InputPath
	if name == "" {
		name = cfg.InitImage
	}
	base := filepath.Base(name)
	nameOnly := strings.TrimSuffix(base, filepath.Ext(base))
	cleanName := strings.ReplaceAll(nameOnly, " ", "_")
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join("output", fmt.Sprintf("%s_%s.mp4", cleanName, timestamp))
}
