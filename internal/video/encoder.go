package video

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/ivlev/framectl/internal/frame"
	"github.com/sirupsen/logrus"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// EncoderOptions - параметры выходного потока.
type EncoderOptions struct {
	Width   int
	Height  int
	FPS     int
	Codec   string // libx264, h264_videotoolbox, h264_nvenc
	Quality int
	// AudioFrom - файл, чья аудиодорожка микшируется в выход. Пусто - видео
	// без звука.
	AudioFrom string
}

// Encoder подаёт сырые RGB-кадры в stdin процесса ffmpeg.
type Encoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	width  int
	height int
	frames int
	log    logrus.FieldLogger
	closed bool
}

// NewEncoder запускает ffmpeg с записью в path.
func NewEncoder(ctx context.Context, path string, opts EncoderOptions, log logrus.FieldLogger) (*Encoder, error) {
	args := EncodeArgs(path, opts)
	log.WithField("args", strings.Join(args, " ")).Debug("Starting encoder")

	e := &Encoder{width: opts.Width, height: opts.Height, log: log}
	e.cmd = exec.CommandContext(ctx, "ffmpeg", args...)
	e.cmd.Stderr = &e.stderr

	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	e.stdin = stdin

	if err := e.cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	return e, nil
}

// EncodeArgs собирает аргументы ffmpeg для кодирования в path.
func EncodeArgs(path string, opts EncoderOptions) []string {
	codec := opts.Codec
	if codec == "" {
		codec = "libx264"
	}

	in := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"f":       "rawvideo",
		"pix_fmt": "rgb24",
		"s":       fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"r":       opts.FPS,
	})

	kw := qualityArgs(codec, opts.Quality)
	kw["pix_fmt"] = "yuv420p"
	kw["c:v"] = codec
	kw["r"] = opts.FPS

	streams := []*ffmpeg.Stream{in}
	if opts.AudioFrom != "" {
		streams = append(streams, ffmpeg.Input(opts.AudioFrom).Audio())
		kw["c:a"] = "aac"
		kw["shortest"] = nil
	}

	return ffmpeg.Output(streams, path, kw).OverWriteOutput().GetArgs()
}

// Качество в зависимости от энкодера
func qualityArgs(codec string, quality int) ffmpeg.KwArgs {
	switch codec {
	case "h264_videotoolbox":
		return ffmpeg.KwArgs{"b:v": fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return ffmpeg.KwArgs{"cq": quality}
	default: // libx264
		return ffmpeg.KwArgs{"crf": quality, "preset": "medium"}
	}
}

// WriteFrame отправляет кадр в энкодер. Запись блокируется, пока ffmpeg
// не успевает.
func (e *Encoder) WriteFrame(f *frame.Frame) error {
	if f.Width != e.width || f.Height != e.height {
		return fmt.Errorf("encoder expects %dx%d frames, got %dx%d", e.width, e.height, f.Width, f.Height)
	}
	if _, err := e.stdin.Write(f.Pix); err != nil {
		return fmt.Errorf("write raw error: %w: %s", err, e.tail())
	}
	e.frames++
	return nil
}

// Close закрывает stdin и ждёт, пока ffmpeg допишет файл.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w: %s", err, e.tail())
	}
	e.log.WithField("frames", e.frames).Debug("Encoder finished")
	return nil
}

func (e *Encoder) tail() string {
	s := strings.TrimSpace(e.stderr.String())
	if len(s) > 512 {
		s = s[len(s)-512:]
	}
	return s
}
