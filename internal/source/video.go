package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strings"

	"github.com/ivlev/framectl/internal/frame"
	"github.com/ivlev/framectl/internal/video"
	"github.com/sirupsen/logrus"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// VideoSource декодирует видео в сырые кадры RGB24 через пайп ffmpeg.
type VideoSource struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	info   *video.Info
	fps    int // частота декодирования, 0: исходная частота
	frames int
	done   bool
	log    logrus.FieldLogger
}

func NewVideoSource(ctx context.Context, path string, fps int, log logrus.FieldLogger) (*VideoSource, error) {
	info, err := video.Probe(path)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"frames": info.Frames,
		"width":  info.Width,
		"height": info.Height,
	}).Info("Input probed")

	args := DecodeArgs(path, fps)
	log.WithField("args", strings.Join(args, " ")).Debug("Starting decoder")

	s := &VideoSource{info: info, fps: fps, log: log}
	s.cmd = exec.CommandContext(ctx, "ffmpeg", args...)
	s.cmd.Stderr = &s.stderr
	s.stdout, err = s.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	return s, nil
}

// DecodeArgs собирает аргументы ffmpeg: path декодируется в rgb24 на stdout
// с частотой fps.
func DecodeArgs(path string, fps int) []string {
	kw := ffmpeg.KwArgs{"f": "rawvideo", "pix_fmt": "rgb24"}
	if fps > 0 {
		kw["r"] = fps
	}
	return ffmpeg.Input(path).Output("pipe:", kw).GetArgs()
}

// Info - метаданные входа от ffprobe.
func (s *VideoSource) Info() *video.Info { return s.info }

// FrameCount считает кадры на частоте декодирования: при -r ffmpeg
// дублирует или выбрасывает кадры, и nb_frames исходного потока уже не
// совпадает с тем, что придёт из пайпа.
func (s *VideoSource) FrameCount() int {
	return decodedFrames(s.info, s.fps)
}

func decodedFrames(info *video.Info, fps int) int {
	switch {
	case fps <= 0:
	case info.Duration > 0:
		return int(math.Round(info.Duration * float64(fps)))
	case info.FPS > 0 && info.Frames > 0:
		return int(math.Round(float64(info.Frames) * float64(fps) / info.FPS))
	}
	if info.Frames <= 0 {
		return -1
	}
	return info.Frames
}

func (s *VideoSource) Next(context.Context) (*frame.Frame, error) {
	if s.done {
		return nil, io.EOF
	}
	buf := make([]byte, frame.Size(s.info.Width, s.info.Height))
	if _, err := io.ReadFull(s.stdout, buf); err != nil {
		s.done = true
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame %d: %w", s.frames, err)
	}
	s.frames++
	return frame.FromBytes(s.info.Width, s.info.Height, buf)
}

// Close прекращает чтение и ждёт ffmpeg. Декодер, прерванный из-за раннего
// конца прогона, ошибкой не считается.
func (s *VideoSource) Close() error {
	early := !s.done
	s.stdout.Close()
	err := s.cmd.Wait()
	if err != nil && !early {
		return fmt.Errorf("ffmpeg wait error: %w: %s", err, strings.TrimSpace(s.stderr.String()))
	}
	return nil
}
