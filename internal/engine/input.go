package engine

import (
	"context"
	"fmt"
	"io"

	"github.com/ivlev/framectl/internal/config"
	"github.com/ivlev/framectl/internal/frame"
	"github.com/ivlev/framectl/internal/source"
	"github.com/sirupsen/logrus"
)

// inputReader сопоставляет позиции сценария кадрам входа.
type inputReader struct {
	src source.Source
	// index - кадр входа для позиции pos. Назад отображение не идёт.
	index func(pos int) int
	next  int // номер следующего кадра источника
	last  *frame.Frame
}

// planInput один раз сравнивает длины сценария и входа и выбирает
// отображение позиций на кадры.
func (p *Pipeline) planInput(log logrus.FieldLogger) (*inputReader, error) {
	scriptFrames := p.Script.FrameCount()
	inputFrames := p.Source.FrameCount()
	r := &inputReader{src: p.Source, index: func(pos int) int { return pos }}

	fields := logrus.Fields{"script_frames": scriptFrames, "input_frames": inputFrames}
	log.WithFields(fields).Info("Comparing script and input length")
	if inputFrames < 0 || inputFrames == scriptFrames {
		if inputFrames < 0 && p.Options.Mismatch == config.MismatchResample {
			log.WithFields(fields).Warn("Input length is unknown, falling back to lockstep")
		}
		return r, nil
	}

	ratio := float64(scriptFrames) / float64(inputFrames)
	fields["ratio"] = ratio
	switch p.Options.Mismatch {
	case config.MismatchFail:
		return nil, fmt.Errorf("%w: script has %d frames, input has %d", ErrFrameCountMismatch, scriptFrames, inputFrames)
	case config.MismatchResample:
		if ratio < 1 {
			log.WithFields(fields).Warn("Some input frames will be skipped to match script frame count")
		} else {
			log.WithFields(fields).Warn("Some input frames will be duplicated to match script frame count")
		}
		r.index = func(pos int) int { return pos * inputFrames / scriptFrames }
	default:
		if ratio < 1 {
			log.WithFields(fields).Warn("Input is longer than the script; trailing input frames will not be used")
		} else {
			log.WithFields(fields).Warn("Script is longer than the input; the run will end when the input runs out")
		}
	}
	return r, nil
}

// frame возвращает кадр входа для pos: читает вперёд или повторяет
// предыдущий, как требует отображение.
func (r *inputReader) frame(ctx context.Context, pos int) (*frame.Frame, error) {
	want := r.index(pos)
	if want < r.next && r.last != nil {
		return r.last, nil
	}
	for r.next <= want {
		f, err := r.src.Next(ctx)
		if err != nil {
			return nil, err
		}
		r.next++
		r.last = f
	}
	if r.last == nil {
		return nil, io.EOF
	}
	return r.last, nil
}
