package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/ivlev/framectl/internal/colorcorr"
	"github.com/ivlev/framectl/internal/config"
	"github.com/ivlev/framectl/internal/director"
	"github.com/ivlev/framectl/internal/effects"
	"github.com/ivlev/framectl/internal/frame"
	"github.com/ivlev/framectl/internal/generator"
	"github.com/ivlev/framectl/internal/history"
	"github.com/ivlev/framectl/internal/metrics"
	"github.com/ivlev/framectl/internal/renderer"
	"github.com/ivlev/framectl/internal/source"
	"github.com/ivlev/framectl/internal/system"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// StopReason - почему прогон закончился без ошибки.
type StopReason string

const (
	StopScriptExhausted StopReason = "script_exhausted"
	StopInputExhausted  StopReason = "input_exhausted"
)

var ErrFrameCountMismatch = errors.New("script and input frame counts differ")

// Sink принимает выходные кадры по порядку.
type Sink interface {
	WriteFrame(f *frame.Frame) error
	Close() error
}

// Options - настройки прогона.
type Options struct {
	Width  int
	Height int

	// Окно цветокоррекции: размер (colorcorr.Unbounded - все предыдущие
	// кадры, 0 - выключено) и скорость.
	CCWindow int
	CCRate   float64
	// CCApply выводит и сохраняет в историю скорректированный кадр.
	CCApply bool
	// CCInputStrength подмешивает скорректированную копию во вход генератора.
	CCInputStrength float64

	Mismatch      string // config.Mismatch*; пусто - lockstep
	DefaultPrompt string

	// FrameSink, если задан, тоже получает каждый выходной кадр.
	FrameSink Sink
	// CollectFrames сохраняет все выходные кадры в Result.Frames.
	CollectFrames bool
	ReportPath    string
	BuildVersion  string

	// Progress вызывается после каждого кадра с числом готовых и ожидаемым
	// итогом (-1, если неизвестен).
	Progress func(done, total int)
}

// Pipeline ведёт один покадровый прогон генерации.
type Pipeline struct {
	Script    *director.Script
	Source    source.Source
	Sink      Sink
	Generator generator.Generator
	Options   Options
	Log       logrus.FieldLogger
}

// Result описывает завершённый прогон.
type Result struct {
	Frames     []*frame.Frame
	FrameCount int
	Seed       int64 // seed первого кадра
	Info       string
	Seeds      []int64
	StopReason StopReason
	Duration   time.Duration
}

type feedbacker interface {
	Feedback(f *frame.Frame)
}

// Run обрабатывает кадры, пока не кончится сценарий или вход. Источник и
// приёмник закрываются при любом исходе. Отмена проверяется только между
// кадрами.
func (p *Pipeline) Run(ctx context.Context) (res *Result, err error) {
	log := p.logger()
	opts := p.Options
	start := time.Now()
	res = &Result{}
	stats := newStageStats()

	defer func() {
		if cerr := p.closeStreams(); cerr != nil && err == nil {
			err = cerr
		}
		res.Duration = time.Since(start)
		if err == nil {
			metrics.RunsTotal.WithLabelValues(string(res.StopReason)).Inc()
		}
		if opts.ReportPath != "" {
			if rerr := writeReport(opts.ReportPath, newReport(res, stats, opts.BuildVersion, err)); rerr != nil {
				log.WithError(rerr).Warn("Could not write run report")
			}
		}
	}()

	// INIT
	input, err := p.planInput(log)
	if err != nil {
		return res, err
	}
	retention := newRetention(p.Script.MaxLoopback(), opts)
	system.CheckFrameBudget(system.FrameBudget{
		RetainedFrames: retention.span(),
		FrameBytes:     frame.Size(opts.Width, opts.Height),
		TotalFrames:    p.Script.FrameCount(),
	}, log)

	if scoper, ok := p.Generator.(generator.RunScoper); ok {
		restore, err := scoper.BeginRun(ctx)
		if err != nil {
			return res, fmt.Errorf("prepare generator: %w", err)
		}
		defer func() {
			if rerr := restore(context.WithoutCancel(ctx)); rerr != nil {
				log.WithError(rerr).Warn("Could not restore generator settings")
				if err == nil {
					err = rerr
				}
			}
		}()
	}

	hist := history.New[*frame.Frame]()
	var labs *history.History[*colorcorr.LabFrame]
	if retention.ccUsed {
		labs = history.New[*colorcorr.LabFrame]()
	}
	fb, _ := p.Source.(feedbacker)
	total := p.Script.FrameCount()
	if n := p.Source.FrameCount(); n >= 0 && opts.Mismatch != config.MismatchResample {
		total = min(total, n)
	}

	for pos := 0; ; pos++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		// READ_FRAME
		d, ok := p.Script.Get(pos)
		if !ok {
			log.WithField("frame", pos).Info("Ending: no script information about how to process frame")
			res.StopReason = StopScriptExhausted
			break
		}
		t := time.Now()
		in, err := input.frame(ctx, pos)
		if errors.Is(err, io.EOF) {
			log.WithField("frame", pos).Info("Ending: no further input")
			res.StopReason = StopInputExhausted
			break
		}
		if err != nil {
			return res, fmt.Errorf("frame %d: read input: %w", pos, err)
		}
		if in.Width != opts.Width || in.Height != opts.Height {
			in = frame.Resize(in, opts.Width, opts.Height)
		}
		stats.observe(metrics.StageRead, t)

		out, gen, err := p.process(ctx, pos, d, in, hist, labs, stats, log)
		if err != nil {
			return res, err
		}

		// EMIT
		t = time.Now()
		if err := p.Sink.WriteFrame(out); err != nil {
			return res, fmt.Errorf("frame %d: write output: %w", pos, err)
		}
		if opts.FrameSink != nil {
			if err := opts.FrameSink.WriteFrame(out); err != nil {
				return res, fmt.Errorf("frame %d: save frame: %w", pos, err)
			}
		}
		stats.observe(metrics.StageEmit, t)

		// ADVANCE
		floor := retention.floor(pos + 1)
		hist.Append(out)
		hist.Release(floor)
		if labs != nil {
			t = time.Now()
			labs.Append(colorcorr.ToLab(out))
			labs.Release(floor)
			stats.observe(metrics.StageColorCorrect, t)
		}
		metrics.HistoryRetainedFrames.Set(float64(hist.Retained()))
		if fb != nil {
			fb.Feedback(out)
		}
		if opts.CollectFrames {
			res.Frames = append(res.Frames, out)
		}
		if res.FrameCount == 0 {
			res.Seed, res.Info = gen.Seed, gen.Info
		}
		res.Seeds = append(res.Seeds, gen.Seed)
		res.FrameCount++
		metrics.FramesProcessedTotal.Inc()

		log.WithFields(logrus.Fields{
			"frame":    pos,
			"seed":     gen.Seed,
			"retained": hist.Retained(),
		}).Info("Frame done")
		if opts.Progress != nil {
			opts.Progress(res.FrameCount, total)
		}
	}

	// DONE
	log.WithFields(logrus.Fields{
		"frames": res.FrameCount,
		"reason": res.StopReason,
	}).Info("Run finished")
	return res, nil
}

// process выполняет TRANSFORM, BLEND, GENERATE и COLOR_CORRECT для одного
// кадра и возвращает кадр для вывода.
func (p *Pipeline) process(ctx context.Context, pos int, d director.FrameDirective, in *frame.Frame, hist *history.History[*frame.Frame], labs *history.History[*colorcorr.LabFrame], stats *stageStats, log logrus.FieldLogger) (*frame.Frame, generator.Response, error) {
	opts := p.Options
	log = log.WithField("frame", pos)

	// TRANSFORM
	t := time.Now()
	warped, err := renderer.Warp(in, renderer.Params{
		RotationX: d.RotationX,
		RotationY: d.RotationY,
		RotationZ: d.RotationZ,
		PanX:      -d.PanX,
		PanY:      -d.PanY,
		Zoom:      -d.Zoom,
	})
	if err != nil {
		return nil, generator.Response{}, fmt.Errorf("frame %d: transform: %w", pos, err)
	}
	stats.observe(metrics.StageTransform, t)

	// BLEND
	t = time.Now()
	lbStart, lbEnd := effects.LoopbackWindow(pos, d.LoopbackFrames, hist.Len())
	older, err := hist.Slice(lbStart, lbEnd)
	if err != nil {
		return nil, generator.Response{}, fmt.Errorf("frame %d: loopback window: %w", pos, err)
	}
	decay := effects.ClampDecay(d.LoopbackDecay)
	log.WithFields(logrus.Fields{
		"blend_frames": len(older) + 1,
		"window_start": lbStart,
		"window_end":   lbEnd,
		"decay":        decay,
	}).Debug("Blending frames")
	blended, err := effects.Blend(append([]*frame.Frame{warped}, older...), decay)
	if err != nil {
		return nil, generator.Response{}, fmt.Errorf("frame %d: blend: %w", pos, err)
	}
	stats.observe(metrics.StageBlend, t)

	// Цель цветокоррекции по предыдущему выходу
	t = time.Now()
	target, err := p.colorTarget(pos, hist.Len(), labs, log)
	if err != nil {
		return nil, generator.Response{}, fmt.Errorf("frame %d: colour target: %w", pos, err)
	}
	if target != nil && opts.CCInputStrength > 0 {
		corrected, err := colorcorr.Apply(blended, target)
		if err != nil {
			return nil, generator.Response{}, fmt.Errorf("frame %d: colour correct input: %w", pos, err)
		}
		if blended, err = effects.Blend([]*frame.Frame{blended, corrected}, opts.CCInputStrength); err != nil {
			return nil, generator.Response{}, fmt.Errorf("frame %d: colour correct input: %w", pos, err)
		}
	}
	stats.observe(metrics.StageColorCorrect, t)

	// GENERATE
	t = time.Now()
	prompt := d.Prompt
	if prompt == "" {
		prompt = opts.DefaultPrompt
	}
	gen, err := p.Generator.Generate(ctx, generator.Request{
		Image:   blended,
		Seed:    d.Seed,
		Scale:   clamp(-100, d.Scale, 100),
		Denoise: clamp(0.1, d.Denoise, 0.99),
		Prompt:  prompt,
		Width:   opts.Width,
		Height:  opts.Height,
	})
	if err == nil && gen.Image == nil {
		err = errors.New("no image returned")
	}
	if err != nil {
		metrics.GeneratorFailuresTotal.Inc()
		if !errors.Is(err, generator.ErrGenerator) {
			err = fmt.Errorf("%w: %w", generator.ErrGenerator, err)
		}
		return nil, generator.Response{}, fmt.Errorf("frame %d: %w", pos, err)
	}
	stats.observe(metrics.StageGenerate, t)

	out := gen.Image
	if out.Width != opts.Width || out.Height != opts.Height {
		out = frame.Resize(out, opts.Width, opts.Height)
	}

	// COLOR_CORRECT
	if target != nil && opts.CCApply {
		t = time.Now()
		if out, err = colorcorr.Apply(out, target); err != nil {
			return nil, generator.Response{}, fmt.Errorf("frame %d: colour correct: %w", pos, err)
		}
		stats.observe(metrics.StageColorCorrect, t)
	}
	return out, gen, nil
}

// colorTarget усредняет окно коррекции для pos по Lab-истории. Окно
// пишется в лог на каждом кадре, даже если коррекция выключена; labs == nil
// значит, что цель никому не нужна и не считается.
func (p *Pipeline) colorTarget(pos, produced int, labs *history.History[*colorcorr.LabFrame], log logrus.FieldLogger) (*colorcorr.Target, error) {
	opts := p.Options
	start, end := colorcorr.Window(pos, opts.CCWindow, opts.CCRate)
	end = min(end, produced)
	fields := logrus.Fields{
		"window_start":     start,
		"window_end":       end,
		"effective_window": max(0, end-start),
	}
	if labs == nil {
		log.WithFields(fields).Debug("Colour correction is off")
		return nil, nil
	}
	if end <= start {
		log.WithFields(fields).Debug("Skipping colour correction")
		return nil, nil
	}
	window, err := labs.Slice(start, end)
	if err != nil {
		return nil, err
	}
	log.WithFields(fields).Debug("Applying colour correction")
	return colorcorr.ComputeTargetLab(window)
}

// closeStreams параллельно закрывает источник и приёмники и ждёт внешние
// процессы.
func (p *Pipeline) closeStreams() error {
	var g errgroup.Group
	g.Go(func() error {
		if err := p.Sink.Close(); err != nil {
			return fmt.Errorf("close output: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := p.Source.Close(); err != nil {
			return fmt.Errorf("close input: %w", err)
		}
		return nil
	})
	if p.Options.FrameSink != nil {
		g.Go(p.Options.FrameSink.Close)
	}
	return g.Wait()
}

func (p *Pipeline) logger() logrus.FieldLogger {
	if p.Log != nil {
		return p.Log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func clamp(lo, v, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return max(lo, min(v, hi))
}
