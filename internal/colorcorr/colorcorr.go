// Package colorcorr держит палитру сгенерированных кадров стабильной:
// гистограмма Lab каждого нового кадра подгоняется под среднее скользящего
// окна предыдущих выходных кадров.
package colorcorr

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/ivlev/framectl/internal/frame"
)

var ErrSizeMismatch = errors.New("colour correction frame size mismatch")

// LabFrame - кадр в 8-битном Lab, каналы чередуются как в frame.Frame.
type LabFrame struct {
	Width  int
	Height int
	Pix    []byte
}

// ToLab переводит кадр в Lab. Движок делает это один раз на кадр и хранит
// результат рядом с историей.
func ToLab(f *frame.Frame) *LabFrame {
	return &LabFrame{Width: f.Width, Height: f.Height, Pix: toLab(f)}
}

// Target - попиксельное среднее окна кадров в 8-битном Lab. Используется как
// эталонное распределение, а не как гистограмма по корзинам.
type Target struct {
	Width  int
	Height int
	Lab    []byte
	Frames int // сколько кадров усреднено
}

// ComputeTarget усредняет кадры в Lab, вес каждого 1/len(frames). Для
// пустого окна возвращает nil.
func ComputeTarget(frames []*frame.Frame) (*Target, error) {
	if len(frames) == 0 {
		return nil, nil
	}
	labs := make([]*LabFrame, len(frames))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup
	for i, f := range frames {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			labs[i] = ToLab(f)
			<-sem
		}()
	}
	wg.Wait()
	return ComputeTargetLab(labs)
}

// ComputeTargetLab - то же, что ComputeTarget, для кадров, уже переведённых
// в Lab.
func ComputeTargetLab(labs []*LabFrame) (*Target, error) {
	if len(labs) == 0 {
		return nil, nil
	}
	first := labs[0]
	for i, l := range labs {
		if l.Width != first.Width || l.Height != first.Height {
			return nil, fmt.Errorf("%w: frame %d is %dx%d, want %dx%d", ErrSizeMismatch, i, l.Width, l.Height, first.Width, first.Height)
		}
	}

	weight := 1 / float64(len(labs))
	sum := make([]float64, len(first.Pix))
	for _, l := range labs {
		for i, v := range l.Pix {
			sum[i] += float64(v) * weight
		}
	}

	t := &Target{Width: first.Width, Height: first.Height, Lab: make([]byte, len(sum)), Frames: len(labs)}
	for i, v := range sum {
		// Отбрасываем дробную часть, как приведение float к целому
		switch {
		case v <= 0:
			t.Lab[i] = 0
		case v >= 255:
			t.Lab[i] = 255
		default:
			t.Lab[i] = byte(v)
		}
	}
	return t, nil
}

// Apply возвращает f, у которого гистограмма каждого канала Lab подогнана
// под target. Каналы обрабатываются независимо и параллельно.
func Apply(f *frame.Frame, target *Target) (*frame.Frame, error) {
	if target == nil {
		return f, nil
	}
	if f.Width != target.Width || f.Height != target.Height {
		return nil, fmt.Errorf("%w: frame is %dx%d, target is %dx%d", ErrSizeMismatch, f.Width, f.Height, target.Width, target.Height)
	}

	lab := toLab(f)
	var luts [frame.Channels][levels]float64

	var wg sync.WaitGroup
	for c := 0; c < frame.Channels; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src, srcTotal := histogram(lab, c)
			tmpl, tmplTotal := histogram(target.Lab, c)
			luts[c] = matchLUT(src, tmpl, srcTotal, tmplTotal)
		}()
	}
	wg.Wait()

	for i := 0; i < len(lab); i += frame.Channels {
		for c := 0; c < frame.Channels; c++ {
			lab[i+c] = frame.ClampByte(luts[c][lab[i+c]])
		}
	}
	return fromLab(f.Width, f.Height, lab), nil
}
