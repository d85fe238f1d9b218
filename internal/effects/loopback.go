// Package effects - временное смешивание (loopback): новый кадр
// смешивается с ранее сгенерированным выходом.
package effects

import (
	"errors"
	"fmt"
	"math"

	"github.com/ivlev/framectl/internal/frame"
)

const (
	MinDecay = 0.1
	MaxDecay = 1.0
)

var ErrNoFrames = errors.New("blend needs at least one frame")

// Blend смешивает кадры (первый - самый новый) как
//
//	frames[0]·(1-decay) + Blend(frames[1:])·decay
//
// то есть k-й более старый кадр получает вес decay^k. Рекурсия развёрнута в
// накопление от старых к новым во float64 с одним округлением в конце.
// Один кадр возвращается как есть.
func Blend(frames []*frame.Frame, decay float64) (*frame.Frame, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	if len(frames) == 1 {
		return frames[0], nil
	}

	first := frames[0]
	for i, f := range frames[1:] {
		if !f.SameSize(first) {
			return nil, fmt.Errorf("blend frame %d is %dx%d, want %dx%d", i+1, f.Width, f.Height, first.Width, first.Height)
		}
	}

	oldest := frames[len(frames)-1]
	acc := make([]float64, len(oldest.Pix))
	for i, v := range oldest.Pix {
		acc[i] = float64(v)
	}

	keep := 1 - decay
	for k := len(frames) - 2; k >= 0; k-- {
		pix := frames[k].Pix
		for i := range acc {
			acc[i] = float64(pix[i])*keep + acc[i]*decay
		}
	}

	out := frame.New(first.Width, first.Height)
	for i, v := range acc {
		out.Pix[i] = frame.ClampByte(v)
	}
	return out, nil
}

// ClampDecay ограничивает decay из сценария отрезком [MinDecay, MaxDecay].
func ClampDecay(decay float64) float64 {
	if math.IsNaN(decay) {
		return MinDecay
	}
	return clampFloat(MinDecay, decay, MaxDecay)
}

// LoopbackWindow возвращает полуинтервал истории, который смешивается с
// кадром pos:
//
//	start = clamp(0, pos-loopbackFrames, historyLen-1)
//	end   = clamp(0, pos-1, historyLen-1)
//
// Пустая история всегда даёт [0, 0).
func LoopbackWindow(pos, loopbackFrames, historyLen int) (start, end int) {
	start = clampInt(0, pos-loopbackFrames, historyLen-1)
	end = clampInt(0, pos-1, historyLen-1)
	if start > end {
		start = end
	}
	return start, end
}

func clampInt(lo, v, hi int) int {
	return max(lo, min(v, hi))
}

func clampFloat(lo, v, hi float64) float64 {
	return max(lo, min(v, hi))
}
