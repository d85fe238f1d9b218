package source

import (
	"context"

	"github.com/ivlev/framectl/internal/frame"
)

// Loopback превращает одну картинку в бесконечный вход: первый кадр - сама
// картинка, каждый следующий - то, что вернули последним. Длину прогона
// задаёт сценарий.
type Loopback struct {
	initial *frame.Frame
	last    *frame.Frame
}

func NewLoopback(initial *frame.Frame) *Loopback {
	return &Loopback{initial: initial}
}

func (l *Loopback) Next(context.Context) (*frame.Frame, error) {
	if l.last == nil {
		return l.initial.Clone(), nil
	}
	return l.last.Clone(), nil
}

// Feedback запоминает выходной кадр как следующий вход.
func (l *Loopback) Feedback(f *frame.Frame) {
	l.last = f
}

func (l *Loopback) FrameCount() int { return -1 }

func (l *Loopback) Close() error { return nil }
