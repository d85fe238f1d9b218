// Package generator - шаг image-to-image как один вызов запрос/ответ и
// несколько его реализаций.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ivlev/framectl/internal/frame"
	"github.com/sirupsen/logrus"
)

// ErrGenerator помечает ошибки бэкенда генерации.
var ErrGenerator = errors.New("generator failed")

// Request - один вызов image-to-image.
type Request struct {
	Image   *frame.Frame
	Seed    int64
	Scale   float64 // CFG, насколько жёстко следовать промпту
	Denoise float64 // сила шумоподавления
	Prompt  string
	Width   int
	Height  int
}

// Response - сгенерированный кадр и фактически использованный seed.
type Response struct {
	Image *frame.Frame
	Seed  int64
	Info  string
}

// Generator превращает один кадр в другой.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// RunScoper реализуют генераторы, которым на время прогона нужно поменять
// настройки бэкенда. Возвращённая restore возвращает прежние настройки и
// должна вызываться при любом исходе.
type RunScoper interface {
	BeginRun(ctx context.Context) (restore func(context.Context) error, err error)
}

// Passthrough возвращает вход без изменений.
type Passthrough struct{}

func (Passthrough) Generate(_ context.Context, req Request) (Response, error) {
	if req.Image == nil {
		return Response{}, fmt.Errorf("%w: no input image", ErrGenerator)
	}
	return Response{Image: req.Image, Seed: req.Seed}, nil
}

// Func - адаптер обычной функции к Generator.
type Func func(ctx context.Context, req Request) (Response, error)

func (f Func) Generate(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Имена бэкендов для New.
const (
	KindPassthrough = "passthrough"
	KindAnnotate    = "annotate"
	KindWebUI       = "webui"
)

// New создаёт генератор по kind. baseURL и timeout нужны только WebUI.
func New(kind, baseURL string, timeout time.Duration, log logrus.FieldLogger) (Generator, error) {
	switch kind {
	case KindPassthrough, "":
		return Passthrough{}, nil
	case KindAnnotate:
		return Annotate{}, nil
	case KindWebUI:
		if baseURL == "" {
			return nil, errors.New("webui generator needs a base url")
		}
		return &WebUI{BaseURL: baseURL, RequestTimeout: timeout, Log: log}, nil
	}
	return nil, fmt.Errorf("unknown generator %q", kind)
}
