// Package source - источники входных кадров прогона.
package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ivlev/framectl/internal/frame"
	"github.com/ivlev/framectl/internal/system"
	"github.com/sirupsen/logrus"
)

// Source отдаёт кадры по порядку. Когда вход кончился, Next возвращает io.EOF.
type Source interface {
	Next(ctx context.Context) (*frame.Frame, error)
	// FrameCount - сколько кадров источник собирается отдать, -1 если
	// неизвестно.
	FrameCount() int
	Close() error
}

// Options общие для файловых источников.
type Options struct {
	FPS int // частота декодирования видео
	DPI int // разрешение рендера страниц PDF
}

// Open выбирает источник по пути: папка с картинками, PDF, одна картинка
// или всё, что умеет декодировать ffmpeg.
func Open(ctx context.Context, path string, opts Options, log logrus.FieldLogger) (Source, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	switch {
	case fi.IsDir():
		return NewImageSource(path)
	case strings.EqualFold(filepath.Ext(path), ".pdf"):
		return NewPDFSource(path, opts.DPI)
	case system.HasImageExt(path):
		return NewImageSource(path)
	}
	return NewVideoSource(ctx, path, opts.FPS, log)
}
