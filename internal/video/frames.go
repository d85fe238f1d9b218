package video

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ivlev/framectl/internal/frame"
)

// FrameDir пишет каждый кадр как frame_00000.png, frame_00001.png, ...
type FrameDir struct {
	Dir string
	n   int
}

func NewFrameDir(dir string) (*FrameDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create frames dir: %w", err)
	}
	return &FrameDir{Dir: dir}, nil
}

func (d *FrameDir) WriteFrame(f *frame.Frame) error {
	path := filepath.Join(d.Dir, fmt.Sprintf("frame_%05d.png", d.n))
	if err := frame.SavePNG(f, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	d.n++
	return nil
}

func (d *FrameDir) Close() error { return nil }
