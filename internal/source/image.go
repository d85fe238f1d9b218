package source

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/ivlev/framectl/internal/frame"
	"github.com/ivlev/framectl/internal/system"
)

// ImageSource читает отсортированную папку картинок или одну картинку.
type ImageSource struct {
	paths []string
	pos   int
}

func NewImageSource(path string) (*ImageSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var paths []string
	if fi.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() && system.HasImageExt(entry.Name()) {
				paths = append(paths, filepath.Join(path, entry.Name()))
			}
		}
		sort.Strings(paths)
	} else {
		paths = []string{path}
	}

	return &ImageSource{paths: paths}, nil
}

func (s *ImageSource) FrameCount() int {
	return len(s.paths)
}

func (s *ImageSource) Next(context.Context) (*frame.Frame, error) {
	if s.pos >= len(s.paths) {
		return nil, io.EOF
	}
	img, err := LoadImage(s.paths[s.pos])
	if err != nil {
		return nil, err
	}
	s.pos++
	return frame.FromImage(img), nil
}

func (s *ImageSource) Close() error {
	return nil
}

// LoadImage декодирует PNG или JPEG.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
