package frame

import (
	"image"
	"image/png"
	"io"
	"os"

	"github.com/ivlev/framectl/internal/system"
	xdraw "golang.org/x/image/draw"
)

// Resize масштабирует f до width x height ядром Catmull-Rom. Кадр нужного
// размера возвращается нетронутой копией.
func Resize(f *Frame, width, height int) *Frame {
	if f.Width == width && f.Height == height {
		return f.Clone()
	}

	src := f.RGBA(system.GetImage(f.Bounds()))
	defer system.PutImage(src)

	dst := system.GetImage(image.Rect(0, 0, width, height))
	defer system.PutImage(dst)

	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return FromImage(dst)
}

// EncodePNG пишет f в w как PNG.
func EncodePNG(w io.Writer, f *Frame) error {
	img := f.RGBA(system.GetImage(f.Bounds()))
	defer system.PutImage(img)
	return png.Encode(w, img)
}

// SavePNG сохраняет f в PNG-файл.
func SavePNG(f *Frame, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodePNG(out, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
