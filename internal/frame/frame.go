// Package frame - сырой буфер RGB24, который идёт через весь конвейер, и
// преобразования между ним и пакетом image.
package frame

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
)

// Channels - число чередующихся 8-битных каналов на пиксель.
const Channels = 3

var ErrBufferSize = errors.New("frame buffer size mismatch")

// Frame - буфер RGB24 фиксированного размера без метаданных.
// Пиксель (x, y) начинается с Pix[(y*Width+x)*3].
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// New выделяет чёрный кадр.
func New(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*Channels),
	}
}

// FromBytes оборачивает сырой буфер rgb24 без копирования.
func FromBytes(width, height int, pix []byte) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if len(pix) != width*height*Channels {
		return nil, fmt.Errorf("%w: got %d bytes, want %d for %dx%d", ErrBufferSize, len(pix), width*height*Channels, width, height)
	}
	return &Frame{Width: width, Height: height, Pix: pix}, nil
}

// Size - размер одного кадра в байтах.
func Size(width, height int) int {
	return width * height * Channels
}

func (f *Frame) Clone() *Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return &Frame{Width: f.Width, Height: f.Height, Pix: pix}
}

// SameSize сообщает, совпадают ли размеры кадров.
func (f *Frame) SameSize(o *Frame) bool {
	return f.Width == o.Width && f.Height == o.Height
}

func (f *Frame) Equal(o *Frame) bool {
	if o == nil || !f.SameSize(o) {
		return false
	}
	for i := range f.Pix {
		if f.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

// Offset - индекс первого канала пикселя (x, y).
func (f *Frame) Offset(x, y int) int {
	return (y*f.Width + x) * Channels
}

func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

// RGBA разворачивает кадр в dst. Если dst nil или другого размера,
// выделяется новый буфер.
func (f *Frame) RGBA(dst *image.RGBA) *image.RGBA {
	if dst == nil || dst.Rect != f.Bounds() {
		dst = image.NewRGBA(f.Bounds())
	}
	for y := 0; y < f.Height; y++ {
		src := f.Pix[y*f.Width*Channels : (y+1)*f.Width*Channels]
		row := dst.Pix[y*dst.Stride : y*dst.Stride+f.Width*4]
		for x, j := 0, 0; x < len(src); x, j = x+3, j+4 {
			row[j] = src[x]
			row[j+1] = src[x+1]
			row[j+2] = src[x+2]
			row[j+3] = 0xff
		}
	}
	return dst
}

// FromImage копирует любое изображение в новый кадр, альфа отбрасывается.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
		b = rgba.Bounds()
	}
	f := New(b.Dx(), b.Dy())
	for y := 0; y < f.Height; y++ {
		row := rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := f.Pix[y*f.Width*Channels : (y+1)*f.Width*Channels]
		for x, j := 0, 0; j < len(dst); x, j = x+4, j+3 {
			dst[j] = row[x]
			dst[j+1] = row[x+1]
			dst[j+2] = row[x+2]
		}
	}
	return f
}

// ClampByte округляет v до ближайшего целого и зажимает в [0, 255].
func ClampByte(v float64) byte {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return byte(v + 0.5)
}
