package colorcorr

import (
	"github.com/ivlev/framectl/internal/frame"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Каналы Lab хранятся в 8 битах, как в большинстве графических библиотек:
// L растянут с [0,100] на [0,255], к a и b прибавлено 128.

func rgbToLab(r, g, b byte) (byte, byte, byte) {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	l, a, bb := c.Lab()
	return frame.ClampByte(l * 255), frame.ClampByte(a*100 + 128), frame.ClampByte(bb*100 + 128)
}

func labToRGB(l, a, b byte) (byte, byte, byte) {
	c := colorful.Lab(float64(l)/255, (float64(a)-128)/100, (float64(b)-128)/100).Clamped()
	return c.RGB255()
}

// toLab переводит RGB-кадр в чередующийся 8-битный буфер Lab.
func toLab(f *frame.Frame) []byte {
	out := make([]byte, len(f.Pix))
	for i := 0; i < len(f.Pix); i += frame.Channels {
		out[i], out[i+1], out[i+2] = rgbToLab(f.Pix[i], f.Pix[i+1], f.Pix[i+2])
	}
	return out
}

// fromLab переводит 8-битный буфер Lab обратно в RGB-кадр.
func fromLab(width, height int, lab []byte) *frame.Frame {
	f := frame.New(width, height)
	for i := 0; i < len(lab); i += frame.Channels {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2] = labToRGB(lab[i], lab[i+1], lab[i+2])
	}
	return f
}
