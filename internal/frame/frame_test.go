package frame

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *Frame {
	f := New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := f.Offset(x, y)
			f.Pix[i] = byte(x * 255 / w)
			f.Pix[i+1] = byte(y * 255 / h)
			f.Pix[i+2] = 128
		}
	}
	return f
}

func TestFromBytes(t *testing.T) {
	_, err := FromBytes(2, 2, make([]byte, 11))
	assert.ErrorIs(t, err, ErrBufferSize)

	f, err := FromBytes(2, 2, make([]byte, 12))
	require.NoError(t, err)
	assert.Equal(t, 2, f.Width)
}

func TestImageRoundTrip(t *testing.T) {
	f := gradient(7, 5)

	back := FromImage(f.RGBA(nil))
	assert.True(t, f.Equal(back))

	rgba := f.RGBA(nil)
	i := f.Offset(3, 2)
	assert.Equal(t, color.RGBA{R: f.Pix[i], G: f.Pix[i+1], B: f.Pix[i+2], A: 0xff}, rgba.RGBAAt(3, 2))
}

func TestFromImageOffsetBounds(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 10, 14, 12))
	src.Set(10, 10, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	f := FromImage(src)
	assert.Equal(t, 4, f.Width)
	assert.Equal(t, 2, f.Height)
	assert.Equal(t, []byte{200, 100, 50}, f.Pix[:3])
}

func TestResize(t *testing.T) {
	f := gradient(16, 8)

	same := Resize(f, 16, 8)
	assert.True(t, f.Equal(same))
	same.Pix[0] = 1
	assert.NotEqual(t, f.Pix[0], same.Pix[0], "resize must not alias the source buffer")

	small := Resize(f, 8, 4)
	assert.Equal(t, 8, small.Width)
	assert.Equal(t, 4, small.Height)
	assert.Len(t, small.Pix, Size(8, 4))
}

func TestClampByte(t *testing.T) {
	assert.Equal(t, byte(0), ClampByte(-3))
	assert.Equal(t, byte(255), ClampByte(300))
	assert.Equal(t, byte(13), ClampByte(12.5))
	assert.Equal(t, byte(12), ClampByte(12.49))
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.png")
	require.NoError(t, SavePNG(gradient(4, 4), path))
	assert.FileExists(t, path)
}
