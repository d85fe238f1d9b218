package generator

import (
	"context"
	"fmt"
	"image"

	"github.com/ivlev/framectl/internal/frame"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Annotate - заглушка вместо модели: пишет параметры генерации поверх
// входного кадра. Сценарий можно проверить без GPU.
type Annotate struct{}

// Label - текст, который Annotate рисует для req.
func Label(req Request) string {
	return fmt.Sprintf("SD[seed:%d; scale:%g; denoise:%g]", req.Seed, req.Scale, req.Denoise)
}

func (Annotate) Generate(_ context.Context, req Request) (Response, error) {
	if req.Image == nil {
		return Response{}, fmt.Errorf("%w: no input image", ErrGenerator)
	}

	dst := req.Image.RGBA(nil)
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(20, 70),
	}
	d.DrawString(Label(req))

	return Response{Image: frame.FromImage(dst), Seed: req.Seed}, nil
}
