// Package renderer имитирует движение 3D-камеры над плоским кадром
// проективным преобразованием.
package renderer

import (
	"errors"
	"fmt"
	"math"

	"github.com/ivlev/framectl/internal/frame"
)

var (
	ErrNonFiniteGeometry = errors.New("non-finite transform parameter")
	ErrDegenerateMatrix  = errors.New("degenerate perspective matrix")
)

// Params - одно движение камеры. Повороты в градусах, пан и зум в пикселях.
// Знак уже тот, что ждёт проекция: вызывающий сам инвертирует пан/зум из
// сценария.
type Params struct {
	RotationX float64
	RotationY float64
	RotationZ float64
	PanX      float64
	PanY      float64
	Zoom      float64
}

// IsZero сообщает, что движение тождественное.
func (p Params) IsZero() bool {
	return p == Params{}
}

func (p Params) validate() error {
	for name, v := range map[string]float64{
		"rotx": p.RotationX, "roty": p.RotationY, "rotz": p.RotationZ,
		"panx": p.PanX, "pany": p.PanY, "zoom": p.Zoom,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%v", ErrNonFiniteGeometry, name, v)
		}
	}
	return nil
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// FocalLength - фокусное расстояние для кадра width x height, повёрнутого
// на rotZ радиан.
func FocalLength(width, height int, rotZ float64) float64 {
	d := math.Sqrt(float64(height*height + width*width))
	if s := math.Sin(rotZ); s != 0 {
		return d / (2 * s)
	}
	return d / 2
}

// BuildMatrix собирает Projection · Translation · Rotation · Lift для кадра
// width x height. Поворот - Rx · Ry · Rz.
func BuildMatrix(width, height int, p Params) Matrix3 {
	w, h := float64(width), float64(height)
	theta, phi, gamma := degToRad(p.RotationX), degToRad(p.RotationY), degToRad(p.RotationZ)

	f := FocalLength(width, height, gamma)
	dz := p.Zoom + f

	// 2D -> 3D, с центром в середине кадра
	lift := [4][3]float64{
		{1, 0, -w / 2},
		{0, 1, -h / 2},
		{0, 0, 1},
		{0, 0, 1},
	}

	rx := mat4{
		{1, 0, 0, 0},
		{0, math.Cos(theta), -math.Sin(theta), 0},
		{0, math.Sin(theta), math.Cos(theta), 0},
		{0, 0, 0, 1},
	}
	ry := mat4{
		{math.Cos(phi), 0, -math.Sin(phi), 0},
		{0, 1, 0, 0},
		{math.Sin(phi), 0, math.Cos(phi), 0},
		{0, 0, 0, 1},
	}
	rz := mat4{
		{math.Cos(gamma), -math.Sin(gamma), 0, 0},
		{math.Sin(gamma), math.Cos(gamma), 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
	translate := mat4{
		{1, 0, 0, p.PanX},
		{0, 1, 0, p.PanY},
		{0, 0, 1, dz},
		{0, 0, 0, 1},
	}

	// 3D -> 2D
	project := [3][4]float64{
		{f, 0, w / 2, 0},
		{0, f, h / 2, 0},
		{0, 0, 1, 0},
	}

	tr := mul4(translate, mul4(mul4(rx, ry), rz))

	// project · tr даёт 3x4, после · lift получается 3x3
	var pt [3][4]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			for k := 0; k < 4; k++ {
				pt[i][j] += project[i][k] * tr[k][j]
			}
		}
	}
	var m Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 4; k++ {
				m[i][j] += pt[i][k] * lift[k][j]
			}
		}
	}
	return m
}

// Warp применяет движение камеры к src и возвращает новый кадр того же
// размера. Каждый выходной пиксель берётся билинейно из обратно отображённой
// точки источника; всё за пределами кадра считается чёрным, так что
// непокрытые края выходят чёрными.
//
// Нулевое движение возвращает точную копию.
func Warp(src *frame.Frame, p Params) (*frame.Frame, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.IsZero() {
		return src.Clone(), nil
	}

	m := BuildMatrix(src.Width, src.Height, p)
	if !m.finite() {
		return nil, fmt.Errorf("%w: %v", ErrNonFiniteGeometry, m)
	}
	inv, ok := m.Inverse()
	if !ok {
		return nil, ErrDegenerateMatrix
	}

	dst := frame.New(src.Width, src.Height)
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			sx, sy, ok := inv.Apply(float64(x), float64(y))
			if !ok {
				continue
			}
			sampleBilinear(src, sx, sy, dst.Pix[dst.Offset(x, y):])
		}
	}
	return dst, nil
}

// sampleBilinear пишет интерполированный цвет в точке (sx, sy) в out[0:3].
func sampleBilinear(src *frame.Frame, sx, sy float64, out []byte) {
	if sx <= -1 || sy <= -1 || sx >= float64(src.Width) || sy >= float64(src.Height) {
		return
	}
	x0 := int(math.Floor(sx))
	y0 := int(math.Floor(sy))
	fx := sx - float64(x0)
	fy := sy - float64(y0)

	var acc [frame.Channels]float64
	weights := [4]float64{(1 - fx) * (1 - fy), fx * (1 - fy), (1 - fx) * fy, fx * fy}
	points := [4][2]int{{x0, y0}, {x0 + 1, y0}, {x0, y0 + 1}, {x0 + 1, y0 + 1}}

	for i, pt := range points {
		px, py := pt[0], pt[1]
		if px < 0 || py < 0 || px >= src.Width || py >= src.Height || weights[i] == 0 {
			continue
		}
		o := src.Offset(px, py)
		for c := 0; c < frame.Channels; c++ {
			acc[c] += weights[i] * float64(src.Pix[o+c])
		}
	}
	for c := 0; c < frame.Channels; c++ {
		out[c] = frame.ClampByte(acc[c])
	}
}
