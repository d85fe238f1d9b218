package colorcorr

import (
	"testing"

	"github.com/ivlev/framectl/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(w, h int, r, g, b byte) *frame.Frame {
	f := frame.New(w, h)
	for i := 0; i < len(f.Pix); i += 3 {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
	}
	return f
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name       string
		pos, size  int
		rate       float64
		start, end int
	}{
		{"short history", 5, 10, 1.0, 0, 5},
		{"unbounded half rate", 20, Unbounded, 0.5, 0, 10},
		{"sliding", 30, 10, 1.0, 20, 30},
		{"first frame", 0, 10, 1.0, 0, 0},
		{"disabled", 12, 0, 1.0, 12, 12},
		{"half to even", 5, 10, 0.5, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := Window(tt.pos, tt.size, tt.rate)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestComputeTargetEmpty(t *testing.T) {
	target, err := ComputeTarget(nil)
	require.NoError(t, err)
	assert.Nil(t, target)
}

func TestComputeTargetSizeMismatch(t *testing.T) {
	_, err := ComputeTarget([]*frame.Frame{frame.New(4, 4), frame.New(4, 5)})
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestComputeTargetAverages(t *testing.T) {
	black := uniform(2, 2, 0, 0, 0)
	white := uniform(2, 2, 255, 255, 255)

	target, err := ComputeTarget([]*frame.Frame{black, white})
	require.NoError(t, err)
	require.NotNil(t, target)
	assert.Equal(t, 2, target.Frames)

	// L у чёрного 0, у белого 255: среднее отбрасывается до 127.
	assert.Equal(t, byte(127), target.Lab[0])
	// Нейтральный серый лежит в нуле a/b.
	assert.InDelta(t, 128, int(target.Lab[1]), 1)
	assert.InDelta(t, 128, int(target.Lab[2]), 1)
}

func TestComputeTargetLabMatchesFrames(t *testing.T) {
	frames := []*frame.Frame{uniform(4, 4, 200, 30, 90), uniform(4, 4, 10, 120, 250), uniform(4, 4, 77, 77, 77)}
	want, err := ComputeTarget(frames)
	require.NoError(t, err)

	labs := make([]*LabFrame, len(frames))
	for i, f := range frames {
		labs[i] = ToLab(f)
	}
	got, err := ComputeTargetLab(labs)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestComputeTargetLabSizeMismatch(t *testing.T) {
	_, err := ComputeTargetLab([]*LabFrame{ToLab(frame.New(2, 2)), ToLab(frame.New(3, 2))})
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestApplySizeMismatch(t *testing.T) {
	target, err := ComputeTarget([]*frame.Frame{uniform(4, 4, 1, 2, 3)})
	require.NoError(t, err)
	_, err = Apply(uniform(2, 2, 1, 2, 3), target)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestApplyNilTargetIsNoop(t *testing.T) {
	f := uniform(3, 3, 10, 20, 30)
	out, err := Apply(f, nil)
	require.NoError(t, err)
	assert.Same(t, f, out)
}

func TestApplyPullsTowardsTarget(t *testing.T) {
	target, err := ComputeTarget([]*frame.Frame{uniform(8, 8, 40, 40, 40)})
	require.NoError(t, err)

	out, err := Apply(uniform(8, 8, 220, 220, 220), target)
	require.NoError(t, err)

	for i := 0; i < len(out.Pix); i++ {
		assert.InDelta(t, 40, int(out.Pix[i]), 3)
	}
}

func TestApplyPreservesOrdering(t *testing.T) {
	src := frame.New(16, 1)
	for x := 0; x < 16; x++ {
		v := byte(x * 16)
		src.Pix[x*3], src.Pix[x*3+1], src.Pix[x*3+2] = v, v, v
	}
	target, err := ComputeTarget([]*frame.Frame{src})
	require.NoError(t, err)

	out, err := Apply(src, target)
	require.NoError(t, err)
	for x := 1; x < 16; x++ {
		assert.GreaterOrEqual(t, out.Pix[x*3], out.Pix[(x-1)*3])
	}
}

func TestInterp(t *testing.T) {
	xp := []float64{0.25, 0.5, 1}
	fp := []float64{10, 20, 40}
	assert.Equal(t, 10.0, interp(0.1, xp, fp))
	assert.Equal(t, 15.0, interp(0.375, xp, fp))
	assert.Equal(t, 30.0, interp(0.75, xp, fp))
	assert.Equal(t, 40.0, interp(1, xp, fp))
}

func TestMatchLUTIdentity(t *testing.T) {
	var hist [levels]int
	hist[10], hist[100], hist[200] = 1, 2, 1
	lut := matchLUT(hist, hist, 4, 4)
	for _, v := range []int{10, 100, 200} {
		assert.InDelta(t, float64(v), lut[v], 1e-9)
	}
	assert.Equal(t, 55.0, lut[55])
}
