package system

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindLatestFile(t *testing.T) {
	dir := t.TempDir()
	files := []string{"a.json", "b.yaml", "c.json", "notes.txt"}
	for i, name := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("[]"), 0644))
		mod := time.Now().Add(time.Duration(i) * time.Hour)
		require.NoError(t, os.Chtimes(p, mod, mod))
	}

	latest, err := FindLatestFile(dir, ".json", ".yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "c.json"), latest)

	_, err = FindLatestFile(dir, ".mp4")
	assert.Error(t, err)
}

func TestImagePoolReuse(t *testing.T) {
	pool := NewImagePool()
	rect := image.Rect(0, 0, 8, 4)

	img := pool.Get(rect)
	assert.Equal(t, rect, img.Rect)
	assert.Len(t, img.Pix, 8*4*4)
	pool.Put(img)

	other := pool.Get(image.Rect(0, 0, 4, 4))
	assert.Len(t, other.Pix, 4*4*4)
}

func TestFrameBudgetBytes(t *testing.T) {
	assert.Equal(t, uint64(30), FrameBudget{RetainedFrames: 3, FrameBytes: 10, TotalFrames: 100}.Bytes())
	// Без ограничения истории берётся длина прогона
	assert.Equal(t, uint64(1000), FrameBudget{RetainedFrames: -1, FrameBytes: 10, TotalFrames: 100}.Bytes())
	assert.Equal(t, uint64(0), FrameBudget{RetainedFrames: -1, FrameBytes: 10, TotalFrames: -1}.Bytes())
}

func TestCheckFrameBudgetUnboundedWarns(t *testing.T) {
	log, hook := test.NewNullLogger()

	fits := CheckFrameBudget(FrameBudget{RetainedFrames: -1, FrameBytes: 10, TotalFrames: -1}, log)
	assert.True(t, fits)
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}
