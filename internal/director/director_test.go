package director

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func warnings(hook *test.Hook, field string) []interface{} {
	var out []interface{}
	for _, e := range hook.AllEntries() {
		if e.Level != logrus.WarnLevel {
			continue
		}
		if v, ok := e.Data[field]; ok {
			out = append(out, v)
		}
	}
	return out
}

func TestLoadJSON(t *testing.T) {
	raw := `[
		{"frame": 0, "rotx": 1.5, "roty": 0, "rotz": 0, "panx": 2, "pany": -3, "zoom": 4,
		 "loopback_frames": 2, "loopback_decay": 0.5, "seed": 42, "scale": 7.5, "denoise": 0.6, "prompt": "a cat"},
		{"frame": 1, "seed": 43, "prompt": "a dog"}
	]`

	log, hook := test.NewNullLogger()
	s, err := Load([]byte(raw), log)
	require.NoError(t, err)

	assert.Equal(t, 1, s.MaxIndex())
	assert.Equal(t, 2, s.Len())
	assert.Empty(t, warnings(hook, "missing_frame"))

	d, ok := s.Get(0)
	require.True(t, ok)
	assert.Equal(t, FrameDirective{
		RotationX: 1.5, PanX: 2, PanY: -3, Zoom: 4,
		LoopbackFrames: 2, LoopbackDecay: 0.5,
		Seed: 42, Scale: 7.5, Denoise: 0.6, Prompt: "a cat",
	}, d)

	_, ok = s.Get(2)
	assert.False(t, ok)
}

func TestLoadYAML(t *testing.T) {
	raw := `
- frame: 0
  rotz: 10
  prompt: first
- frame: 1
  loopback_frames: 3
`
	s, err := Load([]byte(raw), nil)
	require.NoError(t, err)

	d, ok := s.Get(0)
	require.True(t, ok)
	assert.Equal(t, 10.0, d.RotationZ)
	assert.Equal(t, "first", d.Prompt)
	assert.Equal(t, 3, s.MaxLoopback())
}

func TestLoadDuplicateLatestWins(t *testing.T) {
	raw := `[{"frame": 0, "seed": 1}, {"frame": 1, "seed": 2}, {"frame": 0, "seed": 3}, {"frame": 0, "seed": 4}]`

	log, hook := test.NewNullLogger()
	s, err := Load([]byte(raw), log)
	require.NoError(t, err)

	d, _ := s.Get(0)
	assert.Equal(t, int64(4), d.Seed)
	d, _ = s.Get(1)
	assert.Equal(t, int64(2), d.Seed)
	assert.Equal(t, []interface{}{0, 0}, warnings(hook, "frame"))
}

func TestLoadGapsWarnPerMissingIndex(t *testing.T) {
	raw := `[{"frame": 0}, {"frame": 3}, {"frame": 6}]`

	log, hook := test.NewNullLogger()
	s, err := Load([]byte(raw), log)
	require.NoError(t, err)

	assert.Equal(t, 6, s.MaxIndex())
	assert.Equal(t, 7, s.FrameCount())
	assert.Equal(t, []interface{}{1, 2, 4, 5}, warnings(hook, "missing_frame"))
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		record int
		target error
	}{
		{"not structured", `{{{`, -1, nil},
		{"empty document", `  `, -1, nil},
		{"empty sequence", `[]`, -1, ErrEmptyScript},
		{"not a sequence", `{"frame": 1}`, -1, nil},
		{"missing frame", `[{"frame": 0}, {"seed": 3}]`, 1, ErrMissingFrame},
		{"negative frame", `[{"frame": -1}]`, 0, nil},
		{"fractional frame", `[{"frame": 1.5}]`, 0, nil},
		{"negative loopback", `[{"frame": 0, "loopback_frames": -2}]`, 0, nil},
		{"wrong type", `[{"frame": 0, "seed": "abc"}]`, -1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.raw), nil)
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "expected ParseError, got %T", err)
			assert.Equal(t, tt.record, perr.Record)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestScriptWriteRead(t *testing.T) {
	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < 5; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"frame": %d, "seed": %d, "prompt": "p%d", "loopback_decay": 0.25}`, i, 100+i, i)
	}
	b.WriteString("]")

	s, err := Load([]byte(b.String()), nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, WriteScript(s, path))

	read, err := ReadScript(path, nil)
	require.NoError(t, err)
	assert.Equal(t, s.Records(), read.Records())
}

func TestFindLatestScript(t *testing.T) {
	dir := t.TempDir()
	files := []string{"old.json", "newer.yaml", "video.mp4"}
	for i, f := range files {
		p := filepath.Join(dir, f)
		require.NoError(t, os.WriteFile(p, []byte("[]"), 0644))
		mod := time.Now().Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(p, mod, mod))
	}

	latest, err := FindLatestScript(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "newer.yaml"), latest)
}
