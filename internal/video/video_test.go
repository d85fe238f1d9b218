package video

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/ivlev/framectl/internal/frame"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const probeJSON = `{
  "streams": [
    {"codec_type": "video", "width": 640, "height": 360, "nb_frames": "120", "avg_frame_rate": "30/1", "r_frame_rate": "30/1", "duration": "4.000000"},
    {"codec_type": "audio"}
  ],
  "format": {"duration": "4.010000"}
}`

func TestParseProbe(t *testing.T) {
	info, err := parseProbe(probeJSON)
	require.NoError(t, err)
	assert.Equal(t, 640, info.Width)
	assert.Equal(t, 360, info.Height)
	assert.Equal(t, 120, info.Frames)
	assert.Equal(t, 30.0, info.FPS)
	assert.True(t, info.HasAudio)
}

func TestParseProbeEstimatesFrames(t *testing.T) {
	raw := `{"streams":[{"codec_type":"video","width":8,"height":8,"avg_frame_rate":"25/1"}],"format":{"duration":"2.0"}}`
	info, err := parseProbe(raw)
	require.NoError(t, err)
	assert.Equal(t, 50, info.Frames)
	assert.False(t, info.HasAudio)
}

func TestParseProbeNoVideo(t *testing.T) {
	_, err := parseProbe(`{"streams":[{"codec_type":"audio"}]}`)
	assert.ErrorIs(t, err, ErrNoVideoStream)
}

func TestParseRate(t *testing.T) {
	assert.InDelta(t, 29.97, parseRate("30000/1001"), 0.001)
	assert.Equal(t, 25.0, parseRate("25"))
	assert.Equal(t, 0.0, parseRate("0/0"))
	assert.Equal(t, 0.0, parseRate(""))
}

func TestEncodeArgs(t *testing.T) {
	args := EncodeArgs("out.mp4", EncoderOptions{Width: 64, Height: 48, FPS: 30, Quality: 23})

	assert.Contains(t, args, "pipe:")
	assert.Contains(t, args, "rawvideo")
	assert.Contains(t, args, "64x48")
	assert.Contains(t, args, "yuv420p")
	assert.Contains(t, args, "libx264")
	assert.Contains(t, args, "-crf")
	assert.Contains(t, args, "-y")
	assert.Contains(t, args, "out.mp4")
}

func TestEncodeArgsWithAudio(t *testing.T) {
	args := EncodeArgs("out.mp4", EncoderOptions{Width: 8, Height: 8, FPS: 30, AudioFrom: "in.mp4"})
	assert.Contains(t, args, "in.mp4")
	assert.Contains(t, args, "aac")
	assert.Contains(t, args, "-shortest")
	assert.Contains(t, args, "-map")
}

func TestQualityArgs(t *testing.T) {
	assert.Equal(t, "7500k", qualityArgs("h264_videotoolbox", 75)["b:v"])
	assert.Equal(t, 28, qualityArgs("h264_nvenc", 28)["cq"])
	assert.Equal(t, "medium", qualityArgs("libx264", 23)["preset"])
}

func TestFrameDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	d, err := NewFrameDir(dir)
	require.NoError(t, err)

	require.NoError(t, d.WriteFrame(frame.New(4, 4)))
	require.NoError(t, d.WriteFrame(frame.New(4, 4)))
	require.NoError(t, d.Close())

	assert.FileExists(t, filepath.Join(dir, "frame_00000.png"))
	assert.FileExists(t, filepath.Join(dir, "frame_00001.png"))
}

func TestEncodeAndProbe(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}

	out := filepath.Join(t.TempDir(), "out.mp4")
	log, _ := test.NewNullLogger()
	enc, err := NewEncoder(context.Background(), out, EncoderOptions{Width: 32, Height: 32, FPS: 10, Quality: 23}, log)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		f := frame.New(32, 32)
		for j := range f.Pix {
			f.Pix[j] = byte(i * 20)
		}
		require.NoError(t, enc.WriteFrame(f))
	}
	assert.Error(t, enc.WriteFrame(frame.New(8, 8)))
	require.NoError(t, enc.Close())
	require.NoError(t, enc.Close())

	info, err := Probe(out)
	require.NoError(t, err)
	assert.Equal(t, 32, info.Width)
	assert.Equal(t, 32, info.Height)
	assert.Equal(t, 10, info.Frames)
}
