package video

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

var ErrNoVideoStream = errors.New("no video stream")

const probeTimeout = 30 * time.Second

// Info описывает первый видеопоток файла.
type Info struct {
	Width    int
	Height   int
	Frames   int     // nb_frames или duration*fps, если контейнер его не пишет
	FPS      float64 // средняя частота кадров
	Duration float64 // секунды
	HasAudio bool
}

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		NbFrames     string `json:"nb_frames"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe запускает ffprobe для path.
func Probe(path string) (*Info, error) {
	raw, err := ffmpeg.ProbeWithTimeout(path, probeTimeout, ffmpeg.KwArgs{})
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(raw)
}

func parseProbe(raw string) (*Info, error) {
	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &Info{}
	found := false
	for _, s := range out.Streams {
		switch s.CodecType {
		case "audio":
			info.HasAudio = true
		case "video":
			if found {
				continue
			}
			found = true
			info.Width, info.Height = s.Width, s.Height
			info.FPS = parseRate(s.AvgFrameRate)
			if info.FPS == 0 {
				info.FPS = parseRate(s.RFrameRate)
			}
			info.Duration, _ = strconv.ParseFloat(s.Duration, 64)
			info.Frames, _ = strconv.Atoi(s.NbFrames)
		}
	}
	if !found {
		return nil, ErrNoVideoStream
	}

	if info.Duration == 0 {
		info.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)
	}
	if info.Frames == 0 && info.FPS > 0 {
		info.Frames = int(math.Round(info.Duration * info.FPS))
	}
	return info, nil
}

// parseRate разбирает дроби ffprobe вроде "30000/1001".
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
