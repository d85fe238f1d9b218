package engine

import (
	"os"
	"sync"
	"time"

	"github.com/ivlev/framectl/internal/metrics"
	"gopkg.in/yaml.v3"
)

// stageStats копит время по стадиям для отчёта и пишет его в гистограмму.
type stageStats struct {
	mu     sync.Mutex
	totals map[string]time.Duration
}

func newStageStats() *stageStats {
	return &stageStats{totals: make(map[string]time.Duration)}
}

func (s *stageStats) observe(stage string, since time.Time) {
	d := time.Since(since)
	metrics.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	s.mu.Lock()
	s.totals[stage] += d
	s.mu.Unlock()
}

func (s *stageStats) seconds() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.totals))
	for k, v := range s.totals {
		out[k] = v.Seconds()
	}
	return out
}

// Report - YAML-сводка, которая пишется в конце прогона.
type Report struct {
	Build        string             `yaml:"build,omitempty"`
	Finished     time.Time          `yaml:"finished"`
	Frames       int                `yaml:"frames"`
	StopReason   StopReason         `yaml:"stop_reason,omitempty"`
	Error        string             `yaml:"error,omitempty"`
	TotalSeconds float64            `yaml:"total_seconds"`
	EffectiveFPS float64            `yaml:"effective_fps"`
	StageSeconds map[string]float64 `yaml:"stage_seconds"`
	Seeds        []int64            `yaml:"seeds,flow"`
}

func newReport(res *Result, stats *stageStats, build string, runErr error) *Report {
	r := &Report{
		Build:        build,
		Finished:     time.Now(),
		Frames:       res.FrameCount,
		StopReason:   res.StopReason,
		TotalSeconds: res.Duration.Seconds(),
		StageSeconds: stats.seconds(),
		Seeds:        res.Seeds,
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	if r.TotalSeconds > 0 {
		r.EffectiveFPS = float64(r.Frames) / r.TotalSeconds
	}
	return r
}

func writeReport(path string, r *Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadReport читает отчёт прошлого прогона.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
