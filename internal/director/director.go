// Package director загружает покадровый сценарий параметров: как двигать
// камеру, смешивать и генерировать каждый кадр.
package director

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingFrame = errors.New("record has no frame field")
	ErrEmptyScript  = errors.New("script contains no records")
)

// ParseError - сценарий не загружается. Record - позиция (с нуля) плохой
// записи или -1, если испорчен весь документ.
type ParseError struct {
	Record int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Record < 0 {
		return fmt.Sprintf("parse script: %v", e.Err)
	}
	return fmt.Sprintf("parse script record %d: %v", e.Record, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Script сопоставляет номерам кадров директивы. После загрузки не меняется.
type Script struct {
	directives map[int]FrameDirective
	maxIndex   int
}

// Load разбирает последовательность записей. JSON-массив декодируется как
// JSON, остальное как YAML. Дубли кадров и пропуски в 0..MaxIndex пишутся
// предупреждениями; из дублей побеждает последний.
func Load(raw []byte, log logrus.FieldLogger) (*Script, error) {
	if log == nil {
		log = discard()
	}

	records, err := decode(raw)
	if err != nil {
		return nil, &ParseError{Record: -1, Err: err}
	}
	if len(records) == 0 {
		return nil, &ParseError{Record: -1, Err: ErrEmptyScript}
	}

	s := &Script{directives: make(map[int]FrameDirective, len(records))}
	for i, rec := range records {
		if rec.Frame == nil {
			return nil, &ParseError{Record: i, Err: ErrMissingFrame}
		}
		idx := *rec.Frame
		if idx < 0 || idx != math.Trunc(idx) || idx > math.MaxInt32 {
			return nil, &ParseError{Record: i, Err: fmt.Errorf("frame must be a non-negative integer, got %v", idx)}
		}
		if rec.LoopbackFrames < 0 {
			return nil, &ParseError{Record: i, Err: fmt.Errorf("loopback_frames must be >= 0, got %d", rec.LoopbackFrames)}
		}

		frame := int(idx)
		if _, dup := s.directives[frame]; dup {
			log.WithField("frame", frame).Warn("Duplicate frame in script, latest wins")
		}
		s.directives[frame] = rec.FrameDirective
		if frame > s.maxIndex {
			s.maxIndex = frame
		}
	}

	log.WithFields(logrus.Fields{
		"frames":     len(s.directives),
		"last_frame": s.maxIndex,
	}).Info("Script loaded")

	for f := 0; f <= s.maxIndex; f++ {
		if _, ok := s.directives[f]; !ok {
			log.WithField("missing_frame", f).Warn("Script should contain contiguous frame definitions")
		}
	}

	return s, nil
}

func decode(raw []byte) ([]rawRecord, error) {
	var records []rawRecord
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return records, nil
	}
	if err := yaml.Unmarshal(trimmed, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Get возвращает директиву кадра i. ok=false, если сценарий про этот кадр
// ничего не говорит: на этом прогон заканчивается.
func (s *Script) Get(i int) (FrameDirective, bool) {
	d, ok := s.directives[i]
	return d, ok
}

// MaxIndex - наибольший номер кадра.
func (s *Script) MaxIndex() int { return s.maxIndex }

// Len - число разных заданных кадров.
func (s *Script) Len() int { return len(s.directives) }

// FrameCount - сколько кадров охватывает сценарий, с пропусками.
func (s *Script) FrameCount() int { return s.maxIndex + 1 }

// MaxLoopback - наибольшее loopback_frames в сценарии.
func (s *Script) MaxLoopback() int {
	m := 0
	for _, d := range s.directives {
		if d.LoopbackFrames > m {
			m = d.LoopbackFrames
		}
	}
	return m
}

// Records возвращает сценарий записями, отсортированными по кадру.
func (s *Script) Records() []Record {
	out := make([]Record, 0, len(s.directives))
	for f, d := range s.directives {
		out = append(out, Record{Frame: f, FrameDirective: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Frame < out[j].Frame })
	return out
}

func discard() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
