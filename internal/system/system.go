package system

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// InitResourceLimits поднимает лимит открытых файлов: ffmpeg-процессы,
// пайпы и сохранение промежуточных кадров открывают дескрипторы на каждом
// кадре.
func InitResourceLimits(log logrus.FieldLogger) {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.WithError(err).Warn("Could not read open file limit")
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.WithError(err).Warn("Could not raise open file limit")
		return
	}
	log.WithField("nofile", rLimit.Cur).Debug("Open file limit raised")
}

// FindLatestFile ищет самый свежий файл с одним из расширений exts в dir.
func FindLatestFile(dir string, exts ...string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExt(f.Name(), exts) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено файлов %s", dir, strings.Join(exts, ", "))
	}
	return latestFile, nil
}

// HasImageExt сообщает, является ли файл изображением, которое умеет читать source.
func HasImageExt(name string) bool {
	return hasExt(name, []string{".png", ".jpg", ".jpeg"})
}

func hasExt(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// GetBestH264Encoder выбирает аппаратный энкодер, если ffmpeg его знает.
// Приоритеты:
// 1. MacOS (VideoToolbox)
// 2. NVIDIA (NVENC)
// 3. Software (libx264)
func GetBestH264Encoder() string {
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(string(out), name) {
			return name
		}
	}
	return "libx264"
}

// FrameBudget описывает, сколько памяти займёт история кадров.
type FrameBudget struct {
	RetainedFrames int // -1: история не ограничена
	FrameBytes     int
	TotalFrames    int // ожидаемое число кадров прогона, -1 если неизвестно
}

// Bytes возвращает оценку пикового объёма истории.
func (b FrameBudget) Bytes() uint64 {
	n := b.RetainedFrames
	if n < 0 || (b.TotalFrames >= 0 && n > b.TotalFrames) {
		n = b.TotalFrames
	}
	if n < 0 {
		return 0
	}
	return uint64(n) * uint64(b.FrameBytes)
}

// CheckFrameBudget сравнивает оценку с доступной памятью и пишет
// предупреждение, если история не помещается. Прогон не прерывается.
func CheckFrameBudget(b FrameBudget, log logrus.FieldLogger) (fits bool) {
	need := b.Bytes()
	if need == 0 {
		if b.RetainedFrames < 0 {
			log.Warn("Frame history is unbounded and the input length is unknown; memory use grows with every frame")
		}
		return true
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		log.WithError(err).Debug("Could not read memory statistics")
		return true
	}

	fields := logrus.Fields{
		"history_mb":   need >> 20,
		"available_mb": vm.Available >> 20,
		"retained":     b.RetainedFrames,
	}
	if need > vm.Available {
		log.WithFields(fields).Warn("Frame history is expected to exceed available memory")
		return false
	}
	log.WithFields(fields).Debug("Frame history memory estimate")
	return true
}
