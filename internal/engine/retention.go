package engine

import (
	"math"

	"github.com/ivlev/framectl/internal/colorcorr"
)

// retention решает, какие записи истории ещё могут понадобиться. Оба окна
// двигаются только вперёд, поэтому всё ниже пола для следующей позиции
// недостижимо до конца прогона.
type retention struct {
	maxLoopback int
	ccUsed      bool
	ccWindow    int
	ccRate      float64
}

func newRetention(maxLoopback int, opts Options) retention {
	used := (opts.CCApply || opts.CCInputStrength > 0) && opts.CCWindow != 0 && opts.CCRate > 0
	return retention{maxLoopback: maxLoopback, ccUsed: used, ccWindow: opts.CCWindow, ccRate: opts.CCRate}
}

// floor - наименьший индекс истории, который может прочитать кадр pos или
// любой следующий.
func (r retention) floor(pos int) int {
	f := pos - r.maxLoopback
	if r.ccUsed {
		if r.ccWindow == colorcorr.Unbounded {
			return 0
		}
		start, _ := colorcorr.Window(pos, r.ccWindow, r.ccRate)
		f = min(f, start)
	}
	return max(f, 0)
}

// span - верхняя оценка числа удерживаемых кадров, -1 если история растёт
// вместе с прогоном.
func (r retention) span() int {
	n := r.maxLoopback
	if r.ccUsed {
		if r.ccWindow == colorcorr.Unbounded {
			return -1
		}
		// Окно, кончающееся на round(pos·rate), отстаёт от pos на pos·(1-rate)
		// кадров, и постоянный размер даёт только rate >= 1.
		if r.ccRate < 1 {
			return -1
		}
		n = max(n, r.ccWindow+int(math.Ceil(r.ccRate)))
	}
	return n + 1
}
