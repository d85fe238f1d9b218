package colorcorr

import "math"

// Unbounded как размер окна включает в цель все предыдущие кадры.
const Unbounded = -1

// Window возвращает полуинтервал истории [start, end), кадры которого
// усредняются в цель коррекции для кадра pos. end - это pos·rate с
// округлением половины к чётному; пустой диапазон значит, что кадр не
// корректируется.
func Window(pos, size int, rate float64) (start, end int) {
	end = int(math.RoundToEven(float64(pos) * rate))
	if end < 0 {
		end = 0
	}
	if size == Unbounded {
		return 0, end
	}
	return max(0, end-size), end
}
