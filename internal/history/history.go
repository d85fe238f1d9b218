// Package history хранит то, что прогон уже произвёл: выходные кадры и
// производные от них буферы. Записи адресуются абсолютным номером кадра,
// старые записи освобождаются, когда ни одно будущее окно до них не дотянется.
package history

import "fmt"

// History снаружи только дописывается. Писатель один, конкурентная
// модификация не поддерживается.
type History[T any] struct {
	base    int // абсолютный номер entries[0]
	entries []T
}

func New[T any]() *History[T] {
	return &History[T]{}
}

// Append добавляет запись следующего кадра.
func (h *History[T]) Append(v T) {
	h.entries = append(h.entries, v)
}

// Len - сколько записей добавлено за прогон, включая освобождённые.
func (h *History[T]) Len() int {
	return h.base + len(h.entries)
}

// Base - абсолютный номер самой старой удержанной записи.
func (h *History[T]) Base() int {
	return h.base
}

// Retained - сколько записей сейчас в памяти.
func (h *History[T]) Retained() int {
	return len(h.entries)
}

// Slice возвращает записи [start, end) от старых к новым. Диапазон
// обрезается по уже произведённому; запрос освобождённой записи - ошибка:
// значит, окно посчитано неверно.
func (h *History[T]) Slice(start, end int) ([]T, error) {
	end = min(end, h.Len())
	if start >= end {
		return nil, nil
	}
	if start < h.base {
		return nil, fmt.Errorf("history index %d already released (oldest retained is %d)", start, h.base)
	}
	out := make([]T, end-start)
	copy(out, h.entries[start-h.base:end-h.base])
	return out, nil
}

// Release освобождает все записи с номером меньше floor.
func (h *History[T]) Release(floor int) {
	if floor <= h.base {
		return
	}
	n := min(floor-h.base, len(h.entries))
	// Обнуляем ссылки, чтобы GC забрал буферы пикселей
	var zero T
	for i := 0; i < n; i++ {
		h.entries[i] = zero
	}
	h.entries = h.entries[n:]
	h.base += n

	// Уплотняем, когда мёртвый префикс занимает большую часть массива
	if cap(h.entries) > 64 && len(h.entries) < cap(h.entries)/4 {
		compact := make([]T, len(h.entries), len(h.entries)*2+1)
		copy(compact, h.entries)
		h.entries = compact
	}
}
