package system

import (
	"image"
	"sync"
)

// ImagePool переиспользует буферы *image.RGBA одного размера между кадрами.
// Ресайз, сохранение PNG и кодирование кадров для генератора выполняются на
// каждом кадре, поэтому без пула GC получает по несколько мегабайт мусора
// за итерацию.
type ImagePool struct {
	mu    sync.RWMutex
	pools map[image.Point]*sync.Pool
}

var globalPool = NewImagePool()

func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Point]*sync.Pool)}
}

// GetImage возвращает буфер с границами rect из глобального пула.
// Содержимое буфера не очищается.
func GetImage(rect image.Rectangle) *image.RGBA {
	return globalPool.Get(rect)
}

// PutImage возвращает буфер в глобальный пул.
func PutImage(img *image.RGBA) {
	globalPool.Put(img)
}

func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	size := rect.Size()
	img := p.pool(size).Get().(*image.RGBA)
	img.Rect = rect
	return img
}

func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	size := img.Rect.Size()
	if size.X <= 0 || size.Y <= 0 || img.Stride != size.X*4 {
		return
	}
	p.pool(size).Put(img)
}

func (p *ImagePool) pool(size image.Point) *sync.Pool {
	p.mu.RLock()
	pool, ok := p.pools[size]
	p.mu.RUnlock()
	if ok {
		return pool
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Повторная проверка
	if pool, ok = p.pools[size]; ok {
		return pool
	}
	pool = &sync.Pool{
		New: func() interface{} {
			return image.NewRGBA(image.Rectangle{Max: size})
		},
	}
	p.pools[size] = pool
	return pool
}
