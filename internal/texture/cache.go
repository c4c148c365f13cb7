package texture

import (
	"image"
	"sync"

	"github.com/nfnt/resize"
)

// Resolver resolves a texture name to a decoded RGBA image.
type Resolver interface {
	Resolve(texName string) *image.NRGBA
}

// Cache is a concurrency-safe texture cache.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*image.NRGBA
	index *Index
	// MaxSize caps the larger dimension of cached images. Zero keeps the
	// original size.
	MaxSize int
}

// NewCache creates a new texture cache backed by the given index.
func NewCache(index *Index, maxSize int) *Cache {
	return &Cache{
		items:   make(map[string]*image.NRGBA),
		index:   index,
		MaxSize: maxSize,
	}
}

// Resolve loads and caches a texture by name. Returns nil if the texture is
// not indexed or cannot be decoded; failures are cached too.
func (c *Cache) Resolve(texName string) *image.NRGBA {
	path, ok := c.index.ResolvePath(texName)
	if !ok {
		return nil
	}

	c.mu.RLock()
	if img, exists := c.items[path]; exists {
		c.mu.RUnlock()
		return img
	}
	c.mu.RUnlock()

	img, _ := LoadTexture(path)
	if img != nil && c.MaxSize > 0 {
		b := img.Bounds()
		if b.Dx() > c.MaxSize || b.Dy() > c.MaxSize {
			img = toNRGBA(resize.Thumbnail(uint(c.MaxSize), uint(c.MaxSize), img, resize.Lanczos3))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, exists := c.items[path]; exists {
		return existing
	}
	c.items[path] = img
	return img
}
