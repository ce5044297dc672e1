package decode

import "sync"

// Cursor holds the most recently decoded cursor image. It is guarded by
// a plain mutex (not ModeLock) since it has a single producer-to-single-
// consumer shape that never needs concurrent writers, making it the
// one piece of shared decode state that doesn't need the mode-tagged
// lock.
type Cursor struct {
	mu      sync.Mutex
	rgba    []byte
	width   int
	height  int
	hotX    int
	hotY    int
	changed bool
}

func NewCursor() *Cursor { return &Cursor{} }

// Set installs a freshly decoded cursor image and marks it changed.
func (c *Cursor) Set(rgba []byte, width, height, hotX, hotY int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rgba, c.width, c.height, c.hotX, c.hotY = rgba, width, height, hotX, hotY
	c.changed = true
}

// TakeIfChanged clears the changed flag and returns the current image,
// or ok=false if nothing has changed since the last call.
func (c *Cursor) TakeIfChanged() (rgba []byte, width, height, hotX, hotY int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.changed {
		return nil, 0, 0, 0, 0, false
	}
	c.changed = false
	return c.rgba, c.width, c.height, c.hotX, c.hotY, true
}
