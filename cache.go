package objcmsg

import (
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Cache maps handles to their canonical Wrappers. A Wrapper stays canonical
// while its retain count is positive; releasing it to zero evicts it, and the
// next Load of its handle creates a new one. Evicting a Wrapper never
// deallocates the native object unless Dispose asks for it.
//
// The lock guards only bookkeeping. No native call is made while it is held.
type Cache struct {
	mu     sync.Mutex
	m      map[Handle]*Wrapper
	client *Client
}

func newCache(c *Client) *Cache {
	return &Cache{m: make(map[Handle]*Wrapper), client: c}
}

// Load returns the canonical Wrapper for h, creating it if needed, and
// retains it.
func (c *Cache) Load(h Handle) *Wrapper {
	c.mu.Lock()
	w := c.m[h]
	if w == nil {
		w = &Wrapper{peer: h, client: c.client, cache: c}
		c.m[h] = w
	}
	w.refs++
	c.mu.Unlock()
	return w
}

// Lookup returns the canonical Wrapper for h without retaining it.
func (c *Cache) Lookup(h Handle) (*Wrapper, bool) {
	c.mu.Lock()
	w, ok := c.m[h]
	c.mu.Unlock()
	return w, ok
}

// Put makes w the canonical Wrapper for its handle with its current retain
// count, which is zero for new Wrappers. It returns false without changing
// the cache if another Wrapper is already canonical for the handle.
func (c *Cache) Put(w *Wrapper) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur := c.m[w.peer]; cur != nil && cur != w {
		return false
	}
	w.cache = c
	c.m[w.peer] = w
	return true
}

// Retain increments the retain count of v if it is a Wrapper. It returns v.
func (c *Cache) Retain(v interface{}) interface{} {
	if w, ok := v.(*Wrapper); ok && w != nil {
		c.mu.Lock()
		w.refs++
		c.mu.Unlock()
	}
	return v
}

// Release decrements the retain count of v if it is a Wrapper, evicting it
// from the cache once the count reaches zero. It returns v.
func (c *Cache) Release(v interface{}) interface{} {
	if w, ok := v.(*Wrapper); ok && w != nil {
		c.mu.Lock()
		w.refs--
		if w.refs <= 0 {
			if c.m[w.peer] == w {
				delete(c.m, w.peer)
			}
			w.refs = 0
		}
		c.mu.Unlock()
	}
	return v
}

// RetainCount returns the retain count of w.
func (c *Cache) RetainCount(w *Wrapper) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return w.refs
}

// Len returns the number of canonical Wrappers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// Drain evicts every Wrapper whose retain count is zero and returns the
// number evicted.
func (c *Cache) Drain() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for h, w := range c.m {
		if w.refs == 0 {
			delete(c.m, h)
			n++
		}
	}
	return n
}

// Dispose evicts w regardless of its retain count. If dealloc is true, it
// then sends dealloc to the native object.
func (c *Cache) Dispose(w *Wrapper, dealloc bool) error {
	c.mu.Lock()
	if c.m[w.peer] == w {
		delete(c.m, w.peer)
	}
	w.refs = 0
	c.mu.Unlock()
	if !dealloc || w.peer == Nil {
		return nil
	}
	_, err := c.client.Bridge().Raw().Send(w.peer, "dealloc")
	return err
}

// DisposeAll evicts every Wrapper, sending dealloc to each if dealloc is
// true. Errors from individual deallocations are combined.
func (c *Cache) DisposeAll(dealloc bool) error {
	c.mu.Lock()
	all := make([]*Wrapper, 0, len(c.m))
	for _, w := range c.m {
		all = append(all, w)
	}
	c.mu.Unlock()
	var err error
	for _, w := range all {
		if e := c.Dispose(w, dealloc); e != nil {
			Logger().Warn("dispose failed", zap.Stringer("peer", w.peer), zap.Error(e))
			err = multierr.Append(err, e)
		}
	}
	return err
}
