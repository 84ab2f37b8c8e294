package objcmsg

// Wrapper pairs the handle of a native object with the Client used to send it
// messages. Wrappers obtained from a Cache are canonical for their handle
// while retained.
type Wrapper struct {
	peer   Handle
	client *Client
	cache  *Cache
	// refs is guarded by the lock of cache.
	refs int
}

// NewWrapper creates a Wrapper for h which sends messages with c. The Wrapper
// is not entered into any cache; use Cache.Put to make it canonical.
func NewWrapper(c *Client, h Handle) *Wrapper {
	return &Wrapper{peer: h, client: c}
}

// Peer returns the handle of the wrapped object.
func (w *Wrapper) Peer() Handle {
	if w == nil {
		return Nil
	}
	return w.peer
}

// Client returns the client the Wrapper sends messages with.
func (w *Wrapper) Client() *Client {
	return w.client
}

// WithClient returns a Wrapper for the same object which sends messages with
// c. The result is not cached.
func (w *Wrapper) WithClient(c *Client) *Wrapper {
	return NewWrapper(c, w.peer)
}

// Equal returns true if p stands for the same native object as w.
func (w *Wrapper) Equal(p Peerable) bool {
	if p == nil {
		return false
	}
	return w.Peer() == p.Peer()
}

// Send sends a message to the wrapped object. sel is a selector name or
// Handle.
func (w *Wrapper) Send(sel interface{}, args ...interface{}) (interface{}, error) {
	return w.client.Send(w.peer, sel, args...)
}

// SendRaw sends a message to the wrapped object without coercing arguments
// or results.
func (w *Wrapper) SendRaw(sel interface{}, args ...interface{}) (interface{}, error) {
	return w.client.b.raw.Send(w.peer, sel, args...)
}

// SendPointer sends a message and returns its result as a handle.
func (w *Wrapper) SendPointer(sel interface{}, args ...interface{}) (Handle, error) {
	return w.client.SendPointer(w.peer, sel, args...)
}

// SendWrapper sends a message and returns its result as a Wrapper.
func (w *Wrapper) SendWrapper(sel interface{}, args ...interface{}) (*Wrapper, error) {
	return w.client.SendWrapper(w.peer, sel, args...)
}

// SendString sends a message and returns its result as a string.
func (w *Wrapper) SendString(sel interface{}, args ...interface{}) (string, error) {
	return w.client.SendString(w.peer, sel, args...)
}

// SendInt sends a message and returns its result as an int.
func (w *Wrapper) SendInt(sel interface{}, args ...interface{}) (int, error) {
	return w.client.SendInt(w.peer, sel, args...)
}

// SendBool sends a message and returns its result as a bool.
func (w *Wrapper) SendBool(sel interface{}, args ...interface{}) (bool, error) {
	return w.client.SendBool(w.peer, sel, args...)
}

// SendFloat sends a message and returns its result as a float64.
func (w *Wrapper) SendFloat(sel interface{}, args ...interface{}) (float64, error) {
	return w.client.SendFloat(w.peer, sel, args...)
}

// SendStruct sends a message which returns a structure and stores the result
// in the structure out points to.
func (w *Wrapper) SendStruct(out interface{}, sel interface{}, args ...interface{}) error {
	return w.client.SendStruct(out, w.peer, sel, args...)
}

// Chain sends a message and returns w, discarding the result.
func (w *Wrapper) Chain(sel interface{}, args ...interface{}) (*Wrapper, error) {
	_, err := w.Send(sel, args...)
	return w, err
}

// SendChain sends a chain of messages with the Wrapper's client.
func (w *Wrapper) SendChain(msgs ...*Message) (interface{}, error) {
	return w.client.SendChain(msgs...)
}

// Set sets a key-value coding property of the wrapped object.
func (w *Wrapper) Set(key string, value interface{}) error {
	_, err := w.Send("setValue:forKey:", value, key)
	return err
}

// Get returns a key-value coding property of the wrapped object.
func (w *Wrapper) Get(key string) (interface{}, error) {
	return w.Send("valueForKey:", key)
}

// GetInt returns an integer key-value coding property. Boxed numbers are
// unboxed with longLongValue.
func (w *Wrapper) GetInt(key string) (int, error) {
	v, err := w.unbox(key, "longLongValue")
	if err != nil {
		return 0, err
	}
	return asInt(v)
}

// GetBool returns a boolean key-value coding property. Boxed numbers are
// unboxed with boolValue.
func (w *Wrapper) GetBool(key string) (bool, error) {
	v, err := w.unbox(key, "boolValue")
	if err != nil {
		return false, err
	}
	return asBool(v)
}

// GetFloat returns a floating-point key-value coding property. Boxed numbers
// are unboxed with doubleValue.
func (w *Wrapper) GetFloat(key string) (float64, error) {
	v, err := w.unbox(key, "doubleValue")
	if err != nil {
		return 0, err
	}
	return asFloat(v)
}

func (w *Wrapper) unbox(key, sel string) (interface{}, error) {
	v, err := w.Get(key)
	if err != nil {
		return nil, err
	}
	if o, ok := v.(*Wrapper); ok {
		defer w.client.b.cache.Release(o)
		return o.Send(sel)
	}
	return v, nil
}

// GetWrapper returns an object key-value coding property.
func (w *Wrapper) GetWrapper(key string) (*Wrapper, error) {
	return w.SendWrapper("valueForKey:", key)
}

// Dispose evicts w from its cache. If dealloc is true, it also sends dealloc
// to the native object.
func (w *Wrapper) Dispose(dealloc bool) error {
	c := w.cache
	if c == nil {
		c = w.client.b.cache
	}
	return c.Dispose(w, dealloc)
}

// String returns the description of the wrapped object.
func (w *Wrapper) String() string {
	if w.Peer() == Nil {
		return "nil"
	}
	raw := w.client.b.raw
	d, err := raw.SendPointer(w.peer, "description")
	if err != nil {
		return w.peer.String()
	}
	s, err := w.client.b.goString(d)
	if err != nil {
		return w.peer.String()
	}
	return s
}
