package objcmsg

import (
	"fmt"
	"sync"
)

// Bridge holds the state shared by everything that sends messages to or
// receives messages from one native runtime: the converters, the call
// trampoline, the wrapper cache, and the handler tables of Go receivers.
type Bridge struct {
	rt     Runtime
	cfg    Config
	mapper *Mapper
	tramp  *Trampoline
	cache  *Cache
	router *Router

	// client coerces arguments and results; raw coerces neither.
	client *Client
	raw    *Client

	// sels caches selectors by name.
	sels sync.Map
}

// New creates a Bridge over rt. It fails with ErrNoRuntime if rt cannot send
// messages at all.
func New(rt Runtime, cfg Config) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mapper, err := DefaultMapper(cfg)
	if err != nil {
		return nil, err
	}
	tramp, err := NewTrampoline(rt, cfg.family(), cfg.StructSignatures...)
	if err != nil {
		return nil, err
	}
	b := &Bridge{
		rt:     rt,
		cfg:    cfg,
		mapper: mapper,
		tramp:  tramp,
	}
	b.client = &Client{b: b, coerceIn: true, coerceOut: true}
	b.raw = &Client{b: b}
	b.cache = newCache(b.client)
	b.router = newRouter(b)
	return b, nil
}

// Runtime returns the native runtime.
func (b *Bridge) Runtime() Runtime {
	return b.rt
}

// Config returns the settings the Bridge was created with.
func (b *Bridge) Config() Config {
	return b.cfg
}

// Mapper returns the converter dispatcher. Registering converters on it
// changes how all clients of the Bridge convert values.
func (b *Bridge) Mapper() *Mapper {
	return b.mapper
}

// Trampoline returns the call trampoline.
func (b *Bridge) Trampoline() *Trampoline {
	return b.tramp
}

// Cache returns the wrapper cache.
func (b *Bridge) Cache() *Cache {
	return b.cache
}

// Router returns the router for messages to Go receivers.
func (b *Bridge) Router() *Router {
	return b.router
}

// Client returns the client which coerces both arguments and results.
func (b *Bridge) Client() *Client {
	return b.client
}

// Raw returns the client which coerces neither arguments nor results.
func (b *Bridge) Raw() *Client {
	return b.raw
}

// Sel returns the selector with the given name.
func (b *Bridge) Sel(name string) Handle {
	if h, ok := b.sels.Load(name); ok {
		return h.(Handle)
	}
	h := b.rt.RegisterName(name)
	b.sels.Store(name, h)
	return h
}

// SelName returns the name of a selector.
func (b *Bridge) SelName(sel Handle) string {
	return b.rt.SelectorName(sel)
}

// Class returns the class with the given name, or Nil if there is none.
func (b *Bridge) Class(name string) Handle {
	return b.rt.LookUpClass(name)
}

// receiver resolves the receiver of a send: a Handle, a class name, or a
// Peerable.
func (b *Bridge) receiver(v interface{}) (Handle, error) {
	if s, ok := v.(string); ok {
		cls := b.rt.LookUpClass(s)
		if cls == Nil {
			return Nil, fmt.Errorf("objcmsg: no class named %q", s)
		}
		return cls, nil
	}
	if h, ok := handleOf(v); ok {
		return h, nil
	}
	return Nil, &UnsupportedConversionError{Value: v, ToNative: true}
}

// selector resolves the selector of a send: a Handle or a name.
func (b *Bridge) selector(v interface{}) (Handle, error) {
	switch x := v.(type) {
	case string:
		return b.Sel(x), nil
	case Handle:
		return x, nil
	case Peerable:
		return x.Peer(), nil
	}
	return Nil, &UnsupportedConversionError{Value: v, ToNative: true}
}

// goString returns the contents of an NSString.
func (b *Bridge) goString(str Handle) (string, error) {
	if str == Nil {
		return "", nil
	}
	p, err := b.tramp.Word(str, b.Sel("UTF8String"))
	if err != nil {
		return "", err
	}
	if p == 0 {
		return "", nil
	}
	return string(cstring(uintptr(p), 1)), nil
}
