package objcmsg

import "fmt"

// Handle is the address of a native object, class, selector, or method
// implementation. Handles are borrowed from the native runtime; nothing in
// this package owns the memory they refer to.
type Handle uintptr

// Nil is the null handle.
const Nil Handle = 0

// IsNil returns true if h is the null handle.
func (h Handle) IsNil() bool {
	return h == Nil
}

func (h Handle) String() string {
	if h == Nil {
		return "nil"
	}
	return fmt.Sprintf("%#x", uintptr(h))
}

// Peerable is implemented by Go values that stand for a native object.
type Peerable interface {
	// Peer returns the handle of the native object.
	Peer() Handle
}

// handleOf returns the handle that v stands for, if any.
func handleOf(v interface{}) (Handle, bool) {
	switch x := v.(type) {
	case nil:
		return Nil, true
	case Handle:
		return x, true
	case uintptr:
		return Handle(x), true
	case Peerable:
		return x.Peer(), true
	case int64:
		return Handle(uintptr(x)), true
	case uint64:
		return Handle(uintptr(x)), true
	}
	return Nil, false
}
