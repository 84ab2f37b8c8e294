package objcmsg

import (
	"reflect"
	"sync"
)

// Runtime is the native side of a Bridge. Implementations wrap the
// Objective-C runtime library of the host; package testutils provides a
// simulated one.
//
// Everything besides these primitives, including method signature queries,
// string construction, and invocation decoding, is done by sending ordinary
// messages through a Trampoline.
type Runtime interface {
	// LookUpClass returns the class with the given name, or Nil.
	LookUpClass(name string) Handle
	// RegisterName returns the selector with the given name, registering it
	// if needed.
	RegisterName(name string) Handle
	// SelectorName returns the name of a selector.
	SelectorName(sel Handle) string
	// ClassName returns the name of a class.
	ClassName(cls Handle) string
	// ObjectClassName returns the name of the class of an object.
	ObjectClassName(obj Handle) string
	// EntryPoint returns the address of the named dispatch function, or 0 if
	// the runtime has no such function.
	EntryPoint(name string) uintptr
	// Bind returns a procedure which calls the function at fn with arguments
	// of the given types. ret is nil for functions that return nothing.
	Bind(fn uintptr, ret reflect.Type, args []reflect.Type) (Proc, error)
	// RegisterRecipient creates a native object whose messages are delivered
	// to in and returns its handle.
	RegisterRecipient(in Inbound) (Handle, error)
	// Recipient returns the Inbound registered for a native object.
	Recipient(obj Handle) (Inbound, bool)
}

// Proc is a bound native procedure of one call shape. It returns a single
// value, or none for void procedures.
type Proc func(args []reflect.Value) []reflect.Value

// Inbound receives the messages that native code sends to a registered Go
// receiver. The Runtime calls these methods from whatever thread the message
// arrives on.
type Inbound interface {
	// MethodSignatureForSelector returns a method signature object for sel,
	// or Nil if the receiver does not implement it.
	MethodSignatureForSelector(sel Handle) Handle
	// ForwardInvocation handles the invocation object inv.
	ForwardInvocation(inv Handle) error
	// RespondsToSelector reports whether the receiver implements sel.
	RespondsToSelector(sel Handle) bool
}

// MaxForwardFailures is the number of errors a ForwardFailures keeps.
const MaxForwardFailures = 64

// ForwardFailures records the errors returned by Inbound.ForwardInvocation.
// Native senders of forwarded messages see only a zero result, so Runtimes
// keep the most recent failures for inspection. The zero value is ready to
// use.
type ForwardFailures struct {
	mu    sync.Mutex
	errs  []error
	total int
}

// Record adds err, dropping the oldest error if MaxForwardFailures are
// already kept. Nil errors are ignored.
func (f *ForwardFailures) Record(err error) {
	if err == nil {
		return
	}
	f.mu.Lock()
	if len(f.errs) == MaxForwardFailures {
		copy(f.errs, f.errs[1:])
		f.errs = f.errs[:len(f.errs)-1]
	}
	f.errs = append(f.errs, err)
	f.total++
	f.mu.Unlock()
}

// Errors returns the kept errors, oldest first.
func (f *ForwardFailures) Errors() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.errs...)
}

// Total returns the number of errors ever recorded.
func (f *ForwardFailures) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}
