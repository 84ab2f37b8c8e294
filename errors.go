package objcmsg

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is. Each error type in this package
// reports itself as equal to the matching sentinel.
var (
	ErrUnknownTypeEncoding      = errors.New("objcmsg: unknown type encoding")
	ErrUnsupportedConversion    = errors.New("objcmsg: unsupported conversion")
	ErrArgumentCountMismatch    = errors.New("objcmsg: argument count mismatch")
	ErrArgumentCountExceeded    = errors.New("objcmsg: argument count exceeded")
	ErrUnsupportedCallShape     = errors.New("objcmsg: unsupported call shape")
	ErrUnknownSelector          = errors.New("objcmsg: unknown selector")
	ErrSelectorNotHandled       = errors.New("objcmsg: selector not handled")
	ErrHandlerInvocationFailure = errors.New("objcmsg: handler invocation failure")
	// ErrEmptyChain is returned when sending a message chain with no
	// messages.
	ErrEmptyChain = errors.New("objcmsg: message chain is empty")
	// ErrNoRuntime is returned when the native dispatch library is not
	// available. Nothing else can work without it.
	ErrNoRuntime = errors.New("objcmsg: native dispatch library unavailable")
)

// UnknownTypeEncodingError is returned when no converter is registered for the
// tag of an encoding.
type UnknownTypeEncodingError struct {
	Encoding string
}

func (e *UnknownTypeEncodingError) Error() string {
	return fmt.Sprintf("objcmsg: no converter for type encoding %q", e.Encoding)
}

func (e *UnknownTypeEncodingError) Is(target error) bool {
	return target == ErrUnknownTypeEncoding
}

// UnsupportedConversionError is returned when a value cannot be converted to
// or from the representation an encoding describes.
type UnsupportedConversionError struct {
	// Value is the value that could not be converted.
	Value interface{}
	// Encoding is the target or source encoding. It may be empty when the
	// conversion has no encoding, as for receivers.
	Encoding string
	// ToNative is true for Go to native conversions.
	ToNative bool
}

func (e *UnsupportedConversionError) Error() string {
	dir := "from native"
	if e.ToNative {
		dir = "to native"
	}
	if e.Encoding == "" {
		return fmt.Sprintf("objcmsg: cannot convert %T %s", e.Value, dir)
	}
	return fmt.Sprintf("objcmsg: cannot convert %T %s as %q", e.Value, dir, e.Encoding)
}

func (e *UnsupportedConversionError) Is(target error) bool {
	return target == ErrUnsupportedConversion
}

// ArgumentCountMismatchError is returned when a send supplies a different
// number of arguments than the method signature declares.
type ArgumentCountMismatchError struct {
	Selector string
	Want     int
	Got      int
}

func (e *ArgumentCountMismatchError) Error() string {
	return fmt.Sprintf("objcmsg: %s takes %d arguments, got %d", e.Selector, e.Want, e.Got)
}

func (e *ArgumentCountMismatchError) Is(target error) bool {
	return target == ErrArgumentCountMismatch
}

// ArgumentCountExceededError is returned when a call has more arguments than
// any call shape supports.
type ArgumentCountExceededError struct {
	Got int
	Max int
}

func (e *ArgumentCountExceededError) Error() string {
	return fmt.Sprintf("objcmsg: %d arguments exceeds the maximum of %d", e.Got, e.Max)
}

func (e *ArgumentCountExceededError) Is(target error) bool {
	return target == ErrArgumentCountExceeded
}

// UnsupportedCallShapeError is returned when no call shape binding matches a
// call.
type UnsupportedCallShapeError struct {
	// Shape describes the requested shape.
	Shape string
	// Reason is a short explanation.
	Reason string
}

func (e *UnsupportedCallShapeError) Error() string {
	return fmt.Sprintf("objcmsg: unsupported call shape %s: %s", e.Shape, e.Reason)
}

func (e *UnsupportedCallShapeError) Is(target error) bool {
	return target == ErrUnsupportedCallShape
}

// UnknownSelectorError is returned when a receiver has no method signature
// for a selector.
type UnknownSelectorError struct {
	Selector string
	Receiver Handle
}

func (e *UnknownSelectorError) Error() string {
	return fmt.Sprintf("objcmsg: %#x has no method signature for %s", uintptr(e.Receiver), e.Selector)
}

func (e *UnknownSelectorError) Is(target error) bool {
	return target == ErrUnknownSelector
}

// SelectorNotHandledError is returned when neither a Go receiver nor its
// parent handles a forwarded selector.
type SelectorNotHandledError struct {
	Selector string
}

func (e *SelectorNotHandledError) Error() string {
	return fmt.Sprintf("objcmsg: no handler or parent implementation for %s", e.Selector)
}

func (e *SelectorNotHandledError) Is(target error) bool {
	return target == ErrSelectorNotHandled
}

// HandlerInvocationFailure wraps an error or panic from a message handler.
type HandlerInvocationFailure struct {
	// Selector is the selector being handled.
	Selector string
	// Method names the Go function that handled it.
	Method string
	// Cause is the underlying error.
	Cause error
}

func (e *HandlerInvocationFailure) Error() string {
	return fmt.Sprintf("objcmsg: handler %s for %s failed: %v", e.Method, e.Selector, e.Cause)
}

func (e *HandlerInvocationFailure) Unwrap() error {
	return e.Cause
}

func (e *HandlerInvocationFailure) Is(target error) bool {
	return target == ErrHandlerInvocationFailure
}

// Must panics if err is not nil; otherwise it returns v.
func Must(v interface{}, err error) interface{} {
	if err != nil {
		panic(err)
	}
	return v
}
