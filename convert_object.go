package objcmsg

import "unsafe"

// Object converts Objective-C objects.
//
// Going to Go, a null object becomes nil, instances of the configured string
// classes become Go strings, objects registered as Go receivers become those
// receivers, and anything else becomes the cached Wrapper for its handle,
// retained once for the caller. Going to native code, nil becomes the null
// handle, strings become new NSStrings, and Peerable values become their
// handles.
type Object struct{}

// ToGo converts the native object v.
func (Object) ToGo(c *Client, v interface{}, enc string) (interface{}, error) {
	var h Handle
	switch x := v.(type) {
	case nil:
		return nil, nil
	case Handle:
		h = x
	case uintptr:
		h = Handle(x)
	case int64:
		h = Handle(uintptr(x))
	case uint64:
		h = Handle(uintptr(x))
	case unsafe.Pointer:
		h = Handle(uintptr(x))
	default:
		return v, nil
	}
	if h == Nil {
		return nil, nil
	}
	b := c.Bridge()
	if b.cfg.isStringClass(b.rt.ObjectClassName(h)) {
		s, err := b.goString(h)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	if in, ok := b.rt.Recipient(h); ok {
		return recipientOf(in), nil
	}
	return b.cache.Load(h), nil
}

// ToNative converts v to an object handle.
func (Object) ToNative(c *Client, v interface{}, enc string) (interface{}, error) {
	switch x := v.(type) {
	case nil:
		return Nil, nil
	case string:
		return c.NSString(x)
	case Peerable:
		return x.Peer(), nil
	case Handle:
		return x, nil
	case uintptr:
		return Handle(x), nil
	case unsafe.Pointer:
		return Handle(uintptr(x)), nil
	}
	return nil, &UnsupportedConversionError{Value: v, Encoding: enc, ToNative: true}
}

// Pointer converts generic pointers. Addresses pass through in both
// directions; going to Go they become Handles, and going to native code
// Peerable values become their handles.
type Pointer struct{}

// ToGo returns the address v as a Handle.
func (Pointer) ToGo(c *Client, v interface{}, enc string) (interface{}, error) {
	if p, ok := v.(unsafe.Pointer); ok {
		return Handle(uintptr(p)), nil
	}
	if h, ok := handleOf(v); ok {
		return h, nil
	}
	return v, nil
}

// ToNative returns the address v.
func (Pointer) ToNative(c *Client, v interface{}, enc string) (interface{}, error) {
	if p, ok := v.(Peerable); ok {
		return p.Peer(), nil
	}
	if v == nil {
		return Nil, nil
	}
	return v, nil
}

// Structure passes structures through unchanged. Laying them out for a call
// is the job of the Trampoline.
type Structure struct{}

// ToGo returns v.
func (Structure) ToGo(c *Client, v interface{}, enc string) (interface{}, error) {
	return v, nil
}

// ToNative returns v.
func (Structure) ToNative(c *Client, v interface{}, enc string) (interface{}, error) {
	return v, nil
}
