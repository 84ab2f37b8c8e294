package objcmsg

import (
	"go.uber.org/zap"

	"github.com/zephyrtronium/objcmsg/typenc"
)

// Client sends messages through a Bridge, converting arguments and results
// according to the method signature of each message when so configured.
// Clients are immutable and safe for concurrent use.
type Client struct {
	b         *Bridge
	coerceIn  bool
	coerceOut bool
}

// Bridge returns the Bridge the client sends through.
func (c *Client) Bridge() *Bridge {
	return c.b
}

// CoerceInputs reports whether the client converts arguments.
func (c *Client) CoerceInputs() bool {
	return c.coerceIn
}

// CoerceOutputs reports whether the client converts results.
func (c *Client) CoerceOutputs() bool {
	return c.coerceOut
}

// WithCoercion returns a client on the same Bridge with the given conversion
// settings.
func (c *Client) WithCoercion(inputs, outputs bool) *Client {
	return &Client{b: c.b, coerceIn: inputs, coerceOut: outputs}
}

// Send sends a message. recv is a Handle, a class name, or a Peerable; sel is
// a Handle or a selector name.
func (c *Client) Send(recv, sel interface{}, args ...interface{}) (interface{}, error) {
	r, err := c.b.receiver(recv)
	if err != nil {
		return nil, err
	}
	s, err := c.b.selector(sel)
	if err != nil {
		return nil, err
	}
	return c.send(r, s, c.coerceIn, c.coerceOut, args)
}

// send performs one message send. Wrappers among args are released whether
// or not the send succeeds.
func (c *Client) send(recv, sel Handle, coerceIn, coerceOut bool, args []interface{}) (interface{}, error) {
	b := c.b
	defer releaseArgs(args)
	sig, err := b.Signature(recv, sel)
	if err != nil {
		return nil, err
	}
	if sig.NumArgs() != len(args)+2 {
		return nil, &ArgumentCountMismatchError{Selector: b.rt.SelectorName(sel), Want: sig.NumArgs() - 2, Got: len(args)}
	}
	native := args
	if coerceIn && len(args) > 0 {
		native = make([]interface{}, len(args))
		for i, a := range args {
			v, err := b.mapper.ToNative(c, a, sig.Args[i+2])
			if err != nil {
				return nil, err
			}
			native[i] = v
		}
	}
	ret := typenc.Strip(sig.Return)
	if ce := Logger().Check(zap.DebugLevel, "send"); ce != nil {
		ce.Write(zap.Stringer("receiver", recv), zap.String("selector", b.rt.SelectorName(sel)), zap.String("returns", ret))
	}
	if ret == "" {
		_, err := b.tramp.Word(recv, sel, native...)
		return nil, err
	}
	var raw interface{}
	switch {
	case typenc.IsAggregate(ret):
		return b.tramp.Aggregate(ret, recv, sel, native...)
	case typenc.IsFloat(ret):
		raw, err = b.tramp.Float(ret[0], recv, sel, native...)
	default:
		raw, err = b.tramp.Word(recv, sel, native...)
	}
	if err != nil {
		return nil, err
	}
	if !coerceOut {
		return raw, nil
	}
	return b.mapper.ToGo(c, raw, ret)
}

// SendPointer sends a message without converting its result and returns the
// result as a handle.
func (c *Client) SendPointer(recv, sel interface{}, args ...interface{}) (Handle, error) {
	r, err := c.b.receiver(recv)
	if err != nil {
		return Nil, err
	}
	s, err := c.b.selector(sel)
	if err != nil {
		return Nil, err
	}
	v, err := c.send(r, s, c.coerceIn, false, args)
	if err != nil {
		return Nil, err
	}
	h, ok := handleOf(v)
	if !ok {
		return Nil, &UnsupportedConversionError{Value: v, Encoding: "^"}
	}
	return h, nil
}

// SendWrapper sends a message and returns its result as the canonical
// Wrapper for the returned object, retained once for the caller. A null
// result gives a nil Wrapper.
func (c *Client) SendWrapper(recv, sel interface{}, args ...interface{}) (*Wrapper, error) {
	h, err := c.SendPointer(recv, sel, args...)
	if err != nil || h == Nil {
		return nil, err
	}
	return c.b.cache.Load(h), nil
}

// SendString sends a message and returns its result as a string. The method
// should return an NSString or a C string.
func (c *Client) SendString(recv, sel interface{}, args ...interface{}) (string, error) {
	v, err := c.WithCoercion(c.coerceIn, true).Send(recv, sel, args...)
	if err != nil {
		return "", err
	}
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case *Wrapper:
		defer c.b.cache.Release(x)
		return x.SendString("description")
	}
	return "", &UnsupportedConversionError{Value: v, Encoding: "@"}
}

// SendInt sends a message and returns its result as an int.
func (c *Client) SendInt(recv, sel interface{}, args ...interface{}) (int, error) {
	v, err := c.WithCoercion(c.coerceIn, true).Send(recv, sel, args...)
	if err != nil {
		return 0, err
	}
	return asInt(v)
}

// SendBool sends a message and returns its result as a bool. Integer results
// are true when positive.
func (c *Client) SendBool(recv, sel interface{}, args ...interface{}) (bool, error) {
	v, err := c.WithCoercion(c.coerceIn, true).Send(recv, sel, args...)
	if err != nil {
		return false, err
	}
	return asBool(v)
}

// SendFloat sends a message and returns its result as a float64.
func (c *Client) SendFloat(recv, sel interface{}, args ...interface{}) (float64, error) {
	v, err := c.Send(recv, sel, args...)
	if err != nil {
		return 0, err
	}
	return asFloat(v)
}

// SendStruct sends a message which returns a structure, storing the result in
// the structure out points to. The method signature is still checked, but
// the Go type of out determines the layout of the result.
func (c *Client) SendStruct(out interface{}, recv, sel interface{}, args ...interface{}) error {
	r, err := c.b.receiver(recv)
	if err != nil {
		return err
	}
	s, err := c.b.selector(sel)
	if err != nil {
		return err
	}
	defer releaseArgs(args)
	sig, err := c.b.Signature(r, s)
	if err != nil {
		return err
	}
	if sig.NumArgs() != len(args)+2 {
		return &ArgumentCountMismatchError{Selector: c.b.rt.SelectorName(s), Want: sig.NumArgs() - 2, Got: len(args)}
	}
	native := args
	if c.coerceIn {
		native = make([]interface{}, len(args))
		for i, a := range args {
			if native[i], err = c.b.mapper.ToNative(c, a, sig.Args[i+2]); err != nil {
				return err
			}
		}
	}
	return c.b.tramp.Struct(out, r, s, native...)
}

// NSString creates an NSString with the contents of s.
func (c *Client) NSString(s string) (Handle, error) {
	b := c.b
	cls := b.rt.LookUpClass("NSString")
	h, err := b.tramp.Word(cls, b.Sel("stringWithUTF8String:"), s)
	if err != nil {
		return Nil, err
	}
	return Handle(h), nil
}

// GoString returns the contents of an NSString.
func (c *Client) GoString(str Handle) (string, error) {
	return c.b.goString(str)
}

// Chain sends a message to a class without converting the result and wraps
// the returned object in a new Wrapper which is not cached.
func (c *Client) Chain(class string, sel interface{}, args ...interface{}) (*Wrapper, error) {
	h, err := c.b.raw.SendPointer(class, sel, args...)
	if err != nil {
		return nil, err
	}
	return NewWrapper(c, h), nil
}

// releaseArgs releases the cached Wrappers among args.
func releaseArgs(args []interface{}) {
	for _, a := range args {
		if w, ok := a.(*Wrapper); ok && w != nil && w.cache != nil {
			w.cache.Release(w)
		}
	}
}

// asInt converts a result to an int.
func asInt(v interface{}) (int, error) {
	switch x := v.(type) {
	case float64:
		return int(x), nil
	case float32:
		return int(x), nil
	}
	n, ok := asInt64(v)
	if !ok {
		return 0, &UnsupportedConversionError{Value: v, Encoding: "q"}
	}
	return int(n), nil
}

// asBool converts a result to a bool.
func asBool(v interface{}) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	n, ok := asInt64(v)
	if !ok {
		return false, &UnsupportedConversionError{Value: v, Encoding: "B"}
	}
	return n > 0, nil
}

// asFloat converts a result to a float64.
func asFloat(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	}
	n, ok := asInt64(v)
	if !ok {
		return 0, &UnsupportedConversionError{Value: v, Encoding: "d"}
	}
	return float64(n), nil
}
