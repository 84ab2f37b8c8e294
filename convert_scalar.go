package objcmsg

// Scalar converts integers, booleans, floats, classes, and selectors.
//
// Native integers arrive widened to 64 bits. Going to Go, the int and short
// families narrow to int32, char narrows to int8, and B becomes a bool. All
// other scalar tags pass through unchanged, as does every value going to
// native code, since variadic calls promote arguments to full width anyway.
type Scalar struct {
	// Strict causes narrowing of non-integer values to fail rather than pass
	// the value through.
	Strict bool
}

// ToGo narrows a native scalar.
func (s Scalar) ToGo(c *Client, v interface{}, enc string) (interface{}, error) {
	if enc == "" {
		return v, nil
	}
	switch enc[0] {
	case 'v':
		return nil, nil
	case 'i', 'I', 's', 'S':
		n, ok := asInt64(v)
		if !ok {
			return s.fallback(v, enc)
		}
		return int32(n), nil
	case 'c':
		n, ok := asInt64(v)
		if !ok {
			return s.fallback(v, enc)
		}
		return int8(n), nil
	case 'B':
		if b, ok := v.(bool); ok {
			return b, nil
		}
		n, ok := asInt64(v)
		if !ok {
			return s.fallback(v, enc)
		}
		return n != 0, nil
	}
	return v, nil
}

// ToNative returns v.
func (Scalar) ToNative(c *Client, v interface{}, enc string) (interface{}, error) {
	return v, nil
}

func (s Scalar) fallback(v interface{}, enc string) (interface{}, error) {
	if s.Strict {
		return nil, &UnsupportedConversionError{Value: v, Encoding: enc}
	}
	return v, nil
}

// asInt64 returns the value of an integer of any width.
func asInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), true
	case uintptr:
		return int64(x), true
	case Handle:
		return int64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
