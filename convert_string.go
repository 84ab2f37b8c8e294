package objcmsg

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// String converts C strings. Going to Go, it reads the terminated sequence of
// code units at the address it is given and decodes it. Going to native code,
// it returns its argument; producing native strings is the job of
// Client.NSString or of the call layer, which passes Go strings as C strings.
type String struct {
	// Encoding decodes the bytes of C strings. If it is nil, the bytes are
	// taken as UTF-8.
	Encoding encoding.Encoding
	// Width is the size of one code unit in bytes, which is also the size of
	// the terminator. Zero means 1.
	Width int
}

// ToGo decodes the C string at the address v.
func (s String) ToGo(c *Client, v interface{}, enc string) (interface{}, error) {
	var addr uintptr
	switch x := v.(type) {
	case string:
		return x, nil
	case unsafe.Pointer:
		addr = uintptr(x)
	default:
		h, ok := handleOf(v)
		if !ok {
			return nil, &UnsupportedConversionError{Value: v, Encoding: enc}
		}
		addr = uintptr(h)
	}
	if addr == 0 {
		return nil, nil
	}
	b := cstring(addr, s.Width)
	if s.Encoding == nil {
		return string(b), nil
	}
	r, err := s.Encoding.NewDecoder().Bytes(b)
	if err != nil {
		return nil, fmt.Errorf("objcmsg: error decoding C string: %w", err)
	}
	return string(r), nil
}

// ToNative returns v.
func (String) ToNative(c *Client, v interface{}, enc string) (interface{}, error) {
	return v, nil
}

// stringConverter returns the String converter for the named encoding.
func stringConverter(name string) (String, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return String{}, nil
	case "macintosh", "mac-roman":
		return String{Encoding: charmap.Macintosh}, nil
	case "windows-1252", "cp1252":
		return String{Encoding: charmap.Windows1252}, nil
	case "latin1", "iso-8859-1":
		return String{Encoding: charmap.ISO8859_1}, nil
	case "utf-16le", "utf16le":
		return String{Encoding: unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), Width: 2}, nil
	case "utf-32le", "utf32le":
		return String{Encoding: utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM), Width: 4}, nil
	}
	return String{}, fmt.Errorf("objcmsg: unknown C string encoding %q", name)
}

// cstring returns a copy of the code units at addr up to the first unit of
// the given width whose bytes are all zero.
func cstring(addr uintptr, width int) []byte {
	if width <= 0 {
		width = 1
	}
	p := unsafe.Pointer(addr)
	n := 0
	for {
		z := true
		for i := 0; i < width; i++ {
			if *(*byte)(unsafe.Add(p, n+i)) != 0 {
				z = false
				break
			}
		}
		if z {
			break
		}
		n += width
	}
	r := make([]byte, n)
	copy(r, unsafe.Slice((*byte)(p), n))
	return r
}
