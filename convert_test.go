package objcmsg

import (
	"errors"
	"testing"
	"unsafe"
)

// TestScalarToGo tests that native scalars narrow to the Go types their
// encodings describe.
func TestScalarToGo(t *testing.T) {
	cases := map[string]struct {
		v    interface{}
		enc  string
		want interface{}
	}{
		"Int":          {int64(-7), "i", int32(-7)},
		"IntWrapped":   {int64(1<<32 + 5), "i", int32(5)},
		"Unsigned":     {int64(9), "I", int32(9)},
		"Short":        {int64(-2), "s", int32(-2)},
		"Char":         {int64(300), "c", int8(44)},
		"BoolTrue":     {int64(1), "B", true},
		"BoolFalse":    {int64(0), "B", false},
		"BoolGo":       {true, "B", true},
		"Void":         {int64(12), "v", nil},
		"LongLong":     {int64(-3), "q", int64(-3)},
		"Double":       {2.5, "d", 2.5},
		"Selector":     {Handle(0x40), ":", Handle(0x40)},
		"NotAnInteger": {"x", "i", "x"},
	}
	s := Scalar{}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := s.ToGo(nil, c.v, c.enc)
			if err != nil {
				t.Fatal(err)
			}
			if r != c.want {
				t.Errorf("wrong result: want %#v, got %#v", c.want, r)
			}
		})
	}
}

// TestScalarStrict tests that strict narrowing rejects non-integers.
func TestScalarStrict(t *testing.T) {
	s := Scalar{Strict: true}
	for _, enc := range []string{"i", "I", "s", "S", "c", "B"} {
		t.Run(enc, func(t *testing.T) {
			_, err := s.ToGo(nil, "x", enc)
			if !errors.Is(err, ErrUnsupportedConversion) {
				t.Errorf("wrong error: want %v, got %v", ErrUnsupportedConversion, err)
			}
		})
	}
}

// TestNarrowingIdempotent tests that narrowing an already narrowed value
// gives the same value.
func TestNarrowingIdempotent(t *testing.T) {
	s := Scalar{}
	vals := []interface{}{int64(-1), int64(1 << 40), int64(127), int64(128), int64(0), true}
	for _, enc := range []string{"i", "I", "s", "S", "c", "B"} {
		for _, v := range vals {
			a, err := s.ToGo(nil, v, enc)
			if err != nil {
				t.Fatal(err)
			}
			b, err := s.ToGo(nil, a, enc)
			if err != nil {
				t.Fatal(err)
			}
			if a != b {
				t.Errorf("narrowing %#v as %s is not idempotent: %#v then %#v", v, enc, a, b)
			}
		}
	}
}

// TestQualifierInvariance tests that qualifiers do not change which converter
// handles an encoding or what it produces.
func TestQualifierInvariance(t *testing.T) {
	m, err := DefaultMapper(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]interface{}{
		"i": int64(-9),
		"c": int64(65),
		"B": int64(1),
		"d": 1.25,
		"^": Handle(0x100),
		"{": struct{ A, B int64 }{1, 2},
	}
	for enc, v := range cases {
		for _, q := range []string{"r", "n", "N", "o", "O", "R", "V", "rn", "Vo"} {
			t.Run(q+enc, func(t *testing.T) {
				want, err := m.ToGo(nil, v, enc)
				if err != nil {
					t.Fatal(err)
				}
				got, err := m.ToGo(nil, v, q+enc)
				if err != nil {
					t.Fatal(err)
				}
				if got != want {
					t.Errorf("qualifier changed result: want %#v, got %#v", want, got)
				}
			})
		}
	}
}

// TestMapperUnknown tests that encodings without a converter are reported.
func TestMapperUnknown(t *testing.T) {
	m, err := DefaultMapper(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	for _, enc := range []string{"X", "", "r", "%"} {
		if _, err := m.ToGo(nil, int64(0), enc); !errors.Is(err, ErrUnknownTypeEncoding) {
			t.Errorf("ToGo %q: wrong error: %v", enc, err)
		}
		if _, err := m.ToNative(nil, int64(0), enc); !errors.Is(err, ErrUnknownTypeEncoding) {
			t.Errorf("ToNative %q: wrong error: %v", enc, err)
		}
	}
}

// TestStringToGo tests decoding C strings in each supported encoding.
func TestStringToGo(t *testing.T) {
	cases := map[string]struct {
		enc  string
		b    []byte
		want string
	}{
		"UTF8":      {"utf-8", []byte("héllo\x00"), "héllo"},
		"Empty":     {"utf-8", []byte{0}, ""},
		"Macintosh": {"macintosh", []byte{'c', 0x8e, 0}, "cé"},
		"Latin1":    {"latin1", []byte{'c', 0xe9, 0}, "cé"},
		"UTF16":     {"utf-16le", []byte{'h', 0, 'i', 0, 0, 0}, "hi"},
		"UTF16Wide": {"utf-16le", []byte{0x00, 0x01, 0, 0}, "Ā"},
		"UTF32":     {"utf-32le", []byte{'o', 0, 0, 0, 'k', 0, 0, 0, 0, 0, 0, 0}, "ok"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := stringConverter(c.enc)
			if err != nil {
				t.Fatal(err)
			}
			r, err := s.ToGo(nil, unsafe.Pointer(&c.b[0]), "*")
			if err != nil {
				t.Fatal(err)
			}
			if r != c.want {
				t.Errorf("wrong result: want %q, got %q", c.want, r)
			}
		})
	}
	t.Run("Null", func(t *testing.T) {
		r, err := String{}.ToGo(nil, Nil, "*")
		if err != nil || r != nil {
			t.Errorf("null C string gave %#v, %v", r, err)
		}
	})
	t.Run("GoString", func(t *testing.T) {
		r, err := String{}.ToGo(nil, "already", "*")
		if err != nil || r != "already" {
			t.Errorf("Go string gave %#v, %v", r, err)
		}
	})
}

// TestStringConverterUnknown tests that unknown encodings are rejected.
func TestStringConverterUnknown(t *testing.T) {
	if _, err := stringConverter("ebcdic"); err == nil {
		t.Error("no error for unknown encoding")
	}
}

type peer Handle

func (p peer) Peer() Handle { return Handle(p) }

// TestObjectToNative tests conversions of Go values to object handles that
// need no runtime.
func TestObjectToNative(t *testing.T) {
	cases := map[string]struct {
		v    interface{}
		want interface{}
	}{
		"Nil":      {nil, Nil},
		"Handle":   {Handle(0x50), Handle(0x50)},
		"Uintptr":  {uintptr(0x60), Handle(0x60)},
		"Peerable": {peer(0x70), Handle(0x70)},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := Object{}.ToNative(nil, c.v, "@")
			if err != nil {
				t.Fatal(err)
			}
			if r != c.want {
				t.Errorf("wrong result: want %#v, got %#v", c.want, r)
			}
		})
	}
	for name, v := range map[string]interface{}{"Float": 1.5, "Slice": []int{1}, "Bool": true} {
		t.Run("Unsupported"+name, func(t *testing.T) {
			_, err := Object{}.ToNative(nil, v, "@")
			var e *UnsupportedConversionError
			if !errors.As(err, &e) {
				t.Fatalf("wrong error: %v", err)
			}
			if !e.ToNative || e.Encoding != "@" {
				t.Errorf("wrong error details: %+v", e)
			}
		})
	}
}

// TestPointerConversions tests that pointers pass through as handles.
func TestPointerConversions(t *testing.T) {
	x := 0
	p := unsafe.Pointer(&x)
	r, err := Pointer{}.ToGo(nil, p, "^i")
	if err != nil {
		t.Fatal(err)
	}
	if r != Handle(uintptr(p)) {
		t.Errorf("wrong pointer: want %#x, got %#v", uintptr(p), r)
	}
	r, err = Pointer{}.ToGo(nil, int64(0x88), "^v")
	if err != nil || r != Handle(0x88) {
		t.Errorf("integer address gave %#v, %v", r, err)
	}
	r, err = Pointer{}.ToNative(nil, peer(0x90), "^v")
	if err != nil || r != Handle(0x90) {
		t.Errorf("Peerable gave %#v, %v", r, err)
	}
	r, err = Pointer{}.ToNative(nil, nil, "^v")
	if err != nil || r != Nil {
		t.Errorf("nil gave %#v, %v", r, err)
	}
}
