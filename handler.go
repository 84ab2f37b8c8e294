package objcmsg

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"unsafe"
)

// HandlerFunc is the signature of handlers which take their arguments
// generically. Handlers may also be any function, typically a method
// expression, whose first parameter accepts the receiver and whose other
// parameters accept the converted arguments.
type HandlerFunc func(recv Recipient, args ...interface{}) (interface{}, error)

// Handler is a Go function that handles one selector.
type Handler struct {
	// Selector is the selector name.
	Selector string
	// Types is the method type string of the selector, or empty if the
	// signature comes from Like or from the parent.
	Types string
	// Like names a method with the same signature as "Class.selector".
	Like string
	// Name is the name of the Go function, for diagnostics.
	Name string

	fn      reflect.Value
	generic HandlerFunc
}

// Option configures a Handler.
type Option func(*Handler)

// Types declares the method type string of a handler, e.g. "v@:@".
func Types(types string) Option {
	return func(h *Handler) {
		h.Types = types
	}
}

// Like declares that a handler has the same signature as another method,
// given as "Class.selector".
func Like(ref string) Option {
	return func(h *Handler) {
		h.Like = ref
	}
}

// Table maps selector names to the handlers of one Go type. A Recipient
// fills its table in its Handlers method, which is called once for its type.
type Table struct {
	typ reflect.Type
	m   map[string]*Handler
}

func newTable(typ reflect.Type) *Table {
	return &Table{typ: typ, m: make(map[string]*Handler)}
}

// Type returns the Go type whose handlers the table holds.
func (t *Table) Type() reflect.Type {
	return t.typ
}

// Msg registers fn as the handler for selector, replacing any previous
// handler. It panics if fn is not a function; handler tables are built once
// per type, so such a mistake is a programming error.
func (t *Table) Msg(selector string, fn interface{}, opts ...Option) *Table {
	h := Handler{Selector: selector}
	switch f := fn.(type) {
	case HandlerFunc:
		h.generic = f
		h.Name = funcName(reflect.ValueOf(f))
	case func(Recipient, ...interface{}) (interface{}, error):
		h.generic = f
		h.Name = funcName(reflect.ValueOf(f))
	default:
		v := reflect.ValueOf(fn)
		if v.Kind() != reflect.Func || v.Type().NumIn() < 1 {
			panic(fmt.Errorf("objcmsg: handler for %s must be a function taking the receiver, not %T", selector, fn))
		}
		if v.Type().NumOut() > 2 {
			panic(fmt.Errorf("objcmsg: handler for %s returns too many values", selector))
		}
		h.fn = v
		h.Name = funcName(v)
	}
	for _, opt := range opts {
		opt(&h)
	}
	t.m[selector] = &h
	return t
}

// Lookup returns the handler for a selector.
func (t *Table) Lookup(selector string) (*Handler, bool) {
	h, ok := t.m[selector]
	return h, ok
}

// Selectors returns the sorted names of all handled selectors.
func (t *Table) Selectors() []string {
	r := make([]string, 0, len(t.m))
	for sel := range t.m {
		r = append(r, sel)
	}
	sort.Strings(r)
	return r
}

func funcName(v reflect.Value) string {
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return v.Type().String()
}

// inferTypes returns a method type string for a reflective handler built from
// its Go parameter and result types.
func (h *Handler) inferTypes() string {
	if h.generic != nil {
		return ""
	}
	ft := h.fn.Type()
	var b strings.Builder
	ret := "v"
	for i := 0; i < ft.NumOut(); i++ {
		if ft.Out(i) != errorType {
			ret = goTypeEncoding(ft.Out(i))
		}
	}
	b.WriteString(ret)
	b.WriteString("@:")
	for i := 1; i < ft.NumIn(); i++ {
		b.WriteString(goTypeEncoding(ft.In(i)))
	}
	return b.String()
}

func goTypeEncoding(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Bool:
		return "B"
	case reflect.Int8:
		return "c"
	case reflect.Uint8:
		return "C"
	case reflect.Int16:
		return "s"
	case reflect.Uint16:
		return "S"
	case reflect.Int32:
		return "i"
	case reflect.Uint32:
		return "I"
	case reflect.Int, reflect.Int64:
		return "q"
	case reflect.Uint, reflect.Uint64:
		return "Q"
	case reflect.Float32:
		return "f"
	case reflect.Float64:
		return "d"
	case reflect.Uintptr, reflect.UnsafePointer:
		if t == handleType {
			return "@"
		}
		return "^v"
	}
	return "@"
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// call invokes the handler. Panics in the handler become errors.
func (h *Handler) call(recv Recipient, args []interface{}) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", e)
			} else {
				err = fmt.Errorf("panic: %v", r)
			}
		}
	}()
	if h.generic != nil {
		return h.generic(recv, args...)
	}
	ft := h.fn.Type()
	rv := reflect.ValueOf(recv)
	if !rv.Type().AssignableTo(ft.In(0)) {
		return nil, fmt.Errorf("receiver %T cannot be used as %v", recv, ft.In(0))
	}
	n := ft.NumIn() - 1
	if ft.IsVariadic() {
		if len(args) < n-1 {
			return nil, fmt.Errorf("want at least %d arguments, got %d", n-1, len(args))
		}
	} else if len(args) != n {
		return nil, fmt.Errorf("want %d arguments, got %d", n, len(args))
	}
	in := make([]reflect.Value, 0, len(args)+1)
	in = append(in, rv)
	for i, a := range args {
		var pt reflect.Type
		if ft.IsVariadic() && i >= n-1 {
			pt = ft.In(n).Elem()
		} else {
			pt = ft.In(i + 1)
		}
		v, err := convertArg(a, pt)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in = append(in, v)
	}
	out := h.fn.Call(in)
	for _, o := range out {
		if o.Type() == errorType {
			if !o.IsNil() {
				err = o.Interface().(error)
			}
			continue
		}
		result = o.Interface()
	}
	return result, err
}

// convertArg converts a decoded argument to a handler parameter type.
func convertArg(v interface{}, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if t == handleType {
		if h, ok := handleOf(v); ok {
			return reflect.ValueOf(h), nil
		}
	}
	switch t.Kind() {
	case reflect.Struct, reflect.Array:
		if (rv.Kind() == reflect.Struct || rv.Kind() == reflect.Array) && rv.Type().Size() == t.Size() {
			// Aggregates arrive with synthesized field names.
			src := reflect.New(rv.Type())
			src.Elem().Set(rv)
			return reflect.NewAt(t, unsafe.Pointer(src.Pointer())).Elem(), nil
		}
	case reflect.Bool:
		if n, ok := asInt64(v); ok {
			return reflect.ValueOf(n != 0).Convert(t), nil
		}
	case reflect.String:
		if rv.Kind() == reflect.String {
			return rv.Convert(t), nil
		}
		if s, ok := v.(fmt.Stringer); ok {
			return reflect.ValueOf(s.String()).Convert(t), nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
			reflect.Float32, reflect.Float64:
			return rv.Convert(t), nil
		case reflect.Bool:
			if rv.Bool() {
				return reflect.ValueOf(1).Convert(t), nil
			}
			return reflect.Zero(t), nil
		case reflect.String:
			f, err := strconv.ParseFloat(rv.String(), 64)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(f).Convert(t), nil
		}
	}
	return reflect.Value{}, &UnsupportedConversionError{Value: v, Encoding: t.String()}
}

// errNoHandlerTable is reported when a Handlers method panics.
var errNoHandlerTable = errors.New("objcmsg: Handlers panicked")
