package objcmsg

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/zephyrtronium/objcmsg/internal/arch"
	"github.com/zephyrtronium/objcmsg/typenc"
)

const (
	// MaxArgs is the largest number of arguments, not counting the receiver
	// and selector, that any call shape accepts.
	MaxArgs = 7
	// MaxStructArgs is the largest number of arguments for which every
	// pattern of by-value structure arguments has a call shape. Longer
	// patterns must be listed in Config.StructSignatures.
	MaxStructArgs = 4
	// registerWidth is the largest structure returned in registers.
	registerWidth = 16
)

// Shape is the return category of a call, which selects the native entry
// point.
type Shape int

const (
	// ShapeWord returns an integer or address in an integer register.
	ShapeWord Shape = iota
	// ShapeFloat returns a float or double in a floating-point register.
	ShapeFloat
	// ShapeStruct returns a structure, in registers or through a hidden
	// output buffer depending on size and architecture.
	ShapeStruct
	// ShapeVoid returns nothing.
	ShapeVoid
)

func (s Shape) String() string {
	switch s {
	case ShapeWord:
		return "word"
	case ShapeFloat:
		return "float"
	case ShapeStruct:
		return "struct"
	case ShapeVoid:
		return "void"
	}
	return "invalid"
}

// CallShape fully describes the binding a call needs.
type CallShape struct {
	// Return is the return category.
	Return Shape
	// Arity is the number of arguments after the receiver and selector.
	Arity int
	// Structs has one character per argument, 1 where the argument is a
	// structure passed by value and 0 elsewhere. It is empty when there are
	// no such arguments.
	Structs string
}

func (s CallShape) String() string {
	if s.Structs == "" {
		return fmt.Sprintf("%v/%d", s.Return, s.Arity)
	}
	return fmt.Sprintf("%v/%d/%s", s.Return, s.Arity, s.Structs)
}

// Trampoline performs message sends with the call shape each one needs.
//
// Floating-point returns go through objc_msgSend_fpret on x86-64. The arm64
// runtime has no such entry point; there objc_msgSend itself returns the
// float. Structures larger than two registers are returned through
// objc_msgSend_stret and a hidden buffer argument on x86-64, and through
// objc_msgSend on arm64. The family is decided when the Trampoline is
// created, not when the program is compiled.
type Trampoline struct {
	rt     Runtime
	family arch.Family

	msgSend uintptr
	fpret   uintptr
	stret   uintptr

	// variants holds the accepted by-value structure signatures. It is not
	// modified after creation.
	variants map[string]bool

	mu    sync.Mutex
	procs map[string]Proc
}

// NewTrampoline creates a Trampoline for the given CPU family. extra lists
// structure signatures accepted in addition to the built-in ones.
func NewTrampoline(rt Runtime, family arch.Family, extra ...string) (*Trampoline, error) {
	t := Trampoline{
		rt:       rt,
		family:   family,
		msgSend:  rt.EntryPoint("objc_msgSend"),
		fpret:    rt.EntryPoint("objc_msgSend_fpret"),
		stret:    rt.EntryPoint("objc_msgSend_stret"),
		variants: structVariants(MaxStructArgs),
		procs:    make(map[string]Proc),
	}
	if t.msgSend == 0 {
		return nil, ErrNoRuntime
	}
	for _, sig := range extra {
		t.variants[sig] = true
	}
	return &t, nil
}

// structVariants returns every structure signature of up to n arguments that
// has at least one structure.
func structVariants(n int) map[string]bool {
	m := make(map[string]bool)
	for k := 1; k <= n; k++ {
		for bits := 1; bits < 1<<uint(k); bits++ {
			b := make([]byte, k)
			for i := range b {
				b[i] = '0'
				if bits&(1<<uint(i)) != 0 {
					b[i] = '1'
				}
			}
			m[string(b)] = true
		}
	}
	return m
}

// Family returns the CPU family the Trampoline targets.
func (t *Trampoline) Family() arch.Family {
	return t.family
}

// Supports reports whether sig is an accepted structure signature.
func (t *Trampoline) Supports(sig string) bool {
	return t.variants[sig]
}

// Word sends a message using the standard call shape and returns the integer
// register.
func (t *Trampoline) Word(recv, sel Handle, args ...interface{}) (int64, error) {
	vals, shape, err := t.prepare(ShapeWord, recv, sel, args)
	if err != nil {
		return 0, err
	}
	out, err := t.invoke(t.msgSend, uintptrType, vals, shape)
	if err != nil {
		return 0, err
	}
	return int64(out[0].Uint()), nil
}

// Float sends a message using the floating-point call shape. tag is f for
// methods returning float and d for double.
func (t *Trampoline) Float(tag byte, recv, sel Handle, args ...interface{}) (float64, error) {
	vals, shape, err := t.prepare(ShapeFloat, recv, sel, args)
	if err != nil {
		return 0, err
	}
	fn := t.msgSend
	switch t.family {
	case arch.ARM64:
		// objc_msgSend returns floats directly.
	case arch.X86_64:
		if t.fpret == 0 {
			return 0, &UnsupportedCallShapeError{Shape: shape.String(), Reason: "runtime lacks objc_msgSend_fpret"}
		}
		fn = t.fpret
	default:
		if t.fpret != 0 {
			fn = t.fpret
		}
	}
	ret := float64Type
	if tag == 'f' {
		ret = float32Type
	}
	out, err := t.invoke(fn, ret, vals, shape)
	if err != nil {
		return 0, err
	}
	return out[0].Float(), nil
}

// Struct sends a message which returns a structure and stores the result in
// the structure or array that out points to.
func (t *Trampoline) Struct(out interface{}, recv, sel Handle, args ...interface{}) error {
	pv := reflect.ValueOf(out)
	if pv.Kind() != reflect.Ptr || pv.IsNil() || (pv.Elem().Kind() != reflect.Struct && pv.Elem().Kind() != reflect.Array) {
		return &UnsupportedConversionError{Value: out, Encoding: "{"}
	}
	vals, shape, err := t.prepare(ShapeStruct, recv, sel, args)
	if err != nil {
		return err
	}
	rt := pv.Elem().Type()
	if rt.Size() > registerWidth && t.family == arch.X86_64 {
		if t.stret == 0 {
			return &UnsupportedCallShapeError{Shape: shape.String(), Reason: "runtime lacks objc_msgSend_stret"}
		}
		buf := reflect.ValueOf(unsafe.Pointer(pv.Pointer()))
		vals = append([]reflect.Value{buf}, vals...)
		_, err := t.invoke(t.stret, nil, vals, shape)
		return err
	}
	r, err := t.invoke(t.msgSend, rt, vals, shape)
	if err != nil {
		return err
	}
	pv.Elem().Set(r[0])
	return nil
}

// Aggregate sends a message which returns the structure, union, or array
// described by enc and returns the result as a value of a Go type with the
// same layout.
func (t *Trampoline) Aggregate(enc string, recv, sel Handle, args ...interface{}) (interface{}, error) {
	typ, err := typenc.Parse(enc)
	if err != nil {
		return nil, &UnknownTypeEncodingError{Encoding: enc}
	}
	gt, err := typ.GoType()
	if err != nil {
		return nil, &UnsupportedCallShapeError{Shape: ShapeStruct.String(), Reason: err.Error()}
	}
	out := reflect.New(gt)
	if err := t.Struct(out.Interface(), recv, sel, args...); err != nil {
		return nil, err
	}
	return out.Elem().Interface(), nil
}

// CallIMP calls a method implementation directly with an explicit receiver
// and selector. ret is the return type encoding of the method. Aggregate
// returns are not supported.
func (t *Trampoline) CallIMP(imp uintptr, ret string, self, sel Handle, args ...interface{}) (interface{}, error) {
	tag := typenc.Tag(ret)
	switch typenc.KindOf(tag) {
	case typenc.Void:
		vals, shape, err := t.prepare(ShapeVoid, self, sel, args)
		if err != nil {
			return nil, err
		}
		_, err = t.invoke(imp, nil, vals, shape)
		return nil, err
	case typenc.Float:
		vals, shape, err := t.prepare(ShapeFloat, self, sel, args)
		if err != nil {
			return nil, err
		}
		rt := float64Type
		if tag == 'f' {
			rt = float32Type
		}
		out, err := t.invoke(imp, rt, vals, shape)
		if err != nil {
			return nil, err
		}
		return out[0].Float(), nil
	case typenc.Struct, typenc.Union, typenc.Array, typenc.Invalid:
		return nil, &UnsupportedCallShapeError{Shape: ret, Reason: "implementation calls need a scalar or void return"}
	}
	vals, shape, err := t.prepare(ShapeWord, self, sel, args)
	if err != nil {
		return nil, err
	}
	out, err := t.invoke(imp, uintptrType, vals, shape)
	if err != nil {
		return nil, err
	}
	return int64(out[0].Uint()), nil
}

var (
	uintptrType = reflect.TypeOf(uintptr(0))
	float32Type = reflect.TypeOf(float32(0))
	float64Type = reflect.TypeOf(float64(0))
	handleType  = reflect.TypeOf(Nil)
)

// argValue returns the value to pass for a Go argument.
func argValue(a interface{}) reflect.Value {
	switch x := a.(type) {
	case nil:
		return reflect.ValueOf(Nil)
	case Peerable:
		return reflect.ValueOf(x.Peer())
	case int:
		return reflect.ValueOf(int64(x))
	case uint:
		return reflect.ValueOf(uint64(x))
	}
	return reflect.ValueOf(a)
}

// prepare validates the arity and structure signature of a call and converts
// its arguments.
func (t *Trampoline) prepare(ret Shape, recv, sel Handle, args []interface{}) ([]reflect.Value, CallShape, error) {
	shape := CallShape{Return: ret, Arity: len(args)}
	if len(args) > MaxArgs {
		return nil, shape, &ArgumentCountExceededError{Got: len(args), Max: MaxArgs}
	}
	vals := make([]reflect.Value, 0, len(args)+2)
	vals = append(vals, reflect.ValueOf(recv), reflect.ValueOf(sel))
	bits := make([]byte, len(args))
	structs := false
	for i, a := range args {
		v := argValue(a)
		bits[i] = '0'
		if v.Kind() == reflect.Struct {
			bits[i] = '1'
			structs = true
		}
		vals = append(vals, v)
	}
	if structs {
		shape.Structs = string(bits)
		if !t.variants[shape.Structs] {
			return nil, shape, &UnsupportedCallShapeError{Shape: shape.String(), Reason: "no binding for this structure signature"}
		}
	}
	return vals, shape, nil
}

// invoke calls fn with vals through a procedure bound for their types,
// binding one if needed.
func (t *Trampoline) invoke(fn uintptr, ret reflect.Type, vals []reflect.Value, shape CallShape) (out []reflect.Value, err error) {
	types := make([]reflect.Type, len(vals))
	var key strings.Builder
	fmt.Fprintf(&key, "%x>%v", fn, ret)
	for i, v := range vals {
		types[i] = v.Type()
		key.WriteByte(',')
		key.WriteString(types[i].String())
	}
	t.mu.Lock()
	p := t.procs[key.String()]
	t.mu.Unlock()
	if p == nil {
		p, err = t.rt.Bind(fn, ret, types)
		if err != nil {
			return nil, &UnsupportedCallShapeError{Shape: shape.String(), Reason: err.Error()}
		}
		t.mu.Lock()
		t.procs[key.String()] = p
		t.mu.Unlock()
	}
	if ce := Logger().Check(zap.DebugLevel, "native call"); ce != nil {
		ce.Write(zap.Uintptr("fn", fn), zap.Stringer("shape", shape), zap.Int("args", len(vals)))
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, &UnsupportedCallShapeError{Shape: shape.String(), Reason: fmt.Sprint(r)}
		}
	}()
	out = p(vals)
	if ret != nil && len(out) != 1 {
		return nil, &UnsupportedCallShapeError{Shape: shape.String(), Reason: "procedure returned no value"}
	}
	return out, nil
}
