package testutils

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unsafe"

	"github.com/zephyrtronium/objcmsg"
	"github.com/zephyrtronium/objcmsg/internal/arch"
	"github.com/zephyrtronium/objcmsg/typenc"
)

// Addresses of the simulated dispatch functions.
const (
	msgSendAddr uintptr = 0x10
	fpretAddr   uintptr = 0x20
	stretAddr   uintptr = 0x30
)

// Runtime is an Objective-C runtime simulated in Go. Classes and their
// methods are Go functions; objects, classes, and selectors are opaque
// handles. C strings and the buffers passed to methods are real memory, so
// code that reads through handles works the same as with the native
// runtime.
//
// The simulation follows the calling convention of its CPU family: on x86-64,
// methods returning floats give garbage unless called through
// objc_msgSend_fpret, and structures wider than two registers give garbage
// unless returned through objc_msgSend_stret. On arm64 neither entry point
// exists. Calling any method with a return type other than its own also gives
// garbage, which the simulation represents as zero.
type Runtime struct {
	family arch.Family

	mu       sync.Mutex
	next     objcmsg.Handle
	classes  map[string]*Class
	byHandle map[objcmsg.Handle]*Class
	objects  map[objcmsg.Handle]*Object
	sels     map[string]objcmsg.Handle
	selNames map[objcmsg.Handle]string
	imps     map[uintptr]*Method
	nextIMP  uintptr
	recips   map[objcmsg.Handle]objcmsg.Inbound
	cstrs    [][]byte
	counts   map[string]int
	fwdErrs  objcmsg.ForwardFailures
}

// NewRuntime creates a simulated runtime for the CPU family named by machine,
// e.g. "arm64" or "x86_64", with the Foundation classes defined.
func NewRuntime(machine string) *Runtime {
	rt := &Runtime{
		family:   arch.Parse(machine),
		next:     0x10000,
		classes:  make(map[string]*Class),
		byHandle: make(map[objcmsg.Handle]*Class),
		objects:  make(map[objcmsg.Handle]*Object),
		sels:     make(map[string]objcmsg.Handle),
		selNames: make(map[objcmsg.Handle]string),
		imps:     make(map[uintptr]*Method),
		nextIMP:  0x1000,
		recips:   make(map[objcmsg.Handle]objcmsg.Inbound),
		counts:   make(map[string]int),
	}
	foundation(rt)
	return rt
}

// Machine returns the name of the CPU family the runtime simulates.
func (rt *Runtime) Machine() string {
	return rt.family.String()
}

// Class is a simulated class.
type Class struct {
	// Name is the name of the class.
	Name string
	// InstanceName is the class name instances report, if not Name.
	InstanceName string
	// Super is the superclass.
	Super *Class
	// Handle is the class object.
	Handle objcmsg.Handle
	// Init, if not nil, initializes the Value of new instances.
	Init func(o *Object)

	rt           *Runtime
	methods      map[string]*Method
	classMethods map[string]*Method
}

// Method is a simulated method implementation.
type Method struct {
	// Selector is the name of the selector the method implements.
	Selector string
	// Types is the method type string.
	Types string
	// Fn implements the method.
	Fn func(c *Call) interface{}

	encs []string
	ret  string
	args []string
	imp  uintptr

	sigOnce sync.Once
	sig     objcmsg.Handle
}

// Object is a simulated object.
type Object struct {
	// Class is the class of the object.
	Class *Class
	// Handle is the handle of the object.
	Handle objcmsg.Handle

	mu          sync.Mutex
	value       interface{}
	keys        map[string]objcmsg.Handle
	deallocated bool
}

// Value returns the Go value of the object, e.g. the text of a string.
func (o *Object) Value() interface{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value
}

// SetValue sets the Go value of the object.
func (o *Object) SetValue(v interface{}) {
	o.mu.Lock()
	o.value = v
	o.mu.Unlock()
}

// Deallocated reports whether the object has been sent dealloc.
func (o *Object) Deallocated() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.deallocated
}

// DefineClass creates a class. super names an existing class or is empty for
// a root class. Defining a class that exists returns the existing one.
func (rt *Runtime) DefineClass(name, super string) *Class {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if c := rt.classes[name]; c != nil {
		return c
	}
	c := &Class{
		Name:         name,
		Super:        rt.classes[super],
		Handle:       rt.alloc(),
		rt:           rt,
		methods:      make(map[string]*Method),
		classMethods: make(map[string]*Method),
	}
	rt.classes[name] = c
	rt.byHandle[c.Handle] = c
	return c
}

// alloc returns a fresh handle. rt.mu must be held.
func (rt *Runtime) alloc() objcmsg.Handle {
	rt.next += 0x10
	return rt.next
}

// Method adds an instance method to the class.
func (c *Class) Method(sel, types string, fn func(*Call) interface{}) *Class {
	c.methods[sel] = c.rt.method(sel, types, fn)
	return c
}

// ClassMethod adds a class method to the class.
func (c *Class) ClassMethod(sel, types string, fn func(*Call) interface{}) *Class {
	c.classMethods[sel] = c.rt.method(sel, types, fn)
	return c
}

// RawMethod adds an instance method whose type encodings are given already
// split: return type, then self, _cmd, and the arguments. The encodings are
// reported as they are, whether or not they parse.
func (c *Class) RawMethod(sel string, encs []string, fn func(*Call) interface{}) *Class {
	if len(encs) < 3 {
		panic(fmt.Errorf("testutils: encodings %q for %s lack self and _cmd", encs, sel))
	}
	c.methods[sel] = c.rt.newMethod(sel, strings.Join(encs, ""), encs, fn)
	return c
}

func (rt *Runtime) method(sel, types string, fn func(*Call) interface{}) *Method {
	encs, err := typenc.Split(types)
	if err != nil {
		panic(fmt.Errorf("testutils: bad types %q for %s: %w", types, sel, err))
	}
	if len(encs) < 3 {
		panic(fmt.Errorf("testutils: types %q for %s lack self and _cmd", types, sel))
	}
	return rt.newMethod(sel, types, encs, fn)
}

func (rt *Runtime) newMethod(sel, types string, encs []string, fn func(*Call) interface{}) *Method {
	m := &Method{Selector: sel, Types: types, Fn: fn, encs: encs, ret: typenc.Strip(encs[0]), args: encs[3:]}
	rt.mu.Lock()
	rt.nextIMP += 0x10
	m.imp = rt.nextIMP
	rt.imps[m.imp] = m
	rt.mu.Unlock()
	return m
}

func (c *Class) lookup(sel string, meta bool) *Method {
	for ; c != nil; c = c.Super {
		ms := c.methods
		if meta {
			ms = c.classMethods
		}
		if m := ms[sel]; m != nil {
			return m
		}
	}
	return nil
}

// NewObject creates an instance of the named class with the given value. It
// panics if there is no such class.
func (rt *Runtime) NewObject(class string, value interface{}) objcmsg.Handle {
	rt.mu.Lock()
	c := rt.classes[class]
	rt.mu.Unlock()
	if c == nil {
		panic(fmt.Errorf("testutils: no class %q", class))
	}
	return rt.instantiate(c, value).Handle
}

func (rt *Runtime) instantiate(c *Class, value interface{}) *Object {
	rt.mu.Lock()
	o := &Object{Class: c, Handle: rt.alloc(), value: value}
	rt.objects[o.Handle] = o
	rt.mu.Unlock()
	if value == nil {
		for k := c; k != nil; k = k.Super {
			if k.Init != nil {
				k.Init(o)
				break
			}
		}
	}
	return o
}

// Object returns the object with the given handle, or nil.
func (rt *Runtime) Object(h objcmsg.Handle) *Object {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.objects[h]
}

// CString returns the address of a NUL-terminated copy of s. The memory
// lives as long as the runtime.
func (rt *Runtime) CString(s string) uintptr {
	b := append([]byte(s), 0)
	rt.mu.Lock()
	rt.cstrs = append(rt.cstrs, b)
	rt.mu.Unlock()
	return uintptr(unsafe.Pointer(&b[0]))
}

// Count returns the number of times any method implementing sel has run.
func (rt *Runtime) Count(sel string) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.counts[sel]
}

// ForwardErrors returns the errors reported by Go recipients handling
// forwarded invocations.
func (rt *Runtime) ForwardErrors() []error {
	return rt.fwdErrs.Errors()
}

// LookUpClass returns the class with the given name, or Nil.
func (rt *Runtime) LookUpClass(name string) objcmsg.Handle {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if c := rt.classes[name]; c != nil {
		return c.Handle
	}
	return objcmsg.Nil
}

// RegisterName returns the selector with the given name.
func (rt *Runtime) RegisterName(name string) objcmsg.Handle {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if h, ok := rt.sels[name]; ok {
		return h
	}
	h := rt.alloc()
	rt.sels[name] = h
	rt.selNames[h] = name
	return h
}

// SelectorName returns the name of a selector.
func (rt *Runtime) SelectorName(sel objcmsg.Handle) string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.selNames[sel]
}

// ClassName returns the name of a class.
func (rt *Runtime) ClassName(cls objcmsg.Handle) string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if c := rt.byHandle[cls]; c != nil {
		return c.Name
	}
	return "nil"
}

// ObjectClassName returns the name of the class of an object.
func (rt *Runtime) ObjectClassName(obj objcmsg.Handle) string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if c := rt.byHandle[obj]; c != nil {
		return c.Name
	}
	o := rt.objects[obj]
	if o == nil {
		return "nil"
	}
	if o.Class.InstanceName != "" {
		return o.Class.InstanceName
	}
	return o.Class.Name
}

// EntryPoint returns the address of a dispatch function, or 0 if the
// simulated family lacks it.
func (rt *Runtime) EntryPoint(name string) uintptr {
	switch name {
	case "objc_msgSend":
		return msgSendAddr
	case "objc_msgSend_fpret":
		if rt.family != arch.ARM64 {
			return fpretAddr
		}
	case "objc_msgSend_stret":
		if rt.family != arch.ARM64 {
			return stretAddr
		}
	}
	return 0
}

// RegisterRecipient creates an object whose unknown messages are forwarded
// to in.
func (rt *Runtime) RegisterRecipient(in objcmsg.Inbound) (objcmsg.Handle, error) {
	rt.mu.Lock()
	c := rt.classes["GoRecipient"]
	rt.mu.Unlock()
	o := rt.instantiate(c, nil)
	rt.mu.Lock()
	rt.recips[o.Handle] = in
	rt.mu.Unlock()
	return o.Handle, nil
}

// Recipient returns the Inbound registered for an object.
func (rt *Runtime) Recipient(obj objcmsg.Handle) (objcmsg.Inbound, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	in, ok := rt.recips[obj]
	return in, ok
}

// Bind returns a procedure calling the simulated function at fn.
func (rt *Runtime) Bind(fn uintptr, ret reflect.Type, args []reflect.Type) (objcmsg.Proc, error) {
	rt.mu.Lock()
	_, isIMP := rt.imps[fn]
	rt.mu.Unlock()
	switch {
	case fn == msgSendAddr, isIMP:
	case fn == fpretAddr || fn == stretAddr:
		if rt.family == arch.ARM64 {
			return nil, fmt.Errorf("testutils: no function at %#x", fn)
		}
	default:
		return nil, fmt.Errorf("testutils: no function at %#x", fn)
	}
	for _, t := range args {
		switch t.Kind() {
		case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
			reflect.Float32, reflect.Float64, reflect.String, reflect.UnsafePointer, reflect.Struct:
		default:
			return nil, fmt.Errorf("testutils: unsupported argument type %v", t)
		}
	}
	if ret != nil {
		switch ret.Kind() {
		case reflect.Uintptr, reflect.Float32, reflect.Float64, reflect.Struct, reflect.Array:
		default:
			return nil, fmt.Errorf("testutils: unsupported return type %v", ret)
		}
	}
	p := func(vals []reflect.Value) []reflect.Value {
		v := rt.call(fn, ret, vals)
		if ret == nil {
			return nil
		}
		return []reflect.Value{v}
	}
	return p, nil
}

// call runs a simulated native call.
func (rt *Runtime) call(fn uintptr, ret reflect.Type, vals []reflect.Value) reflect.Value {
	var buf unsafe.Pointer
	if fn == stretAddr {
		buf = vals[0].Interface().(unsafe.Pointer)
		vals = vals[1:]
	}
	self := handleOf(vals[0].Interface())
	sel := handleOf(vals[1].Interface())
	args := make([]interface{}, len(vals)-2)
	for i, v := range vals[2:] {
		args[i] = v.Interface()
	}
	name := rt.SelectorName(sel)
	rt.mu.Lock()
	m := rt.imps[fn]
	rt.mu.Unlock()
	if m != nil {
		// Direct implementation call; self is whatever the caller says.
		checkFloats(m, args)
		return rt.result(m.ret, rt.run(m, self, name, args), ret, fn, buf)
	}
	if self == objcmsg.Nil {
		return zero(ret)
	}
	m = rt.lookup(self, name)
	if m == nil {
		if in, ok := rt.Recipient(self); ok {
			return rt.forward(in, self, sel, args, ret, fn, buf)
		}
		panic(fmt.Errorf("testutils: %s does not recognize selector %s", rt.ObjectClassName(self), name))
	}
	return rt.result(m.ret, rt.run(m, self, name, args), ret, fn, buf)
}

// checkFloats panics unless each float or double argument of m is passed as
// a float32 or float64 respectively.
func checkFloats(m *Method, args []interface{}) {
	for i, enc := range m.args {
		if i >= len(args) {
			return
		}
		switch typenc.Tag(enc) {
		case 'f':
			if _, ok := args[i].(float32); !ok {
				panic(fmt.Errorf("testutils: %s argument %d is %T, not float32", m.Selector, i, args[i]))
			}
		case 'd':
			if _, ok := args[i].(float64); !ok {
				panic(fmt.Errorf("testutils: %s argument %d is %T, not float64", m.Selector, i, args[i]))
			}
		}
	}
}

// lookup finds the method for sel on the object or class self.
func (rt *Runtime) lookup(self objcmsg.Handle, sel string) *Method {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if c := rt.byHandle[self]; c != nil {
		return c.lookup(sel, true)
	}
	if o := rt.objects[self]; o != nil {
		return o.Class.lookup(sel, false)
	}
	return nil
}

func (rt *Runtime) run(m *Method, self objcmsg.Handle, sel string, args []interface{}) interface{} {
	if len(args) != len(m.args) {
		panic(fmt.Errorf("testutils: %s takes %d arguments, got %d", sel, len(m.args), len(args)))
	}
	c := &Call{RT: rt, Self: self, Sel: sel, Args: args}
	rt.mu.Lock()
	rt.counts[m.Selector]++
	if cls := rt.byHandle[self]; cls != nil {
		c.Class = cls
	} else if o := rt.objects[self]; o != nil {
		c.Obj = o
		c.Class = o.Class
	}
	rt.mu.Unlock()
	return m.Fn(c)
}

// result converts the result v of a method returning enc to the type the
// caller expects.
func (rt *Runtime) result(enc string, v interface{}, ret reflect.Type, fn uintptr, buf unsafe.Pointer) reflect.Value {
	k := typenc.KindOf(typenc.Tag(enc))
	aggregate := k == typenc.Struct || k == typenc.Union || k == typenc.Array
	if ret == nil {
		if buf != nil && aggregate && v != nil {
			src := addressable(v)
			copyBytes(buf, unsafe.Pointer(src.Pointer()), src.Elem().Type().Size())
		}
		return reflect.Value{}
	}
	switch ret.Kind() {
	case reflect.Float32, reflect.Float64:
		if k != typenc.Float || (rt.family == arch.X86_64 && fn == msgSendAddr) {
			return zero(ret)
		}
		return reflect.ValueOf(toFloat(v)).Convert(ret)
	case reflect.Struct, reflect.Array:
		if !aggregate || v == nil || (rt.family == arch.X86_64 && fn == msgSendAddr && ret.Size() > 16) {
			return zero(ret)
		}
		out := reflect.New(ret)
		src := addressable(v)
		n := ret.Size()
		if s := src.Elem().Type().Size(); s < n {
			n = s
		}
		copyBytes(unsafe.Pointer(out.Pointer()), unsafe.Pointer(src.Pointer()), n)
		return out.Elem()
	}
	if k == typenc.Float || aggregate {
		return zero(ret)
	}
	return reflect.ValueOf(toWord(v)).Convert(ret)
}

// forward delivers a message to a Go recipient through an invocation.
func (rt *Runtime) forward(in objcmsg.Inbound, self, sel objcmsg.Handle, args []interface{}, ret reflect.Type, fn uintptr, buf unsafe.Pointer) reflect.Value {
	sh := in.MethodSignatureForSelector(sel)
	if sh == objcmsg.Nil {
		panic(fmt.Errorf("testutils: GoRecipient does not recognize selector %s", rt.SelectorName(sel)))
	}
	sig := rt.Object(sh).Value().(*signature)
	inv := rt.newInvocation(sh, sig, self, sel, args)
	rt.fwdErrs.Record(in.ForwardInvocation(inv.Handle))
	v := inv.Value().(*invocation)
	return rt.result(sig.ret, v.decode(rt, sig.ret, v.ret), ret, fn, buf)
}

// Call is the context of a simulated method.
type Call struct {
	// RT is the runtime.
	RT *Runtime
	// Self is the receiver.
	Self objcmsg.Handle
	// Obj is the receiving object, or nil for class methods.
	Obj *Object
	// Class is the class of the receiver, or the receiver itself for class
	// methods.
	Class *Class
	// Sel is the selector name.
	Sel string
	// Args are the arguments after self and _cmd.
	Args []interface{}
}

// Int returns argument i as an integer.
func (c *Call) Int(i int) int64 {
	return int64(toWord(c.Args[i]))
}

// Float returns argument i as a float.
func (c *Call) Float(i int) float64 {
	return toFloat(c.Args[i])
}

// Handle returns argument i as a handle.
func (c *Call) Handle(i int) objcmsg.Handle {
	return handleOf(c.Args[i])
}

// Object returns the object argument i refers to, or nil.
func (c *Call) Object(i int) *Object {
	return c.RT.Object(c.Handle(i))
}

// Pointer returns argument i as a pointer.
func (c *Call) Pointer(i int) unsafe.Pointer {
	if p, ok := c.Args[i].(unsafe.Pointer); ok {
		return p
	}
	return unsafe.Pointer(uintptr(toWord(c.Args[i])))
}

// String returns argument i as text. Go strings are used as is; string
// objects give their contents; other handles are read as C strings.
func (c *Call) String(i int) string {
	if s, ok := c.Args[i].(string); ok {
		return s
	}
	h := c.Handle(i)
	if h == objcmsg.Nil {
		return ""
	}
	if o := c.RT.Object(h); o != nil {
		if s, ok := o.Value().(string); ok {
			return s
		}
		return ""
	}
	return goString(uintptr(h))
}

// Struct copies the structure argument i into the value out points to.
func (c *Call) Struct(i int, out interface{}) {
	dst := reflect.ValueOf(out)
	src := addressable(c.Args[i])
	n := dst.Elem().Type().Size()
	if s := src.Elem().Type().Size(); s < n {
		n = s
	}
	copyBytes(unsafe.Pointer(dst.Pointer()), unsafe.Pointer(src.Pointer()), n)
}

// Send sends a message from inside a simulated method and returns the raw
// result as a word.
func (c *Call) Send(recv objcmsg.Handle, sel string, args ...interface{}) uint64 {
	vals := make([]reflect.Value, 0, len(args)+2)
	vals = append(vals, reflect.ValueOf(recv), reflect.ValueOf(c.RT.RegisterName(sel)))
	for _, a := range args {
		vals = append(vals, reflect.ValueOf(a))
	}
	return c.RT.call(msgSendAddr, reflect.TypeOf(uintptr(0)), vals).Uint()
}

func handleOf(v interface{}) objcmsg.Handle {
	if p, ok := v.(unsafe.Pointer); ok {
		return objcmsg.Handle(uintptr(p))
	}
	return objcmsg.Handle(uintptr(toWord(v)))
}

func toWord(v interface{}) uint64 {
	switch x := v.(type) {
	case nil:
		return 0
	case objcmsg.Handle:
		return uint64(x)
	case objcmsg.Peerable:
		return uint64(x.Peer())
	case bool:
		if x {
			return 1
		}
		return 0
	case unsafe.Pointer:
		return uint64(uintptr(x))
	case float64:
		return uint64(int64(x))
	case float32:
		return uint64(int64(x))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	case reflect.Bool:
		if rv.Bool() {
			return 1
		}
	}
	return 0
}

func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint())
	}
	return 0
}

func zero(t reflect.Type) reflect.Value {
	if t == nil {
		return reflect.Value{}
	}
	return reflect.Zero(t)
}

// addressable returns a pointer to a copy of v.
func addressable(v interface{}) reflect.Value {
	rv := reflect.ValueOf(v)
	p := reflect.New(rv.Type())
	p.Elem().Set(rv)
	return p
}

func copyBytes(dst, src unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}
	copy(unsafe.Slice((*byte)(dst), n), unsafe.Slice((*byte)(src), n))
}

func goString(p uintptr) string {
	if p == 0 {
		return ""
	}
	var b []byte
	for i := uintptr(0); ; i++ {
		c := *(*byte)(unsafe.Add(unsafe.Pointer(p), i))
		if c == 0 {
			break
		}
		b = append(b, c)
	}
	return string(b)
}
