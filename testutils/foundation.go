package testutils

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"

	"github.com/zephyrtronium/objcmsg"
	"github.com/zephyrtronium/objcmsg/typenc"
)

// Range has the layout of NSRange.
type Range struct {
	Location, Length uint64
}

// Point has the layout of CGPoint.
type Point struct {
	X, Y float64
}

// Size has the layout of CGSize.
type Size struct {
	Width, Height float64
}

// Rect has the layout of CGRect.
type Rect struct {
	Origin Point
	Size   Size
}

// Encodings of the structures.
const (
	RangeEncoding = "{_NSRange=QQ}"
	PointEncoding = "{CGPoint=dd}"
	RectEncoding  = "{CGRect={CGPoint=dd}{CGSize=dd}}"
)

// signature is the value of an NSMethodSignature.
type signature struct {
	ret   string
	args  []string
	cret  uintptr
	cargs []uintptr
}

// invocation is the value of an NSInvocation.
type invocation struct {
	sigH   objcmsg.Handle
	sig    *signature
	sel    objcmsg.Handle
	target objcmsg.Handle
	args   [][]uint64
	ret    []uint64
}

// ReturnBytes returns the bytes of the return value stored in an
// NSInvocation.
func (rt *Runtime) ReturnBytes(inv objcmsg.Handle) []byte {
	o := rt.Object(inv)
	if o == nil {
		return nil
	}
	v, ok := o.Value().(*invocation)
	if !ok || len(v.ret) == 0 {
		return nil
	}
	n := sizeOf(v.sig.ret)
	return append([]byte(nil), unsafe.Slice((*byte)(unsafe.Pointer(&v.ret[0])), n)...)
}

// Signature creates an NSMethodSignature for a method type string. It returns
// Nil if the types do not parse.
func (rt *Runtime) Signature(types string) objcmsg.Handle {
	encs, err := typenc.Split(types)
	if err != nil {
		return objcmsg.Nil
	}
	return rt.signature(encs)
}

func (rt *Runtime) signature(encs []string) objcmsg.Handle {
	s := &signature{ret: encs[0], args: encs[1:], cret: rt.CString(encs[0])}
	for _, a := range s.args {
		s.cargs = append(s.cargs, rt.CString(a))
	}
	return rt.NewObject("NSMethodSignature", s)
}

func (m *Method) signature(rt *Runtime) objcmsg.Handle {
	m.sigOnce.Do(func() { m.sig = rt.signature(m.encs) })
	return m.sig
}

func sizeOf(enc string) uintptr {
	t, err := typenc.Parse(enc)
	if err != nil || t.Tag == 'v' {
		return 0
	}
	return uintptr(t.Size())
}

// encode lays out v as a value of type enc.
func (rt *Runtime) encode(enc string, v interface{}) []uint64 {
	enc = typenc.Strip(enc)
	n := sizeOf(enc)
	buf := make([]uint64, (n+7)/8+1)
	p := unsafe.Pointer(&buf[0])
	switch k := typenc.KindOf(typenc.Tag(enc)); {
	case k == typenc.Struct || k == typenc.Union || k == typenc.Array:
		if v != nil {
			src := addressable(v)
			if s := src.Elem().Type().Size(); s < n {
				n = s
			}
			copyBytes(p, unsafe.Pointer(src.Pointer()), n)
		}
		return buf
	}
	switch typenc.Tag(enc) {
	case 'f':
		*(*float32)(p) = float32(toFloat(v))
	case 'd':
		*(*float64)(p) = toFloat(v)
	case 'c', 'C', 'B':
		*(*uint8)(p) = uint8(toWord(v))
	case 's', 'S':
		*(*uint16)(p) = uint16(toWord(v))
	case 'i', 'I', 'l', 'L':
		*(*uint32)(p) = uint32(toWord(v))
	case '*':
		if s, ok := v.(string); ok {
			buf[0] = uint64(rt.CString(s))
			break
		}
		buf[0] = toWord(v)
	default:
		buf[0] = toWord(v)
	}
	return buf
}

// decode reads a value of type enc from buf.
func (v *invocation) decode(rt *Runtime, enc string, buf []uint64) interface{} {
	enc = typenc.Strip(enc)
	if enc == "" || enc == "v" || len(buf) == 0 {
		return nil
	}
	p := unsafe.Pointer(&buf[0])
	switch typenc.KindOf(typenc.Tag(enc)) {
	case typenc.Struct, typenc.Union, typenc.Array:
		t, err := typenc.Parse(enc)
		if err != nil {
			return nil
		}
		gt, err := t.GoType()
		if err != nil {
			return nil
		}
		out := addressable(zero(gt).Interface())
		copyBytes(unsafe.Pointer(out.Pointer()), p, gt.Size())
		return out.Elem().Interface()
	}
	switch typenc.Tag(enc) {
	case 'f':
		return *(*float32)(p)
	case 'd':
		return *(*float64)(p)
	case 'c':
		return *(*int8)(p)
	case 'C':
		return *(*uint8)(p)
	case 'B':
		return *(*uint8)(p) != 0
	case 's':
		return *(*int16)(p)
	case 'S':
		return *(*uint16)(p)
	case 'i', 'l':
		return *(*int32)(p)
	case 'I', 'L':
		return *(*uint32)(p)
	case 'q':
		return int64(buf[0])
	case '@', '#', ':':
		return objcmsg.Handle(buf[0])
	}
	return buf[0]
}

func (rt *Runtime) newInvocation(sigH objcmsg.Handle, sig *signature, target, sel objcmsg.Handle, args []interface{}) *Object {
	v := &invocation{sigH: sigH, sig: sig, sel: sel, target: target, args: make([][]uint64, len(sig.args))}
	if len(sig.args) > 0 {
		v.args[0] = rt.encode("@", target)
	}
	if len(sig.args) > 1 {
		v.args[1] = rt.encode(":", sel)
	}
	for i, a := range args {
		if i+2 < len(sig.args) {
			v.args[i+2] = rt.encode(sig.args[i+2], a)
		}
	}
	v.ret = rt.encode(sig.ret, nil)
	rt.mu.Lock()
	c := rt.classes["NSInvocation"]
	rt.mu.Unlock()
	return rt.instantiate(c, v)
}

// NSString creates a string object.
func (rt *Runtime) NSString(s string) objcmsg.Handle {
	return rt.NewObject("NSString", s)
}

// describe returns the description of an object.
func (rt *Runtime) describe(h objcmsg.Handle) string {
	if h == objcmsg.Nil {
		return "(null)"
	}
	o := rt.Object(h)
	if o == nil {
		return fmt.Sprintf("<%s>", rt.ClassName(h))
	}
	switch x := o.Value().(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case []objcmsg.Handle:
		s := make([]string, len(x))
		for i, e := range x {
			s[i] = rt.describe(e)
		}
		return "(" + strings.Join(s, ", ") + ")"
	}
	return fmt.Sprintf("<%s: %#x>", o.Class.Name, uintptr(h))
}

func items(c *Call) []objcmsg.Handle {
	v, _ := c.Obj.Value().([]objcmsg.Handle)
	return v
}

func number(o *Object) (float64, int64) {
	if o == nil {
		return 0, 0
	}
	switch x := o.Value().(type) {
	case float64:
		return x, int64(x)
	case int64:
		return float64(x), x
	case bool:
		if x {
			return 1, 1
		}
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(x), 64)
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			n = int64(f)
		}
		return f, n
	}
	return 0, 0
}

// foundation defines the simulated Foundation classes.
func foundation(rt *Runtime) {
	root := rt.DefineClass("NSObject", "")
	root.ClassMethod("alloc", "@@:", func(c *Call) interface{} {
		return rt.instantiate(c.Class, nil).Handle
	}).ClassMethod("new", "@@:", func(c *Call) interface{} {
		return rt.instantiate(c.Class, nil).Handle
	}).ClassMethod("class", "#@:", func(c *Call) interface{} {
		return c.Self
	}).ClassMethod("description", "@@:", func(c *Call) interface{} {
		return rt.NSString(c.Class.Name)
	}).ClassMethod("instanceMethodSignatureForSelector:", "@@::", func(c *Call) interface{} {
		if m := c.Class.lookup(rt.SelectorName(c.Handle(0)), false); m != nil {
			return m.signature(rt)
		}
		return objcmsg.Nil
	}).ClassMethod("methodSignatureForSelector:", "@@::", func(c *Call) interface{} {
		if m := c.Class.lookup(rt.SelectorName(c.Handle(0)), true); m != nil {
			return m.signature(rt)
		}
		return objcmsg.Nil
	}).ClassMethod("respondsToSelector:", "B@::", func(c *Call) interface{} {
		return c.Class.lookup(rt.SelectorName(c.Handle(0)), true) != nil
	}).ClassMethod("instancesRespondToSelector:", "B@::", func(c *Call) interface{} {
		return c.Class.lookup(rt.SelectorName(c.Handle(0)), false) != nil
	})
	root.Method("init", "@@:", func(c *Call) interface{} {
		return c.Self
	}).Method("methodSignatureForSelector:", "@@::", func(c *Call) interface{} {
		if m := c.Class.lookup(rt.SelectorName(c.Handle(0)), false); m != nil {
			return m.signature(rt)
		}
		return objcmsg.Nil
	}).Method("respondsToSelector:", "B@::", func(c *Call) interface{} {
		return c.Class.lookup(rt.SelectorName(c.Handle(0)), false) != nil
	}).Method("methodForSelector:", "^?@::", func(c *Call) interface{} {
		if m := c.Class.lookup(rt.SelectorName(c.Handle(0)), false); m != nil {
			return m.imp
		}
		return uintptr(0)
	}).Method("class", "#@:", func(c *Call) interface{} {
		return c.Class.Handle
	}).Method("description", "@@:", func(c *Call) interface{} {
		return rt.NSString(rt.describe(c.Self))
	}).Method("isEqual:", "B@:@", func(c *Call) interface{} {
		return c.Self == c.Handle(0)
	}).Method("hash", "Q@:", func(c *Call) interface{} {
		return uint64(c.Self)
	}).Method("retain", "@@:", func(c *Call) interface{} {
		return c.Self
	}).Method("release", "Vv@:", func(c *Call) interface{} {
		return nil
	}).Method("autorelease", "@@:", func(c *Call) interface{} {
		return c.Self
	}).Method("dealloc", "v@:", func(c *Call) interface{} {
		c.Obj.mu.Lock()
		c.Obj.deallocated = true
		c.Obj.mu.Unlock()
		return nil
	}).Method("valueForKey:", "@@:@", func(c *Call) interface{} {
		key := c.String(0)
		c.Obj.mu.Lock()
		defer c.Obj.mu.Unlock()
		return c.Obj.keys[key]
	}).Method("setValue:forKey:", "v@:@@", func(c *Call) interface{} {
		key := c.String(1)
		c.Obj.mu.Lock()
		if c.Obj.keys == nil {
			c.Obj.keys = make(map[string]objcmsg.Handle)
		}
		c.Obj.keys[key] = c.Handle(0)
		c.Obj.mu.Unlock()
		return nil
	}).Method("performSelector:", "@@::", func(c *Call) interface{} {
		return c.Send(c.Self, rt.SelectorName(c.Handle(0)))
	})

	proxy := rt.DefineClass("GoRecipient", "NSObject")
	proxy.Method("methodSignatureForSelector:", "@@::", func(c *Call) interface{} {
		if in, ok := rt.Recipient(c.Self); ok {
			if s := in.MethodSignatureForSelector(c.Handle(0)); s != objcmsg.Nil {
				return s
			}
		}
		if m := c.Class.lookup(rt.SelectorName(c.Handle(0)), false); m != nil {
			return m.signature(rt)
		}
		return objcmsg.Nil
	}).Method("respondsToSelector:", "B@::", func(c *Call) interface{} {
		if c.Class.lookup(rt.SelectorName(c.Handle(0)), false) != nil {
			return true
		}
		in, ok := rt.Recipient(c.Self)
		return ok && in.RespondsToSelector(c.Handle(0))
	}).Method("forwardInvocation:", "v@:@", func(c *Call) interface{} {
		if in, ok := rt.Recipient(c.Self); ok {
			rt.fwdErrs.Record(in.ForwardInvocation(c.Handle(0)))
		}
		return nil
	})

	str := rt.DefineClass("NSString", "NSObject")
	str.InstanceName = "__NSCFString"
	str.Init = func(o *Object) { o.value = "" }
	str.ClassMethod("stringWithUTF8String:", "@@:r*", func(c *Call) interface{} {
		if c.Handle(0) == objcmsg.Nil && c.Args[0] == nil {
			return objcmsg.Nil
		}
		return rt.NSString(c.String(0))
	}).ClassMethod("string", "@@:", func(c *Call) interface{} {
		return rt.NSString("")
	})
	text := func(c *Call) string {
		s, _ := c.Obj.Value().(string)
		return s
	}
	str.Method("UTF8String", "r*@:", func(c *Call) interface{} {
		return rt.CString(text(c))
	}).Method("length", "Q@:", func(c *Call) interface{} {
		return uint64(len([]rune(text(c))))
	}).Method("description", "@@:", func(c *Call) interface{} {
		return c.Self
	}).Method("isEqual:", "B@:@", func(c *Call) interface{} {
		o := c.Object(0)
		return o != nil && o.Value() == text(c)
	}).Method("isEqualToString:", "B@:@", func(c *Call) interface{} {
		return c.String(0) == text(c)
	}).Method("doubleValue", "d@:", func(c *Call) interface{} {
		f, _ := number(c.Obj)
		return f
	}).Method("floatValue", "f@:", func(c *Call) interface{} {
		f, _ := number(c.Obj)
		return float32(f)
	}).Method("longLongValue", "q@:", func(c *Call) interface{} {
		_, n := number(c.Obj)
		return n
	}).Method("intValue", "i@:", func(c *Call) interface{} {
		_, n := number(c.Obj)
		return int32(n)
	}).Method("boolValue", "B@:", func(c *Call) interface{} {
		s := strings.TrimSpace(text(c))
		return s != "" && strings.ContainsRune("YyTt123456789", rune(s[0]))
	}).Method("stringByAppendingString:", "@@:@", func(c *Call) interface{} {
		return rt.NSString(text(c) + c.String(0))
	}).Method("uppercaseString", "@@:", func(c *Call) interface{} {
		return rt.NSString(strings.ToUpper(text(c)))
	}).Method("characterAtIndex:", "S@:Q", func(c *Call) interface{} {
		r := []rune(text(c))
		i := c.Int(0)
		if i < 0 || i >= int64(len(r)) {
			return uint16(0)
		}
		return uint16(r[i])
	}).Method("substringWithRange:", "@@:"+RangeEncoding, func(c *Call) interface{} {
		var rg Range
		c.Struct(0, &rg)
		r := []rune(text(c))
		end := rg.Location + rg.Length
		if end > uint64(len(r)) || rg.Location > end {
			return objcmsg.Nil
		}
		return rt.NSString(string(r[rg.Location:end]))
	}).Method("rangeOfString:", RangeEncoding+"@:@", func(c *Call) interface{} {
		s := text(c)
		i := strings.Index(s, c.String(0))
		if i < 0 {
			return Range{Location: 1<<63 - 1}
		}
		return Range{Location: uint64(len([]rune(s[:i]))), Length: uint64(len([]rune(c.String(0))))}
	})

	num := rt.DefineClass("NSNumber", "NSObject")
	num.InstanceName = "__NSCFNumber"
	num.ClassMethod("numberWithDouble:", "@@:d", func(c *Call) interface{} {
		return rt.NewObject("NSNumber", c.Float(0))
	}).ClassMethod("numberWithFloat:", "@@:f", func(c *Call) interface{} {
		return rt.NewObject("NSNumber", c.Float(0))
	}).ClassMethod("numberWithLongLong:", "@@:q", func(c *Call) interface{} {
		return rt.NewObject("NSNumber", c.Int(0))
	}).ClassMethod("numberWithInt:", "@@:i", func(c *Call) interface{} {
		return rt.NewObject("NSNumber", int64(int32(c.Int(0))))
	}).ClassMethod("numberWithBool:", "@@:B", func(c *Call) interface{} {
		return rt.NewObject("NSNumber", c.Int(0)&0xff != 0)
	})
	num.Method("doubleValue", "d@:", func(c *Call) interface{} {
		f, _ := number(c.Obj)
		return f
	}).Method("floatValue", "f@:", func(c *Call) interface{} {
		f, _ := number(c.Obj)
		return float32(f)
	}).Method("longLongValue", "q@:", func(c *Call) interface{} {
		_, n := number(c.Obj)
		return n
	}).Method("intValue", "i@:", func(c *Call) interface{} {
		_, n := number(c.Obj)
		return int32(n)
	}).Method("boolValue", "B@:", func(c *Call) interface{} {
		_, n := number(c.Obj)
		return n != 0
	}).Method("isEqualToNumber:", "B@:@", func(c *Call) interface{} {
		a, _ := number(c.Obj)
		b, _ := number(c.Object(0))
		return a == b
	}).Method("compare:", "q@:@", func(c *Call) interface{} {
		a, _ := number(c.Obj)
		b, _ := number(c.Object(0))
		switch {
		case a < b:
			return int64(-1)
		case a > b:
			return int64(1)
		}
		return int64(0)
	})

	arr := rt.DefineClass("NSArray", "NSObject")
	arr.Init = func(o *Object) { o.value = []objcmsg.Handle{} }
	arr.ClassMethod("array", "@@:", func(c *Call) interface{} {
		return rt.instantiate(c.Class, nil).Handle
	}).ClassMethod("arrayWithCapacity:", "@@:Q", func(c *Call) interface{} {
		return rt.instantiate(c.Class, make([]objcmsg.Handle, 0, c.Int(0))).Handle
	})
	arr.Method("count", "Q@:", func(c *Call) interface{} {
		return uint64(len(items(c)))
	}).Method("objectAtIndex:", "@@:Q", func(c *Call) interface{} {
		v := items(c)
		i := c.Int(0)
		if i < 0 || i >= int64(len(v)) {
			panic(fmt.Errorf("testutils: index %d beyond bounds [0 .. %d]", i, len(v)-1))
		}
		return v[i]
	}).Method("firstObject", "@@:", func(c *Call) interface{} {
		if v := items(c); len(v) > 0 {
			return v[0]
		}
		return objcmsg.Nil
	}).Method("lastObject", "@@:", func(c *Call) interface{} {
		if v := items(c); len(v) > 0 {
			return v[len(v)-1]
		}
		return objcmsg.Nil
	}).Method("containsObject:", "B@:@", func(c *Call) interface{} {
		for _, e := range items(c) {
			if e == c.Handle(0) {
				return true
			}
		}
		return false
	}).Method("objectEnumerator", "@@:", func(c *Call) interface{} {
		return rt.NewObject("NSEnumerator", &enumerator{items: append([]objcmsg.Handle(nil), items(c)...)})
	})
	marr := rt.DefineClass("NSMutableArray", "NSArray")
	marr.InstanceName = "__NSArrayM"
	marr.Method("addObject:", "v@:@", func(c *Call) interface{} {
		c.Obj.SetValue(append(items(c), c.Handle(0)))
		return nil
	}).Method("insertObject:atIndex:", "v@:@Q", func(c *Call) interface{} {
		v := items(c)
		i := c.Int(1)
		if i < 0 || i > int64(len(v)) {
			panic(fmt.Errorf("testutils: index %d beyond bounds [0 .. %d]", i, len(v)))
		}
		v = append(v, objcmsg.Nil)
		copy(v[i+1:], v[i:])
		v[i] = c.Handle(0)
		c.Obj.SetValue(v)
		return nil
	}).Method("removeLastObject", "v@:", func(c *Call) interface{} {
		if v := items(c); len(v) > 0 {
			c.Obj.SetValue(v[:len(v)-1])
		}
		return nil
	}).Method("removeAllObjects", "v@:", func(c *Call) interface{} {
		c.Obj.SetValue([]objcmsg.Handle{})
		return nil
	})

	enum := rt.DefineClass("NSEnumerator", "NSObject")
	enum.Method("nextObject", "@@:", func(c *Call) interface{} {
		e := c.Obj.Value().(*enumerator)
		c.Obj.mu.Lock()
		defer c.Obj.mu.Unlock()
		if e.i >= len(e.items) {
			return objcmsg.Nil
		}
		e.i++
		return e.items[e.i-1]
	})

	val := rt.DefineClass("NSValue", "NSObject")
	val.ClassMethod("valueWithRange:", "@@:"+RangeEncoding, func(c *Call) interface{} {
		var r Range
		c.Struct(0, &r)
		return rt.NewObject("NSValue", r)
	}).ClassMethod("valueWithPoint:", "@@:"+PointEncoding, func(c *Call) interface{} {
		var p Point
		c.Struct(0, &p)
		return rt.NewObject("NSValue", p)
	}).ClassMethod("valueWithRect:", "@@:"+RectEncoding, func(c *Call) interface{} {
		var r Rect
		c.Struct(0, &r)
		return rt.NewObject("NSValue", r)
	})
	val.Method("rangeValue", RangeEncoding+"@:", func(c *Call) interface{} {
		r, _ := c.Obj.Value().(Range)
		return r
	}).Method("pointValue", PointEncoding+"@:", func(c *Call) interface{} {
		p, _ := c.Obj.Value().(Point)
		return p
	}).Method("rectValue", RectEncoding+"@:", func(c *Call) interface{} {
		r, _ := c.Obj.Value().(Rect)
		return r
	})

	sig := rt.DefineClass("NSMethodSignature", "NSObject")
	sig.ClassMethod("signatureWithObjCTypes:", "@@:r*", func(c *Call) interface{} {
		return rt.Signature(c.String(0))
	})
	sigOf := func(c *Call) *signature {
		return c.Obj.Value().(*signature)
	}
	sig.Method("numberOfArguments", "Q@:", func(c *Call) interface{} {
		return uint64(len(sigOf(c).args))
	}).Method("getArgumentTypeAtIndex:", "r*@:Q", func(c *Call) interface{} {
		s := sigOf(c)
		i := c.Int(0)
		if i < 0 || i >= int64(len(s.args)) {
			panic(fmt.Errorf("testutils: argument index %d out of range", i))
		}
		return s.cargs[i]
	}).Method("methodReturnType", "r*@:", func(c *Call) interface{} {
		return sigOf(c).cret
	}).Method("methodReturnLength", "Q@:", func(c *Call) interface{} {
		return uint64(sizeOf(sigOf(c).ret))
	})

	inv := rt.DefineClass("NSInvocation", "NSObject")
	invOf := func(c *Call) *invocation {
		return c.Obj.Value().(*invocation)
	}
	inv.Method("methodSignature", "@@:", func(c *Call) interface{} {
		return invOf(c).sigH
	}).Method("selector", ":@:", func(c *Call) interface{} {
		return invOf(c).sel
	}).Method("target", "@@:", func(c *Call) interface{} {
		return invOf(c).target
	}).Method("getArgument:atIndex:", "v@:^vq", func(c *Call) interface{} {
		v := invOf(c)
		i := c.Int(1)
		if i < 0 || i >= int64(len(v.args)) {
			panic(fmt.Errorf("testutils: argument index %d out of range", i))
		}
		copyBytes(c.Pointer(0), unsafe.Pointer(&v.args[i][0]), sizeOf(v.sig.args[i]))
		return nil
	}).Method("setReturnValue:", "v@:^v", func(c *Call) interface{} {
		v := invOf(c)
		copyBytes(unsafe.Pointer(&v.ret[0]), c.Pointer(0), sizeOf(v.sig.ret))
		return nil
	}).Method("getReturnValue:", "v@:^v", func(c *Call) interface{} {
		v := invOf(c)
		copyBytes(c.Pointer(0), unsafe.Pointer(&v.ret[0]), sizeOf(v.sig.ret))
		return nil
	}).Method("invokeWithTarget:", "v@:@", func(c *Call) interface{} {
		v := invOf(c)
		target := c.Handle(0)
		name := rt.SelectorName(v.sel)
		m := rt.lookup(target, name)
		if m == nil {
			panic(fmt.Errorf("testutils: %s does not recognize selector %s", rt.ObjectClassName(target), name))
		}
		args := make([]interface{}, 0, len(v.args))
		for i := 2; i < len(v.args); i++ {
			args = append(args, v.decode(rt, v.sig.args[i], v.args[i]))
		}
		r := rt.run(m, target, name, args)
		if typenc.Tag(v.sig.ret) != 'v' {
			v.ret = rt.encode(v.sig.ret, r)
		}
		return nil
	})
}

type enumerator struct {
	items []objcmsg.Handle
	i     int
}

// NewInvocation creates an NSInvocation sending sel to target with the given
// arguments, laid out as the NSMethodSignature sig describes.
func (rt *Runtime) NewInvocation(sig, target, sel objcmsg.Handle, args ...interface{}) objcmsg.Handle {
	o := rt.Object(sig)
	if o == nil {
		panic(fmt.Errorf("testutils: %#x is not a method signature", uintptr(sig)))
	}
	return rt.newInvocation(sig, o.Value().(*signature), target, sel, args).Handle
}
