package objcmsg

import (
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	"github.com/zephyrtronium/contains"
	"go.uber.org/zap"

	"github.com/zephyrtronium/objcmsg/typenc"
)

// Router delivers messages sent to registered Go recipients. For each
// message, native code first asks for a method signature, then forwards an
// invocation object; the Router decodes the invocation, calls the handler,
// and encodes its result into the invocation. Messages without a handler
// go to the recipient's parent.
type Router struct {
	b *Bridge
	// tables holds a *tableEntry per recipient type.
	tables sync.Map
}

type tableEntry struct {
	once sync.Once
	t    *Table
	err  error
}

func newRouter(b *Bridge) *Router {
	return &Router{b: b}
}

// Table returns the handler table for the type of r, building it on first
// use.
func (r *Router) Table(obj Recipient) *Table {
	t, _ := r.table(obj)
	return t
}

func (r *Router) table(obj Recipient) (*Table, error) {
	typ := reflect.TypeOf(obj)
	v, _ := r.tables.LoadOrStore(typ, new(tableEntry))
	e := v.(*tableEntry)
	e.once.Do(func() {
		e.t = newTable(typ)
		defer func() {
			if p := recover(); p != nil {
				e.t = newTable(typ)
				e.err = fmt.Errorf("%w: %v: %v", errNoHandlerTable, typ, p)
				Logger().Error("building handler table", zap.Stringer("type", typ), zap.Error(e.err))
			}
		}()
		obj.Handlers(e.t)
	})
	return e.t, e.err
}

// resolve finds the handler for sel. If obj has none, resolve follows parents
// that are themselves Go recipients. It returns the recipient owning the
// handler, or else the first parent which is not a Go recipient.
func (r *Router) resolve(obj Recipient, sel string) (Recipient, *Handler, Handle) {
	set := contains.Set{}
	for {
		if p := obj.Peer(); p != Nil && !set.Add(uintptr(p)) {
			// Parent cycle among Go recipients.
			return nil, nil, Nil
		}
		if h, ok := r.Table(obj).Lookup(sel); ok {
			return obj, h, Nil
		}
		parent := obj.Parent()
		if parent == Nil {
			return nil, nil, Nil
		}
		in, ok := r.b.rt.Recipient(parent)
		if !ok {
			return nil, nil, parent
		}
		next, ok := recipientOf(in).(Recipient)
		if !ok {
			return nil, nil, parent
		}
		obj = next
	}
}

// RespondsToSelector reports whether obj handles sel, or its parent responds
// to it.
func (r *Router) RespondsToSelector(obj Recipient, sel Handle) bool {
	_, h, parent := r.resolve(obj, r.b.SelName(sel))
	if h != nil {
		return true
	}
	if parent == Nil {
		return false
	}
	return r.responds(parent, sel)
}

func (r *Router) responds(obj, sel Handle) bool {
	v, err := r.b.tramp.Word(obj, r.b.Sel("respondsToSelector:"), sel)
	if err != nil {
		Logger().Warn("respondsToSelector: failed", zap.Stringer("receiver", obj), zap.Error(err))
		return false
	}
	return v&0xff != 0
}

// MethodSignatureForSelector returns the method signature obj has for sel.
// The signature comes from the handler's declared types, else from the
// method its Like names, else from the parent. A handler with none of these
// gets a signature inferred from its Go type. The result is Nil if obj does
// not implement sel at all.
func (r *Router) MethodSignatureForSelector(obj Recipient, sel Handle) Handle {
	name := r.b.SelName(sel)
	_, h, parent := r.resolve(obj, name)
	if h != nil {
		sig, err := r.handlerSignature(h)
		if err != nil {
			Logger().Warn("bad handler signature", zap.String("selector", name), zap.String("handler", h.Name), zap.Error(err))
			return Nil
		}
		if sig != Nil {
			return sig
		}
		parent = obj.Parent()
	}
	if parent != Nil {
		s, err := r.b.tramp.Word(parent, r.b.Sel("methodSignatureForSelector:"), sel)
		if err != nil {
			Logger().Warn("parent signature lookup failed", zap.String("selector", name), zap.Error(err))
			return Nil
		}
		if s != 0 || h == nil {
			return Handle(s)
		}
	}
	if h != nil {
		if types := h.inferTypes(); types != "" {
			s, err := r.b.SignatureWithTypes(types)
			if err == nil {
				return s
			}
			Logger().Warn("inferred signature rejected", zap.String("selector", name), zap.String("types", types), zap.Error(err))
		}
	}
	return Nil
}

// handlerSignature returns the declared signature of h, or Nil if it
// declares none.
func (r *Router) handlerSignature(h *Handler) (Handle, error) {
	switch {
	case h.Types != "":
		return r.b.SignatureWithTypes(h.Types)
	case h.Like != "":
		i := strings.LastIndexByte(h.Like, '.')
		if i <= 0 || i == len(h.Like)-1 {
			return Nil, fmt.Errorf("objcmsg: like reference %q is not Class.selector", h.Like)
		}
		cls := r.b.rt.LookUpClass(h.Like[:i])
		if cls == Nil {
			return Nil, fmt.Errorf("objcmsg: like reference %q names no class", h.Like)
		}
		ref := r.b.Sel(h.Like[i+1:])
		s, err := r.b.tramp.Word(cls, r.b.Sel("instanceMethodSignatureForSelector:"), ref)
		if err != nil {
			return Nil, err
		}
		if s == 0 {
			// Maybe a class method.
			if s, err = r.b.tramp.Word(cls, r.b.Sel("methodSignatureForSelector:"), ref); err != nil {
				return Nil, err
			}
		}
		if s == 0 {
			return Nil, &UnknownSelectorError{Selector: h.Like[i+1:], Receiver: cls}
		}
		return Handle(s), nil
	}
	return Nil, nil
}

// ForwardInvocation handles an invocation sent to obj. The arguments are
// converted to Go values for the handler, and the handler's result is
// converted and stored as the return value of the invocation. Without a
// handler, the invocation goes to the parent with obj's peer as self.
func (r *Router) ForwardInvocation(obj Recipient, inv Handle) error {
	b := r.b
	sh, err := b.tramp.Word(inv, b.Sel("methodSignature"))
	if err != nil {
		return err
	}
	sig, err := b.ReadSignature(Handle(sh))
	if err != nil {
		return err
	}
	sh, err = b.tramp.Word(inv, b.Sel("selector"))
	if err != nil {
		return err
	}
	sel := Handle(sh)
	name := b.SelName(sel)
	owner, h, parent := r.resolve(obj, name)
	if ce := Logger().Check(zap.DebugLevel, "forwarded invocation"); ce != nil {
		ce.Write(zap.String("selector", name), zap.Bool("handled", h != nil), zap.Stringer("parent", parent))
	}
	if h == nil {
		return r.forwardToParent(obj, parent, inv, sel, sig)
	}
	args := make([]interface{}, 0, sig.NumArgs()-2)
	defer func() { releaseArgs(args) }()
	for i := 2; i < sig.NumArgs(); i++ {
		enc := typenc.Strip(sig.Args[i])
		raw, err := r.argument(inv, i, enc)
		if err != nil {
			return err
		}
		v, err := b.mapper.ToGo(b.client, raw, enc)
		if err != nil {
			return err
		}
		args = append(args, v)
	}
	result, err := h.call(owner, args)
	if err != nil {
		return &HandlerInvocationFailure{Selector: name, Method: h.Name, Cause: err}
	}
	ret := typenc.Strip(sig.Return)
	if ret == "" || ret == "v" {
		return nil
	}
	nv, err := b.mapper.ToNative(b.client, result, ret)
	if err != nil {
		return err
	}
	return r.setReturn(inv, nv, ret)
}

// forwardToParent sends the invocation to parent. The parent's
// implementation is called directly with self as obj's peer, so that the
// method acts on the original receiver. Aggregate returns cannot be called
// that way and are forwarded with invokeWithTarget: instead.
func (r *Router) forwardToParent(obj Recipient, parent, inv, sel Handle, sig *Signature) error {
	b := r.b
	name := b.SelName(sel)
	if parent == Nil || !r.responds(parent, sel) {
		return &SelectorNotHandledError{Selector: name}
	}
	ret := typenc.Strip(sig.Return)
	if ret == "" {
		ret = "v"
	}
	var imp int64
	if k := typenc.KindOf(typenc.Tag(ret)); k != typenc.Struct && k != typenc.Union && k != typenc.Array {
		var err error
		if imp, err = b.tramp.Word(parent, b.Sel("methodForSelector:"), sel); err != nil {
			return err
		}
	}
	if imp == 0 {
		Logger().Warn("forwarding to parent with invokeWithTarget:", zap.String("selector", name), zap.String("returns", ret))
		_, err := b.tramp.Word(inv, b.Sel("invokeWithTarget:"), parent)
		return err
	}
	args := make([]interface{}, 0, sig.NumArgs()-2)
	for i := 2; i < sig.NumArgs(); i++ {
		a, err := r.argument(inv, i, typenc.Strip(sig.Args[i]))
		if err != nil {
			return err
		}
		if f, ok := a.(float64); ok && typenc.Tag(sig.Args[i]) == 'f' {
			// The implementation reads floats at their own width.
			a = float32(f)
		}
		args = append(args, a)
	}
	res, err := b.tramp.CallIMP(uintptr(imp), ret, obj.Peer(), sel, args...)
	if err != nil {
		return err
	}
	if ret == "v" {
		return nil
	}
	return r.setReturn(inv, res, ret)
}

// argument reads argument i of an invocation. Integers are read at their
// width and extended to int64, floats and doubles become float64, and
// structures become values of a Go type with their layout.
func (r *Router) argument(inv Handle, i int, enc string) (interface{}, error) {
	get := r.b.Sel("getArgument:atIndex:")
	tag := typenc.Tag(enc)
	switch typenc.KindOf(tag) {
	case typenc.Struct, typenc.Union, typenc.Array:
		t, err := typenc.Parse(enc)
		if err != nil {
			return nil, &UnknownTypeEncodingError{Encoding: enc}
		}
		gt, err := t.GoType()
		if err != nil {
			return nil, &UnsupportedConversionError{Value: enc, Encoding: enc}
		}
		p := reflect.New(gt)
		if _, err := r.b.tramp.Word(inv, get, unsafe.Pointer(p.Pointer()), int64(i)); err != nil {
			return nil, err
		}
		return p.Elem().Interface(), nil
	case typenc.Invalid:
		return nil, &UnknownTypeEncodingError{Encoding: enc}
	}
	var word uint64
	if _, err := r.b.tramp.Word(inv, get, unsafe.Pointer(&word), int64(i)); err != nil {
		return nil, err
	}
	p := unsafe.Pointer(&word)
	switch tag {
	case 'f':
		return float64(*(*float32)(p)), nil
	case 'd':
		return *(*float64)(p), nil
	case 'c':
		return int64(*(*int8)(p)), nil
	case 'C', 'B':
		return int64(*(*uint8)(p)), nil
	case 's':
		return int64(*(*int16)(p)), nil
	case 'S':
		return int64(*(*uint16)(p)), nil
	case 'i', 'l':
		return int64(*(*int32)(p)), nil
	case 'I', 'L':
		return int64(*(*uint32)(p)), nil
	}
	return int64(word), nil
}

// setReturn stores v as the return value of an invocation, laid out as enc
// describes.
func (r *Router) setReturn(inv Handle, v interface{}, enc string) error {
	buf, err := r.returnBuffer(v, enc)
	if err != nil {
		return err
	}
	_, err = r.b.tramp.Word(inv, r.b.Sel("setReturnValue:"), unsafe.Pointer(&buf[0]))
	runtime.KeepAlive(buf)
	return err
}

// returnBuffer lays out v as a value of type enc. Numeric types accept any Go
// number, bool, or numeric text.
func (r *Router) returnBuffer(v interface{}, enc string) ([]uint64, error) {
	tag := typenc.Tag(enc)
	switch typenc.KindOf(tag) {
	case typenc.Struct, typenc.Union, typenc.Array:
		t, err := typenc.Parse(enc)
		if err != nil {
			return nil, &UnknownTypeEncodingError{Encoding: enc}
		}
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || (rv.Kind() != reflect.Struct && rv.Kind() != reflect.Array) || rv.Type().Size() != uintptr(t.Size()) {
			return nil, &UnsupportedConversionError{Value: v, Encoding: enc, ToNative: true}
		}
		buf := make([]uint64, (rv.Type().Size()+7)/8+1)
		p := reflect.NewAt(rv.Type(), unsafe.Pointer(&buf[0]))
		p.Elem().Set(rv)
		return buf, nil
	case typenc.Invalid, typenc.Void:
		return nil, &UnknownTypeEncodingError{Encoding: enc}
	}
	buf := make([]uint64, 1)
	p := unsafe.Pointer(&buf[0])
	switch tag {
	case 'f', 'd':
		f, err := returnFloat(v, enc)
		if err != nil {
			return nil, err
		}
		if tag == 'f' {
			*(*float32)(p) = float32(f)
		} else {
			*(*float64)(p) = f
		}
		return buf, nil
	case '*':
		if s, ok := v.(string); ok {
			// The bytes must outlive this call, so they come from an
			// NSString rather than Go memory.
			str, err := r.b.client.NSString(s)
			if err != nil {
				return nil, err
			}
			cs, err := r.b.tramp.Word(str, r.b.Sel("UTF8String"))
			if err != nil {
				return nil, err
			}
			buf[0] = uint64(cs)
			return buf, nil
		}
	}
	n, err := returnInt(v, enc)
	if err != nil {
		return nil, err
	}
	switch tag {
	case 'c', 'C', 'B':
		*(*uint8)(p) = uint8(n)
	case 's', 'S':
		*(*uint16)(p) = uint16(n)
	case 'i', 'I', 'l', 'L':
		*(*uint32)(p) = uint32(n)
	default:
		buf[0] = uint64(n)
	}
	return buf, nil
}

func returnInt(v interface{}, enc string) (int64, error) {
	switch x := v.(type) {
	case float64:
		return int64(x), nil
	case float32:
		return int64(x), nil
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 0, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, &UnsupportedConversionError{Value: v, Encoding: enc, ToNative: true}
		}
		return int64(f), nil
	case unsafe.Pointer:
		return int64(uintptr(x)), nil
	}
	if n, ok := asInt64(v); ok {
		return n, nil
	}
	if h, ok := handleOf(v); ok {
		return int64(h), nil
	}
	return 0, &UnsupportedConversionError{Value: v, Encoding: enc, ToNative: true}
}

func returnFloat(v interface{}, enc string) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, &UnsupportedConversionError{Value: v, Encoding: enc, ToNative: true}
		}
		return f, nil
	}
	if n, ok := asInt64(v); ok {
		return float64(n), nil
	}
	return 0, &UnsupportedConversionError{Value: v, Encoding: enc, ToNative: true}
}
