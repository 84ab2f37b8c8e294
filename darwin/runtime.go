//go:build darwin

// Package darwin implements objcmsg.Runtime over the Objective-C runtime of
// macOS, loaded at run time without cgo.
package darwin

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/ebitengine/purego"
	"github.com/ebitengine/purego/objc"
	"go.uber.org/zap"

	"github.com/zephyrtronium/objcmsg"
)

const (
	libobjc    = "/usr/lib/libobjc.A.dylib"
	foundation = "/System/Library/Frameworks/Foundation.framework/Foundation"
	// proxyName is the class of the native objects standing for Go
	// recipients.
	proxyName = "GoObjcmsgRecipient"
)

// Runtime is the native Objective-C runtime.
type Runtime struct {
	lib uintptr

	classGetName       func(cls objc.Class) string
	selGetName         func(sel objc.SEL) string
	objectGetClassName func(obj objc.ID) string

	proxyOnce sync.Once
	proxy     objc.Class
	proxyErr  error

	mu     sync.RWMutex
	recips map[objcmsg.Handle]objcmsg.Inbound

	fwdErrs objcmsg.ForwardFailures
}

var (
	shared     *Runtime
	sharedErr  error
	sharedOnce sync.Once
)

// Open loads the Objective-C runtime and Foundation. The runtime is loaded
// once per process; later calls return the same Runtime.
func Open() (*Runtime, error) {
	sharedOnce.Do(func() { shared, sharedErr = open() })
	return shared, sharedErr
}

func open() (*Runtime, error) {
	lib, err := purego.Dlopen(libobjc, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", objcmsg.ErrNoRuntime, err)
	}
	if _, err := purego.Dlopen(foundation, purego.RTLD_LAZY|purego.RTLD_GLOBAL); err != nil {
		return nil, fmt.Errorf("%w: loading Foundation: %v", objcmsg.ErrNoRuntime, err)
	}
	rt := &Runtime{lib: lib, recips: make(map[objcmsg.Handle]objcmsg.Inbound)}
	purego.RegisterLibFunc(&rt.classGetName, lib, "class_getName")
	purego.RegisterLibFunc(&rt.selGetName, lib, "sel_getName")
	purego.RegisterLibFunc(&rt.objectGetClassName, lib, "object_getClassName")
	return rt, nil
}

// New opens the native runtime and creates a Bridge over it.
func New(cfg objcmsg.Config) (*objcmsg.Bridge, error) {
	rt, err := Open()
	if err != nil {
		return nil, err
	}
	return objcmsg.New(rt, cfg)
}

// LookUpClass returns the class with the given name, or Nil.
func (rt *Runtime) LookUpClass(name string) objcmsg.Handle {
	return objcmsg.Handle(objc.GetClass(name))
}

// RegisterName returns the selector with the given name.
func (rt *Runtime) RegisterName(name string) objcmsg.Handle {
	return objcmsg.Handle(objc.RegisterName(name))
}

// SelectorName returns the name of a selector.
func (rt *Runtime) SelectorName(sel objcmsg.Handle) string {
	if sel == objcmsg.Nil {
		return ""
	}
	return rt.selGetName(objc.SEL(sel))
}

// ClassName returns the name of a class.
func (rt *Runtime) ClassName(cls objcmsg.Handle) string {
	if cls == objcmsg.Nil {
		return "nil"
	}
	return rt.classGetName(objc.Class(cls))
}

// ObjectClassName returns the name of the class of an object.
func (rt *Runtime) ObjectClassName(obj objcmsg.Handle) string {
	if obj == objcmsg.Nil {
		return "nil"
	}
	return rt.objectGetClassName(objc.ID(obj))
}

// EntryPoint returns the address of a dispatch function, or 0 if the runtime
// lacks it, as arm64 lacks the fpret and stret variants.
func (rt *Runtime) EntryPoint(name string) uintptr {
	fn, err := purego.Dlsym(rt.lib, name)
	if err != nil {
		return 0
	}
	return fn
}

// Bind creates a Go function of the given type which calls fn.
func (rt *Runtime) Bind(fn uintptr, ret reflect.Type, args []reflect.Type) (p objcmsg.Proc, err error) {
	var outs []reflect.Type
	if ret != nil {
		outs = []reflect.Type{ret}
	}
	ft := reflect.FuncOf(args, outs, false)
	fp := reflect.New(ft)
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("darwin: cannot bind %v: %v", ft, r)
		}
	}()
	purego.RegisterFunc(fp.Interface(), fn)
	f := fp.Elem()
	return func(vals []reflect.Value) []reflect.Value {
		return f.Call(vals)
	}, nil
}

// RegisterRecipient creates an instance of the proxy class whose unknown
// messages go to in.
func (rt *Runtime) RegisterRecipient(in objcmsg.Inbound) (objcmsg.Handle, error) {
	rt.proxyOnce.Do(rt.registerProxy)
	if rt.proxyErr != nil {
		return objcmsg.Nil, rt.proxyErr
	}
	obj := objc.ID(rt.proxy).Send(objc.RegisterName("new"))
	if obj == 0 {
		return objcmsg.Nil, fmt.Errorf("darwin: could not create %s", proxyName)
	}
	h := objcmsg.Handle(obj)
	rt.mu.Lock()
	rt.recips[h] = in
	rt.mu.Unlock()
	return h, nil
}

// Recipient returns the Inbound registered for an object.
func (rt *Runtime) Recipient(obj objcmsg.Handle) (objcmsg.Inbound, bool) {
	rt.mu.RLock()
	in, ok := rt.recips[obj]
	rt.mu.RUnlock()
	return in, ok
}

// Forget removes the Inbound of an object and releases the object. Messages
// sent to it afterward behave as for a plain NSObject.
func (rt *Runtime) Forget(obj objcmsg.Handle) {
	rt.mu.Lock()
	_, ok := rt.recips[obj]
	delete(rt.recips, obj)
	rt.mu.Unlock()
	if ok {
		objc.ID(obj).Send(objc.RegisterName("release"))
	}
}

// ForwardErrors returns the most recent errors reported by Go recipients
// handling forwarded invocations, oldest first.
func (rt *Runtime) ForwardErrors() []error {
	return rt.fwdErrs.Errors()
}

// registerProxy creates the proxy class. Its instances answer
// methodSignatureForSelector: and respondsToSelector: from their Inbound
// before NSObject, and hand every invocation NSObject cannot perform to
// forwardInvocation:.
func (rt *Runtime) registerProxy() {
	if objc.GetClass(proxyName) != 0 {
		// Its methods would not know our recipients.
		rt.proxyErr = fmt.Errorf("darwin: class %s already exists", proxyName)
		return
	}
	methods := []objc.MethodDef{
		{
			Cmd: objc.RegisterName("methodSignatureForSelector:"),
			Fn: func(self objc.ID, cmd objc.SEL, sel objc.SEL) objc.ID {
				if in, ok := rt.Recipient(objcmsg.Handle(self)); ok {
					if s := in.MethodSignatureForSelector(objcmsg.Handle(sel)); s != objcmsg.Nil {
						return objc.ID(s)
					}
				}
				return self.SendSuper(cmd, sel)
			},
		},
		{
			Cmd: objc.RegisterName("respondsToSelector:"),
			Fn: func(self objc.ID, cmd objc.SEL, sel objc.SEL) bool {
				if objc.SendSuper[bool](self, cmd, sel) {
					return true
				}
				in, ok := rt.Recipient(objcmsg.Handle(self))
				return ok && in.RespondsToSelector(objcmsg.Handle(sel))
			},
		},
		{
			Cmd: objc.RegisterName("forwardInvocation:"),
			Fn: func(self objc.ID, cmd objc.SEL, inv objc.ID) {
				in, ok := rt.Recipient(objcmsg.Handle(self))
				if !ok {
					self.SendSuper(cmd, inv)
					return
				}
				if err := in.ForwardInvocation(objcmsg.Handle(inv)); err != nil {
					// An exception thrown here would unwind through Go frames.
					// The sender gets the invocation's zero result instead.
					rt.fwdErrs.Record(err)
					objcmsg.Logger().Error("forwarded invocation failed", zap.Uintptr("receiver", uintptr(self)), zap.Error(err))
				}
			},
		},
	}
	rt.proxy, rt.proxyErr = objc.RegisterClass(proxyName, objc.GetClass("NSObject"), nil, nil, methods)
	if rt.proxyErr != nil {
		rt.proxyErr = fmt.Errorf("darwin: registering %s: %w", proxyName, rt.proxyErr)
	}
}
