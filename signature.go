package objcmsg

import (
	"github.com/zephyrtronium/objcmsg/typenc"
)

// Signature holds the types of a method as reported by an NSMethodSignature.
type Signature struct {
	// Handle is the NSMethodSignature object.
	Handle Handle
	// Return is the return type encoding.
	Return string
	// Args holds the argument type encodings, including the receiver and
	// selector at indices 0 and 1.
	Args []string
}

// NumArgs returns the number of arguments, including the receiver and
// selector.
func (s *Signature) NumArgs() int {
	return len(s.Args)
}

// Signature asks recv for its method signature for sel. It fails with
// UnknownSelector if recv has none.
func (b *Bridge) Signature(recv, sel Handle) (*Signature, error) {
	h, err := b.tramp.Word(recv, b.Sel("methodSignatureForSelector:"), sel)
	if err != nil {
		return nil, err
	}
	if h == 0 {
		return nil, &UnknownSelectorError{Selector: b.rt.SelectorName(sel), Receiver: recv}
	}
	return b.ReadSignature(Handle(h))
}

// ReadSignature reads the types from an NSMethodSignature.
func (b *Bridge) ReadSignature(sig Handle) (*Signature, error) {
	n, err := b.tramp.Word(sig, b.Sel("numberOfArguments"))
	if err != nil {
		return nil, err
	}
	s := Signature{Handle: sig, Args: make([]string, n)}
	at := b.Sel("getArgumentTypeAtIndex:")
	for i := range s.Args {
		p, err := b.tramp.Word(sig, at, uint64(i))
		if err != nil {
			return nil, err
		}
		s.Args[i] = string(cstring(uintptr(p), 1))
	}
	p, err := b.tramp.Word(sig, b.Sel("methodReturnType"))
	if err != nil {
		return nil, err
	}
	s.Return = string(cstring(uintptr(p), 1))
	return &s, nil
}

// SignatureWithTypes creates an NSMethodSignature from a method type string
// such as "v@:@".
func (b *Bridge) SignatureWithTypes(types string) (Handle, error) {
	if _, _, err := typenc.ParseMethod(types); err != nil {
		return Nil, err
	}
	cls := b.rt.LookUpClass("NSMethodSignature")
	h, err := b.tramp.Word(cls, b.Sel("signatureWithObjCTypes:"), types)
	if err != nil {
		return Nil, err
	}
	return Handle(h), nil
}
