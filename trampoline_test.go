package objcmsg

import (
	"errors"
	"testing"
)

// TestStructVariants tests the built-in structure signatures.
func TestStructVariants(t *testing.T) {
	v := structVariants(MaxStructArgs)
	// Every nonzero bit pattern of one to four arguments.
	if len(v) != 1+3+7+15 {
		t.Errorf("wrong number of variants: %d", len(v))
	}
	for sig := range v {
		if len(sig) == 0 || len(sig) > MaxStructArgs {
			t.Errorf("variant %q has wrong length", sig)
		}
	}
	if v["0"] || v["00"] || v[""] {
		t.Error("variants include signatures without structures")
	}
}

// TestCallShapeString tests descriptions of call shapes.
func TestCallShapeString(t *testing.T) {
	cases := map[string]CallShape{
		"word/0":         {Return: ShapeWord},
		"float/2":        {Return: ShapeFloat, Arity: 2},
		"struct/3/010":   {Return: ShapeStruct, Arity: 3, Structs: "010"},
		"void/1/1":       {Return: ShapeVoid, Arity: 1, Structs: "1"},
		"invalid/0":      {Return: Shape(9)},
		"word/7/0000001": {Return: ShapeWord, Arity: 7, Structs: "0000001"},
	}
	for want, s := range cases {
		if got := s.String(); got != want {
			t.Errorf("wrong description: want %q, got %q", want, got)
		}
	}
}

// TestArgValue tests the Go values passed for arguments.
func TestArgValue(t *testing.T) {
	cases := map[string]struct {
		v    interface{}
		want interface{}
	}{
		"Nil":      {nil, Nil},
		"Peerable": {peer(0x20), Handle(0x20)},
		"Int":      {3, int64(3)},
		"Uint":     {uint(4), uint64(4)},
		"Float":    {1.5, 1.5},
		"String":   {"s", "s"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			if got := argValue(c.v).Interface(); got != c.want {
				t.Errorf("wrong value: want %#v, got %#v", c.want, got)
			}
		})
	}
}

// TestErrorsMatchSentinels tests that each error type matches its sentinel
// and no other.
func TestErrorsMatchSentinels(t *testing.T) {
	sentinels := []error{
		ErrUnknownTypeEncoding,
		ErrUnsupportedConversion,
		ErrArgumentCountMismatch,
		ErrArgumentCountExceeded,
		ErrUnsupportedCallShape,
		ErrUnknownSelector,
		ErrSelectorNotHandled,
		ErrHandlerInvocationFailure,
	}
	errs := []error{
		&UnknownTypeEncodingError{Encoding: "X"},
		&UnsupportedConversionError{Value: 1, Encoding: "@"},
		&ArgumentCountMismatchError{Selector: "a:", Want: 1},
		&ArgumentCountExceededError{Got: 8, Max: MaxArgs},
		&UnsupportedCallShapeError{Shape: "word/5/00001", Reason: "no"},
		&UnknownSelectorError{Selector: "a"},
		&SelectorNotHandledError{Selector: "a"},
		&HandlerInvocationFailure{Selector: "a", Method: "f", Cause: errors.New("x")},
	}
	for i, err := range errs {
		if err.Error() == "" {
			t.Errorf("%T has no message", err)
		}
		for j, s := range sentinels {
			if errors.Is(err, s) != (i == j) {
				t.Errorf("errors.Is(%T, %v) = %t", err, s, i != j)
			}
		}
	}
}
