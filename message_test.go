package objcmsg_test

import (
	"errors"
	"testing"

	"github.com/zephyrtronium/objcmsg"
	"github.com/zephyrtronium/objcmsg/testutils"
)

// TestSendChain tests sending message chains built from flat parameter lists.
func TestSendChain(t *testing.T) {
	cases := map[string]testutils.SendTestCase{
		"Single": {
			Chain: []interface{}{"NSNumber", "numberWithLongLong:", 7},
			Pass:  testutils.PassString("7"),
		},
		"Previous": {
			Chain: []interface{}{"NSMutableArray", "array", nil, "_", "count"},
			Pass:  testutils.PassEqual(int64(0)),
		},
		"Three": {
			Chain: []interface{}{"NSString", "stringWithUTF8String:", "abc", nil, "_", "uppercaseString", nil, "_", "length"},
			Pass:  testutils.PassEqual(int64(3)),
		},
		"LastCoerced": {
			Chain: []interface{}{"NSString", "stringWithUTF8String:", "go", nil, "_", "uppercaseString"},
			Pass:  testutils.PassEqual("GO"),
		},
		"FailureCarries": {
			Chain: []interface{}{"NSMutableArray", "array", nil, "_", "noSuchMethod", nil, "_", "count"},
			Pass:  testutils.PassFailure(objcmsg.ErrUnknownSelector),
		},
		"Mismatch": {
			Chain: []interface{}{"NSMutableArray", "array", nil, "_", "addObject:"},
			Pass:  testutils.PassFailure(objcmsg.ErrArgumentCountMismatch),
		},
		"Void": {
			Chain: []interface{}{"NSMutableArray", "array", nil, "_", "removeAllObjects"},
			Pass:  testutils.PassEqual(nil),
		},
	}
	for name, c := range cases {
		t.Run(name, c.TestFunc(name))
	}
}

// TestEmptyChain tests that sending no messages is an error.
func TestEmptyChain(t *testing.T) {
	_, err := testutils.TestingBridge().Client().SendChain()
	if !errors.Is(err, objcmsg.ErrEmptyChain) {
		t.Errorf("wrong error: want %v, got %v", objcmsg.ErrEmptyChain, err)
	}
}

// TestBuildChain tests the structure of built chains.
func TestBuildChain(t *testing.T) {
	b := testutils.TestingBridge()
	c := b.Client()
	msgs, err := c.BuildChain("NSString", "stringWithUTF8String:", "x", nil, "_", "stringByAppendingString:", "y", "z")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("wrong number of messages: want 2, got %d", len(msgs))
	}
	if msgs[0].Receiver != b.Class("NSString") {
		t.Errorf("wrong first receiver: want %v, got %v", b.Class("NSString"), msgs[0].Receiver)
	}
	if msgs[1].Receiver != objcmsg.Nil {
		t.Errorf("wrong second receiver: want Nil, got %v", msgs[1].Receiver)
	}
	if msgs[1].Selector != b.Sel("stringByAppendingString:") {
		t.Errorf("wrong second selector: %v", msgs[1].Selector)
	}
	if len(msgs[1].Args) != 2 {
		t.Errorf("wrong second arguments: %#v", msgs[1].Args)
	}
	for _, m := range msgs {
		if !m.CoerceInput || !m.CoerceOutput {
			t.Errorf("message does not take client settings: %+v", m)
		}
	}
	raw, err := b.Raw().BuildChain("NSObject", "new")
	if err != nil {
		t.Fatal(err)
	}
	if raw[0].CoerceInput || raw[0].CoerceOutput {
		t.Errorf("raw message coerces: %+v", raw[0])
	}
}

// TestBuildChainErrors tests that malformed parameter lists are rejected.
func TestBuildChainErrors(t *testing.T) {
	cases := map[string][]interface{}{
		"NoSelector":     {"NSObject"},
		"TrailingNoSel":  {"NSObject", "new", nil, "_"},
		"UnknownClass":   {"NoSuchClass", "new"},
		"BadReceiver":    {1.5, "new"},
		"BadSelector":    {"NSObject", 3.5},
		"NilAfterReceiv": {"NSObject", nil},
	}
	c := testutils.TestingBridge().Client()
	for name, params := range cases {
		t.Run(name, func(t *testing.T) {
			if msgs, err := c.BuildChain(params...); err == nil {
				t.Errorf("no error; built %d messages", len(msgs))
			}
		})
	}
}

// TestChainCoercion tests that only the last message has its result
// converted.
func TestChainCoercion(t *testing.T) {
	c := testutils.TestingBridge().Client()
	msgs, err := c.BuildChain("NSString", "stringWithUTF8String:", "abc", nil, "_", "uppercaseString", nil, "_", "description")
	if err != nil {
		t.Fatal(err)
	}
	r, err := c.SendChain(msgs...)
	if err != nil {
		t.Fatal(err)
	}
	if r != "ABC" {
		t.Errorf("wrong result: want %q, got %#v", "ABC", r)
	}
	for i, m := range msgs[:len(msgs)-1] {
		if m.OutputWasCoerced {
			t.Errorf("message %d had its result converted", i)
		}
		if _, ok := m.Result.(int64); !ok {
			t.Errorf("message %d has non-raw result %#v", i, m.Result)
		}
	}
	if !msgs[len(msgs)-1].OutputWasCoerced {
		t.Error("last message result not converted")
	}
	if !msgs[0].InputWasCoerced {
		t.Error("first message arguments not converted")
	}
	if msgs[1].InputWasCoerced {
		t.Error("message without arguments marked as converted")
	}
	for i, m := range msgs {
		if m.Status != objcmsg.Completed {
			t.Errorf("message %d has status %v", i, m.Status)
		}
	}
}

// TestChainHooks tests that Before can skip or cancel messages and After sees
// each completed message in order.
func TestChainHooks(t *testing.T) {
	c := testutils.TestingBridge().Client()
	t.Run("Skip", func(t *testing.T) {
		arr, err := c.SendPointer("NSMutableArray", "array")
		if err != nil {
			t.Fatal(err)
		}
		msgs, err := c.BuildChain(arr, "addObject:", "a", nil, arr, "addObject:", "b", nil, arr, "count")
		if err != nil {
			t.Fatal(err)
		}
		msgs[1].Before = func(m *objcmsg.Message) { m.Status = objcmsg.Skipped }
		var seen []string
		for _, m := range msgs {
			m.After = func(m *objcmsg.Message) {
				seen = append(seen, c.Bridge().SelName(m.Selector))
			}
		}
		r, err := c.SendChain(msgs...)
		if err != nil {
			t.Fatal(err)
		}
		if r != int64(1) {
			t.Errorf("wrong count: want 1, got %#v", r)
		}
		if msgs[1].Status != objcmsg.Skipped {
			t.Errorf("skipped message has status %v", msgs[1].Status)
		}
		if len(seen) != 2 || seen[0] != "addObject:" || seen[1] != "count" {
			t.Errorf("wrong completed messages: %q", seen)
		}
	})
	t.Run("Cancel", func(t *testing.T) {
		arr, err := c.SendPointer("NSMutableArray", "array")
		if err != nil {
			t.Fatal(err)
		}
		msgs, err := c.BuildChain(arr, "addObject:", "a", nil, arr, "addObject:", "b", nil, arr, "count")
		if err != nil {
			t.Fatal(err)
		}
		msgs[1].Before = func(m *objcmsg.Message) { m.Status = objcmsg.Cancelled }
		r, err := c.SendChain(msgs...)
		if r != nil || err != nil {
			t.Errorf("cancelled chain gave %#v, %v", r, err)
		}
		if msgs[2].Status != objcmsg.Ready {
			t.Errorf("message after cancellation has status %v", msgs[2].Status)
		}
		n, err := c.SendInt(arr, "count")
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("wrong count after cancellation: want 1, got %d", n)
		}
	})
}

// TestChainErrorsRecorded tests that each message records its own error.
func TestChainErrorsRecorded(t *testing.T) {
	c := testutils.TestingBridge().Client()
	msgs, err := c.BuildChain("NSMutableArray", "array", nil, "_", "noSuchMethod", nil, "NSNumber", "numberWithBool:", true)
	if err != nil {
		t.Fatal(err)
	}
	r, err := c.SendChain(msgs...)
	if err != nil {
		t.Fatalf("error from last message: %v", err)
	}
	defer testutils.TestingBridge().Cache().Release(r)
	if msgs[0].Err != nil {
		t.Errorf("first message failed: %v", msgs[0].Err)
	}
	if !errors.Is(msgs[1].Err, objcmsg.ErrUnknownSelector) {
		t.Errorf("wrong error for second message: %v", msgs[1].Err)
	}
}

// TestLink tests that Link connects messages and rejects repeats.
func TestLink(t *testing.T) {
	a := objcmsg.NewMessage(objcmsg.Nil, objcmsg.Nil)
	b := objcmsg.NewMessage(objcmsg.Nil, objcmsg.Nil)
	if err := objcmsg.Link(a, b); err != nil {
		t.Fatal(err)
	}
	if a.Next != b || b.Prev != a || a.Prev != nil || b.Next != nil {
		t.Error("messages not linked in order")
	}
	if err := objcmsg.Link(a, b, a); err == nil {
		t.Error("no error linking a message twice")
	}
}

// TestStatusString tests the names of message states.
func TestStatusString(t *testing.T) {
	cases := map[objcmsg.Status]string{
		objcmsg.Ready:       "ready",
		objcmsg.Skipped:     "skipped",
		objcmsg.Cancelled:   "cancelled",
		objcmsg.Completed:   "completed",
		objcmsg.Status(100): "Status(100)",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("wrong name for %d: want %q, got %q", int(s), want, got)
		}
	}
}
