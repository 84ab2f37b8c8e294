package objcmsg_test

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/zephyrtronium/objcmsg"
	"github.com/zephyrtronium/objcmsg/testutils"
)

// counter is a recipient with a handler for each kind of signature source.
type counter struct {
	objcmsg.Base
	n int64
}

var errCounterFailed = errors.New("counter failed")

func (c *counter) Handlers(t *objcmsg.Table) {
	t.Msg("increment:", (*counter).Increment, objcmsg.Types("v@:q")).
		Msg("count", (*counter).Count, objcmsg.Types("q@:")).
		Msg("half:", (*counter).Half, objcmsg.Types("d@:d")).
		Msg("greet:", (*counter).Greet, objcmsg.Types("@@:@")).
		Msg("label", (*counter).Label, objcmsg.Types("*@:")).
		Msg("fail", (*counter).Fail, objcmsg.Types("v@:")).
		Msg("boom", (*counter).Boom, objcmsg.Types("v@:")).
		Msg("length", (*counter).Length, objcmsg.Like("NSString.length")).
		Msg("add:to:", (*counter).Add).
		Msg("me", (*counter).Me, objcmsg.Types("@@:")).
		Msg("span:", (*counter).Span, objcmsg.Types("q@:"+testutils.RangeEncoding)).
		Msg("origin", (*counter).Origin, objcmsg.Types(testutils.PointEncoding+"@:")).
		Msg("sum:and:", objcmsg.HandlerFunc(sum), objcmsg.Types("q@:qq"))
}

func (c *counter) Increment(by int) { c.n += int64(by) }
func (c *counter) Count() int64     { return c.n }
func (c *counter) Half(x float64) float64 {
	return x / 2
}
func (c *counter) Greet(name string) string { return "hello, " + name }
func (c *counter) Label() string            { return "counter" }
func (c *counter) Fail() error              { return errCounterFailed }
func (c *counter) Boom()                    { panic("kaboom") }
func (c *counter) Length() int              { return 4 }
func (c *counter) Add(a, b int64) int64     { return a + b }
func (c *counter) Me() *counter             { return c }
func (c *counter) Span(r testutils.Range) int64 {
	return int64(r.Location + r.Length)
}
func (c *counter) Origin() testutils.Point { return testutils.Point{X: 1.5, Y: -2} }

func sum(recv objcmsg.Recipient, args ...interface{}) (interface{}, error) {
	var s int64
	for _, a := range args {
		n, ok := a.(int64)
		if !ok {
			return nil, fmt.Errorf("not an integer: %#v", a)
		}
		s += n
	}
	return s, nil
}

// plain is a recipient with no handlers of its own.
type plain struct {
	objcmsg.Base
}

func newCounter(t *testing.T, b *objcmsg.Bridge) (*counter, objcmsg.Handle) {
	t.Helper()
	c := &counter{}
	peer, err := b.Register(c)
	if err != nil {
		t.Fatal(err)
	}
	if peer == objcmsg.Nil || c.Peer() != peer {
		t.Fatalf("bad peer %v for registered recipient with peer %v", peer, c.Peer())
	}
	return c, peer
}

// TestHandlers tests sending messages to a Go recipient through the native
// runtime.
func TestHandlers(t *testing.T) {
	for _, machine := range []string{"arm64", "x86_64"} {
		t.Run(machine, func(t *testing.T) {
			b, _ := testutils.NewBridge(t, machine)
			c := b.Client()
			ctr, peer := newCounter(t, b)
			if _, err := c.Send(peer, "increment:", 2); err != nil {
				t.Fatal(err)
			}
			if _, err := c.Send(peer, "increment:", 3); err != nil {
				t.Fatal(err)
			}
			if ctr.n != 5 {
				t.Errorf("handler ran wrong: want n=5, got %d", ctr.n)
			}
			cases := map[string]struct {
				sel  string
				args []interface{}
				want interface{}
			}{
				"Count":    {"count", nil, int64(5)},
				"Double":   {"half:", []interface{}{3.0}, 1.5},
				"String":   {"greet:", []interface{}{"gopher"}, "hello, gopher"},
				"CString":  {"label", nil, "counter"},
				"Like":     {"length", nil, int64(4)},
				"Inferred": {"add:to:", []interface{}{2, 40}, int64(42)},
				"Self":     {"me", nil, ctr},
				"Struct":   {"span:", []interface{}{testutils.Range{Location: 3, Length: 4}}, int64(7)},
				"Generic":  {"sum:and:", []interface{}{10, 11}, int64(21)},
			}
			for name, tc := range cases {
				t.Run(name, func(t *testing.T) {
					r, err := c.Send(peer, tc.sel, tc.args...)
					if err != nil {
						t.Fatal(err)
					}
					if r != tc.want {
						t.Errorf("wrong result: want %#v, got %#v", tc.want, r)
					}
				})
			}
			t.Run("StructReturn", func(t *testing.T) {
				var p testutils.Point
				if err := c.SendStruct(&p, peer, "origin"); err != nil {
					t.Fatal(err)
				}
				if p != (testutils.Point{X: 1.5, Y: -2}) {
					t.Errorf("wrong point: %+v", p)
				}
			})
		})
	}
}

// TestForwardDoubleReturn tests that a double result is stored in the
// invocation as its IEEE 754 representation.
func TestForwardDoubleReturn(t *testing.T) {
	b, rt := testutils.NewBridge(t, "arm64")
	ctr, peer := newCounter(t, b)
	inv := rt.NewInvocation(rt.Signature("d@:d"), peer, b.Sel("half:"), 3.0)
	if err := b.Router().ForwardInvocation(ctr, inv); err != nil {
		t.Fatal(err)
	}
	got := binary.LittleEndian.Uint64(rt.ReturnBytes(inv))
	if want := math.Float64bits(1.5); got != want {
		t.Errorf("wrong return bits: want %#x, got %#x", want, got)
	}
}

// TestForwardNarrowReturn tests that results narrower than a word fill only
// their own width.
func TestForwardNarrowReturn(t *testing.T) {
	b, rt := testutils.NewBridge(t, "arm64")
	ctr, peer := newCounter(t, b)
	ctr.n = 0x1_0000_0007
	inv := rt.NewInvocation(rt.Signature("i@:"), peer, b.Sel("count"))
	if err := b.Router().ForwardInvocation(ctr, inv); err != nil {
		t.Fatal(err)
	}
	r := rt.ReturnBytes(inv)
	if len(r) != 4 {
		t.Fatalf("wrong return size: want 4, got %d", len(r))
	}
	if got := binary.LittleEndian.Uint32(r); got != 7 {
		t.Errorf("wrong return value: want 7, got %d", got)
	}
}

// TestHandlerFailure tests that errors and panics from handlers are reported
// as handler invocation failures.
func TestHandlerFailure(t *testing.T) {
	b, rt := testutils.NewBridge(t, "arm64")
	ctr, peer := newCounter(t, b)
	cases := map[string]struct {
		sel   string
		cause error
	}{
		"Error": {"fail", errCounterFailed},
		"Panic": {"boom", nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			inv := rt.NewInvocation(rt.Signature("v@:"), peer, b.Sel(tc.sel))
			err := b.Router().ForwardInvocation(ctr, inv)
			if !errors.Is(err, objcmsg.ErrHandlerInvocationFailure) {
				t.Fatalf("wrong error: %v", err)
			}
			var e *objcmsg.HandlerInvocationFailure
			if !errors.As(err, &e) {
				t.Fatalf("error is not a HandlerInvocationFailure: %v", err)
			}
			if e.Selector != tc.sel || e.Method == "" {
				t.Errorf("wrong failure details: %+v", e)
			}
			if tc.cause != nil && !errors.Is(err, tc.cause) {
				t.Errorf("cause not wrapped: %v", err)
			}
		})
	}
	t.Run("ThroughRuntime", func(t *testing.T) {
		n := len(rt.ForwardErrors())
		if _, err := b.Client().Send(peer, "fail"); err != nil {
			t.Fatal(err)
		}
		errs := rt.ForwardErrors()
		if len(errs) != n+1 || !errors.Is(errs[n], errCounterFailed) {
			t.Errorf("wrong forward errors: %v", errs)
		}
	})
}

// TestSelectorNotHandled tests messages that neither the recipient nor a
// parent implements.
func TestSelectorNotHandled(t *testing.T) {
	b, rt := testutils.NewBridge(t, "arm64")
	ctr, peer := newCounter(t, b)
	inv := rt.NewInvocation(rt.Signature("v@:"), peer, b.Sel("nothing"))
	err := b.Router().ForwardInvocation(ctr, inv)
	if !errors.Is(err, objcmsg.ErrSelectorNotHandled) {
		t.Errorf("wrong error: %v", err)
	}
	if s := b.Router().MethodSignatureForSelector(ctr, b.Sel("nothing")); s != objcmsg.Nil {
		t.Errorf("signature %v for unhandled selector", s)
	}
	if _, err := b.Client().Send(peer, "nothing"); !errors.Is(err, objcmsg.ErrUnknownSelector) {
		t.Errorf("wrong error sending unhandled selector: %v", err)
	}
	// A parent which does not respond is no help.
	p := &plain{}
	p.SetParent(rt.NewObject("NSObject", nil))
	pp, err := b.Register(p)
	if err != nil {
		t.Fatal(err)
	}
	inv = rt.NewInvocation(rt.Signature("v@:"), pp, b.Sel("nothing"))
	if err := b.Router().ForwardInvocation(p, inv); !errors.Is(err, objcmsg.ErrSelectorNotHandled) {
		t.Errorf("wrong error with parent: %v", err)
	}
}

// TestRespondsToSelector tests responses of recipients, their parents, and
// their classes.
func TestRespondsToSelector(t *testing.T) {
	b, rt := testutils.NewBridge(t, "arm64")
	rt.DefineClass("Echo", "NSObject").Method("plus:", "q@:q", func(c *testutils.Call) interface{} {
		return c.Int(0) + 1
	})
	ctr, peer := newCounter(t, b)
	p := &plain{}
	pp, err := b.Client().NewObject(p, "Echo")
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]struct {
		recv objcmsg.Handle
		sel  string
		want bool
	}{
		"Handler":       {peer, "count", true},
		"Inferred":      {peer, "add:to:", true},
		"Missing":       {peer, "plus:", false},
		"Class":         {peer, "description", true},
		"Parent":        {pp, "plus:", true},
		"ParentMissing": {pp, "count", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := b.Client().SendBool(tc.recv, "respondsToSelector:", b.Sel(tc.sel))
			if err != nil {
				t.Fatal(err)
			}
			if r != tc.want {
				t.Errorf("wrong response: want %t, got %t", tc.want, r)
			}
		})
	}
	if !b.Router().RespondsToSelector(ctr, b.Sel("half:")) {
		t.Error("router says counter does not respond to half:")
	}
}

// TestParentForwarding tests that unhandled messages run the parent's
// implementation with the recipient's peer as the receiver.
func TestParentForwarding(t *testing.T) {
	b, rt := testutils.NewBridge(t, "arm64")
	rt.DefineClass("Echo", "NSObject").
		Method("me", "@@:", func(c *testutils.Call) interface{} {
			return c.Self
		}).
		Method("plus:", "q@:q", func(c *testutils.Call) interface{} {
			return c.Int(0) + 1
		}).
		Method("ping", "v@:", func(c *testutils.Call) interface{} {
			return nil
		}).
		Method("scale:", "f@:f", func(c *testutils.Call) interface{} {
			return float32(c.Float(0) * 2)
		}).
		Method("scaleDouble:", "d@:d", func(c *testutils.Call) interface{} {
			return c.Float(0) * 2
		})
	c := b.Client()
	p := &plain{}
	pp, err := c.NewObject(p, "Echo")
	if err != nil {
		t.Fatal(err)
	}
	if p.Parent() == objcmsg.Nil || rt.ObjectClassName(p.Parent()) != "Echo" {
		t.Fatalf("wrong parent %v", p.Parent())
	}
	r, err := c.Send(pp, "me")
	if err != nil {
		t.Fatal(err)
	}
	if r != p {
		t.Errorf("parent method did not see recipient as self: got %#v", r)
	}
	r, err = c.Send(pp, "plus:", 41)
	if err != nil {
		t.Fatal(err)
	}
	if r != int64(42) {
		t.Errorf("wrong result: want 42, got %#v", r)
	}
	n := rt.Count("ping")
	if _, err := c.Send(pp, "ping"); err != nil {
		t.Fatal(err)
	}
	if rt.Count("ping") != n+1 {
		t.Error("parent void method did not run")
	}
	for sel, want := range map[string]float64{"scale:": 3, "scaleDouble:": 3} {
		f, err := c.SendFloat(pp, sel, 1.5)
		if err != nil {
			t.Fatalf("%s: %v", sel, err)
		}
		if f != want {
			t.Errorf("%s: wrong result: want %v, got %v", sel, want, f)
		}
	}
	if errs := rt.ForwardErrors(); len(errs) != 0 {
		t.Errorf("forwarding failed: %v", errs)
	}
}

// TestParentStructReturn tests forwarding a message returning a structure to
// the parent, which goes through invokeWithTarget:.
func TestParentStructReturn(t *testing.T) {
	b, rt := testutils.NewBridge(t, "arm64")
	want := testutils.Range{Location: 1, Length: 2}
	p := &plain{}
	p.SetParent(rt.NewObject("NSValue", want))
	pp, err := b.Register(p)
	if err != nil {
		t.Fatal(err)
	}
	var got testutils.Range
	if err := b.Client().SendStruct(&got, pp, "rangeValue"); err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("wrong range: want %+v, got %+v", want, got)
	}
	if errs := rt.ForwardErrors(); len(errs) != 0 {
		t.Errorf("forwarding failed: %v", errs)
	}
}

// TestGoParent tests that recipients whose parent is another recipient use
// the parent's handlers.
func TestGoParent(t *testing.T) {
	b, _ := testutils.NewBridge(t, "arm64")
	ctr, peer := newCounter(t, b)
	ctr.n = 9
	child := &plain{}
	child.SetParent(peer)
	cp, err := b.Register(child)
	if err != nil {
		t.Fatal(err)
	}
	r, err := b.Client().Send(cp, "count")
	if err != nil {
		t.Fatal(err)
	}
	if r != int64(9) {
		t.Errorf("wrong count through child: want 9, got %#v", r)
	}
	if _, err := b.Client().Send(cp, "increment:", 1); err != nil {
		t.Fatal(err)
	}
	if ctr.n != 10 {
		t.Errorf("parent handler did not run: n=%d", ctr.n)
	}
}

// TestParentCycle tests that a cycle of recipient parents ends resolution.
func TestParentCycle(t *testing.T) {
	b, _ := testutils.NewBridge(t, "arm64")
	x, y := &plain{}, &plain{}
	xp, err := b.Register(x)
	if err != nil {
		t.Fatal(err)
	}
	yp, err := b.Register(y)
	if err != nil {
		t.Fatal(err)
	}
	x.SetParent(yp)
	y.SetParent(xp)
	if b.Router().RespondsToSelector(x, b.Sel("count")) {
		t.Error("cyclic recipient responds to count")
	}
	if s := b.Router().MethodSignatureForSelector(x, b.Sel("count")); s != objcmsg.Nil {
		t.Errorf("cyclic recipient has signature %v", s)
	}
}

var tallies int32

type tally struct {
	objcmsg.Base
}

func (t *tally) Handlers(tb *objcmsg.Table) {
	atomic.AddInt32(&tallies, 1)
	tb.Msg("count", func(*tally) int64 { return 1 }, objcmsg.Types("q@:"))
}

// TestHandlersOnce tests that a type's Handlers method is called once.
func TestHandlersOnce(t *testing.T) {
	b, _ := testutils.NewBridge(t, "arm64")
	before := atomic.LoadInt32(&tallies)
	for i := 0; i < 3; i++ {
		tl := &tally{}
		if _, err := b.Register(tl); err != nil {
			t.Fatal(err)
		}
		r, err := b.Client().Send(tl.Peer(), "count")
		if err != nil {
			t.Fatal(err)
		}
		if r != int64(1) {
			t.Errorf("wrong result: %#v", r)
		}
	}
	if n := atomic.LoadInt32(&tallies) - before; n != 1 {
		t.Errorf("Handlers called %d times", n)
	}
	if sels := b.Router().Table(&tally{}).Selectors(); len(sels) != 1 || sels[0] != "count" {
		t.Errorf("wrong selectors: %q", sels)
	}
}

var racers int32

type racer struct {
	objcmsg.Base
}

func (*racer) Handlers(tb *objcmsg.Table) {
	atomic.AddInt32(&racers, 1)
	tb.Msg("lap", func(*racer) int64 { return 2 }, objcmsg.Types("q@:"))
}

// TestHandlersOnceConcurrent tests that concurrent registrations of a type
// build its handler table once.
func TestHandlersOnceConcurrent(t *testing.T) {
	b, _ := testutils.NewBridge(t, "arm64")
	before := atomic.LoadInt32(&racers)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rc := &racer{}
			if _, err := b.Register(rc); err != nil {
				t.Error(err)
				return
			}
			r, err := b.Client().Send(rc.Peer(), "lap")
			if err != nil {
				t.Error(err)
				return
			}
			if r != int64(2) {
				t.Errorf("wrong result: %#v", r)
			}
		}()
	}
	wg.Wait()
	if n := atomic.LoadInt32(&racers) - before; n != 1 {
		t.Errorf("Handlers called %d times", n)
	}
}

type broken struct {
	objcmsg.Base
}

func (*broken) Handlers(t *objcmsg.Table) {
	t.Msg("oops", 7)
}

// TestBrokenHandlers tests that registering a type whose Handlers panics
// fails.
func TestBrokenHandlers(t *testing.T) {
	b, _ := testutils.NewBridge(t, "arm64")
	r := &broken{}
	if _, err := b.Register(r); err == nil {
		t.Error("no error registering broken handlers")
	}
	if r.Peer() != objcmsg.Nil {
		t.Errorf("broken recipient got peer %v", r.Peer())
	}
}

const listedManifest = `
type: listed
handlers:
  "bump:": {fn: Bump, types: "v@:q"}
  total: {fn: Total, like: NSArray.count}
`

type listed struct {
	objcmsg.Base
	n int64
}

func (l *listed) Bump(by int64) { l.n += by }
func (l *listed) Total() int64  { return l.n }

func (*listed) Handlers(t *objcmsg.Table) {
	m, err := objcmsg.ParseManifest([]byte(listedManifest))
	if err != nil {
		panic(err)
	}
	fns := map[string]interface{}{
		"Bump":  (*listed).Bump,
		"Total": (*listed).Total,
	}
	if err := t.Apply(m, fns); err != nil {
		panic(err)
	}
}

// TestManifestHandlers tests recipients whose handlers come from a manifest.
func TestManifestHandlers(t *testing.T) {
	b, _ := testutils.NewBridge(t, "arm64")
	l := &listed{}
	peer, err := b.Register(l)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Client().Send(peer, "bump:", 4); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Client().Send(peer, "bump:", 5); err != nil {
		t.Fatal(err)
	}
	r, err := b.Client().Send(peer, "total")
	if err != nil {
		t.Fatal(err)
	}
	if r != int64(9) {
		t.Errorf("wrong total: want 9, got %#v", r)
	}
	h, ok := b.Router().Table(l).Lookup("total")
	if !ok || h.Like != "NSArray.count" {
		t.Errorf("wrong handler for total: %+v", h)
	}
}

// TestRecipientAsArgument tests that recipients passed as object arguments
// reach native code as their peers and come back as themselves.
func TestRecipientAsArgument(t *testing.T) {
	b, _ := testutils.NewBridge(t, "arm64")
	ctr, _ := newCounter(t, b)
	c := b.Client()
	arr, err := c.SendWrapper("NSMutableArray", "array")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := arr.Send("addObject:", ctr); err != nil {
		t.Fatal(err)
	}
	r, err := arr.Send("firstObject")
	if err != nil {
		t.Fatal(err)
	}
	if r != ctr {
		t.Errorf("wrong object: want the counter, got %#v", r)
	}
}
