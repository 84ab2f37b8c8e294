// Package testutils provides a simulated Objective-C runtime for testing code
// that uses objcmsg without a native runtime.
package testutils

import (
	"errors"
	"sync"
	"testing"

	"github.com/zephyrtronium/objcmsg"
)

// testBridge is the Bridge used for all tests.
var testBridge *objcmsg.Bridge

// testRuntime is the runtime behind testBridge.
var testRuntime *Runtime

var testBridgeInit sync.Once

// TestingBridge returns a Bridge over a simulated arm64 runtime. The Bridge is
// shared by all tests that use this package.
func TestingBridge() *objcmsg.Bridge {
	testBridgeInit.Do(ResetTestingBridge)
	return testBridge
}

// TestingRuntime returns the simulated runtime behind TestingBridge.
func TestingRuntime() *Runtime {
	testBridgeInit.Do(ResetTestingBridge)
	return testRuntime
}

// ResetTestingBridge reinitializes the Bridge returned by TestingBridge. It is
// not safe to call this in parallel tests.
func ResetTestingBridge() {
	testRuntime = NewRuntime("arm64")
	cfg := objcmsg.DefaultConfig()
	cfg.Arch = "arm64"
	b, err := objcmsg.New(testRuntime, cfg)
	if err != nil {
		panic(err)
	}
	testBridge = b
}

// NewBridge creates a Bridge over a new simulated runtime for the CPU family
// named by machine, failing the test if it cannot.
func NewBridge(t testing.TB, machine string) (*objcmsg.Bridge, *Runtime) {
	t.Helper()
	rt := NewRuntime(machine)
	cfg := objcmsg.DefaultConfig()
	cfg.Arch = machine
	b, err := objcmsg.New(rt, cfg)
	if err != nil {
		t.Fatalf("could not create bridge for %s: %v", machine, err)
	}
	return b, rt
}

// A SendTestCase is a test case containing a message chain, in the form
// accepted by Client.BuildChain, and a predicate to check its result.
type SendTestCase struct {
	// Chain is the flat parameter list of the chain.
	Chain []interface{}
	// Pass is a predicate taking the result of the last message and its
	// error. If Pass returns false, then the test fails.
	Pass func(result interface{}, err error) bool
}

// TestFunc returns a test function for the test case. This uses
// TestingBridge to build and send the chain.
func (c SendTestCase) TestFunc(name string) func(*testing.T) {
	return func(t *testing.T) {
		cl := TestingBridge().Client()
		msgs, err := cl.BuildChain(c.Chain...)
		if err != nil {
			t.Fatalf("could not build %s: %v", name, err)
		}
		r, err := cl.SendChain(msgs...)
		if !c.Pass(r, err) {
			t.Errorf("%s produced wrong result; got %#v (error %v)", name, r, err)
		}
		// Keep the cache from growing across cases.
		TestingBridge().Cache().Release(r)
	}
}

// PassEqual returns a Pass function for a SendTestCase that predicates on
// equality of the result with want and the absence of an error.
func PassEqual(want interface{}) func(interface{}, error) bool {
	return func(result interface{}, err error) bool {
		return err == nil && result == want
	}
}

// PassString returns a Pass function for a SendTestCase that predicates on
// the result being a string equal to want, or a Wrapper whose description is
// want.
func PassString(want string) func(interface{}, error) bool {
	return func(result interface{}, err error) bool {
		if err != nil {
			return false
		}
		switch x := result.(type) {
		case string:
			return x == want
		case *objcmsg.Wrapper:
			return x.String() == want
		}
		return false
	}
}

// PassFailure returns a Pass function for a SendTestCase that returns true
// iff the send failed with an error matching target under errors.Is.
func PassFailure(target error) func(interface{}, error) bool {
	return func(result interface{}, err error) bool {
		return errors.Is(err, target)
	}
}

// PassSuccess returns a Pass function for a SendTestCase that returns true
// iff the send succeeded.
func PassSuccess() func(interface{}, error) bool {
	return func(result interface{}, err error) bool {
		return err == nil
	}
}
