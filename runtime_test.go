package objcmsg_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/zephyrtronium/objcmsg"
)

// TestForwardFailures tests that forwarding failures are kept newest last up
// to the limit.
func TestForwardFailures(t *testing.T) {
	var f objcmsg.ForwardFailures
	f.Record(nil)
	if errs := f.Errors(); len(errs) != 0 || f.Total() != 0 {
		t.Fatalf("nil error recorded: %v", errs)
	}
	errs := make([]error, objcmsg.MaxForwardFailures+3)
	for i := range errs {
		errs[i] = fmt.Errorf("failure %d", i)
		f.Record(errs[i])
	}
	got := f.Errors()
	if len(got) != objcmsg.MaxForwardFailures {
		t.Fatalf("wrong number kept: want %d, got %d", objcmsg.MaxForwardFailures, len(got))
	}
	for i, err := range got {
		if want := errs[i+3]; err != want {
			t.Errorf("wrong error at %d: want %v, got %v", i, want, err)
		}
	}
	if n := f.Total(); n != len(errs) {
		t.Errorf("wrong total: want %d, got %d", len(errs), n)
	}
}

// TestForwardFailuresConcurrent tests recording failures from many goroutines.
func TestForwardFailuresConcurrent(t *testing.T) {
	var f objcmsg.ForwardFailures
	fail := errors.New("fail")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				f.Record(fail)
			}
		}()
	}
	wg.Wait()
	if n := f.Total(); n != 160 {
		t.Errorf("wrong total: want 160, got %d", n)
	}
	if n := len(f.Errors()); n != objcmsg.MaxForwardFailures {
		t.Errorf("wrong number kept: want %d, got %d", objcmsg.MaxForwardFailures, n)
	}
}
