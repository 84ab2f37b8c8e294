package objcmsg

import (
	"reflect"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

const testManifest = `
type: handlerTester
handlers:
  "echo:": {fn: Echo, types: "@@:@"}
  nothing: {fn: Nothing}
  count: {fn: Many, like: NSArray.count}
`

// TestParseManifest tests reading manifests.
func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(testManifest))
	if err != nil {
		t.Fatal(err)
	}
	if m.Type != "handlerTester" {
		t.Errorf("wrong type %q", m.Type)
	}
	want := []string{"count", "echo:", "nothing"}
	if got := m.Selectors(); !reflect.DeepEqual(got, want) {
		t.Errorf("wrong selectors: want %q, got %q", want, got)
	}
	if e := m.Handlers["count"]; e.Fn != "Many" || e.Like != "NSArray.count" || e.Types != "" {
		t.Errorf("wrong count entry: %+v", e)
	}
	if _, err := ParseManifest([]byte("type: x\nextra: 1\n")); err == nil {
		t.Error("no error for unknown field")
	}
}

// TestManifestRoundTrip tests that a marshaled manifest parses to the same
// handlers.
func TestManifestRoundTrip(t *testing.T) {
	m, err := ParseManifest([]byte(testManifest))
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	r, err := ParseManifest(b)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m, r) {
		t.Errorf("round trip changed manifest:\n%s", b)
	}
}

// TestApplyManifest tests building a table from a manifest.
func TestApplyManifest(t *testing.T) {
	m, err := ParseManifest([]byte(testManifest))
	if err != nil {
		t.Fatal(err)
	}
	tab := newTable(reflect.TypeOf(&handlerTester{}))
	fns := map[string]interface{}{
		"Echo":    (*handlerTester).Echo,
		"Nothing": (*handlerTester).Nothing,
		"Many":    (*handlerTester).Many,
	}
	if err := tab.Apply(m, fns); err != nil {
		t.Fatal(err)
	}
	cases := map[string]struct {
		types, like string
	}{
		"echo:":   {"@@:@", ""},
		"nothing": {"", ""},
		"count":   {"", "NSArray.count"},
	}
	for sel, c := range cases {
		h, ok := tab.Lookup(sel)
		if !ok {
			t.Errorf("no handler for %s", sel)
			continue
		}
		if h.Types != c.types || h.Like != c.like {
			t.Errorf("wrong encodings for %s: want %q/%q, got %q/%q", sel, c.types, c.like, h.Types, h.Like)
		}
	}
	out := tab.Manifest()
	if !strings.Contains(out.Type, "handlerTester") {
		t.Errorf("wrong type in generated manifest: %q", out.Type)
	}
	if !reflect.DeepEqual(out.Selectors(), m.Selectors()) {
		t.Errorf("wrong selectors in generated manifest: %q", out.Selectors())
	}
}

// TestApplyManifestUpdates tests that entries for existing handlers only
// change their encodings.
func TestApplyManifestUpdates(t *testing.T) {
	tab := newTable(reflect.TypeOf(&handlerTester{}))
	tab.Msg("echo:", (*handlerTester).Echo)
	before, _ := tab.Lookup("echo:")
	m := &Manifest{Handlers: map[string]ManifestEntry{"echo:": {Fn: "Missing", Types: "@@:@"}}}
	if err := tab.Apply(m, nil); err != nil {
		t.Fatal(err)
	}
	h, _ := tab.Lookup("echo:")
	if h.Types != "@@:@" {
		t.Errorf("types not updated: %q", h.Types)
	}
	if h != before || h.Name != before.Name {
		t.Error("handler replaced")
	}
}

// TestApplyManifestErrors tests that every bad entry is reported.
func TestApplyManifestErrors(t *testing.T) {
	m := &Manifest{Handlers: map[string]ManifestEntry{
		"both":    {Fn: "Nothing", Types: "v@:", Like: "NSObject.init"},
		"bad":     {Fn: "Nothing", Types: "{"},
		"missing": {Fn: "Absent"},
		"fine":    {Fn: "Nothing", Types: "v@:"},
	}}
	tab := newTable(reflect.TypeOf(&handlerTester{}))
	err := tab.Apply(m, map[string]interface{}{"Nothing": (*handlerTester).Nothing})
	if err == nil {
		t.Fatal("no error")
	}
	if n := len(multierr.Errors(err)); n != 3 {
		t.Errorf("wrong number of errors: want 3, got %d (%v)", n, err)
	}
	if _, ok := tab.Lookup("fine"); !ok {
		t.Error("good entry not applied")
	}
	for _, sel := range []string{"both", "bad", "missing"} {
		if _, ok := tab.Lookup(sel); ok {
			t.Errorf("bad entry %s applied", sel)
		}
	}
}
