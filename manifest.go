package objcmsg

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"

	"github.com/zephyrtronium/objcmsg/typenc"
)

// Manifest describes the handlers of a Go receiver type in a form that can be
// kept beside the code, e.g. one generated by objcfn:
//
//	type: Counter
//	handlers:
//	  "increment:": {fn: Increment, types: "v@:q"}
//	  count: {fn: Count, like: NSArray.count}
type Manifest struct {
	Type     string                   `yaml:"type"`
	Handlers map[string]ManifestEntry `yaml:"handlers"`
}

// ManifestEntry describes one handler.
type ManifestEntry struct {
	// Fn names the Go function or method.
	Fn string `yaml:"fn"`
	// Types is the method type string, if declared.
	Types string `yaml:"types,omitempty"`
	// Like is a "Class.selector" reference, if declared.
	Like string `yaml:"like,omitempty"`
}

// ParseManifest parses a YAML manifest. Unknown fields are errors.
func ParseManifest(b []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalStrict(b, &m); err != nil {
		return nil, fmt.Errorf("objcmsg: bad manifest: %w", err)
	}
	return &m, nil
}

// Marshal encodes the manifest as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// Selectors returns the sorted selectors the manifest lists.
func (m *Manifest) Selectors() []string {
	r := make([]string, 0, len(m.Handlers))
	for sel := range m.Handlers {
		r = append(r, sel)
	}
	sort.Strings(r)
	return r
}

// Apply adds the handlers m lists to t. fns maps the Fn names of entries to
// functions. Entries for selectors t already handles only update the declared
// encodings. All missing functions and bad encodings are reported together.
func (t *Table) Apply(m *Manifest, fns map[string]interface{}) error {
	var err error
	for _, sel := range m.Selectors() {
		e := m.Handlers[sel]
		if e.Types != "" && e.Like != "" {
			err = multierr.Append(err, fmt.Errorf("objcmsg: %s declares both types and like", sel))
			continue
		}
		if e.Types != "" {
			if _, _, perr := typenc.ParseMethod(e.Types); perr != nil {
				err = multierr.Append(err, fmt.Errorf("objcmsg: %s: %w", sel, perr))
				continue
			}
		}
		if h, ok := t.m[sel]; ok {
			if e.Types != "" || e.Like != "" {
				h.Types, h.Like = e.Types, e.Like
			}
			continue
		}
		fn, ok := fns[e.Fn]
		if !ok {
			err = multierr.Append(err, fmt.Errorf("objcmsg: no function %q for %s", e.Fn, sel))
			continue
		}
		t.Msg(sel, fn, Types(e.Types), Like(e.Like))
	}
	return err
}

// Manifest describes the handlers in t.
func (t *Table) Manifest() *Manifest {
	m := Manifest{Handlers: make(map[string]ManifestEntry, len(t.m))}
	if t.typ != nil {
		m.Type = t.typ.String()
	}
	for sel, h := range t.m {
		m.Handlers[sel] = ManifestEntry{Fn: h.Name, Types: h.Types, Like: h.Like}
	}
	return &m
}
