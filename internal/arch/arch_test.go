package arch

import "testing"

// TestParse tests that machine names map to families.
func TestParse(t *testing.T) {
	cases := map[string]Family{
		"x86_64":  X86_64,
		"amd64":   X86_64,
		"arm64":   ARM64,
		"aarch64": ARM64,
		" ARM64 ": ARM64,
		"arm64e":  ARM64,
		"riscv64": Unknown,
		"":        Unknown,
	}
	for m, want := range cases {
		if got := Parse(m); got != want {
			t.Errorf("Parse(%q): want %v, got %v", m, want, got)
		}
	}
}

// TestDetect tests that detection is stable.
func TestDetect(t *testing.T) {
	a, b := Detect(), Detect()
	if a != b {
		t.Errorf("Detect changed from %v to %v", a, b)
	}
	if Parse(a.String()) != a {
		t.Errorf("family %v does not round-trip through its name", a)
	}
}
