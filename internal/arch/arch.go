// Package arch determines the CPU family of the running process.
//
// The answer is found at run time rather than from GOARCH because an x86-64
// binary may run under translation on an arm64 host, in which case native
// libraries loaded into the process still follow the x86-64 calling
// convention but the host reports arm64.
package arch

import (
	"runtime"
	"strings"
	"sync"
)

// Family is a CPU architecture family with a distinct calling convention.
type Family int

const (
	// Unknown is a family without a known calling convention.
	Unknown Family = iota
	// X86_64 is the x86-64 family. Its Objective-C runtime has separate
	// entry points for floating-point and large-structure returns.
	X86_64
	// ARM64 is the arm64 family. Its Objective-C runtime returns floats and
	// structures from the standard entry point.
	ARM64
)

func (f Family) String() string {
	switch f {
	case X86_64:
		return "x86_64"
	case ARM64:
		return "arm64"
	}
	return "unknown"
}

// Parse returns the family named by a machine string as reported by uname or
// accepted in configuration files.
func Parse(machine string) Family {
	switch strings.ToLower(strings.TrimSpace(machine)) {
	case "x86_64", "amd64", "x86-64", "x64":
		return X86_64
	case "arm64", "aarch64", "arm64e":
		return ARM64
	}
	return Unknown
}

var (
	detected Family
	once     sync.Once
)

// Detect returns the family of the running process. The result is computed
// once.
func Detect() Family {
	once.Do(func() {
		detected = Parse(machine())
		if detected == Unknown {
			detected = Parse(runtime.GOARCH)
		}
		if detected == ARM64 && runtime.GOARCH == "amd64" {
			// The kernel describes the host, but this process is translated.
			detected = X86_64
		}
	})
	return detected
}
