//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build aix darwin dragonfly freebsd linux netbsd openbsd solaris

package arch

import (
	"bytes"

	"golang.org/x/sys/unix"
)

func machine() string {
	var uname unix.Utsname
	if unix.Uname(&uname) != nil {
		// If uname failed, the caller falls back to GOARCH.
		return ""
	}
	m := string(bytes.Trim(uname.Machine[:], "\x00"))
	if translated() {
		return "x86_64"
	}
	return m
}
