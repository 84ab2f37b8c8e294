//go:build !darwin && (aix || dragonfly || freebsd || linux || netbsd || openbsd || solaris)
// +build !darwin
// +build aix dragonfly freebsd linux netbsd openbsd solaris

package arch

func translated() bool {
	return false
}
