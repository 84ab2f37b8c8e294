//go:build darwin
// +build darwin

package arch

import "golang.org/x/sys/unix"

// translated reports whether the process runs under Rosetta.
func translated() bool {
	v, err := unix.SysctlUint32("sysctl.proc_translated")
	return err == nil && v == 1
}
