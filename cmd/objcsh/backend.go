package main

import (
	"github.com/zephyrtronium/objcmsg"
	"github.com/zephyrtronium/objcmsg/internal/arch"
	"github.com/zephyrtronium/objcmsg/testutils"
)

// open creates the Bridge for the shell.
func open(sim bool, cfg objcmsg.Config) (*objcmsg.Bridge, error) {
	if !sim {
		return native(cfg)
	}
	if cfg.Arch == "" {
		cfg.Arch = arch.Detect().String()
		if arch.Detect() == arch.Unknown {
			cfg.Arch = arch.ARM64.String()
		}
	}
	return objcmsg.New(testutils.NewRuntime(cfg.Arch), cfg)
}
