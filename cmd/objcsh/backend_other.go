//go:build !darwin

package main

import (
	"fmt"

	"github.com/zephyrtronium/objcmsg"
)

func native(cfg objcmsg.Config) (*objcmsg.Bridge, error) {
	return nil, fmt.Errorf("%w on this system; use -sim", objcmsg.ErrNoRuntime)
}
