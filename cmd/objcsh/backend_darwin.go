//go:build darwin

package main

import (
	"github.com/zephyrtronium/objcmsg"
	"github.com/zephyrtronium/objcmsg/darwin"
)

func native(cfg objcmsg.Config) (*objcmsg.Bridge, error) {
	return darwin.New(cfg)
}
