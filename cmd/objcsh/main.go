// Command objcsh is an interactive shell for sending Objective-C messages.
//
// Each line is a chain of messages separated by semicolons. A message is a
// receiver followed by a selector in Objective-C order:
//
//	objc> NSString stringWithUTF8String: "hello" ; _ uppercaseString
//
// The receiver _ is the result of the previous message, or at the start of a
// line the last result of the previous lines. Arguments are quoted strings,
// numbers, true, false, or nil.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/zephyrtronium/objcmsg"
)

func main() {
	var sim, verbose, raw bool
	var configPath string
	flag.BoolVar(&sim, "sim", false, "use a simulated runtime instead of the native one")
	flag.BoolVar(&verbose, "v", false, "log every message")
	flag.BoolVar(&raw, "raw", false, "do not convert arguments and results")
	flag.StringVar(&configPath, "config", "", "YAML bridge configuration file")
	flag.Parse()

	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fail("could not create logger:", err)
		}
		defer l.Sync()
		objcmsg.SetLogger(l)
	}
	cfg := objcmsg.DefaultConfig()
	if configPath != "" {
		f, err := os.Open(configPath)
		if err != nil {
			fail(err)
		}
		cfg, err = objcmsg.LoadConfig(f)
		f.Close()
		if err != nil {
			fail(err)
		}
	}
	b, err := open(sim, cfg)
	if err != nil {
		fail(err)
	}
	c := b.Client()
	if raw {
		c = c.WithCoercion(false, false)
	}

	sh := shell{c: c}
	stdin := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("objc> ")
		if !stdin.Scan() {
			break
		}
		line := stdin.Text()
		if line == "exit" {
			break
		}
		r, err := sh.run(line)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		fmt.Println(sh.describe(r))
	}
	if err := stdin.Err(); err != nil {
		fail(err)
	}
}

func fail(args ...interface{}) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}
