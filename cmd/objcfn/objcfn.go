// Command objcfn lists the handlers of a Go receiver type for objcmsg.
//
// It prints a YAML manifest by default, or with -go a Handlers method that
// registers every handler in an objcmsg.Table. Methods of the -type become
// handlers whose selector has one keyword per parameter, with underscores
// separating keywords: AddObject(x) handles addObject:, and Insert_At(x, i)
// handles insert:at:. Package functions assignable to objcmsg.HandlerFunc
// become generic handlers; since they take any number of arguments, each
// underscore in their names marks one keyword, so Sum_And_ handles sum:and:.
package main

import (
	"flag"
	"fmt"
	"go/token"
	"go/types"
	"os"
	"regexp"

	"golang.org/x/tools/go/packages"

	"github.com/zephyrtronium/objcmsg"
)

func main() {
	var match, ignore string
	var objcmsgPath, typ, pkgName string
	var goOut bool
	flag.StringVar(&match, "match", ".", "include only functions matching this regular expression")
	flag.StringVar(&ignore, "ignore", "^(Handlers|Init)$", "exclude functions matching this regular expression")
	flag.StringVar(&objcmsgPath, "objcmsg", "github.com/zephyrtronium/objcmsg", "import path for package objcmsg source code")
	flag.StringVar(&typ, "type", "", "receiver type whose methods are handlers")
	flag.StringVar(&pkgName, "pkg", "", "package name for Go output (default: that of the first package)")
	flag.BoolVar(&goOut, "go", false, "emit a Go Handlers method instead of a YAML manifest")
	flag.Parse()
	mre, err := regexp.Compile(match)
	if err != nil {
		fail("error compiling match:", err)
	}
	ire, err := regexp.Compile(ignore)
	if err != nil {
		fail("error compiling ignore:", err)
	}
	if flag.NArg() == 0 {
		fail("no packages named")
	}

	fset := token.NewFileSet()
	config := packages.Config{Mode: packages.NeedName | packages.NeedTypes | packages.NeedSyntax | packages.NeedImports, Fset: fset}
	pkgs, err := packages.Load(&config, append([]string{objcmsgPath}, flag.Args()...)...)
	if err != nil {
		fail("error loading packages:", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		os.Exit(1)
	}
	fn, pkgs := getHandlerFunc(pkgs, objcmsgPath)
	if len(pkgs) == 0 {
		fail("no packages to search")
	}
	f := finder{match: mre, ignore: ire}
	var found []handler
	if typ != "" {
		named := lookupType(pkgs, typ)
		if named == nil {
			fail("no type named", typ)
		}
		found = append(found, f.methods(named)...)
	}
	for _, pkg := range pkgs {
		found = append(found, f.generic(pkg.Types, fn)...)
	}
	sortHandlers(found)

	if goOut {
		if typ == "" {
			fail("-go requires -type")
		}
		target := pkgs[0].Types
		if pkgName == "" {
			pkgName = target.Name()
		}
		if err := generate(os.Stdout, target.Path(), pkgName, objcmsgPath, typ, found); err != nil {
			fail("error generating code:", err)
		}
		return
	}
	b, err := manifest(typ, found).Marshal()
	if err != nil {
		fail("error encoding manifest:", err)
	}
	os.Stdout.Write(b)
}

func fail(args ...interface{}) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}

// getHandlerFunc finds objcmsg.HandlerFunc among the loaded packages and
// returns it with the other packages.
func getHandlerFunc(pkgs []*packages.Package, path string) (types.Type, []*packages.Package) {
	var fn types.Type
	var rest []*packages.Package
	for _, pkg := range pkgs {
		if pkg.PkgPath != path {
			rest = append(rest, pkg)
			continue
		}
		r := pkg.Types.Scope().Lookup("HandlerFunc")
		if r == nil {
			fail(pkg.Name, "has no definition of HandlerFunc")
		}
		t, ok := r.(*types.TypeName)
		if !ok {
			fail(pkg.Name, "has incorrect definition of HandlerFunc:", r)
		}
		fn = t.Type()
	}
	if fn == nil {
		fail("package", path, "not loaded")
	}
	return fn, rest
}

func lookupType(pkgs []*packages.Package, name string) *types.Named {
	for _, pkg := range pkgs {
		obj, ok := pkg.Types.Scope().Lookup(name).(*types.TypeName)
		if !ok {
			continue
		}
		if named, ok := obj.Type().(*types.Named); ok {
			return named
		}
	}
	return nil
}

// manifest describes handlers as an objcmsg manifest.
func manifest(typ string, hs []handler) *objcmsg.Manifest {
	m := objcmsg.Manifest{Type: typ, Handlers: make(map[string]objcmsg.ManifestEntry, len(hs))}
	for _, h := range hs {
		m.Handlers[h.selector] = objcmsg.ManifestEntry{Fn: h.name}
	}
	return &m
}
