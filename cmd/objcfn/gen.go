package main

import (
	"go/types"
	"io"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dave/jennifer/jen"
)

// handler is a function found to handle a selector.
type handler struct {
	selector string
	// name is the method or function name.
	name string
	// pkg is the import path of a generic handler.
	pkg string
	// method is true for methods of the receiver type.
	method bool
}

type finder struct {
	match, ignore *regexp.Regexp
}

func (f finder) wanted(name string) bool {
	return f.match.MatchString(name) && !f.ignore.MatchString(name)
}

// methods finds the exported methods declared on named. Methods promoted from
// embedded fields are not included.
func (f finder) methods(named *types.Named) []handler {
	var r []handler
	for i := 0; i < named.NumMethods(); i++ {
		m := named.Method(i)
		if !m.Exported() || !f.wanted(m.Name()) {
			continue
		}
		sig := m.Type().(*types.Signature)
		r = append(r, handler{
			selector: keywords(m.Name(), sig.Params().Len()),
			name:     m.Name(),
			method:   true,
		})
	}
	return r
}

// generic finds the functions in pkg assignable to fn.
func (f finder) generic(pkg *types.Package, fn types.Type) []handler {
	var r []handler
	scope := pkg.Scope()
	for _, name := range scope.Names() {
		obj, ok := scope.Lookup(name).(*types.Func)
		if !ok || !f.wanted(name) || !types.AssignableTo(obj.Type(), fn) {
			continue
		}
		trimmed := trimMatch(name, f.match)
		r = append(r, handler{
			selector: keywords(trimmed, strings.Count(trimmed, "_")),
			name:     name,
			pkg:      pkg.Path(),
		})
	}
	return r
}

// keywords derives a selector with n keywords from a Go name. Underscores in
// the name separate keywords; parts beyond the last keyword join it, and
// missing keywords are empty.
func keywords(name string, n int) string {
	var parts []string
	for _, p := range strings.Split(name, "_") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if n == 0 {
		return lowerFirst(strings.Join(parts, ""))
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		switch {
		case i == n-1 && i < len(parts):
			b.WriteString(lowerFirst(strings.Join(parts[i:], "")))
		case i < len(parts):
			b.WriteString(lowerFirst(parts[i]))
		}
		b.WriteByte(':')
	}
	return b.String()
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}

// trimMatch removes the part of name up to the end of the match, so that
// -match can select functions by prefix.
func trimMatch(name string, mre *regexp.Regexp) string {
	if mre.String() != "." {
		k := mre.FindStringIndex(name)
		if k != nil && k[1] < len(name) {
			name = name[k[1]:]
		}
	}
	return name
}

func sortHandlers(hs []handler) {
	sort.Slice(hs, func(i, j int) bool { return hs[i].selector < hs[j].selector })
}

// generate writes a Handlers method for typ registering hs.
func generate(w io.Writer, path, pkgName, objcmsgPath, typ string, hs []handler) error {
	f := jen.NewFilePathName(path, pkgName)
	f.HeaderComment("Code generated by objcfn. DO NOT EDIT.")
	f.Commentf("Handlers registers the handlers of %s.", typ)
	f.Func().Params(jen.Op("*").Id(typ)).Id("Handlers").Params(jen.Id("t").Op("*").Qual(objcmsgPath, "Table")).BlockFunc(func(g *jen.Group) {
		for _, h := range hs {
			if h.method {
				g.Id("t").Dot("Msg").Call(jen.Lit(h.selector), jen.Parens(jen.Op("*").Id(typ)).Dot(h.name))
				continue
			}
			g.Id("t").Dot("Msg").Call(jen.Lit(h.selector), jen.Qual(objcmsgPath, "HandlerFunc").Call(jen.Qual(h.pkg, h.name)))
		}
	})
	return f.Render(w)
}
