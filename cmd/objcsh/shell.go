package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/zephyrtronium/objcmsg"
)

// shell sends the chains typed into objcsh.
type shell struct {
	c *objcmsg.Client
	// last is the result of the previous line.
	last interface{}
}

// run parses and sends one line.
func (sh *shell) run(line string) (interface{}, error) {
	params, err := sh.parse(line)
	if err != nil {
		return nil, err
	}
	if len(params) == 0 {
		return sh.last, nil
	}
	msgs, err := sh.c.BuildChain(params...)
	if err != nil {
		return nil, err
	}
	r, err := sh.c.SendChain(msgs...)
	if err != nil {
		return nil, err
	}
	if r != nil {
		sh.last = r
	}
	return r, nil
}

// describe formats a result for printing.
func (sh *shell) describe(r interface{}) string {
	switch x := r.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(x)
	case objcmsg.Handle:
		if x == objcmsg.Nil {
			return "nil"
		}
		return fmt.Sprintf("<%s %v>", sh.c.Bridge().Runtime().ObjectClassName(x), x)
	case *objcmsg.Wrapper:
		return fmt.Sprintf("<%s %v> %s", sh.c.Bridge().Runtime().ObjectClassName(x.Peer()), x.Peer(), x.String())
	}
	return fmt.Sprint(r)
}

var errNoPrevious = errors.New("objcsh: no previous result")

// parse converts a line to the parameters of Client.BuildChain. Messages are
// separated by semicolons.
func (sh *shell) parse(line string) ([]interface{}, error) {
	toks, err := tokenize(line)
	if err != nil {
		return nil, err
	}
	var params []interface{}
	for len(toks) > 0 {
		k := 0
		for k < len(toks) && toks[k].kind != tokSep {
			k++
		}
		msg := toks[:k]
		if k < len(toks) {
			k++
		}
		toks = toks[k:]
		if len(msg) == 0 {
			continue
		}
		p, err := sh.message(msg, len(params) == 0)
		if err != nil {
			return nil, err
		}
		if len(params) > 0 {
			params = append(params, nil)
		}
		params = append(params, p...)
	}
	return params, nil
}

// previous returns the previous line's result as a receiver.
func (sh *shell) previous() (interface{}, error) {
	switch x := sh.last.(type) {
	case nil:
		return nil, errNoPrevious
	case objcmsg.Handle, objcmsg.Peerable:
		return x, nil
	case string:
		return sh.c.NSString(x)
	}
	return nil, fmt.Errorf("objcsh: previous result %v is not an object", sh.last)
}

// message converts the tokens of one message. first is true for the first
// message of a line, whose _ receiver is the previous line's result.
func (sh *shell) message(toks []token, first bool) ([]interface{}, error) {
	if toks[0].kind != tokWord {
		return nil, fmt.Errorf("objcsh: receiver must be a class name or _, not %s", toks[0].text)
	}
	var recv interface{} = toks[0].text
	if toks[0].text == "_" && first {
		r, err := sh.previous()
		if err != nil {
			return nil, err
		}
		recv = r
	}
	if len(toks) < 2 {
		return nil, fmt.Errorf("objcsh: message to %s has no selector", toks[0].text)
	}
	if toks[1].kind == tokWord && !strings.HasSuffix(toks[1].text, ":") {
		if len(toks) > 2 {
			return nil, fmt.Errorf("objcsh: unary selector %s takes no arguments", toks[1].text)
		}
		return []interface{}{recv, toks[1].text}, nil
	}
	var sel strings.Builder
	var args []interface{}
	for i := 1; i < len(toks); i++ {
		kw := toks[i]
		if kw.kind != tokWord || !strings.HasSuffix(kw.text, ":") {
			return nil, fmt.Errorf("objcsh: expected keyword, got %s", kw.text)
		}
		i++
		if i >= len(toks) {
			return nil, fmt.Errorf("objcsh: keyword %s has no argument", kw.text)
		}
		v, err := toks[i].value()
		if err != nil {
			return nil, err
		}
		sel.WriteString(kw.text)
		args = append(args, v)
	}
	return append([]interface{}{recv, sel.String()}, args...), nil
}

type tokKind int

const (
	tokWord tokKind = iota
	tokString
	tokNumber
	tokSep
)

type token struct {
	kind tokKind
	text string
}

// value returns the argument a token denotes.
func (t token) value() (interface{}, error) {
	switch t.kind {
	case tokString:
		return strconv.Unquote(t.text)
	case tokNumber:
		if n, err := strconv.ParseInt(t.text, 0, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("objcsh: bad number %s", t.text)
		}
		return f, nil
	case tokWord:
		switch t.text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "nil":
			// A nil parameter would end the message.
			return objcmsg.Nil, nil
		}
		return nil, fmt.Errorf("objcsh: %s is not a value", t.text)
	}
	return nil, fmt.Errorf("objcsh: unexpected %s", t.text)
}

func tokenize(line string) ([]token, error) {
	var toks []token
	for {
		line = strings.TrimLeftFunc(line, unicode.IsSpace)
		if line == "" {
			return toks, nil
		}
		switch c := line[0]; {
		case c == ';':
			toks = append(toks, token{tokSep, ";"})
			line = line[1:]
		case c == '"' || c == '`':
			q, err := strconv.QuotedPrefix(line)
			if err != nil {
				return nil, fmt.Errorf("objcsh: unterminated string")
			}
			toks = append(toks, token{tokString, q})
			line = line[len(q):]
		default:
			k := strings.IndexFunc(line, func(r rune) bool { return unicode.IsSpace(r) || r == ';' })
			if k < 0 {
				k = len(line)
			}
			w := line[:k]
			kind := tokWord
			if c == '-' || c == '+' || c == '.' || ('0' <= c && c <= '9') {
				kind = tokNumber
			}
			toks = append(toks, token{kind, w})
			line = line[k:]
		}
	}
}
