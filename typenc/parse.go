package typenc

import (
	"fmt"
	"strings"
)

// Type is a parsed type encoding.
type Type struct {
	// Tag is the tag character of the type.
	Tag byte
	// Qualifiers holds the qualifier characters that preceded the type.
	Qualifiers string
	// Name is the name of a structure or union, or the class name of an
	// object type written as @"Name".
	Name string
	// Len is the element count of an array or the width of a bit field.
	Len int
	// Elem is the pointed-to type of a pointer or the element type of an
	// array. It is nil for ^? and for all other kinds.
	Elem *Type
	// Fields are the members of a structure or union. A structure written
	// without its members, as in {CGRect}, has no fields.
	Fields []*Type
	// FieldNames holds the names of members for encodings that quote them,
	// as in {CGPoint="x"d"y"d}. It is either empty or parallel to Fields.
	FieldNames []string
	// Block is set for @? encodings.
	Block bool
	// Enc is the text of the encoding, excluding qualifiers and offsets.
	Enc string
}

// Kind returns the kind of t.
func (t *Type) Kind() Kind {
	return KindOf(t.Tag)
}

// String returns the encoding of t including its qualifiers.
func (t *Type) String() string {
	return t.Qualifiers + t.Enc
}

// SyntaxError is an error parsing a type encoding.
type SyntaxError struct {
	// Enc is the encoding being parsed.
	Enc string
	// Offset is the index into Enc at which the error was detected.
	Offset int
	// Msg describes the error.
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("typenc: %s at offset %d in %q", e.Msg, e.Offset, e.Enc)
}

// Parse parses a single type from enc. Trailing offset digits are allowed;
// any other trailing text is an error.
func Parse(enc string) (*Type, error) {
	p := parser{s: enc}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	p.skipOffset()
	if p.i < len(p.s) {
		return nil, p.errorf("unexpected trailing text")
	}
	return t, nil
}

// MustParse is like Parse but panics if the encoding cannot be parsed.
func MustParse(enc string) *Type {
	t, err := Parse(enc)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseMethod parses a method type string, such as "v24@0:8@16", into its
// return type and argument types. The arguments include the receiver and
// selector.
func ParseMethod(types string) (ret *Type, args []*Type, err error) {
	p := parser{s: types}
	ret, err = p.parse()
	if err != nil {
		return nil, nil, err
	}
	p.skipOffset()
	for p.i < len(p.s) {
		t, err := p.parse()
		if err != nil {
			return nil, nil, err
		}
		args = append(args, t)
		p.skipOffset()
	}
	return ret, args, nil
}

// Split splits a method type string into the encodings of its return type and
// arguments, with qualifiers kept and offsets removed.
func Split(types string) ([]string, error) {
	ret, args, err := ParseMethod(types)
	if err != nil {
		return nil, err
	}
	r := make([]string, 0, len(args)+1)
	r = append(r, ret.String())
	for _, a := range args {
		r = append(r, a.String())
	}
	return r, nil
}

type parser struct {
	s string
	i int
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Enc: p.s, Offset: p.i, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) peek() byte {
	if p.i < len(p.s) {
		return p.s[p.i]
	}
	return 0
}

func (p *parser) skipOffset() {
	if p.peek() == '-' {
		p.i++
	}
	for p.i < len(p.s) && '0' <= p.s[p.i] && p.s[p.i] <= '9' {
		p.i++
	}
}

// number consumes a decimal count of the thing named by what.
func (p *parser) number(what string) (int, error) {
	start := p.i
	n := 0
	for p.i < len(p.s) && isDigit(p.s[p.i]) {
		d := int(p.s[p.i] - '0')
		if n > (MaxCount-d)/10 {
			p.i = start
			return 0, p.errorf("%s too large", what)
		}
		n = n*10 + d
		p.i++
	}
	if p.i == start {
		return 0, p.errorf("missing %s", what)
	}
	return n, nil
}

// quoted consumes a "..." sequence and returns its contents.
func (p *parser) quoted() (string, error) {
	p.i++
	k := strings.IndexByte(p.s[p.i:], '"')
	if k < 0 {
		return "", p.errorf("unterminated quoted name")
	}
	r := p.s[p.i : p.i+k]
	p.i += k + 1
	return r, nil
}

func (p *parser) parse() (*Type, error) {
	qs := p.i
	for p.i < len(p.s) && strings.IndexByte(Qualifiers, p.s[p.i]) >= 0 {
		p.i++
	}
	if p.i >= len(p.s) {
		return nil, p.errorf("missing type")
	}
	t := &Type{Tag: p.s[p.i], Qualifiers: p.s[qs:p.i]}
	start := p.i
	p.i++
	switch t.Tag {
	case 'v', 'c', 'C', 's', 'S', 'i', 'I', 'l', 'L', 'q', 'Q', 'f', 'd', 'B', '*', '#', ':', '?':
		// single character
	case '@':
		switch p.peek() {
		case '?':
			p.i++
			t.Block = true
		case '"':
			// A quoted name after @ inside a structure can instead be the
			// name of the next field. Only take it as a class name if it is
			// not followed by another type.
			save := p.i
			name, err := p.quoted()
			if err != nil {
				return nil, err
			}
			if c := p.peek(); c == '"' || c == '}' || c == ')' || c == 0 || isDigit(c) || KindOf(c) == Invalid {
				t.Name = name
			} else {
				p.i = save
			}
		}
	case '^':
		if p.peek() == '?' {
			p.i++
			break
		}
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		t.Elem = elem
	case '[':
		n, err := p.number("array length")
		if err != nil {
			return nil, err
		}
		t.Len = n
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		t.Elem = elem
		if p.peek() != ']' {
			return nil, p.errorf("expected ']'")
		}
		if es := elem.Size(); es > 0 && n > MaxSize/es {
			p.i = start
			return nil, p.errorf("array too large")
		}
		p.i++
	case '{', '(':
		if err := p.aggregate(t); err != nil {
			return nil, err
		}
		if t.Size() > MaxSize {
			p.i = start
			return nil, p.errorf("aggregate too large")
		}
	case 'b':
		n, err := p.number("bit field width")
		if err != nil {
			return nil, err
		}
		t.Len = n
	default:
		p.i--
		return nil, p.errorf("unknown type %q", t.Tag)
	}
	t.Enc = p.s[start:p.i]
	return t, nil
}

func (p *parser) aggregate(t *Type) error {
	end := byte('}')
	if t.Tag == '(' {
		end = ')'
	}
	k := strings.IndexAny(p.s[p.i:], "=}){(")
	if k < 0 {
		return p.errorf("unterminated aggregate")
	}
	t.Name = p.s[p.i : p.i+k]
	p.i += k
	switch p.peek() {
	case end:
		p.i++
		return nil
	case '=':
		p.i++
	default:
		return p.errorf("expected '=' or %q", end)
	}
	for p.peek() != end {
		if p.i >= len(p.s) {
			return p.errorf("unterminated aggregate")
		}
		name := ""
		if p.peek() == '"' {
			var err error
			if name, err = p.quoted(); err != nil {
				return err
			}
		}
		f, err := p.parse()
		if err != nil {
			return err
		}
		if name != "" || len(t.FieldNames) > 0 {
			for len(t.FieldNames) < len(t.Fields) {
				t.FieldNames = append(t.FieldNames, "")
			}
			t.FieldNames = append(t.FieldNames, name)
		}
		t.Fields = append(t.Fields, f)
	}
	p.i++
	return nil
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
