package objcmsg

import (
	"sync"

	"github.com/zephyrtronium/objcmsg/typenc"
)

// A Converter converts values of one family of type encodings between their
// native and Go representations.
type Converter interface {
	// ToGo converts a native value described by enc to a Go value.
	ToGo(c *Client, v interface{}, enc string) (interface{}, error)
	// ToNative converts a Go value to the native representation enc
	// describes.
	ToNative(c *Client, v interface{}, enc string) (interface{}, error)
}

// Mapper dispatches conversions to the Converter registered for the tag of
// each encoding. A Mapper is itself a Converter.
type Mapper struct {
	mu    sync.RWMutex
	convs map[byte]Converter
}

// Tag sets recognized by the default converters.
const (
	ScalarTags    = "cCiIsSfdlLqQbB[:?#v"
	StringTags    = "*"
	PointerTags   = "^"
	ObjectTags    = "@"
	StructureTags = "{("
)

// NewMapper creates a Mapper with no converters.
func NewMapper() *Mapper {
	return &Mapper{convs: make(map[byte]Converter)}
}

// DefaultMapper creates a Mapper with the standard converters configured by
// cfg.
func DefaultMapper(cfg Config) (*Mapper, error) {
	str, err := stringConverter(cfg.CStringEncoding)
	if err != nil {
		return nil, err
	}
	m := NewMapper()
	m.Register(ScalarTags, Scalar{Strict: cfg.Strict})
	m.Register(StringTags, str)
	m.Register(PointerTags, Pointer{})
	m.Register(ObjectTags, Object{})
	m.Register(StructureTags, Structure{})
	return m, nil
}

// Register sets conv as the converter for each tag character in tags,
// replacing any previous converter.
func (m *Mapper) Register(tags string, conv Converter) {
	m.mu.Lock()
	for i := 0; i < len(tags); i++ {
		m.convs[tags[i]] = conv
	}
	m.mu.Unlock()
}

// Lookup returns the converter for enc after qualifiers are stripped.
func (m *Mapper) Lookup(enc string) (Converter, error) {
	tag := typenc.Tag(enc)
	m.mu.RLock()
	conv := m.convs[tag]
	m.mu.RUnlock()
	if conv == nil {
		return nil, &UnknownTypeEncodingError{Encoding: enc}
	}
	return conv, nil
}

// ToGo converts a native value using the converter for enc.
func (m *Mapper) ToGo(c *Client, v interface{}, enc string) (interface{}, error) {
	conv, err := m.Lookup(enc)
	if err != nil {
		return nil, err
	}
	return conv.ToGo(c, v, typenc.Strip(enc))
}

// ToNative converts a Go value using the converter for enc.
func (m *Mapper) ToNative(c *Client, v interface{}, enc string) (interface{}, error) {
	conv, err := m.Lookup(enc)
	if err != nil {
		return nil, err
	}
	return conv.ToNative(c, v, typenc.Strip(enc))
}
