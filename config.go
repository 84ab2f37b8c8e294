package objcmsg

import (
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/zephyrtronium/objcmsg/internal/arch"
)

// Config holds the settings of a Bridge.
type Config struct {
	// Strict makes narrowing conversions of native integers fail with
	// UnsupportedConversion when given a value that is not an integer.
	// Otherwise such values pass through unchanged.
	Strict bool `yaml:"strict"`
	// StringClasses names the native classes whose instances the object
	// converter decodes as Go strings.
	StringClasses []string `yaml:"string_classes"`
	// CStringEncoding is the text encoding of C strings. Recognized values
	// are utf-8, macintosh, windows-1252, utf-16le, and utf-32le.
	CStringEncoding string `yaml:"cstring_encoding"`
	// Arch overrides the detected CPU family. It is x86_64, arm64, or empty
	// to detect at run time.
	Arch string `yaml:"arch"`
	// StructSignatures lists additional by-value structure argument patterns
	// the trampoline accepts, one character per argument, 1 for structures
	// and 0 otherwise.
	StructSignatures []string `yaml:"struct_signatures"`
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		StringClasses: []string{
			"NSString",
			"__NSCFString",
			"__NSCFConstantString",
			"NSTaggedPointerString",
			"NSMutableString",
			"NSPathStore2",
		},
		CStringEncoding: "utf-8",
	}
}

// LoadConfig reads YAML settings from r. Settings absent from the document
// keep their default values.
func LoadConfig(r io.Reader) (Config, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return Config{}, err
	}
	cfg := DefaultConfig()
	if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("objcmsg: error reading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the settings are usable.
func (c Config) Validate() error {
	if c.Arch != "" && arch.Parse(c.Arch) == arch.Unknown {
		return fmt.Errorf("objcmsg: unknown arch %q", c.Arch)
	}
	if _, err := stringConverter(c.CStringEncoding); err != nil {
		return err
	}
	for _, sig := range c.StructSignatures {
		if len(sig) == 0 || len(sig) > MaxArgs || strings.Trim(sig, "01") != "" || !strings.Contains(sig, "1") {
			return fmt.Errorf("objcmsg: invalid struct signature %q", sig)
		}
	}
	return nil
}

// family returns the CPU family the settings select.
func (c Config) family() arch.Family {
	if c.Arch != "" {
		return arch.Parse(c.Arch)
	}
	return arch.Detect()
}

// isStringClass reports whether instances of the named class are decoded as
// strings.
func (c Config) isStringClass(name string) bool {
	for _, s := range c.StringClasses {
		if s == name {
			return true
		}
	}
	return false
}
