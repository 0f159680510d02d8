package strata

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DocField is one schema field scheduled for encoding: its dot-path name,
// typed value, and the documentation comment to attach.
type DocField struct {
	Name  string
	Value Value
	Doc   string
}

// UnknownEntry is a file entry the schema does not declare. Materialization
// carries unknown entries through rewrites verbatim, never deleting them
// unless an explicit prune is requested.
type UnknownEntry struct {
	Name string
	Raw  any
}

// Document is the format-independent shape handed to codecs: an optional
// header comment, schema fields in declaration order, and preserved unknown
// entries.
type Document struct {
	Header  string
	Fields  []DocField
	Unknown []UnknownEntry
}

// Codec is the capability any serialization format must satisfy. Encode and
// Decode must round-trip: decoding the output of Encode yields a flat map
// whose coerced values equal the encoded ones.
type Codec interface {
	// Encode renders the document as text, attaching each field's doc as a
	// comment in the format's comment syntax where the format has one.
	Encode(doc Document) ([]byte, error)

	// Decode parses text into a flat map keyed by dot-separated field paths.
	Decode(data []byte) (map[string]any, error)

	// Exts lists the file extensions (with leading dot) the codec claims.
	Exts() []string
}

// builtinCodecs is consulted in order by CodecForPath and DetectCodec.
// JSON is sniffed first (strictest grammar), YAML before TOML because YAML
// accepts a superset of JSON.
var builtinCodecs = []Codec{JSONCodec{}, YAMLCodec{}, TOMLCodec{}}

// CodecForPath selects a built-in codec by file extension.
func CodecForPath(path string) (Codec, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, c := range builtinCodecs {
		for _, claimed := range c.Exts() {
			if ext == claimed {
				return c, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
}

// DetectCodec sniffs file content when the extension is not conclusive.
func DetectCodec(data []byte) (Codec, error) {
	var jsonProbe any
	if err := json.Unmarshal(data, &jsonProbe); err == nil {
		return JSONCodec{}, nil
	}
	// Probe YAML into a mapping: any text is a valid YAML scalar, so a bare
	// interface probe would claim TOML content too.
	var yamlProbe map[string]any
	if err := yaml.Unmarshal(data, &yamlProbe); err == nil && yamlProbe != nil {
		return YAMLCodec{}, nil
	}
	var tomlProbe any
	if err := toml.Unmarshal(data, &tomlProbe); err == nil {
		return TOMLCodec{}, nil
	}
	return nil, fmt.Errorf("%w: content matches no known format", ErrUnsupportedFormat)
}
