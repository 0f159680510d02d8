package strata

import (
	"bytes"
	"encoding/json"
	"strings"
)

// JSONCodec encodes documents as indented JSON. The format has no comment
// syntax, so field docs and headers are omitted; TOML or YAML are the
// formats of choice when the file is meant to be self-documenting.
type JSONCodec struct{}

// Exts implements Codec.
func (JSONCodec) Exts() []string { return []string{".json"} }

// Decode implements Codec. Numbers are decoded through json.Number so
// integer precision survives.
func (JSONCodec) Decode(data []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	tree := make(map[string]any)
	if err := decoder.Decode(&tree); err != nil {
		return nil, err
	}
	flat := flattenTree(tree, "")
	for path, raw := range flat {
		flat[path] = normalizeJSON(raw)
	}
	return flat, nil
}

// Encode implements Codec.
func (JSONCodec) Encode(doc Document) ([]byte, error) {
	tree := make(map[string]any)
	for _, f := range doc.Fields {
		setTreeValue(tree, f.Name, f.Value.Interface())
	}
	for _, u := range doc.Unknown {
		setTreeValue(tree, u.Name, u.Raw)
	}
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// normalizeJSON resolves json.Number into int64 when integral, float64
// otherwise, recursing into arrays.
func normalizeJSON(raw any) any {
	switch x := raw.(type) {
	case json.Number:
		if !strings.ContainsAny(x.String(), ".eE") {
			if n, err := x.Int64(); err == nil {
				return n
			}
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		for i, item := range x {
			x[i] = normalizeJSON(item)
		}
		return x
	}
	return raw
}
