package strata

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/BurntSushi/toml"
)

// TOMLCodec encodes documents as TOML, one "# ..." doc comment above each
// key, dotted field paths grouped into [table] sections.
type TOMLCodec struct{}

// Exts implements Codec.
func (TOMLCodec) Exts() []string { return []string{".toml", ".tml"} }

// Decode implements Codec.
func (TOMLCodec) Decode(data []byte) (map[string]any, error) {
	tree := make(map[string]any)
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return flattenTree(tree, ""), nil
}

// Encode implements Codec. Root-level keys come first so they are not
// swallowed by a preceding table header; sections follow in first-appearance
// order of the document's fields.
func (TOMLCodec) Encode(doc Document) ([]byte, error) {
	type line struct {
		key      string
		rendered string
		doc      string
	}
	groups := map[string][]line{}
	var order []string
	seen := map[string]bool{"": true}
	order = append(order, "")

	add := func(path string, rendered, docText string) {
		table, key := splitPath(path)
		if !seen[table] {
			seen[table] = true
			order = append(order, table)
		}
		groups[table] = append(groups[table], line{key: key, rendered: rendered, doc: docText})
	}

	for _, f := range doc.Fields {
		rendered, err := renderTOMLValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		add(f.Name, rendered, f.Doc)
	}
	for _, u := range doc.Unknown {
		rendered, err := renderTOMLRaw(u.Raw)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", u.Name, err)
		}
		add(u.Name, rendered, "")
	}

	var b strings.Builder
	if doc.Header != "" {
		writeCommentBlock(&b, doc.Header)
		b.WriteByte('\n')
	}
	for i, table := range order {
		lines := groups[table]
		if len(lines) == 0 {
			continue
		}
		if table != "" {
			if i > 0 && b.Len() > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "[%s]\n", table)
		}
		for _, l := range lines {
			if l.doc != "" {
				writeCommentBlock(&b, l.doc)
			}
			fmt.Fprintf(&b, "%s = %s\n", l.key, l.rendered)
		}
	}
	return []byte(b.String()), nil
}

func writeCommentBlock(b *strings.Builder, text string) {
	for _, commentLine := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if commentLine == "" {
			b.WriteString("#\n")
		} else {
			b.WriteString("# ")
			b.WriteString(commentLine)
			b.WriteByte('\n')
		}
	}
}

func renderTOMLValue(v Value) (string, error) {
	switch v.Kind() {
	case KindBool:
		return strconv.FormatBool(v.b), nil
	case KindInt:
		return strconv.FormatInt(v.n, 10), nil
	case KindFloat:
		return renderTOMLFloat(v.f), nil
	case KindString, KindEnum:
		return quoteTOML(v.s), nil
	case KindDuration:
		return quoteTOML(time.Duration(v.n).String()), nil
	case KindStrings:
		quoted := make([]string, len(v.list))
		for i, s := range v.list {
			quoted[i] = quoteTOML(s)
		}
		return "[" + strings.Join(quoted, ", ") + "]", nil
	}
	return "", fmt.Errorf("cannot render %s value as TOML", v.Kind())
}

func renderTOMLRaw(raw any) (string, error) {
	switch x := raw.(type) {
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return renderTOMLFloat(x), nil
	case string:
		return quoteTOML(x), nil
	case []string:
		quoted := make([]string, len(x))
		for i, s := range x {
			quoted[i] = quoteTOML(s)
		}
		return "[" + strings.Join(quoted, ", ") + "]", nil
	case []any:
		rendered := make([]string, len(x))
		for i, item := range x {
			r, err := renderTOMLRaw(item)
			if err != nil {
				return "", err
			}
			rendered[i] = r
		}
		return "[" + strings.Join(rendered, ", ") + "]", nil
	case map[string]any:
		return renderTOMLInlineTable(x)
	case []map[string]any:
		// Arrays of tables ([[...]]) decode to this shape; re-encode them as
		// an array of inline tables so the entry survives a rewrite.
		rendered := make([]string, len(x))
		for i, item := range x {
			r, err := renderTOMLInlineTable(item)
			if err != nil {
				return "", err
			}
			rendered[i] = r
		}
		return "[" + strings.Join(rendered, ", ") + "]", nil
	case time.Time:
		return x.Format(time.RFC3339), nil
	}
	return "", fmt.Errorf("cannot render %T as TOML", raw)
}

// renderTOMLInlineTable renders a decoded table as an inline table, keys
// sorted for stable rewrites.
func renderTOMLInlineTable(table map[string]any) (string, error) {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		v, err := renderTOMLRaw(table[k])
		if err != nil {
			return "", err
		}
		key := k
		if !isValidKeySegment(key) {
			key = quoteTOML(key)
		}
		pairs[i] = key + " = " + v
	}
	return "{" + strings.Join(pairs, ", ") + "}", nil
}

// renderTOMLFloat formats a float so TOML reads it back as a float, never an
// integer.
func renderTOMLFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") && !strings.Contains(s, "inf") && !strings.Contains(s, "NaN") {
		s += ".0"
	}
	return s
}

// quoteTOML renders a TOML basic string.
func quoteTOML(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x20 || !unicode.IsPrint(r) && r < 0x80 {
				fmt.Fprintf(&b, `\u%04X`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
