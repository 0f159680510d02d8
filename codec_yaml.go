package strata

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLCodec encodes documents as YAML, using the node API so each field's
// doc string becomes a head comment on its key and dotted paths become
// nested mappings.
type YAMLCodec struct{}

// Exts implements Codec.
func (YAMLCodec) Exts() []string { return []string{".yaml", ".yml"} }

// Decode implements Codec.
func (YAMLCodec) Decode(data []byte) (map[string]any, error) {
	tree := make(map[string]any)
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return flattenTree(tree, ""), nil
}

// Encode implements Codec.
func (YAMLCodec) Encode(doc Document) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	for _, f := range doc.Fields {
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(f.Value.Interface()); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		insertYAMLNode(root, strings.Split(f.Name, "."), valueNode, f.Doc)
	}
	for _, u := range doc.Unknown {
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(u.Raw); err != nil {
			return nil, fmt.Errorf("entry %q: %w", u.Name, err)
		}
		insertYAMLNode(root, strings.Split(u.Name, "."), valueNode, "")
	}

	document := &yaml.Node{
		Kind:        yaml.DocumentNode,
		Content:     []*yaml.Node{root},
		HeadComment: doc.Header,
	}
	return yaml.Marshal(document)
}

// insertYAMLNode walks/creates nested mappings along the path segments and
// attaches the value node at the leaf, with the doc as the leaf key's head
// comment.
func insertYAMLNode(mapping *yaml.Node, segments []string, value *yaml.Node, doc string) {
	head := segments[0]

	if len(segments) == 1 {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: head, HeadComment: doc}
		mapping.Content = append(mapping.Content, key, value)
		return
	}

	child := findYAMLChild(mapping, head)
	if child == nil {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: head}
		child = &yaml.Node{Kind: yaml.MappingNode}
		mapping.Content = append(mapping.Content, key, child)
	}
	insertYAMLNode(child, segments[1:], value, doc)
}

func findYAMLChild(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key && mapping.Content[i+1].Kind == yaml.MappingNode {
			return mapping.Content[i+1]
		}
	}
	return nil
}
