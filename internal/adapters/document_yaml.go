package adapters

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"sheetforge/internal/document"
)

const (
	yamlArgsKey     = "args"
	yamlChildrenKey = "children"
)

// YAMLDocumentAdapter reads content documents written in YAML. A document
// is a list of single-key mappings; the key names the node and its value is
// the body:
//
//	# items/weapons.yaml
//	- item:
//	    args: [Longsword]
//	    weight: 3
//	    children:
//	      - tag: [martial, versatile]
//	      - mutator: !add_proficiency {args: [weapon, longsword]}
//
// A scalar body is one positional entry and a sequence body is a list of
// them. In a mapping body, args holds positional entries, children holds
// child nodes, scalar values are keyed entries and any other value is a
// child node named by its key. A tag on a body is the node's type; a tag on
// a positional scalar is the entry's type.
type YAMLDocumentAdapter struct{}

func NewYAMLDocumentAdapter() YAMLDocumentAdapter {
	return YAMLDocumentAdapter{}
}

func (a YAMLDocumentAdapter) Extensions() []string {
	return []string{".yaml", ".yml"}
}

func (a YAMLDocumentAdapter) Decode(name string, content []byte) ([]*document.Node, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	var nodes []*document.Node
	for {
		var doc yaml.Node
		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("failed to parse %s", name)).
				WithCause(err)
		}
		if len(doc.Content) == 0 {
			continue
		}
		decoded, err := yamlNodeList(resolveAlias(doc.Content[0]))
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid document %s", name)).
				WithCause(err)
		}
		nodes = append(nodes, decoded...)
	}
	return nodes, nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func customTag(n *yaml.Node) string {
	if n.Tag == "" || n.Tag == "!" || strings.HasPrefix(n.Tag, "!!") || strings.HasPrefix(n.Tag, "tag:yaml.org,2002:") {
		return ""
	}
	return strings.TrimPrefix(n.Tag, "!")
}

// yamlNodeList decodes a list of single-key mappings, or one mapping whose
// keys are nodes in order.
func yamlNodeList(n *yaml.Node) ([]*document.Node, error) {
	switch n.Kind {
	case yaml.SequenceNode:
		var out []*document.Node
		for _, item := range n.Content {
			item = resolveAlias(item)
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("line %d: expected a mapping naming a node", item.Line)
			}
			nodes, err := yamlNodeList(item)
			if err != nil {
				return nil, err
			}
			out = append(out, nodes...)
		}
		return out, nil
	case yaml.MappingNode:
		var out []*document.Node
		for i := 0; i+1 < len(n.Content); i += 2 {
			node, err := yamlNode(n.Content[i], resolveAlias(n.Content[i+1]))
			if err != nil {
				return nil, err
			}
			out = append(out, node)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("line %d: expected a list of nodes", n.Line)
	}
}

func yamlNode(key *yaml.Node, body *yaml.Node) (*document.Node, error) {
	node := &document.Node{Name: key.Value, Type: customTag(body), Line: key.Line}
	switch body.Kind {
	case yaml.ScalarNode:
		value, err := yamlScalar(body, node.Type != "")
		if err != nil {
			return nil, err
		}
		if value.Kind == document.KindNull {
			// `has_armor_equipped:` is a node without entries
			return node, nil
		}
		node.Entries = append(node.Entries, document.Entry{Value: value})
	case yaml.SequenceNode:
		entries, err := yamlPositionals(body)
		if err != nil {
			return nil, err
		}
		node.Entries = entries
	case yaml.MappingNode:
		if err := yamlBody(node, body); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func yamlBody(node *document.Node, body *yaml.Node) error {
	for i := 0; i+1 < len(body.Content); i += 2 {
		key := body.Content[i].Value
		value := resolveAlias(body.Content[i+1])
		switch {
		case key == yamlArgsKey && value.Kind == yaml.SequenceNode:
			entries, err := yamlPositionals(value)
			if err != nil {
				return err
			}
			node.Entries = append(node.Entries, entries...)
		case key == yamlChildrenKey && value.Kind == yaml.SequenceNode:
			children, err := yamlNodeList(value)
			if err != nil {
				return err
			}
			node.Children = append(node.Children, children...)
		case value.Kind == yaml.ScalarNode && customTag(value) == "":
			scalar, err := yamlScalar(value, false)
			if err != nil {
				return err
			}
			node.Entries = append(node.Entries, document.Entry{Key: key, Value: scalar})
		default:
			child, err := yamlNode(body.Content[i], value)
			if err != nil {
				return err
			}
			node.Children = append(node.Children, child)
		}
	}
	return nil
}

func yamlPositionals(seq *yaml.Node) ([]document.Entry, error) {
	entries := make([]document.Entry, 0, len(seq.Content))
	for _, item := range seq.Content {
		item = resolveAlias(item)
		if item.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: positional entries must be scalars", item.Line)
		}
		value, err := yamlScalar(item, customTag(item) != "")
		if err != nil {
			return nil, err
		}
		entries = append(entries, document.Entry{Type: customTag(item), Value: value})
	}
	return entries, nil
}

// yamlScalar converts a scalar; a custom-tagged scalar keeps the type its
// plain form resolves to.
func yamlScalar(n *yaml.Node, tagged bool) (document.Value, error) {
	plain := *n
	if tagged {
		plain.Tag = ""
	}
	var raw any
	if err := plain.Decode(&raw); err != nil {
		return document.Value{}, fmt.Errorf("line %d: %w", n.Line, err)
	}
	switch typed := raw.(type) {
	case nil:
		return document.Null(), nil
	case string:
		return document.String(typed), nil
	case bool:
		return document.Bool(typed), nil
	case int:
		return document.Int(int64(typed)), nil
	case int64:
		return document.Int(typed), nil
	case uint64:
		if typed > math.MaxInt64 {
			return document.Float(float64(typed)), nil
		}
		return document.Int(int64(typed)), nil
	case float64:
		return document.Float(typed), nil
	default:
		return document.String(n.Value), nil
	}
}

func (a YAMLDocumentAdapter) Encode(nodes []*document.Node) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.SequenceNode}
	for _, node := range nodes {
		root.Content = append(root.Content, encodeYAMLNode(node))
	}
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(root); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode document").
			WithCause(err)
	}
	if err := encoder.Close(); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode document").
			WithCause(err)
	}
	return buf.Bytes(), nil
}

func encodeYAMLNode(node *document.Node) *yaml.Node {
	return &yaml.Node{
		Kind:    yaml.MappingNode,
		Content: []*yaml.Node{{Kind: yaml.ScalarNode, Tag: "!!str", Value: node.Name}, encodeYAMLBody(node)},
	}
}

func encodeYAMLBody(node *document.Node) *yaml.Node {
	tag := ""
	if node.Type != "" {
		tag = "!" + node.Type
	}
	positional := node.Positional()
	simple := len(positional) == len(node.Entries) && len(node.Children) == 0
	for _, entry := range positional {
		simple = simple && entry.Type == ""
	}
	switch {
	case simple && len(positional) == 0:
		return &yaml.Node{Kind: yaml.MappingNode, Tag: tagOr(tag, "!!map"), Style: yaml.FlowStyle}
	case simple && len(positional) == 1 && positional[0].Value.Kind != document.KindNull:
		scalar := encodeYAMLScalar(positional[0].Value, tag)
		return scalar
	case simple:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: tagOr(tag, "!!seq"), Style: yaml.FlowStyle}
		for _, entry := range positional {
			seq.Content = append(seq.Content, encodeYAMLScalar(entry.Value, ""))
		}
		return seq
	}

	body := &yaml.Node{Kind: yaml.MappingNode, Tag: tagOr(tag, "!!map")}
	if len(positional) > 0 {
		args := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, entry := range positional {
			entryTag := ""
			if entry.Type != "" {
				entryTag = "!" + entry.Type
			}
			args.Content = append(args.Content, encodeYAMLScalar(entry.Value, entryTag))
		}
		body.Content = append(body.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: yamlArgsKey}, args)
	}
	for _, entry := range node.Entries {
		if entry.Positional() {
			continue
		}
		body.Content = append(body.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: entry.Key},
			encodeYAMLScalar(entry.Value, ""))
	}
	if len(node.Children) > 0 {
		children := &yaml.Node{Kind: yaml.SequenceNode}
		for _, child := range node.Children {
			children.Content = append(children.Content, encodeYAMLNode(child))
		}
		body.Content = append(body.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: yamlChildrenKey}, children)
	}
	return body
}

func tagOr(tag string, fallback string) string {
	if tag != "" {
		return tag
	}
	return fallback
}

// encodeYAMLScalar writes a value so that decoding yields the same kind,
// quoting strings whose plain form would read as another type.
func encodeYAMLScalar(value document.Value, tag string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode}
	switch value.Kind {
	case document.KindString:
		n.Tag, n.Value = "!!str", value.Str
		if (&yaml.Node{Kind: yaml.ScalarNode, Value: value.Str}).ShortTag() != "!!str" {
			n.Style = yaml.DoubleQuotedStyle
		}
	case document.KindInt:
		n.Tag, n.Value = "!!int", strconv.FormatInt(value.Int, 10)
	case document.KindFloat:
		n.Tag, n.Value = "!!float", formatYAMLFloat(value.Float)
	case document.KindBool:
		n.Tag, n.Value = "!!bool", strconv.FormatBool(value.Bool)
	default:
		n.Tag, n.Value = "!!null", "null"
	}
	if tag != "" {
		n.Tag = tag
	}
	return n
}

func formatYAMLFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	out := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(out, ".eE") {
		out += ".0"
	}
	return out
}
