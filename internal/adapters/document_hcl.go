package adapters

import (
	"cmp"
	"fmt"
	"math/big"
	"slices"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"sheetforge/internal/document"
)

const (
	hclArgsAttr       = "args"
	hclAnnotationAttr = "annotation"
)

// HCLDocumentAdapter reads content documents written in HCL. Blocks are
// nodes and labels their leading positional entries:
//
//	item "Longsword" {
//	  weight = 3
//	  equipment {
//	    mutator "add_proficiency" {
//	      args   = [any_of("weapon")]
//	      amount = ability_modifier("str")
//	    }
//	  }
//	}
//
// `args` appends positional entries and `annotation` sets the node type. A
// function call is a type annotation: inside args it types one entry, as an
// attribute value it becomes a child node of that type. Tuple and object
// attributes become child nodes too; other attributes are keyed entries.
// Expressions are evaluated without variables.
type HCLDocumentAdapter struct{}

func NewHCLDocumentAdapter() HCLDocumentAdapter {
	return HCLDocumentAdapter{}
}

func (a HCLDocumentAdapter) Extensions() []string {
	return []string{".hcl"}
}

func hclError(name string, diags hcl.Diagnostics) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("invalid document %s", name)).
		WithCause(diags)
}

func (a HCLDocumentAdapter) Decode(name string, content []byte) ([]*document.Node, error) {
	file, diags := hclsyntax.ParseConfig(content, name, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, hclError(name, diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("unexpected body type %T", file.Body))
	}
	if len(body.Attributes) > 0 {
		for _, attr := range body.Attributes {
			return nil, hclError(name, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "attributes are not allowed at the top level",
				Subject:  attr.SrcRange.Ptr(),
			}})
		}
	}
	nodes := make([]*document.Node, 0, len(body.Blocks))
	for _, block := range body.Blocks {
		node, diags := hclBlockNode(block)
		if diags.HasErrors() {
			return nil, hclError(name, diags)
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// hclItem is an attribute or block in source order.
type hclItem struct {
	offset int
	attr   *hclsyntax.Attribute
	block  *hclsyntax.Block
}

func orderedItems(body *hclsyntax.Body) []hclItem {
	items := make([]hclItem, 0, len(body.Attributes)+len(body.Blocks))
	for _, attr := range body.Attributes {
		items = append(items, hclItem{offset: attr.SrcRange.Start.Byte, attr: attr})
	}
	for _, block := range body.Blocks {
		items = append(items, hclItem{offset: block.TypeRange.Start.Byte, block: block})
	}
	slices.SortFunc(items, func(a, b hclItem) int { return cmp.Compare(a.offset, b.offset) })
	return items
}

func hclBlockNode(block *hclsyntax.Block) (*document.Node, hcl.Diagnostics) {
	node := &document.Node{Name: block.Type, Line: block.TypeRange.Start.Line}
	for _, label := range block.Labels {
		node.Entries = append(node.Entries, document.Entry{Value: document.String(label)})
	}
	var diags hcl.Diagnostics
	for _, item := range orderedItems(block.Body) {
		if item.block != nil {
			child, childDiags := hclBlockNode(item.block)
			diags = append(diags, childDiags...)
			if child != nil {
				node.Children = append(node.Children, child)
			}
			continue
		}
		diags = append(diags, hclAttribute(node, item.attr)...)
	}
	return node, diags
}

func hclAttribute(node *document.Node, attr *hclsyntax.Attribute) hcl.Diagnostics {
	switch attr.Name {
	case hclAnnotationAttr:
		value, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return diags
		}
		if value.Type() != cty.String || value.IsNull() {
			return hcl.Diagnostics{{Severity: hcl.DiagError, Summary: "annotation must be a string", Subject: attr.SrcRange.Ptr()}}
		}
		node.Type = value.AsString()
		return nil
	case hclArgsAttr:
		tuple, ok := attr.Expr.(*hclsyntax.TupleConsExpr)
		if !ok {
			break
		}
		entries, diags := hclEntries(tuple.Exprs)
		node.Entries = append(node.Entries, entries...)
		return diags
	}

	line := attr.NameRange.Start.Line
	switch expr := attr.Expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		entries, diags := hclEntries(expr.Args)
		node.Children = append(node.Children, &document.Node{Name: attr.Name, Type: expr.Name, Entries: entries, Line: line})
		return diags
	case *hclsyntax.TupleConsExpr:
		entries, diags := hclEntries(expr.Exprs)
		node.Children = append(node.Children, &document.Node{Name: attr.Name, Entries: entries, Line: line})
		return diags
	case *hclsyntax.ObjectConsExpr:
		child := &document.Node{Name: attr.Name, Line: line}
		var diags hcl.Diagnostics
		for _, item := range expr.Items {
			key := hcl.ExprAsKeyword(item.KeyExpr)
			if key == "" {
				keyValue, keyDiags := item.KeyExpr.Value(nil)
				diags = append(diags, keyDiags...)
				if keyDiags.HasErrors() || keyValue.Type() != cty.String {
					continue
				}
				key = keyValue.AsString()
			}
			value, valueDiags := hclValue(item.ValueExpr)
			diags = append(diags, valueDiags...)
			child.Entries = append(child.Entries, document.Entry{Key: key, Value: value})
		}
		node.Children = append(node.Children, child)
		return diags
	}

	value, diags := hclValue(attr.Expr)
	node.Entries = append(node.Entries, document.Entry{Key: attr.Name, Value: value})
	return diags
}

// hclEntries converts positional expressions; `kind(value)` types an entry.
func hclEntries(exprs []hclsyntax.Expression) ([]document.Entry, hcl.Diagnostics) {
	entries := make([]document.Entry, 0, len(exprs))
	var diags hcl.Diagnostics
	for _, expr := range exprs {
		entry := document.Entry{Value: document.Null()}
		if call, ok := expr.(*hclsyntax.FunctionCallExpr); ok {
			entry.Type = call.Name
			switch len(call.Args) {
			case 0:
			case 1:
				expr = call.Args[0]
			default:
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  fmt.Sprintf("typed entry %s takes one value", call.Name),
					Subject:  call.Range().Ptr(),
				})
				continue
			}
			if len(call.Args) == 0 {
				entries = append(entries, entry)
				continue
			}
		}
		value, valueDiags := hclValue(expr)
		diags = append(diags, valueDiags...)
		entry.Value = value
		entries = append(entries, entry)
	}
	return entries, diags
}

func hclValue(expr hclsyntax.Expression) (document.Value, hcl.Diagnostics) {
	value, diags := expr.Value(nil)
	if diags.HasErrors() {
		return document.Null(), diags
	}
	converted, err := ctyToValue(value)
	if err != nil {
		return document.Null(), hcl.Diagnostics{{Severity: hcl.DiagError, Summary: err.Error(), Subject: expr.Range().Ptr()}}
	}
	return converted, nil
}

func ctyToValue(value cty.Value) (document.Value, error) {
	if value.IsNull() {
		return document.Null(), nil
	}
	if !value.IsKnown() {
		return document.Value{}, fmt.Errorf("value is not known without variables")
	}
	switch value.Type() {
	case cty.String:
		return document.String(value.AsString()), nil
	case cty.Bool:
		return document.Bool(value.True()), nil
	case cty.Number:
		bf := value.AsBigFloat()
		if bf.IsInt() {
			if i, accuracy := bf.Int64(); accuracy == big.Exact {
				return document.Int(i), nil
			}
		}
		f, _ := bf.Float64()
		return document.Float(f), nil
	default:
		return document.Value{}, fmt.Errorf("unsupported %s value", value.Type().FriendlyName())
	}
}

func valueToCty(value document.Value) cty.Value {
	switch value.Kind {
	case document.KindString:
		return cty.StringVal(value.Str)
	case document.KindInt:
		return cty.NumberIntVal(value.Int)
	case document.KindFloat:
		return cty.NumberFloatVal(value.Float)
	case document.KindBool:
		return cty.BoolVal(value.Bool)
	default:
		return cty.NullVal(cty.DynamicPseudoType)
	}
}

// Encode writes nodes as HCL blocks. Whole floats come back as ints.
func (a HCLDocumentAdapter) Encode(nodes []*document.Node) ([]byte, error) {
	file := hclwrite.NewEmptyFile()
	for i, node := range nodes {
		if i > 0 {
			file.Body().AppendNewline()
		}
		writeHCLBlock(file.Body(), node)
	}
	return file.Bytes(), nil
}

func writeHCLBlock(parent *hclwrite.Body, node *document.Node) {
	positional := node.Positional()
	var labels []string
	for _, entry := range positional {
		if entry.Type != "" || entry.Value.Kind != document.KindString {
			break
		}
		labels = append(labels, entry.Value.Str)
	}
	rest := positional[len(labels):]

	body := parent.AppendNewBlock(node.Name, labels).Body()
	if node.Type != "" {
		body.SetAttributeValue(hclAnnotationAttr, cty.StringVal(node.Type))
	}
	if len(rest) > 0 {
		elems := make([]hclwrite.Tokens, 0, len(rest))
		for _, entry := range rest {
			tokens := hclwrite.TokensForValue(valueToCty(entry.Value))
			if entry.Type != "" {
				tokens = hclwrite.TokensForFunctionCall(entry.Type, tokens)
			}
			elems = append(elems, tokens)
		}
		body.SetAttributeRaw(hclArgsAttr, hclwrite.TokensForTuple(elems))
	}
	for _, entry := range node.Entries {
		if !entry.Positional() {
			body.SetAttributeValue(entry.Key, valueToCty(entry.Value))
		}
	}
	for _, child := range node.Children {
		writeHCLBlock(body, child)
	}
}
