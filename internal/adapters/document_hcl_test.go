package adapters

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetforge/internal/document"
)

const longswordHCL = `
item "Longsword" {
  weight = 3
  rarity = "common"
  tag    = ["martial", "versatile"]
  worth  = { gold = 15 }

  equipment {
    mutator "add_proficiency" {
      args = [skill("athletics"), 2]
    }
    mutator {
      annotation = "add_initiative"
      amount     = ability_modifier("dex")
    }
  }
}
`

func TestHCLDecodeShapes(t *testing.T) {
	nodes, err := NewHCLDocumentAdapter().Decode("items/longsword.hcl", []byte(longswordHCL))
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	want := document.NewNode("item", "Longsword").Prop("weight", 3).Prop("rarity", "common")
	want.Add(document.NewNode("tag", "martial", "versatile"))
	want.Add(document.NewNode("worth").Prop("gold", 15))
	initiative := (&document.Node{Name: "mutator", Type: "add_initiative"}).
		Add(&document.Node{Name: "amount", Type: "ability_modifier", Entries: []document.Entry{{Value: document.String("dex")}}})
	want.Add(document.NewNode("equipment").
		Add(document.NewNode("mutator", "add_proficiency").TypedArg("skill", "athletics").Arg(2)).
		Add(initiative))

	assert.True(t, want.Equal(nodes[0]), "decoded item differs")
	assert.Equal(t, 2, nodes[0].Line)
}

func TestHCLDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "syntax", content: `item "a" {`},
		{name: "top level attribute", content: `weight = 3`},
		{name: "variable reference", content: "item \"a\" {\n  weight = var.w\n}"},
		{name: "typed entry arity", content: "item \"a\" {\n  args = [skill(\"a\", \"b\")]\n}"},
		{name: "annotation type", content: "item \"a\" {\n  annotation = 3\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHCLDocumentAdapter().Decode("bad.hcl", []byte(tt.content))
			require.Error(t, err)
			assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
		})
	}
}

func TestHCLRoundTrip(t *testing.T) {
	root := document.NewNode("class", "Fighter").Prop("hit_die", 10).Prop("subclass", false)
	level := document.NewNode("level", 1)
	root.Add(level)
	level.Add(&document.Node{Name: "mutator", Type: "add_proficiency", Entries: []document.Entry{
		{Type: "any_of", Value: document.String("athletics")},
		{Value: document.String("acrobatics")},
		{Value: document.Null()},
	}})
	level.Add(document.NewNode("mutator", "speed", 2.5))

	adapter := NewHCLDocumentAdapter()
	encoded, err := adapter.Encode([]*document.Node{root, document.NewNode("condition", "Prone")})
	require.NoError(t, err)

	decoded, err := adapter.Decode("roundtrip.hcl", encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2, string(encoded))
	assert.True(t, root.Equal(decoded[0]), "round trip differs:\n%s", encoded)
	assert.True(t, document.NewNode("condition", "Prone").Equal(decoded[1]))
}

func TestMultiDocumentAdapterDispatch(t *testing.T) {
	adapter := NewDefaultDocumentAdapter()
	assert.True(t, adapter.Supports("lineages/elf.YAML"))
	assert.True(t, adapter.Supports("items/sword.hcl"))
	assert.False(t, adapter.Supports("README.md"))

	fromHCL, err := adapter.Decode("items/longsword.hcl", []byte(longswordHCL))
	require.NoError(t, err)
	fromYAML, err := adapter.Decode("items/longsword.yml", []byte(longswordYAML))
	require.NoError(t, err)
	assert.Equal(t, "item", fromHCL[0].Name)
	assert.Equal(t, "item", fromYAML[0].Name)

	// generated variants are read back in the encoding format
	encoded, err := adapter.Encode(fromHCL)
	require.NoError(t, err)
	back, err := adapter.Decode("generated:local://core@dnd5e/generators/plus-one.hcl", encoded)
	require.NoError(t, err)
	assert.True(t, fromHCL[0].Equal(back[0]))
}
