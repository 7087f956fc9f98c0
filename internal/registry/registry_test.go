package registry

import (
	"errors"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetforge/internal/document"
	"sheetforge/internal/types"
)

type counter struct {
	total int
}

type addMutator struct {
	amount Value[*counter, int]
}

func (m addMutator) Apply(target *counter) {
	target.total += m.amount.Evaluate(target)
}

func (m addMutator) Description() string {
	return "adds to the counter"
}

type doubleEvaluator struct{}

func (doubleEvaluator) Evaluate(c *counter) int {
	return c.total * 2
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := New("test")
	require.NoError(t, RegisterMutator(reg, "add", func(r *document.Reader) (Mutator[*counter], error) {
		amount, err := GetValueReq[*counter](r, "amount", IntLiteral)
		if err != nil {
			return nil, err
		}
		return addMutator{amount: amount}, nil
	}))
	require.NoError(t, RegisterEvaluator(reg, "double", func(r *document.Reader) (Evaluator[*counter, int], error) {
		return doubleEvaluator{}, nil
	}))
	reg.Freeze()
	return reg
}

func testReader(reg *Registry, arena *Arena, node *document.Node) *document.Reader {
	ctx := document.NewContext(NewLoader(reg, arena), types.MustParseSourceId("local://test@test/doc.yaml"), true)
	return document.NewReader(node, ctx)
}

func TestParseMutatorApplies(t *testing.T) {
	reg := testRegistry(t)
	arena := NewArena()

	tests := []struct {
		name string
		node *document.Node
	}{
		{name: "named node", node: document.NewNode("add").Prop("amount", int64(3))},
		{name: "generic node", node: document.NewNode("mutator", "add").Prop("amount", int64(3))},
		{name: "annotated node", node: &document.Node{Name: "mutator", Type: "add", Entries: []document.Entry{{Key: "amount", Value: document.Int(3)}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mutator, err := ParseMutator[*counter](testReader(reg, arena, tt.node))
			require.NoError(t, err)
			assert.Equal(t, "add", mutator.ID())
			assert.Equal(t, "adds to the counter", mutator.Description())

			target := &counter{total: 1}
			mutator.Apply(target)
			mutator.Apply(target)
			assert.Equal(t, 7, target.total)
		})
	}
	assert.Equal(t, 3, arena.Len())
}

func TestValueFromEvaluator(t *testing.T) {
	reg := testRegistry(t)
	node := document.NewNode("add").Add(document.NewNode("amount"))
	node.Children[0].Type = "double"

	mutator, err := ParseMutator[*counter](testReader(reg, NewArena(), node))
	require.NoError(t, err)

	target := &counter{total: 5}
	mutator.Apply(target)
	assert.Equal(t, 15, target.total)
}

func TestUnknownKindFailsClosed(t *testing.T) {
	reg := testRegistry(t)

	_, err := ParseMutator[*counter](testReader(reg, NewArena(), document.NewNode("teleport")))
	require.ErrorIs(t, err, ErrUnknownKind)
	var unknown *UnknownKindError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "teleport", unknown.ID)
	assert.Equal(t, []string{"add"}, unknown.Choices)

	_, err = ParseEvaluator[*counter, bool](testReader(reg, NewArena(), document.NewNode("double")))
	require.ErrorIs(t, err, ErrUnknownKind, "evaluators are keyed by value type as well as id")

	_, err = MutatorFactoryFor[*counter](reg, "")
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestRegisterRejectsDuplicatesAndFrozen(t *testing.T) {
	reg := New("test")
	factory := func(r *document.Reader) (Mutator[*counter], error) { return addMutator{}, nil }

	require.NoError(t, RegisterMutator(reg, "add", factory))
	err := RegisterMutator(reg, "add", factory)
	assert.Equal(t, errbuilder.CodeAlreadyExists, errbuilder.CodeOf(err))

	require.NoError(t, RegisterMutator[string](reg, "add", func(r *document.Reader) (Mutator[string], error) { return nil, nil }),
		"the same id may target another type")

	reg.Freeze()
	err = RegisterMutator(reg, "other", factory)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
}

func TestSealedArenaRejectsParses(t *testing.T) {
	reg := testRegistry(t)
	arena := NewArena()
	arena.Seal()

	_, err := ParseMutator[*counter](testReader(reg, arena, document.NewNode("add").Prop("amount", int64(1))))
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
}

func TestParseWithoutLoader(t *testing.T) {
	r := document.NewReader(document.NewNode("add"), document.NewContext(nil, types.SourceId{}, false))
	_, err := ParseMutator[*counter](r)
	assert.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))
}
