package registry

import (
	"sheetforge/internal/document"
	"sheetforge/internal/selector"
)

// Value is either a literal or an evaluator computed against C.
type Value[C, V any] struct {
	fixed     V
	evaluator GenericEvaluator[C, V]
}

func Fixed[C, V any](value V) Value[C, V] {
	return Value[C, V]{fixed: value}
}

func Dynamic[C, V any](evaluator GenericEvaluator[C, V]) Value[C, V] {
	return Value[C, V]{evaluator: evaluator}
}

func (v Value[C, V]) IsDynamic() bool {
	return v.evaluator.Valid()
}

func (v Value[C, V]) Evaluate(ctx C) V {
	if v.evaluator.Valid() {
		return v.evaluator.Evaluate(ctx)
	}
	return v.fixed
}

func (v Value[C, V]) Description() string {
	if v.evaluator.Valid() {
		return v.evaluator.Description()
	}
	return ""
}

// Literal reads a keyed literal of type V.
type Literal[V any] func(r *document.Reader, key string) (V, bool, error)

// GetValueOpt reads key as a literal entry, or as a child node of that name
// parsed as an evaluator (`amount: !ability_modifier {args: [wisdom]}`).
func GetValueOpt[C, V any](r *document.Reader, key string, literal Literal[V]) (Value[C, V], bool, error) {
	value, ok, err := literal(r, key)
	if err != nil {
		return Value[C, V]{}, false, err
	}
	if ok {
		return Fixed[C](value), true, nil
	}
	for child := range r.ChildrenNamed(key) {
		evaluator, err := ParseEvaluator[C, V](child)
		if err != nil {
			return Value[C, V]{}, false, err
		}
		return Dynamic(evaluator), true, nil
	}
	return Value[C, V]{}, false, nil
}

func GetValueReq[C, V any](r *document.Reader, key string, literal Literal[V]) (Value[C, V], error) {
	value, ok, err := GetValueOpt[C](r, key, literal)
	if err != nil {
		return value, err
	}
	if !ok {
		return value, r.Errorf(document.ErrMissingValue, "expected %s", key)
	}
	return value, nil
}

// IntLiteral adapts the reader's int getter to Literal[int].
func IntLiteral(r *document.Reader, key string) (int, bool, error) {
	value, ok, err := r.GetIntOpt(key)
	return int(value), ok, err
}

func BoolLiteral(r *document.Reader, key string) (bool, bool, error) {
	return r.GetBoolOpt(key)
}

func StringLiteral(r *document.Reader, key string) (string, bool, error) {
	return r.GetStringOpt(key)
}

func (v Value[C, V]) AssignSelectors(table *selector.Table, scope selector.Path) {
	if v.evaluator.Valid() {
		v.evaluator.AssignSelectors(table, scope)
	}
}
