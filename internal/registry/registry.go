// Package registry maps the string tags content authors write onto the
// factories that parse them. A Registry is built once per content system,
// frozen, and then shared read-only by every document parse.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"sheetforge/internal/document"
)

type Family string

const (
	FamilyMutator   Family = "mutator"
	FamilyEvaluator Family = "evaluator"
	FamilyGenerator Family = "generator"
)

var ErrUnknownKind = errors.New("unknown kind")

// UnknownKindError reports a tag with no registered factory. Lookups fail
// closed: unregistered content is never replaced by a no-op.
type UnknownKindError struct {
	Family  Family
	ID      string
	Product string
	Choices []string
}

func (e *UnknownKindError) Error() string {
	if len(e.Choices) == 0 {
		return fmt.Sprintf("unknown %s kind %q for %s", e.Family, e.ID, e.Product)
	}
	return fmt.Sprintf("unknown %s kind %q for %s (registered: %v)", e.Family, e.ID, e.Product, e.Choices)
}

func (e *UnknownKindError) Is(target error) bool {
	return target == ErrUnknownKind
}

// Factory parses one node into an implementation of T.
type Factory[T any] func(r *document.Reader) (T, error)

type factoryKey struct {
	family  Family
	product reflect.Type
	id      string
}

type Registry struct {
	system    string
	factories map[factoryKey]any
	frozen    bool
}

func New(system string) *Registry {
	return &Registry{system: system, factories: map[factoryKey]any{}}
}

func (r *Registry) System() string {
	return r.system
}

// Freeze makes the registry immutable; it is then safe for concurrent reads.
func (r *Registry) Freeze() {
	r.frozen = true
}

func (r *Registry) Frozen() bool {
	return r.frozen
}

// Len counts registered factories across families.
func (r *Registry) Len() int {
	return len(r.factories)
}

// IDs lists the ids registered for a family and product type.
func IDs[T any](r *Registry, family Family) []string {
	product := reflect.TypeFor[T]()
	var ids []string
	for key := range r.factories {
		if key.family == family && key.product == product {
			ids = append(ids, key.id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Register adds a factory producing T under family/id.
func Register[T any](r *Registry, family Family, id string, factory Factory[T]) error {
	if r.frozen {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("registry for %s is frozen; cannot register %s %q", r.system, family, id))
	}
	if id == "" || factory == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("%s registration requires an id and a factory", family))
	}
	key := factoryKey{family: family, product: reflect.TypeFor[T](), id: id}
	if _, exists := r.factories[key]; exists {
		return errbuilder.New().
			WithCode(errbuilder.CodeAlreadyExists).
			WithMsg(fmt.Sprintf("%s %q already registered for %s", family, id, key.product))
	}
	r.factories[key] = factory
	return nil
}

// FactoryFor looks up a factory; absence is an *UnknownKindError.
func FactoryFor[T any](r *Registry, family Family, id string) (Factory[T], error) {
	product := reflect.TypeFor[T]()
	raw, ok := r.factories[factoryKey{family: family, product: product, id: id}]
	if !ok {
		return nil, &UnknownKindError{
			Family:  family,
			ID:      id,
			Product: product.String(),
			Choices: slices.Clip(IDs[T](r, family)),
		}
	}
	return raw.(Factory[T]), nil
}

// RegisterMutator registers a mutator kind targeting T.
func RegisterMutator[T any](r *Registry, id string, factory Factory[Mutator[T]]) error {
	return Register(r, FamilyMutator, id, factory)
}

// RegisterEvaluator registers an evaluator kind reading C and producing V.
func RegisterEvaluator[C, V any](r *Registry, id string, factory Factory[Evaluator[C, V]]) error {
	return Register(r, FamilyEvaluator, id, factory)
}

func MutatorFactoryFor[T any](r *Registry, id string) (Factory[Mutator[T]], error) {
	return FactoryFor[Mutator[T]](r, FamilyMutator, id)
}

func EvaluatorFactoryFor[C, V any](r *Registry, id string) (Factory[Evaluator[C, V]], error) {
	return FactoryFor[Evaluator[C, V]](r, FamilyEvaluator, id)
}

// MustRegister panics on registration failure; registration happens once at
// system start-up, where a failure is a programming error.
func MustRegister(err error) {
	if err != nil {
		panic(err)
	}
}
