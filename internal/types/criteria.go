package types

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

type CriteriaKind string

const (
	CriteriaExact             CriteriaKind = "exact"
	CriteriaNot               CriteriaKind = "not"
	CriteriaContainsSubstring CriteriaKind = "contains"
	CriteriaContainsProperty  CriteriaKind = "property"
	CriteriaMissingProperty   CriteriaKind = "missing"
	CriteriaContainsElement   CriteriaKind = "element"
	CriteriaAll               CriteriaKind = "all"
	CriteriaAny               CriteriaKind = "any"
)

// Criteria is a small boolean predicate algebra evaluated against entry
// metadata. Storage adapters translate it into their own query filter.
type Criteria struct {
	Kind     CriteriaKind
	Value    any
	Text     string
	Key      string
	Sub      *Criteria
	Children []Criteria
}

func Exact(value any) Criteria {
	return Criteria{Kind: CriteriaExact, Value: normalizeJSON(value)}
}

func Not(sub Criteria) Criteria {
	return Criteria{Kind: CriteriaNot, Sub: &sub}
}

func ContainsSubstring(text string) Criteria {
	return Criteria{Kind: CriteriaContainsSubstring, Text: text}
}

func ContainsProperty(key string, sub Criteria) Criteria {
	return Criteria{Kind: CriteriaContainsProperty, Key: key, Sub: &sub}
}

func MissingProperty(key string) Criteria {
	return Criteria{Kind: CriteriaMissingProperty, Key: key}
}

func ContainsElement(sub Criteria) Criteria {
	return Criteria{Kind: CriteriaContainsElement, Sub: &sub}
}

func All(children ...Criteria) Criteria {
	return Criteria{Kind: CriteriaAll, Children: children}
}

func Any(children ...Criteria) Criteria {
	return Criteria{Kind: CriteriaAny, Children: children}
}

// Matches evaluates the predicate in memory against a decoded JSON value.
func (c Criteria) Matches(value any) bool {
	switch c.Kind {
	case CriteriaExact:
		return reflect.DeepEqual(normalizeJSON(value), c.Value)
	case CriteriaNot:
		return c.Sub != nil && !c.Sub.Matches(value)
	case CriteriaContainsSubstring:
		text, ok := value.(string)
		return ok && strings.Contains(text, c.Text)
	case CriteriaContainsProperty:
		object, ok := value.(map[string]any)
		if !ok {
			return false
		}
		inner, found := object[c.Key]
		return found && c.Sub != nil && c.Sub.Matches(inner)
	case CriteriaMissingProperty:
		object, ok := value.(map[string]any)
		if !ok {
			return true
		}
		_, found := object[c.Key]
		return !found
	case CriteriaContainsElement:
		list, ok := value.([]any)
		if !ok || c.Sub == nil {
			return false
		}
		for _, element := range list {
			if c.Sub.Matches(element) {
				return true
			}
		}
		return false
	case CriteriaAll:
		for _, child := range c.Children {
			if !child.Matches(value) {
				return false
			}
		}
		return true
	case CriteriaAny:
		for _, child := range c.Children {
			if child.Matches(value) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// MatchesEntry evaluates the predicate against an entry's metadata.
func (c Criteria) MatchesEntry(entry Entry) bool {
	return c.Matches(normalizeJSON(entry.Metadata))
}

func (c Criteria) Validate() error {
	switch c.Kind {
	case CriteriaExact, CriteriaContainsSubstring:
		return nil
	case CriteriaNot, CriteriaContainsElement:
		if c.Sub == nil {
			return invalidCriteria(fmt.Sprintf("%s requires a sub-criteria", c.Kind))
		}
		return c.Sub.Validate()
	case CriteriaContainsProperty:
		if c.Key == "" || c.Sub == nil {
			return invalidCriteria("property requires a key and a sub-criteria")
		}
		return c.Sub.Validate()
	case CriteriaMissingProperty:
		if c.Key == "" {
			return invalidCriteria("missing requires a key")
		}
		return nil
	case CriteriaAll, CriteriaAny:
		for _, child := range c.Children {
			if err := child.Validate(); err != nil {
				return err
			}
		}
		return nil
	default:
		return invalidCriteria(fmt.Sprintf("unknown criteria kind %q", c.Kind))
	}
}

type criteriaProperty struct {
	Key      string   `json:"key"`
	Criteria Criteria `json:"criteria"`
}

func (c Criteria) MarshalJSON() ([]byte, error) {
	var payload any
	switch c.Kind {
	case CriteriaExact:
		payload = c.Value
	case CriteriaContainsSubstring:
		payload = c.Text
	case CriteriaMissingProperty:
		payload = c.Key
	case CriteriaNot, CriteriaContainsElement:
		payload = c.Sub
	case CriteriaContainsProperty:
		payload = criteriaProperty{Key: c.Key, Criteria: *c.Sub}
	case CriteriaAll, CriteriaAny:
		children := c.Children
		if children == nil {
			children = []Criteria{}
		}
		payload = children
	default:
		return nil, invalidCriteria(fmt.Sprintf("unknown criteria kind %q", c.Kind))
	}
	return json.Marshal(map[string]any{string(c.Kind): payload})
}

func (c *Criteria) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return invalidCriteria("criteria must be a single-key object")
	}
	if len(raw) != 1 {
		return invalidCriteria("criteria must be a single-key object")
	}
	for key, payload := range raw {
		kind := CriteriaKind(key)
		switch kind {
		case CriteriaExact:
			var value any
			if err := json.Unmarshal(payload, &value); err != nil {
				return invalidCriteria(err.Error())
			}
			*c = Exact(value)
		case CriteriaContainsSubstring:
			var text string
			if err := json.Unmarshal(payload, &text); err != nil {
				return invalidCriteria("contains expects a string")
			}
			*c = ContainsSubstring(text)
		case CriteriaMissingProperty:
			var name string
			if err := json.Unmarshal(payload, &name); err != nil {
				return invalidCriteria("missing expects a property name")
			}
			*c = MissingProperty(name)
		case CriteriaNot, CriteriaContainsElement:
			var sub Criteria
			if err := json.Unmarshal(payload, &sub); err != nil {
				return err
			}
			if kind == CriteriaNot {
				*c = Not(sub)
			} else {
				*c = ContainsElement(sub)
			}
		case CriteriaContainsProperty:
			var prop criteriaProperty
			if err := json.Unmarshal(payload, &prop); err != nil {
				return err
			}
			*c = ContainsProperty(prop.Key, prop.Criteria)
		case CriteriaAll, CriteriaAny:
			var children []Criteria
			if err := json.Unmarshal(payload, &children); err != nil {
				return err
			}
			if kind == CriteriaAll {
				*c = All(children...)
			} else {
				*c = Any(children...)
			}
		default:
			return invalidCriteria(fmt.Sprintf("unknown criteria kind %q", key))
		}
	}
	return c.Validate()
}

// normalizeJSON maps Go values onto the shapes encoding/json produces when
// decoding into `any`, so in-memory comparison matches storage semantics.
func normalizeJSON(value any) any {
	switch typed := value.(type) {
	case nil, string, bool, float64:
		return typed
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, inner := range typed {
			out[key] = normalizeJSON(inner)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, inner := range typed {
			out[i] = normalizeJSON(inner)
		}
		return out
	}
	data, err := json.Marshal(value)
	if err != nil {
		return value
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return value
	}
	return decoded
}

func invalidCriteria(msg string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("invalid criteria: " + msg)
}
