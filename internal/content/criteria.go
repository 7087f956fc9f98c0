package content

import (
	"sheetforge/internal/document"
	"sheetforge/internal/types"
)

// ParseCriteria reads a criteria node:
//
//	exact "weapon"            exact match of a scalar
//	not { ... }               negation of one child
//	contains "sword"          substring of a string
//	property "tags" { ... }   object property matching a child
//	missing "equipment"       object lacks the property
//	element { ... }           some array element matches a child
//	all { ... } / any { ... } conjunction / disjunction of children
func ParseCriteria(r *document.Reader) (types.Criteria, error) {
	switch types.CriteriaKind(r.Name()) {
	case types.CriteriaExact:
		entry, err := r.NextEntryReq()
		if err != nil {
			return types.Criteria{}, err
		}
		return types.Exact(entry.Value.Raw()), nil
	case types.CriteriaContainsSubstring:
		text, err := r.NextStringReq()
		if err != nil {
			return types.Criteria{}, err
		}
		return types.ContainsSubstring(text), nil
	case types.CriteriaMissingProperty:
		key, err := r.NextStringReq()
		if err != nil {
			return types.Criteria{}, err
		}
		return types.MissingProperty(key), nil
	case types.CriteriaContainsProperty:
		key, err := r.NextStringReq()
		if err != nil {
			return types.Criteria{}, err
		}
		sub, err := singleChild(r)
		if err != nil {
			return types.Criteria{}, err
		}
		return types.ContainsProperty(key, sub), nil
	case types.CriteriaNot:
		sub, err := singleChild(r)
		if err != nil {
			return types.Criteria{}, err
		}
		return types.Not(sub), nil
	case types.CriteriaContainsElement:
		sub, err := singleChild(r)
		if err != nil {
			return types.Criteria{}, err
		}
		return types.ContainsElement(sub), nil
	case types.CriteriaAll:
		children, err := childCriteria(r)
		if err != nil {
			return types.Criteria{}, err
		}
		return types.All(children...), nil
	case types.CriteriaAny:
		children, err := childCriteria(r)
		if err != nil {
			return types.Criteria{}, err
		}
		return types.Any(children...), nil
	default:
		return types.Criteria{}, r.Errorf(document.ErrInvalidValue, "unknown criteria %q", r.Name())
	}
}

func childCriteria(r *document.Reader) ([]types.Criteria, error) {
	var out []types.Criteria
	for child := range r.Children() {
		criteria, err := ParseCriteria(child)
		if err != nil {
			return nil, err
		}
		out = append(out, criteria)
	}
	return out, nil
}

// singleChild parses exactly one child; several children combine with all.
func singleChild(r *document.Reader) (types.Criteria, error) {
	children, err := childCriteria(r)
	if err != nil {
		return types.Criteria{}, err
	}
	switch len(children) {
	case 0:
		return types.Criteria{}, r.Errorf(document.ErrMissingValue, "%s needs a criteria child", r.Name())
	case 1:
		return children[0], nil
	default:
		return types.All(children...), nil
	}
}

// ParseFilter reads a `filter` node whose children all must match.
func ParseFilter(r *document.Reader) (types.Criteria, error) {
	children, err := childCriteria(r)
	if err != nil {
		return types.Criteria{}, err
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return types.All(children...), nil
}
