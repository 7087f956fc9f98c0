package document

import (
	"fmt"
	"strings"
	"unicode"
)

// Query language:
//
//	query := [ "scope()" ] step { [ ">" ] step }
//	step  := name | "*"
//
// A step preceded by ">" matches direct children of the previous match set;
// otherwise it matches descendants at any depth. Without a leading
// "scope()", the first step searches every descendant of the current node.
type queryStep struct {
	name   string
	direct bool
}

type Query struct {
	source string
	steps  []queryStep
}

func ParseQuery(source string) (Query, error) {
	tokens, err := tokenizeQuery(source)
	if err != nil {
		return Query{}, err
	}
	if len(tokens) == 0 {
		return Query{}, querySyntax(source, "empty query")
	}
	query := Query{source: source}
	pos := 0
	scoped := false
	if tokens[0] == "scope()" {
		scoped = true
		pos = 1
	}
	direct := false
	for ; pos < len(tokens); pos++ {
		token := tokens[pos]
		switch token {
		case "scope()":
			return Query{}, querySyntax(source, "scope() may only start a query")
		case ">":
			if direct {
				return Query{}, querySyntax(source, "repeated '>'")
			}
			if len(query.steps) == 0 && !scoped {
				return Query{}, querySyntax(source, "'>' needs a left-hand side")
			}
			direct = true
		default:
			query.steps = append(query.steps, queryStep{name: token, direct: direct})
			direct = false
		}
	}
	if direct {
		return Query{}, querySyntax(source, "dangling '>'")
	}
	if len(query.steps) == 0 {
		return Query{}, querySyntax(source, "query selects no nodes")
	}
	return query, nil
}

func (q Query) String() string {
	return q.source
}

// Match returns matching descendants of root in depth-first pre-order.
func (q Query) Match(root *Node) []*Node {
	current := []*Node{root}
	for _, step := range q.steps {
		var next []*Node
		seen := map[*Node]struct{}{}
		for _, node := range current {
			collect(node, step, seen, &next)
		}
		current = next
		if len(current) == 0 {
			break
		}
	}
	return current
}

func collect(node *Node, step queryStep, seen map[*Node]struct{}, out *[]*Node) {
	for _, child := range node.Children {
		if step.name == "*" || child.Name == step.name {
			if _, ok := seen[child]; !ok {
				seen[child] = struct{}{}
				*out = append(*out, child)
			}
		}
		if !step.direct {
			collect(child, step, seen, out)
		}
	}
}

func tokenizeQuery(source string) ([]string, error) {
	var tokens []string
	rest := strings.TrimSpace(source)
	for rest != "" {
		switch {
		case strings.HasPrefix(rest, "scope()"):
			tokens = append(tokens, "scope()")
			rest = rest[len("scope()"):]
		case rest[0] == '>':
			tokens = append(tokens, ">")
			rest = rest[1:]
		case rest[0] == '*':
			tokens = append(tokens, "*")
			rest = rest[1:]
		default:
			end := strings.IndexFunc(rest, func(r rune) bool {
				return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.')
			})
			if end == 0 {
				return nil, querySyntax(source, fmt.Sprintf("unexpected character %q", rest[0]))
			}
			if end < 0 {
				end = len(rest)
			}
			tokens = append(tokens, rest[:end])
			rest = rest[end:]
		}
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	}
	return tokens, nil
}

func querySyntax(source string, detail string) error {
	return &Error{Kind: ErrQuerySyntax, Index: -1, Detail: fmt.Sprintf("%q: %s", source, detail)}
}

// QueryAll returns readers over every match; an empty slice when none match.
func (r *Reader) QueryAll(query string) ([]*Reader, error) {
	parsed, err := ParseQuery(query)
	if err != nil {
		return nil, err
	}
	matches := parsed.Match(r.node)
	out := make([]*Reader, 0, len(matches))
	for _, node := range matches {
		out = append(out, r.Child(node))
	}
	return out, nil
}

// QueryOpt returns the first match, if any.
func (r *Reader) QueryOpt(query string) (*Reader, bool, error) {
	matches, err := r.QueryAll(query)
	if err != nil || len(matches) == 0 {
		return nil, false, err
	}
	return matches[0], true, nil
}

// QueryReq returns the first match or ErrNoMatch.
func (r *Reader) QueryReq(query string) (*Reader, error) {
	match, ok, err := r.QueryOpt(query)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(ErrNoMatch, r.node, -1, "", query)
	}
	return match, nil
}
