package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"sheetforge/internal/content"
	"sheetforge/internal/document"
	"sheetforge/internal/types"
)

// Query lists stored entries of a system. Where is a YAML criteria
// document; its top-level nodes must all match.
func (s Service) Query(ctx context.Context, req QueryRequest) (QueryResult, error) {
	if err := s.requireStore(); err != nil {
		return QueryResult{}, err
	}
	origin, err := parseOrigin(req.Origin)
	if err != nil {
		return QueryResult{}, err
	}
	query := types.Query{
		System:   strings.TrimSpace(req.System),
		Category: types.Category(strings.TrimSpace(req.Category)),
		Module:   strings.TrimSpace(req.Module),
		Origin:   origin,
	}
	var criteria []types.Criteria
	if name := strings.TrimSpace(req.Name); name != "" {
		criteria = append(criteria, types.ContainsProperty("name", types.ContainsSubstring(name)))
	}
	if where := strings.TrimSpace(req.Where); where != "" {
		parsed, err := s.parseWhere(where)
		if err != nil {
			return QueryResult{}, err
		}
		criteria = append(criteria, parsed...)
	}
	if len(criteria) > 0 {
		all := types.All(criteria...)
		query.Criteria = &all
	}
	entries, err := s.Store.QueryEntries(ctx, query)
	if err != nil {
		return QueryResult{}, err
	}
	return QueryResult{Entries: entries}, nil
}

// Modules lists installed module revisions.
func (s Service) Modules(ctx context.Context, req ModulesRequest) (ModulesResult, error) {
	if err := s.requireStore(); err != nil {
		return ModulesResult{}, err
	}
	records, err := s.Store.ListModules(ctx, strings.TrimSpace(req.System))
	if err != nil {
		return ModulesResult{}, err
	}
	return ModulesResult{Modules: records}, nil
}

func parseOrigin(value string) (types.Origin, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "any":
		return types.OriginAny, nil
	case "authored":
		return types.OriginAuthored, nil
	case "generated":
		return types.OriginGenerated, nil
	default:
		return types.OriginAny, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("origin %q is not any, authored or generated", value))
	}
}

func (s Service) parseWhere(text string) ([]types.Criteria, error) {
	nodes, err := s.Decoder.Decode("where.yaml", []byte(text))
	if err != nil {
		return nil, err
	}
	var out []types.Criteria
	for _, node := range nodes {
		criteria, err := content.ParseCriteria(document.NewReader(node, document.NewContext(nil, types.SourceId{}, false)))
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid where criteria").
				WithCause(err)
		}
		out = append(out, criteria)
	}
	return out, nil
}
