package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/xraph/keep/store"
)

// clause is one WHERE fragment with its bind arguments.
type clause struct {
	expr string
	args []any
}

// predicateClauses translates q's predicates into JSONB conditions on body.
// Element matches use whole-body containment, which the GIN index serves.
func predicateClauses(q *store.Query) ([]clause, error) {
	out := make([]clause, 0, len(q.Predicates))
	for _, p := range q.Predicates {
		if !p.IsElemMatch() {
			out = append(out, clause{expr: "body ->> ? = ?", args: []any{p.Field, p.Value}})
			continue
		}
		elem := make(map[string]string, len(p.Elem))
		for _, fv := range p.Elem {
			elem[fv.Field] = fv.Value
		}
		contains, err := json.Marshal(map[string]any{p.Field: []map[string]string{elem}})
		if err != nil {
			return nil, fmt.Errorf("marshal %s containment: %w", p.Field, err)
		}
		out = append(out, clause{expr: "body @> ?::jsonb", args: []any{string(contains)}})
	}
	return out, nil
}
