package sqlite

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/grove"

	"github.com/xraph/keep/store"
)

type documentModel struct {
	grove.BaseModel `grove:"table:keep_documents"`
	Collection      string    `grove:"collection,pk"`
	ID              string    `grove:"id,pk"`
	PartitionKey    string    `grove:"partition_key,notnull"`
	DocumentType    string    `grove:"document_type,notnull"`
	Version         int64     `grove:"version,notnull"`
	Body            string    `grove:"body,notnull"` // relaxed Extended JSON
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func documentToModel(col string, doc store.Document) (*documentModel, error) {
	body, err := bson.MarshalExtJSON(doc.Body, false, false)
	if err != nil {
		return nil, fmt.Errorf("marshal document body: %w", err)
	}
	return &documentModel{
		Collection:   col,
		ID:           doc.Key.ID,
		PartitionKey: doc.Key.PartitionKey,
		DocumentType: doc.Kind,
		Version:      doc.Version,
		Body:         string(body),
	}, nil
}

func documentFromModel(m *documentModel) (bson.Raw, error) {
	var d bson.D
	if err := bson.UnmarshalExtJSON([]byte(m.Body), false, &d); err != nil {
		return nil, fmt.Errorf("unmarshal document %s: %w", m.ID, err)
	}
	raw, err := bson.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("remarshal document %s: %w", m.ID, err)
	}
	return raw, nil
}

// clause is one WHERE fragment with its bind arguments.
type clause struct {
	expr string
	args []any
}

// predicateClauses translates q's predicates into JSON1 conditions on body.
func predicateClauses(q *store.Query) []clause {
	out := make([]clause, 0, len(q.Predicates))
	for _, p := range q.Predicates {
		if !p.IsElemMatch() {
			out = append(out, clause{expr: "json_extract(body, ?) = ?", args: []any{jsonPath(p.Field), p.Value}})
			continue
		}
		conds := make([]string, len(p.Elem))
		args := make([]any, 0, 1+2*len(p.Elem))
		args = append(args, jsonPath(p.Field))
		for i, fv := range p.Elem {
			conds[i] = "json_extract(e.value, ?) = ?"
			args = append(args, jsonPath(fv.Field), fv.Value)
		}
		expr := "EXISTS (SELECT 1 FROM json_each(body, ?) AS e WHERE " + strings.Join(conds, " AND ") + ")"
		out = append(out, clause{expr: expr, args: args})
	}
	return out
}

func jsonPath(field string) string {
	return "$." + field
}
