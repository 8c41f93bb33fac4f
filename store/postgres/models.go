package postgres

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/grove"

	"github.com/xraph/keep/store"
)

// documentModel is one identity document. The body holds the full document
// as relaxed Extended JSON so JSONB operators can reach its fields.
type documentModel struct {
	grove.BaseModel `grove:"table:keep_documents"`
	Collection      string    `grove:"collection,pk"`
	ID              string    `grove:"id,pk"`
	PartitionKey    string    `grove:"partition_key,notnull"`
	DocumentType    string    `grove:"document_type,notnull"`
	Version         int64     `grove:"version,notnull"`
	Body            string    `grove:"body,type:jsonb,notnull"`
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
