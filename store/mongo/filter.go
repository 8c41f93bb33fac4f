package mongo

import (
	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/keep/store"
)

func keyFilter(key store.Key) bson.M {
	f := bson.M{store.FieldID: key.ID}
	if key.PartitionKey != "" {
		f[store.FieldPartitionKey] = key.PartitionKey
	}
	return f
}

func versionFilter(key store.Key, expectedVersion int64) bson.M {
	f := keyFilter(key)
	if expectedVersion != 0 {
		f[store.FieldVersion] = expectedVersion
	}
	return f
}

// queryFilter translates q into a find filter.
func queryFilter(q *store.Query) bson.M {
	f := bson.M{}
	if q.DocumentType != "" {
		f[store.FieldDocumentType] = q.DocumentType
	}
	var and bson.A
	for _, p := range q.Predicates {
		var cond bson.M
		if p.IsElemMatch() {
			elem := bson.M{}
			for _, fv := range p.Elem {
				elem[fv.Field] = fv.Value
			}
			cond = bson.M{p.Field: bson.M{"$elemMatch": elem}}
		} else {
			cond = bson.M{p.Field: p.Value}
		}
		and = append(and, cond)
	}
	if len(and) > 0 {
		f["$and"] = and
	}
	return f
}

// migrationIndexes returns the index definitions for an identity collection.
func migrationIndexes() []mongod.IndexModel {
	models := []mongod.IndexModel{
		{Keys: bson.D{{Key: store.FieldDocumentType, Value: 1}, {Key: "normalizedUserName", Value: 1}}},
		{Keys: bson.D{{Key: store.FieldDocumentType, Value: 1}, {Key: "normalizedEmail", Value: 1}}},
		{Keys: bson.D{{Key: store.FieldDocumentType, Value: 1}, {Key: "normalizedName", Value: 1}}},
		{Keys: bson.D{{Key: "claims.type", Value: 1}, {Key: "claims.value", Value: 1}}},
		{Keys: bson.D{{Key: "roles.normalizedName", Value: 1}}},
		{Keys: bson.D{{Key: store.FieldPartitionKey, Value: 1}}},
	}
	for _, u := range store.Unique {
		keys := bson.D{}
		for _, f := range u.Fields {
			keys = append(keys, bson.E{Key: u.Array + "." + f, Value: 1})
		}
		// Documents without the array (roles, principals with no logins)
		// stay out of the index.
		partial := bson.M{u.Array + "." + u.Fields[0]: bson.M{"$exists": true}}
		models = append(models, mongod.IndexModel{
			Keys:    keys,
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(partial),
		})
	}
	return models
}
