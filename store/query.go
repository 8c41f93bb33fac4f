package store

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Query selects documents of one kind by string equality predicates. All
// predicates must hold.
type Query struct {
	DocumentType string
	Predicates   []Predicate

	// Limit caps the number of results; zero means no limit.
	Limit int
}

// Predicate is either a top-level field equality (Elem is empty) or an
// element match: Field names an array of sub-documents, at least one of
// which satisfies every entry of Elem.
type Predicate struct {
	Field string
	Value string
	Elem  []FieldValue
}

// FieldValue is one sub-document equality inside an element match.
type FieldValue struct {
	Field string
	Value string
}

// IsElemMatch reports whether p matches array elements.
func (p Predicate) IsElemMatch() bool { return len(p.Elem) > 0 }

// NewQuery starts a query over documents of the given kind.
func NewQuery(kind Kind) *Query {
	return &Query{DocumentType: string(kind)}
}

// Where adds a top-level equality predicate.
func (q *Query) Where(field, value string) *Query {
	q.Predicates = append(q.Predicates, Predicate{Field: field, Value: value})
	return q
}

// WhereElem adds an element-match predicate over the array field.
func (q *Query) WhereElem(array string, fields ...FieldValue) *Query {
	q.Predicates = append(q.Predicates, Predicate{Field: array, Elem: fields})
	return q
}

// First limits the query to a single result.
func (q *Query) First() *Query {
	q.Limit = 1
	return q
}

// F is shorthand for a FieldValue.
func F(field, value string) FieldValue {
	return FieldValue{Field: field, Value: value}
}

// Matches evaluates q against raw. Backends that cannot push a query down
// to the database use it directly; the others must agree with it.
func Matches(raw bson.Raw, q *Query) bool {
	if q.DocumentType != "" && DocumentType(raw) != q.DocumentType {
		return false
	}
	for _, p := range q.Predicates {
		if !matchPredicate(raw, p) {
			return false
		}
	}
	return true
}

func matchPredicate(raw bson.Raw, p Predicate) bool {
	if !p.IsElemMatch() {
		s, ok := raw.Lookup(p.Field).StringValueOK()
		return ok && s == p.Value
	}
	arr, ok := raw.Lookup(p.Field).ArrayOK()
	if !ok {
		return false
	}
	values, err := arr.Values()
	if err != nil {
		return false
	}
	for _, v := range values {
		elem, ok := v.DocumentOK()
		if !ok {
			continue
		}
		if matchElem(elem, p.Elem) {
			return true
		}
	}
	return false
}

func matchElem(elem bson.Raw, fields []FieldValue) bool {
	for _, f := range fields {
		s, ok := elem.Lookup(f.Field).StringValueOK()
		if !ok || s != f.Value {
			return false
		}
	}
	return true
}
