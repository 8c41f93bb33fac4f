package store

import "go.mongodb.org/mongo-driver/v2/bson"

// UniqueElem declares that the tuple of Fields inside the elements of Array
// is unique across every document of a collection.
type UniqueElem struct {
	Array  string
	Fields []string
}

// UniqueLogins keeps an external login linked to at most one principal.
var UniqueLogins = UniqueElem{Array: "logins", Fields: []string{"loginProvider", "providerKey"}}

// Unique lists the constraints every backend enforces on writes.
var Unique = []UniqueElem{UniqueLogins}

// Keys returns the field tuples held by raw's elements. Elements missing a
// field are skipped.
func (u UniqueElem) Keys(raw bson.Raw) [][]string {
	arr, ok := raw.Lookup(u.Array).ArrayOK()
	if !ok {
		return nil
	}
	values, err := arr.Values()
	if err != nil {
		return nil
	}
	var keys [][]string
	for _, v := range values {
		elem, ok := v.DocumentOK()
		if !ok {
			continue
		}
		key := make([]string, 0, len(u.Fields))
		for _, f := range u.Fields {
			s, ok := elem.Lookup(f).StringValueOK()
			if !ok {
				break
			}
			key = append(key, s)
		}
		if len(key) == len(u.Fields) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Query returns a query matching documents of any kind holding key.
func (u UniqueElem) Query(key []string) *Query {
	fields := make([]FieldValue, len(u.Fields))
	for i, f := range u.Fields {
		fields[i] = F(f, key[i])
	}
	return (&Query{}).WhereElem(u.Array, fields...)
}
