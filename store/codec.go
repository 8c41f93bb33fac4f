package store

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/keep/role"
	"github.com/xraph/keep/user"
)

// Kind is the closed set of document variants.
type Kind string

// Document kinds, equal to the stored discriminator values.
const (
	KindUser Kind = user.DocumentType
	KindRole Kind = role.DocumentType
)

// Entity is a decoded document: exactly one of User or Role is set,
// according to Kind.
type Entity struct {
	Kind Kind
	User *user.User
	Role *role.Role
}

// EncodeUser encodes u for writing under partitionKey.
func EncodeUser(u *user.User, partitionKey string) (Document, error) {
	return encode(KindUser, Key{ID: u.ID, PartitionKey: partitionKey}, u.Version, u)
}

// EncodeRole encodes r for writing under partitionKey.
func EncodeRole(r *role.Role, partitionKey string) (Document, error) {
	return encode(KindRole, Key{ID: r.ID, PartitionKey: partitionKey}, r.Version, r)
}

func encode(kind Kind, key Key, version int64, v any) (Document, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return Document{}, fmt.Errorf("store: encode %s: %w", kind, err)
	}
	var d bson.D
	if err := bson.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("store: encode %s: %w", kind, err)
	}
	d = setField(d, FieldDocumentType, string(kind))
	if key.PartitionKey != "" {
		d = setField(d, FieldPartitionKey, key.PartitionKey)
	}
	body, err := bson.Marshal(d)
	if err != nil {
		return Document{}, fmt.Errorf("store: encode %s: %w", kind, err)
	}
	return Document{Key: key, Kind: string(kind), Version: version, Body: body}, nil
}

func setField(d bson.D, key string, value any) bson.D {
	for i := range d {
		if d[i].Key == key {
			d[i].Value = value
			return d
		}
	}
	return append(d, bson.E{Key: key, Value: value})
}

// DocumentType returns the discriminator stored on raw, or "".
func DocumentType(raw bson.Raw) string {
	s, _ := raw.Lookup(FieldDocumentType).StringValueOK()
	return s
}

// Decode decodes raw into the variant named by its discriminator.
func Decode(raw bson.Raw) (Entity, error) {
	switch kind := Kind(DocumentType(raw)); kind {
	case KindUser:
		u := new(user.User)
		if err := bson.Unmarshal(raw, u); err != nil {
			return Entity{}, fmt.Errorf("store: decode user: %w", err)
		}
		u.EnsureCollections()
		return Entity{Kind: kind, User: u}, nil
	case KindRole:
		r := new(role.Role)
		if err := bson.Unmarshal(raw, r); err != nil {
			return Entity{}, fmt.Errorf("store: decode role: %w", err)
		}
		r.EnsureCollections()
		return Entity{Kind: kind, Role: r}, nil
	default:
		return Entity{}, fmt.Errorf("%w: %q", ErrUnknownDocumentType, kind)
	}
}

// DecodeUser decodes raw and requires it to be a principal document.
func DecodeUser(raw bson.Raw) (*user.User, error) {
	e, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	if e.Kind != KindUser {
		return nil, fmt.Errorf("%w: want %s, got %s", ErrUnknownDocumentType, KindUser, e.Kind)
	}
	return e.User, nil
}

// DecodeRole decodes raw and requires it to be a role document.
func DecodeRole(raw bson.Raw) (*role.Role, error) {
	e, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	if e.Kind != KindRole {
		return nil, fmt.Errorf("%w: want %s, got %s", ErrUnknownDocumentType, KindRole, e.Kind)
	}
	return e.Role, nil
}
