// Package role defines the role document.
package role

import "github.com/xraph/keep/claim"

// DocumentType is the discriminator value stored on role documents.
const DocumentType = "Role"

// Role is a named group of principals carrying its own claims.
type Role struct {
	ID             string        `json:"id" bson:"_id"`
	Name           string        `json:"name" bson:"name"`
	NormalizedName string        `json:"normalizedName" bson:"normalizedName"`
	Claims         []claim.Claim `json:"claims" bson:"claims"`

	// Version is the optimistic concurrency token. Zero means the role has
	// never been persisted by a store.
	Version int64 `json:"version,omitempty" bson:"_version,omitempty"`
}

// New returns a role named name with an empty claim list.
func New(name string) *Role {
	return &Role{Name: name, Claims: []claim.Claim{}}
}

// EnsureCollections replaces a nil claim list with an empty one.
func (r *Role) EnsureCollections() {
	if r.Claims == nil {
		r.Claims = []claim.Claim{}
	}
}

// Snapshot returns the copy of r that is embedded in a principal's role list
// when the principal is added to the role.
//
// A snapshot is a read-optimised projection taken at assignment time. It is
// not kept in sync with the canonical role: renaming the role or changing its
// claims later leaves principals holding the old snapshot until the role is
// removed and added again.
func (r *Role) Snapshot() Role {
	return Role{
		ID:             r.ID,
		Name:           r.Name,
		NormalizedName: r.NormalizedName,
		Claims:         claim.Clone(r.Claims),
	}
}
