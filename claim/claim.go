// Package claim defines the claim value attached to principals and roles.
package claim

// Defaults applied by New, matching what identity frameworks emit for
// locally issued claims.
const (
	ValueTypeString = "http://www.w3.org/2001/XMLSchema#string"
	LocalAuthority  = "LOCAL AUTHORITY"
)

// Claim is a (type, value) statement about a principal or role, qualified by
// the value's type and the authority that issued it. Claims have no identity
// of their own; duplicates by type are permitted.
type Claim struct {
	Type           string `json:"type" bson:"type"`
	Value          string `json:"value" bson:"value"`
	ValueType      string `json:"valueType,omitempty" bson:"valueType,omitempty"`
	Issuer         string `json:"issuer,omitempty" bson:"issuer,omitempty"`
	OriginalIssuer string `json:"originalIssuer,omitempty" bson:"originalIssuer,omitempty"`
}

// New returns a locally issued string claim.
func New(claimType, value string) Claim {
	return Claim{
		Type:           claimType,
		Value:          value,
		ValueType:      ValueTypeString,
		Issuer:         LocalAuthority,
		OriginalIssuer: LocalAuthority,
	}
}

// Equal reports whether c and o are the same claim: type, value, value type
// and issuer all match. OriginalIssuer is provenance and is not compared.
func (c Claim) Equal(o Claim) bool {
	return c.Type == o.Type &&
		c.Value == o.Value &&
		c.ValueType == o.ValueType &&
		c.Issuer == o.Issuer
}

// Matches reports whether c and o agree on type and value. Claim lookups
// across principals use this looser comparison.
func (c Claim) Matches(o Claim) bool {
	return c.Type == o.Type && c.Value == o.Value
}

// IndexOf returns the index of the first claim in list equal to c, or -1.
func IndexOf(list []Claim, c Claim) int {
	for i := range list {
		if list[i].Equal(c) {
			return i
		}
	}
	return -1
}

// Remove returns list without any claim equal to one of drop. The result
// reuses list's backing array.
func Remove(list []Claim, drop ...Claim) []Claim {
	out := list[:0]
	for _, c := range list {
		if IndexOf(drop, c) < 0 {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a copy of list that never aliases it. A nil list yields an
// empty, non-nil slice.
func Clone(list []Claim) []Claim {
	out := make([]Claim, len(list))
	copy(out, list)
	return out
}
