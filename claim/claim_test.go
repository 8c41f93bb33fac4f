package claim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/keep/claim"
)

func TestNewDefaults(t *testing.T) {
	c := claim.New("email", "a@example.com")
	assert.Equal(t, "email", c.Type)
	assert.Equal(t, "a@example.com", c.Value)
	assert.Equal(t, claim.ValueTypeString, c.ValueType)
	assert.Equal(t, claim.LocalAuthority, c.Issuer)
	assert.Equal(t, claim.LocalAuthority, c.OriginalIssuer)
}

func TestEqualAndMatches(t *testing.T) {
	base := claim.New("dept", "eng")

	tests := []struct {
		name    string
		other   claim.Claim
		equal   bool
		matches bool
	}{
		{"identical", base, true, true},
		{"other original issuer", func() claim.Claim { c := base; c.OriginalIssuer = "x"; return c }(), true, true},
		{"other issuer", func() claim.Claim { c := base; c.Issuer = "https://idp"; return c }(), false, true},
		{"other value type", func() claim.Claim { c := base; c.ValueType = "int"; return c }(), false, true},
		{"other value", claim.New("dept", "ops"), false, false},
		{"other type", claim.New("team", "eng"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, base.Equal(tt.other))
			assert.Equal(t, tt.matches, base.Matches(tt.other))
		})
	}
}

func TestRemoveKeepsOrder(t *testing.T) {
	a, b, c := claim.New("A", "1"), claim.New("B", "2"), claim.New("C", "3")
	list := []claim.Claim{a, b, c, b}

	got := claim.Remove(list, b)
	assert.Equal(t, []claim.Claim{a, c}, got)
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	a := claim.New("A", "1")
	got := claim.Remove([]claim.Claim{a}, claim.New("Z", "9"))
	assert.Equal(t, []claim.Claim{a}, got)
}

func TestCloneNil(t *testing.T) {
	got := claim.Clone(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
