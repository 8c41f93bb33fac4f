package keep

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// LookupNormalizer computes the lookup keys stored in normalizedUserName,
// normalizedEmail and a role's normalizedName. The stores never call it;
// callers normalize before handing values to a setter or finder.
type LookupNormalizer interface {
	NormalizeName(name string) string
	NormalizeEmail(email string) string
}

// DefaultNormalizer composes Unicode NFC and invariant lower casing.
type DefaultNormalizer struct{}

var _ LookupNormalizer = DefaultNormalizer{}

// NormalizeName normalizes a user or role name.
func (DefaultNormalizer) NormalizeName(name string) string { return NormalizeLookup(name) }

// NormalizeEmail normalizes an email address.
func (DefaultNormalizer) NormalizeEmail(email string) string { return NormalizeLookup(email) }

// NormalizeLookup returns s in NFC form, lower cased without language
// specific rules. Empty input stays empty.
func NormalizeLookup(s string) string {
	if s == "" {
		return ""
	}
	return cases.Lower(language.Und).String(norm.NFC.String(s))
}
