// Package user defines the principal document: one authenticatable identity
// with its credentials, contact details, claims, external logins, role
// snapshots and lockout state.
package user

import (
	"time"

	"github.com/xraph/keep/claim"
	"github.com/xraph/keep/role"
)

// DocumentType is the discriminator value stored on principal documents.
const DocumentType = "User"

// User is the principal document.
//
// NormalizedUserName and NormalizedEmail are lookup keys computed by the
// caller's normalizer. They are stored as given and never derived here.
type User struct {
	ID                 string `json:"id" bson:"_id"`
	UserName           string `json:"userName" bson:"userName"`
	NormalizedUserName string `json:"normalizedUserName" bson:"normalizedUserName"`

	Email                  string `json:"email,omitempty" bson:"email"`
	NormalizedEmail        string `json:"normalizedEmail,omitempty" bson:"normalizedEmail"`
	IsEmailConfirmed       bool   `json:"isEmailConfirmed" bson:"isEmailConfirmed"`
	PhoneNumber            string `json:"phoneNumber,omitempty" bson:"phoneNumber"`
	IsPhoneNumberConfirmed bool   `json:"isPhoneNumberConfirmed" bson:"isPhoneNumberConfirmed"`

	PasswordHash           string   `json:"-" bson:"passwordHash"`
	SecurityStamp          string   `json:"-" bson:"securityStamp"`
	IsTwoFactorAuthEnabled bool     `json:"isTwoFactorAuthEnabled" bson:"isTwoFactorAuthEnabled"`
	AuthenticatorKey       string   `json:"-" bson:"authenticatorKey"`
	RecoveryCodes          []string `json:"-" bson:"recoveryCodes"`

	Logins []Login       `json:"logins" bson:"logins"`
	Roles  []role.Role   `json:"roles" bson:"roles"`
	Claims []claim.Claim `json:"claims" bson:"claims"`

	LockoutEnabled    bool       `json:"lockoutEnabled" bson:"lockoutEnabled"`
	LockoutEndDate    *time.Time `json:"lockoutEndDate,omitempty" bson:"lockoutEndDate"`
	AccessFailedCount int        `json:"accessFailedCount" bson:"accessFailedCount"`

	// Version is the optimistic concurrency token. Zero means the principal
	// has never been persisted by a store.
	Version int64 `json:"version,omitempty" bson:"_version,omitempty"`
}

// Login is an external identity-provider login linked to a principal. The
// (Provider, ProviderKey) pair is unique across all principals.
type Login struct {
	Provider    string `json:"loginProvider" bson:"loginProvider"`
	ProviderKey string `json:"providerKey" bson:"providerKey"`
	DisplayName string `json:"providerDisplayName,omitempty" bson:"providerDisplayName"`
}

// New returns a principal named userName with every list initialised.
func New(userName string) *User {
	u := &User{UserName: userName}
	u.EnsureCollections()
	return u
}

// EnsureCollections replaces nil lists with empty ones so mutators can
// append without checks. Stores call it on every document they hand out.
func (u *User) EnsureCollections() {
	if u.Logins == nil {
		u.Logins = []Login{}
	}
	if u.Roles == nil {
		u.Roles = []role.Role{}
	}
	if u.Claims == nil {
		u.Claims = []claim.Claim{}
	}
	if u.RecoveryCodes == nil {
		u.RecoveryCodes = []string{}
	}
	for i := range u.Roles {
		u.Roles[i].EnsureCollections()
	}
}

// HasLogin reports whether u is linked to provider/providerKey.
func (u *User) HasLogin(provider, providerKey string) bool {
	return u.loginIndex(provider, providerKey) >= 0
}

func (u *User) loginIndex(provider, providerKey string) int {
	for i, l := range u.Logins {
		if l.Provider == provider && l.ProviderKey == providerKey {
			return i
		}
	}
	return -1
}

// RemoveLogin drops the login for provider/providerKey and reports whether
// one was present.
func (u *User) RemoveLogin(provider, providerKey string) bool {
	i := u.loginIndex(provider, providerKey)
	if i < 0 {
		return false
	}
	u.Logins = append(u.Logins[:i], u.Logins[i+1:]...)
	return true
}

// RoleIndex returns the index of the role snapshot whose normalized name is
// exactly normalizedName, or -1.
func (u *User) RoleIndex(normalizedName string) int {
	for i := range u.Roles {
		if u.Roles[i].NormalizedName == normalizedName {
			return i
		}
	}
	return -1
}

// IsLockedOut reports whether lockout is enabled and the lockout end lies
// after now.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnabled && u.LockoutEndDate != nil && u.LockoutEndDate.After(now)
}
