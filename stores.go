package keep

import (
	"context"
	"time"

	"github.com/xraph/keep/claim"
	"github.com/xraph/keep/role"
	"github.com/xraph/keep/user"
)

// Finders return (nil, nil) when no document matches. Accessors and
// mutators touch only the object passed in; call UpdateUser or UpdateRole
// to persist.

// UserStore is principal CRUD plus the name accessors.
type UserStore interface {
	CreateUser(ctx context.Context, u *user.User) (Result, error)
	UpdateUser(ctx context.Context, u *user.User) (Result, error)
	DeleteUser(ctx context.Context, u *user.User) (Result, error)
	FindUserByID(ctx context.Context, userID string) (*user.User, error)
	FindUserByName(ctx context.Context, normalizedUserName string) (*user.User, error)
	GetUserID(ctx context.Context, u *user.User) (string, error)
	GetUserName(ctx context.Context, u *user.User) (string, error)
	SetUserName(ctx context.Context, u *user.User, userName string) error
	GetNormalizedUserName(ctx context.Context, u *user.User) (string, error)
	SetNormalizedUserName(ctx context.Context, u *user.User, normalizedName string) error
}

// UserClaimStore manages the claims carried by a principal.
type UserClaimStore interface {
	GetClaims(ctx context.Context, u *user.User) ([]claim.Claim, error)
	AddClaims(ctx context.Context, u *user.User, claims ...claim.Claim) error
	ReplaceClaim(ctx context.Context, u *user.User, old, replacement claim.Claim) error
	RemoveClaims(ctx context.Context, u *user.User, claims ...claim.Claim) error
	FindUsersForClaim(ctx context.Context, c claim.Claim) ([]*user.User, error)
}

// UserLoginStore manages external logins.
type UserLoginStore interface {
	AddLogin(ctx context.Context, u *user.User, login user.Login) error
	RemoveLogin(ctx context.Context, u *user.User, provider, providerKey string) error
	GetLogins(ctx context.Context, u *user.User) ([]user.Login, error)
	FindByLogin(ctx context.Context, provider, providerKey string) (*user.User, error)
}

// UserRoleStore manages role membership through embedded role snapshots.
// Role names are compared by exact normalized name.
type UserRoleStore interface {
	AddToRole(ctx context.Context, u *user.User, normalizedRoleName string) error
	RemoveFromRole(ctx context.Context, u *user.User, normalizedRoleName string) error
	GetRoles(ctx context.Context, u *user.User) ([]string, error)
	IsInRole(ctx context.Context, u *user.User, normalizedRoleName string) (bool, error)
	FindUsersInRole(ctx context.Context, normalizedRoleName string) ([]*user.User, error)
}

// UserPasswordStore holds the password hash.
type UserPasswordStore interface {
	SetPasswordHash(ctx context.Context, u *user.User, hash string) error
	GetPasswordHash(ctx context.Context, u *user.User) (string, error)
	HasPassword(ctx context.Context, u *user.User) (bool, error)
}

// UserSecurityStampStore holds the security stamp.
type UserSecurityStampStore interface {
	SetSecurityStamp(ctx context.Context, u *user.User, stamp string) error
	GetSecurityStamp(ctx context.Context, u *user.User) (string, error)
}

// UserTwoFactorStore holds the two-factor flag.
type UserTwoFactorStore interface {
	SetTwoFactorEnabled(ctx context.Context, u *user.User, enabled bool) error
	GetTwoFactorEnabled(ctx context.Context, u *user.User) (bool, error)
}

// UserPhoneNumberStore holds the phone number and its confirmation.
type UserPhoneNumberStore interface {
	SetPhoneNumber(ctx context.Context, u *user.User, phone string) error
	GetPhoneNumber(ctx context.Context, u *user.User) (string, error)
	SetPhoneNumberConfirmed(ctx context.Context, u *user.User, confirmed bool) error
	GetPhoneNumberConfirmed(ctx context.Context, u *user.User) (bool, error)
}

// UserEmailStore holds the email address, its confirmation and its lookup
// key.
type UserEmailStore interface {
	SetEmail(ctx context.Context, u *user.User, email string) error
	GetEmail(ctx context.Context, u *user.User) (string, error)
	SetEmailConfirmed(ctx context.Context, u *user.User, confirmed bool) error
	GetEmailConfirmed(ctx context.Context, u *user.User) (bool, error)
	FindByEmail(ctx context.Context, normalizedEmail string) (*user.User, error)
	GetNormalizedEmail(ctx context.Context, u *user.User) (string, error)
	SetNormalizedEmail(ctx context.Context, u *user.User, normalizedEmail string) error
}

// UserLockoutStore holds the lockout state.
type UserLockoutStore interface {
	GetLockoutEndDate(ctx context.Context, u *user.User) (*time.Time, error)
	SetLockoutEndDate(ctx context.Context, u *user.User, end *time.Time) error
	IncrementAccessFailedCount(ctx context.Context, u *user.User) (int, error)
	ResetAccessFailedCount(ctx context.Context, u *user.User) error
	GetAccessFailedCount(ctx context.Context, u *user.User) (int, error)
	GetLockoutEnabled(ctx context.Context, u *user.User) (bool, error)
	SetLockoutEnabled(ctx context.Context, u *user.User, enabled bool) error
}

// UserAuthenticatorKeyStore holds the authenticator app key.
type UserAuthenticatorKeyStore interface {
	SetAuthenticatorKey(ctx context.Context, u *user.User, key string) error
	GetAuthenticatorKey(ctx context.Context, u *user.User) (string, error)
}

// UserRecoveryCodeStore holds two-factor recovery codes.
type UserRecoveryCodeStore interface {
	ReplaceCodes(ctx context.Context, u *user.User, codes ...string) error
	RedeemCode(ctx context.Context, u *user.User, code string) (bool, error)
	CountCodes(ctx context.Context, u *user.User) (int, error)
}

// RoleStore is role CRUD plus the name accessors.
type RoleStore interface {
	RoleFinder
	CreateRole(ctx context.Context, r *role.Role) (Result, error)
	UpdateRole(ctx context.Context, r *role.Role) (Result, error)
	DeleteRole(ctx context.Context, r *role.Role) (Result, error)
	FindRoleByID(ctx context.Context, roleID string) (*role.Role, error)
	GetRoleID(ctx context.Context, r *role.Role) (string, error)
	GetRoleName(ctx context.Context, r *role.Role) (string, error)
	SetRoleName(ctx context.Context, r *role.Role, name string) error
	GetNormalizedRoleName(ctx context.Context, r *role.Role) (string, error)
	SetNormalizedRoleName(ctx context.Context, r *role.Role, normalizedName string) error
}

// RoleClaimStore manages the claims carried by a role.
type RoleClaimStore interface {
	GetClaims(ctx context.Context, r *role.Role) ([]claim.Claim, error)
	AddClaim(ctx context.Context, r *role.Role, c claim.Claim) error
	RemoveClaim(ctx context.Context, r *role.Role, c claim.Claim) error
}

// RoleFinder resolves a role by its normalized name. The user store uses
// it to take role snapshots in AddToRole.
type RoleFinder interface {
	FindRoleByName(ctx context.Context, normalizedName string) (*role.Role, error)
}
