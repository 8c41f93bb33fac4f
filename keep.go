// Package keep is a document-database persistence layer for identity
// principals and roles.
//
// The userstore and rolestore packages implement the capability interfaces
// declared here on top of any store.Store backend (memory, MongoDB,
// PostgreSQL, SQLite). Capability methods mutate only the caller's object;
// nothing is persisted until CreateUser/UpdateUser/DeleteUser (or their role
// counterparts) is called.
//
//	backend := memory.New()
//	roles, err := rolestore.New(backend)
//	users, err := userstore.New(backend, keep.WithRoleFinder(roles))
//
//	u := user.New("alice")
//	_ = users.SetNormalizedUserName(ctx, u, keep.NormalizeLookup("alice"))
//	res, err := users.CreateUser(ctx, u)
package keep

import (
	"fmt"
	"net/http"
	"strings"
)

// Result error codes.
const (
	CodeUserNotFound       = "UserNotFound"
	CodeRoleNotFound       = "RoleNotFound"
	CodeConcurrencyFailure = "ConcurrencyFailure"
	CodeDuplicateUserID    = "DuplicateUserID"
	CodeDuplicateRoleID    = "DuplicateRoleID"
	CodeDuplicateLogin     = "DuplicateLogin"
)

// ResultError describes one reason a write did not succeed. Status is the
// HTTP-style status code reported by the backend.
type ResultError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Status      int    `json:"status,omitempty"`
}

// Result is the outcome of a create, update or delete. A failed Result is
// an expected outcome (the document vanished, was modified concurrently or
// collides with another); infrastructure failures are returned as errors.
type Result struct {
	Succeeded bool          `json:"succeeded"`
	Errors    []ResultError `json:"errors,omitempty"`
}

// Success returns a succeeded Result.
func Success() Result { return Result{Succeeded: true} }

// Failed returns a failed Result carrying errs.
func Failed(errs ...ResultError) Result { return Result{Errors: errs} }

// Err returns nil for a succeeded result and a *FailureError otherwise.
func (r Result) Err() error {
	if r.Succeeded {
		return nil
	}
	return &FailureError{Errors: r.Errors}
}

func (r Result) String() string {
	if r.Succeeded {
		return "Succeeded"
	}
	codes := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		codes[i] = e.Code
	}
	return "Failed : " + strings.Join(codes, ",")
}

// FailureError is the error form of a failed Result. It matches ErrNotFound
// or ErrConflict under errors.Is according to its codes.
type FailureError struct {
	Errors []ResultError
}

func (e *FailureError) Error() string {
	if len(e.Errors) == 0 {
		return "keep: operation failed"
	}
	parts := make([]string, len(e.Errors))
	for i, re := range e.Errors {
		parts[i] = fmt.Sprintf("%s: %s", re.Code, re.Description)
	}
	return "keep: " + strings.Join(parts, "; ")
}

// Is reports whether any carried code corresponds to target.
func (e *FailureError) Is(target error) bool {
	for _, re := range e.Errors {
		switch re.Code {
		case CodeUserNotFound, CodeRoleNotFound:
			if target == ErrNotFound {
				return true
			}
		case CodeConcurrencyFailure, CodeDuplicateUserID, CodeDuplicateRoleID, CodeDuplicateLogin:
			if target == ErrConflict {
				return true
			}
		}
	}
	return false
}

// UserNotFound describes a principal document that no longer exists.
func UserNotFound() ResultError {
	return ResultError{Code: CodeUserNotFound, Description: "User not found", Status: http.StatusNotFound}
}

// RoleNotFound describes a role document that no longer exists.
func RoleNotFound() ResultError {
	return ResultError{Code: CodeRoleNotFound, Description: "Role not found", Status: http.StatusNotFound}
}

// ConcurrencyFailure describes a write made against a stale version.
func ConcurrencyFailure() ResultError {
	return ResultError{
		Code:        CodeConcurrencyFailure,
		Description: "Optimistic concurrency failure, object has been modified.",
		Status:      http.StatusPreconditionFailed,
	}
}

// Duplicate describes a write rejected by the backend with a conflict.
func Duplicate(code, description string) ResultError {
	return ResultError{Code: code, Description: description, Status: http.StatusConflict}
}
