package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/keep"
	"github.com/xraph/keep/claim"
	"github.com/xraph/keep/role"
	"github.com/xraph/keep/rolestore"
	"github.com/xraph/keep/store"
	"github.com/xraph/keep/store/memory"
	ksqlite "github.com/xraph/keep/store/sqlite"
	"github.com/xraph/keep/user"
	"github.com/xraph/keep/userstore"
)

// seed returns a memory backend holding one role and one principal in it.
func seed(t *testing.T) (*memory.Store, *user.User) {
	t.Helper()
	ctx := context.Background()
	backend := memory.New()
	roles, err := rolestore.New(backend)
	require.NoError(t, err)
	users, err := userstore.New(backend, keep.WithRoleFinder(roles))
	require.NoError(t, err)

	r := role.New("Admin")
	r.NormalizedName = "admin"
	res, err := roles.CreateRole(ctx, r)
	require.NoError(t, err)
	require.True(t, res.Succeeded)

	u := user.New("Alice")
	u.NormalizedUserName = "alice"
	u.Email = "alice@example.com"
	u.NormalizedEmail = "alice@example.com"
	u.PasswordHash = "secret-hash"
	u.Claims = append(u.Claims, claim.New("dept", "eng"))
	u.Logins = append(u.Logins, user.Login{Provider: "github", ProviderKey: "42"})
	require.NoError(t, users.AddToRole(ctx, u, "admin"))
	res, err = users.CreateUser(ctx, u)
	require.NoError(t, err)
	require.True(t, res.Succeeded)
	return backend, u
}

func run(t *testing.T, backend store.Store, args ...string) (string, error) {
	t.Helper()
	for _, env := range []string{"KEEP_CONFIG", "KEEP_DRIVER", "KEEP_URI", "KEEP_DATABASE", "KEEP_OUTPUT"} {
		t.Setenv(env, "")
	}
	s := newSession()
	s.open = func(context.Context, fileConfig) (store.Store, func(context.Context) error, error) {
		return backend, nil, nil
	}
	cmd := newRootCmd(s)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	require.NoError(t, s.close(context.Background()))
	return out.String(), err
}

func TestUsersCommands(t *testing.T) {
	backend, u := seed(t)

	tests := []struct {
		name string
		args []string
	}{
		{"get", []string{"users", "get", u.ID}},
		{"find", []string{"users", "find", "alice"}},
		{"by-email", []string{"users", "by-email", "alice@example.com"}},
		{"by-login", []string{"users", "by-login", "github", "42"}},
		{"by-claim", []string{"users", "by-claim", "dept", "eng"}},
		{"in-role", []string{"users", "in-role", "admin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, backend, tt.args...)
			require.NoError(t, err)

			var got []map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			require.Len(t, got, 1)
			assert.Equal(t, u.ID, got[0]["id"])
			assert.NotContains(t, out, "secret-hash")
		})
	}
}

func TestUsersNotFound(t *testing.T) {
	backend, _ := seed(t)
	_, err := run(t, backend, "users", "find", "nobody")
	assert.ErrorIs(t, err, errNotFound)

	out, err := run(t, backend, "users", "in-role", "nobody")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestUsersTable(t *testing.T) {
	backend, u := seed(t)
	out, err := run(t, backend, "-o", "table", "users", "get", u.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "github:42")
	assert.Contains(t, out, "admin")
}

func TestRolesCommands(t *testing.T) {
	backend, u := seed(t)
	id := u.Roles[0].ID

	out, err := run(t, backend, "roles", "find", "admin")
	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0]["id"])

	out, err = run(t, backend, "-o", "table", "roles", "get", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Admin")

	_, err = run(t, backend, "roles", "get", "role_missing")
	assert.ErrorIs(t, err, errNotFound)
}

func TestMigrateAndPing(t *testing.T) {
	backend := memory.New()

	out, err := run(t, backend, "migrate")
	require.NoError(t, err)
	assert.JSONEq(t, `{"migrated":["keep_identity"]}`, out)

	out, err = run(t, backend, "--driver", "memory", "ping")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","driver":"memory"}`, out)
}

func TestMigrateAndPingTable(t *testing.T) {
	backend := memory.New()

	out, err := run(t, backend, "-o", "table", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Migrated [keep_identity]")

	out, err = run(t, backend, "-o", "table", "ping")
	require.NoError(t, err)
	assert.Contains(t, out, "Store reachable")
}

func TestNormalizeAndVersion(t *testing.T) {
	out, err := run(t, nil, "-o", "table", "normalize", "JOSÉ")
	require.NoError(t, err)
	assert.Equal(t, "josé\n", out)

	out, err = run(t, nil, "version")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"dev","commit":"none"}`, out)
}

func TestInvalidOutputFormat(t *testing.T) {
	_, err := run(t, nil, "-o", "xml", "version")
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"driver: memory\ndatabase: ops\nuser_collection: users\nrole_collection: roles\noutput: table\n"), 0o600))

	cfg, err := loadConfig(path, true)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Driver)
	kc := cfg.keepConfig()
	assert.Equal(t, "ops", kc.Database)
	assert.Equal(t, []string{"users", "roles"}, kc.Collections())

	out, err := run(t, memory.New(), "--config", path, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "keep version dev")

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), true)
	assert.Error(t, err)
	cfg, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, defaultFileConfig(), cfg)
}

func TestOpenBackendDrivers(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := openBackend(ctx, fileConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.Nil(t, closeFn)
	assert.IsType(t, &memory.Store{}, s)

	dsn := "file:" + filepath.Join(t.TempDir(), "keep.db")
	s, closeFn, err = openBackend(ctx, fileConfig{Driver: "sqlite", URI: dsn})
	require.NoError(t, err)
	require.NotNil(t, closeFn)
	assert.IsType(t, &ksqlite.Store{}, s)
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, closeFn(ctx))

	_, _, err = openBackend(ctx, fileConfig{Driver: "cassandra"})
	assert.ErrorContains(t, err, "unsupported driver")
}

func TestSQLiteDriverEndToEnd(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "keep.db")
	t.Setenv("KEEP_CONFIG", "")
	t.Setenv("KEEP_OUTPUT", "")

	exec := func(args ...string) (string, error) {
		s := newSession()
		cmd := newRootCmd(s)
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(append([]string{"--driver", "sqlite", "--uri", dsn}, args...))
		err := cmd.Execute()
		require.NoError(t, s.close(context.Background()))
		return out.String(), err
	}

	out, err := exec("migrate")
	require.NoError(t, err)
	assert.JSONEq(t, `{"migrated":["keep_identity"]}`, out)

	out, err = exec("ping")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","driver":"sqlite"}`, out)

	_, err = exec("users", "find", "nobody")
	assert.ErrorIs(t, err, errNotFound)
}
