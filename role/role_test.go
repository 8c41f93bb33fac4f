package role_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/keep/claim"
	"github.com/xraph/keep/role"
)

func TestSnapshotIsDetached(t *testing.T) {
	r := role.New("Admin")
	r.ID = "role_1"
	r.NormalizedName = "admin"
	r.Version = 4
	r.Claims = append(r.Claims, claim.New("perm", "all"))

	snap := r.Snapshot()
	assert.Equal(t, "role_1", snap.ID)
	assert.Equal(t, "admin", snap.NormalizedName)
	assert.Zero(t, snap.Version)

	r.Name = "Administrators"
	r.Claims[0].Value = "none"
	assert.Equal(t, "Admin", snap.Name)
	assert.Equal(t, "all", snap.Claims[0].Value)
}
