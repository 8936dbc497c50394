package role_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/identity-engine/role"
)

func leads(answer bool) (role.LeaderLookup, *int) {
	calls := 0
	return func(string) (bool, error) {
		calls++
		return answer, nil
	}, &calls
}

func TestResolve_AdminIgnoresLookup(t *testing.T) {
	for _, answer := range []bool{true, false} {
		lookup, calls := leads(answer)

		got, err := role.Resolve("u-1", role.Admin, lookup)

		require.NoError(t, err)
		assert.Equal(t, role.Admin, got)
		assert.Zero(t, *calls, "admin resolution must not query projects")
	}
}

func TestResolve_EmployeeLeadingProjectIsTeamLeader(t *testing.T) {
	lookup, calls := leads(true)

	got, err := role.Resolve("u-2", role.Employee, lookup)

	require.NoError(t, err)
	assert.Equal(t, role.TeamLeader, got)
	assert.Equal(t, 1, *calls)
}

func TestResolve_EmployeeWithoutProjectStaysEmployee(t *testing.T) {
	lookup, _ := leads(false)

	got, err := role.Resolve("u-3", role.Employee, lookup)

	require.NoError(t, err)
	assert.Equal(t, role.Employee, got)
}

func TestResolve_LookupReceivesUserID(t *testing.T) {
	var seen string
	_, err := role.Resolve("u-42", role.Employee, func(id string) (bool, error) {
		seen = id
		return false, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "u-42", seen)
}

func TestResolve_UnsupportedBaseRole(t *testing.T) {
	lookup, calls := leads(true)

	for _, base := range []role.Role{role.TeamLeader, role.Role(0), role.Role(99)} {
		_, err := role.Resolve("u-4", base, lookup)
		assert.ErrorIs(t, err, role.ErrUnsupportedRoleKind, "base %v", base)
	}
	assert.Zero(t, *calls)
}

func TestResolve_LookupErrorPropagates(t *testing.T) {
	boom := errors.New("db down")

	_, err := role.Resolve("u-5", role.Employee, func(string) (bool, error) { return false, boom })

	assert.ErrorIs(t, err, boom)
}

func TestParseRole_CaseInsensitive(t *testing.T) {
	tests := map[string]role.Role{
		"Admin":       role.Admin,
		"admin":       role.Admin,
		" EMPLOYEE ":  role.Employee,
		"TeamLeader":  role.TeamLeader,
		"team leader": role.TeamLeader,
	}
	for raw, want := range tests {
		got, err := role.ParseRole(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := role.ParseRole("Owner")
	assert.ErrorIs(t, err, role.ErrUnsupportedRoleKind)
}

func TestRole_TextRoundTrip(t *testing.T) {
	b, err := role.Employee.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Employee", string(b))

	var r role.Role
	require.NoError(t, r.UnmarshalText([]byte("admin")))
	assert.Equal(t, role.Admin, r)

	_, err = role.Role(0).MarshalText()
	assert.ErrorIs(t, err, role.ErrUnsupportedRoleKind)
}

func TestBaseRoles(t *testing.T) {
	assert.Equal(t, []role.Role{role.Admin, role.Employee}, role.BaseRoles())
	assert.True(t, role.Admin.IsBase())
	assert.False(t, role.TeamLeader.IsBase())
}
