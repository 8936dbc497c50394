package directory_test

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/identity-engine/directory"
	"github.com/warp/identity-engine/directory/store"
)

var _ directory.Store = (*store.Memory)(nil)

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notFound bool
		conflict bool
	}{
		{"user lookup", directory.NotFound(directory.ErrUserNotFound, "id", "u1"), true, false},
		{"slack lookup", directory.NotFound(directory.ErrSlackUserNotFound, "slack_user_id", "S1"), true, false},
		{"wrapped project lookup", fmt.Errorf("team members: %w", directory.NotFound(directory.ErrProjectNotFound, "team_leader_id", "u1")), true, false},
		{"email taken", directory.ErrEmailTaken, false, true},
		{"slack name taken", fmt.Errorf("add user: %w", directory.ErrSlackUserNameTaken), false, true},
		{"other", fmt.Errorf("disk full"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, directory.IsNotFound(tt.err))
			assert.Equal(t, tt.conflict, directory.IsConflict(tt.err))
		})
	}
}

func TestLookupError_ReportsKey(t *testing.T) {
	err := fmt.Errorf("wrap: %w", directory.NotFound(directory.ErrUserNotFound, "email", "a@x.io"))

	var lerr *directory.LookupError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "email", lerr.Field)
	assert.Equal(t, "a@x.io", lerr.Value)
	assert.ErrorIs(t, err, directory.ErrUserNotFound)
	assert.Contains(t, err.Error(), "user not found (email=a@x.io)")
}

func TestUser_FullNameAndEntitlement(t *testing.T) {
	u := directory.User{
		FirstName:   "Ada",
		CasualLeave: decimal.RequireFromString("7.5"),
		SickLeave:   decimal.NewFromInt(3),
	}

	assert.Equal(t, "Ada", u.FullName())
	u.LastName = "Lovelace"
	assert.Equal(t, "Ada Lovelace", u.FullName())

	ent := u.Entitlement()
	assert.Equal(t, "7.5", ent.Casual.String())
	assert.Equal(t, "3", ent.Sick.String())
}
