package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/itparc/inventory/internal/services"
	"github.com/itparc/inventory/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	u, err := f.users.Create(ctx, 0, services.NewUser{
		Username:  " alice ",
		Email:     "alice@example.com",
		Password:  "s3cret",
		FirstName: "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, types.RoleUser, u.Role)
	assert.Empty(t, u.PasswordHash)

	stored, err := f.db.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", stored.PasswordHash)
	assert.True(t, f.creds.VerifySecret("s3cret", stored.PasswordHash))

	require.Len(t, f.events.Events(), 1)
	assert.Equal(t, types.EventUserCreated, f.events.Events()[0].Type)
}

func TestUserService_CreateValidation(t *testing.T) {
	f := newFixture(t)

	tests := map[string]services.NewUser{
		"missing username": {Email: "a@example.com", Password: "x"},
		"missing email":    {Username: "a", Password: "x"},
		"missing password": {Username: "a", Email: "a@example.com"},
		"unknown role":     {Username: "a", Email: "a@example.com", Password: "x", Role: "root"},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.users.Create(context.Background(), 0, in)
			assert.ErrorIs(t, err, services.ErrValidation)
		})
	}
}

func TestUserService_DuplicateUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "bob", types.RoleUser)

	_, err := f.users.Create(ctx, 0, services.NewUser{Username: "bob", Email: "other@example.com", Password: "x"})
	assert.ErrorIs(t, err, services.ErrDuplicateUser)

	_, err = f.users.Create(ctx, 0, services.NewUser{Username: "robert", Email: "bob@example.com", Password: "x"})
	assert.ErrorIs(t, err, services.ErrDuplicateUser)
}

func TestUserService_List(t *testing.T) {
	f := newFixture(t)
	first := f.user(t, "first", types.RoleUser)
	second := f.user(t, "second", types.RoleAdmin)

	users, err := f.users.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, second.ID, users[0].ID, "newest first")
	assert.Equal(t, first.ID, users[1].ID)
	for _, u := range users {
		assert.Empty(t, u.PasswordHash)
	}
}

func TestUserService_Get(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "carol", types.RoleUser)

	got, err := f.users.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", got.Username)
	assert.Empty(t, got.PasswordHash)

	_, err = f.users.Get(context.Background(), 999)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestUserService_UpdatePartial(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, "admin", types.RoleAdmin)

	u, err := f.users.Create(ctx, admin.ID, services.NewUser{
		Username:  "dave",
		Email:     "dave@example.com",
		Password:  "old",
		FirstName: "Dave",
		LastName:  "Jones",
	})
	require.NoError(t, err)
	before, err := f.db.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)

	updated, err := f.users.Update(ctx, admin.ID, u.ID, services.UserUpdate{
		LastName: strPtr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "dave", updated.Username)
	assert.Equal(t, "dave@example.com", updated.Email)
	assert.Equal(t, types.RoleUser, updated.Role)
	assert.Equal(t, "Dave", updated.FirstName, "absent name is kept")
	assert.Equal(t, "", updated.LastName, "empty name clears")

	after, err := f.db.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash, "no password, no re-hash")

	updated, err = f.users.Update(ctx, admin.ID, u.ID, services.UserUpdate{
		Username: "david",
		Role:     types.RoleAdmin,
		Password: "new",
	})
	require.NoError(t, err)
	assert.Equal(t, "david", updated.Username)
	assert.Equal(t, types.RoleAdmin, updated.Role)

	after, err = f.db.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, f.creds.VerifySecret("new", after.PasswordHash))
	assert.False(t, f.creds.VerifySecret("old", after.PasswordHash))
}

func TestUserService_UpdateUniqueness(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, "admin", types.RoleAdmin)
	erin := f.user(t, "erin", types.RoleUser)
	f.user(t, "frank", types.RoleUser)

	_, err := f.users.Update(ctx, admin.ID, erin.ID, services.UserUpdate{Username: "frank"})
	assert.ErrorIs(t, err, services.ErrDuplicateUser)
	assert.EqualError(t, err, "username already taken")

	_, err = f.users.Update(ctx, admin.ID, erin.ID, services.UserUpdate{Username: "erin"})
	assert.NoError(t, err, "keeping the same username is not a conflict")

	_, err = f.users.Update(ctx, admin.ID, erin.ID, services.UserUpdate{Email: "frank@example.com"})
	assert.ErrorIs(t, err, services.ErrDuplicateUser, "store conflict on email")

	_, err = f.users.Update(ctx, admin.ID, erin.ID, services.UserUpdate{Role: "owner"})
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = f.users.Update(ctx, admin.ID, 999, services.UserUpdate{Username: "ghost"})
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestUserService_DeleteLastAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, "root", types.RoleAdmin)
	operator := f.user(t, "operator", types.RoleUser)

	err := f.users.Delete(ctx, operator, admin.ID)
	assert.ErrorIs(t, err, services.ErrLastAdmin)

	second := f.user(t, "root2", types.RoleAdmin)
	require.NoError(t, f.users.Delete(ctx, second, admin.ID))

	_, err = f.users.Get(ctx, admin.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestUserService_DeleteSelf(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, "root", types.RoleAdmin)
	f.user(t, "root2", types.RoleAdmin)

	err := f.users.Delete(ctx, admin, admin.ID)
	assert.ErrorIs(t, err, services.ErrSelfDelete)
}

func TestUserService_DeleteSoleAdminSelf(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "root", types.RoleAdmin)

	err := f.users.Delete(context.Background(), admin, admin.ID)
	assert.ErrorIs(t, err, services.ErrLastAdmin, "last-admin check runs first")
}

func TestUserService_DeleteRegularUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, "root", types.RoleAdmin)
	u := f.user(t, "gina", types.RoleUser)

	require.NoError(t, f.users.Delete(ctx, admin, u.ID))
	assert.ErrorIs(t, f.users.Delete(ctx, admin, u.ID), services.ErrNotFound)

	events := f.events.Events()
	last := events[len(events)-1]
	assert.Equal(t, types.EventUserDeleted, last.Type)
	assert.Equal(t, admin.ID, last.ActorID)
	assert.Equal(t, u.ID, last.SubjectID)
}

func TestUserService_PasswordLength(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, "root", types.RoleAdmin)
	long := strings.Repeat("x", 80)

	_, err := f.users.Create(ctx, admin.ID, services.NewUser{Username: "long", Email: "long@example.com", Password: long})
	assert.ErrorIs(t, err, services.ErrValidation)

	u, err := f.users.Create(ctx, admin.ID, services.NewUser{
		Username: "edge", Email: "edge@example.com", Password: strings.Repeat("x", 72),
	})
	require.NoError(t, err)

	_, err = f.users.Update(ctx, admin.ID, u.ID, services.UserUpdate{Password: long})
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestUserService_DemoteLastAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.user(t, "root", types.RoleAdmin)

	_, err := f.users.Update(ctx, admin.ID, admin.ID, services.UserUpdate{Role: types.RoleUser})
	assert.ErrorIs(t, err, services.ErrLastAdmin)
	assert.EqualError(t, err, "cannot demote the last administrator")

	_, err = f.users.Update(ctx, admin.ID, admin.ID, services.UserUpdate{Role: types.RoleAdmin})
	assert.NoError(t, err, "keeping the admin role is not a demotion")

	second := f.user(t, "root2", types.RoleAdmin)
	demoted, err := f.users.Update(ctx, second.ID, admin.ID, services.UserUpdate{Role: types.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, types.RoleUser, demoted.Role)
}
