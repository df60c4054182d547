package service

import (
	"context"
	"testing"
	"time"

	"github.com/fouadsmari/DIA360-sub000/internal/model"
	"github.com/fouadsmari/DIA360-sub000/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialAccessTokenPrefersStoredKey(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCredentialRepository(openTestDB(t))

	svc := NewCredentialService(repo, "", quietLogger())
	_, err := svc.AccessToken(ctx)
	assert.ErrorIs(t, err, ErrNoAccessToken)

	withFallback := NewCredentialService(repo, " config-token ", quietLogger())
	token, err := withFallback.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "config-token", token)

	_, err = withFallback.CreateCredential(ctx, CredentialInput{Name: "main", AccessToken: "stored-token"})
	require.NoError(t, err)
	token, err = withFallback.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stored-token", token)
}

func TestCreateCredentialValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewCredentialService(repository.NewCredentialRepository(openTestDB(t)), "", quietLogger())

	_, err := svc.CreateCredential(ctx, CredentialInput{AccessToken: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateCredential(ctx, CredentialInput{Name: "n", AccessToken: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	past := time.Now().Add(-time.Hour)
	_, err = svc.CreateCredential(ctx, CredentialInput{Name: "n", AccessToken: "x", ExpiresAt: &past})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.ErrorIs(t, svc.DeleteCredential(ctx, 0), ErrInvalidInput)
	assert.ErrorIs(t, svc.DeleteCredential(ctx, 42), ErrNotFound)
}

func TestClientServiceNormalizesAdAccounts(t *testing.T) {
	ctx := context.Background()
	svc := NewClientService(repository.NewClientRepository(openTestDB(t)), quietLogger())

	c, err := svc.CreateClient(ctx, ClientInput{
		CompanyName: "  Acme  ",
		AdAccounts:  []string{"123", "act_123", " act_456 ", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme", c.CompanyName)
	require.Len(t, c.AdAccounts, 2)
	assert.Equal(t, "act_123", c.AdAccounts[0].AdAccountID)
	assert.Equal(t, "act_456", c.AdAccounts[1].AdAccountID)

	inactive := false
	updated, err := svc.UpdateClient(ctx, c.ID, ClientInput{CompanyName: "Acme", IsActive: &inactive, AdAccounts: []string{"789"}})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	require.Len(t, updated.AdAccounts, 1)
	assert.Equal(t, "act_789", updated.AdAccounts[0].AdAccountID)

	linked, err := svc.LinkedAdAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, linked)

	_, err = svc.CreateClient(ctx, ClientInput{CompanyName: "Bad", AdAccounts: []string{"act_12x"}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateClient(ctx, ClientInput{CompanyName: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.UpdateClient(ctx, 999, ClientInput{CompanyName: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.DeleteClient(ctx, c.ID))
	_, err = svc.GetClient(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserServiceRoleRules(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(repository.NewUserRepository(openTestDB(t)), quietLogger())
	admin := Actor{Subject: "100", Role: model.RoleAdmin}
	root := Actor{Subject: "200", Role: model.RoleSuperadmin}

	u, err := svc.CreateUser(ctx, admin, UserInput{Email: " Jo@Example.com ", FirstName: "Jo"})
	require.NoError(t, err)
	assert.Equal(t, "jo@example.com", u.Email)
	assert.Equal(t, model.RoleStandard, u.Role)

	_, err = svc.CreateUser(ctx, admin, UserInput{Email: "boss@example.com", Role: model.RoleSuperadmin})
	assert.ErrorIs(t, err, ErrForbidden)
	boss, err := svc.CreateUser(ctx, root, UserInput{Email: "boss@example.com", Role: model.RoleSuperadmin})
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, admin, UserInput{Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateUser(ctx, admin, UserInput{Email: "x@example.com", Role: "owner"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateUser(ctx, admin, boss.ID, UserInput{FirstName: "B"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, svc.DeleteUser(ctx, admin, boss.ID), ErrForbidden)

	inactive := false
	updated, err := svc.UpdateUser(ctx, admin, u.ID, UserInput{Role: model.RoleAdmin, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, updated.Role)
	assert.False(t, updated.IsActive)

	self := Actor{Subject: "1", Role: model.RoleAdmin}
	assert.ErrorIs(t, svc.DeleteUser(ctx, self, 1), ErrInvalidInput)

	admins, total, err := svc.ListUsers(ctx, model.RoleAdmin, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, u.ID, admins[0].ID)

	require.NoError(t, svc.DeleteUser(ctx, root, boss.ID))
	_, err = svc.GetUser(ctx, boss.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
