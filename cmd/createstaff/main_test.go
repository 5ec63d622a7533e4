package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/services-marketplace/internal/model"
	"github.com/iliyamo/services-marketplace/internal/repository"
	"github.com/iliyamo/services-marketplace/internal/testutil"
	"github.com/iliyamo/services-marketplace/internal/utils"
)

func TestRunCreatesStaffUser(t *testing.T) {
	users := repository.NewUserRepo(testutil.NewDB(t))
	ctx := context.Background()
	var out bytes.Buffer

	err := run(ctx, []string{
		"-username", "admin", "-email", "Admin@Example.com", "-password", "secret123",
		"-first-name", "Ada", "-last-name", "Martin",
	}, users, bcrypt.MinCost, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "created staff user admin")

	u, err := users.GetByLogin(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, u.Role)
	assert.Equal(t, "Ada Martin", u.FullName())
	assert.True(t, u.IsActive)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "secret123"))

	err = run(ctx, []string{"-username", "admin", "-email", "other@example.com", "-password", "secret123"},
		users, bcrypt.MinCost, &out)
	assert.ErrorIs(t, err, repository.ErrUserExists)
}

func TestRunRejectsMissingFlags(t *testing.T) {
	users := repository.NewUserRepo(testutil.NewDB(t))
	for name, args := range map[string][]string{
		"no username":    {"-email", "a@example.com", "-password", "secret123"},
		"no email":       {"-username", "a", "-password", "secret123"},
		"short password": {"-username", "a", "-email", "a@example.com", "-password", "short"},
	} {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(context.Background(), args, users, bcrypt.MinCost, &out)
			assert.ErrorIs(t, err, errUsage)
			assert.Contains(t, out.String(), "-username")
		})
	}

	var out bytes.Buffer
	assert.Error(t, run(context.Background(), []string{"-bogus"}, users, bcrypt.MinCost, &out))
}
