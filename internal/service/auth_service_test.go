package service

import (
	"context"
	"testing"
	"time"

	"shopback/internal/model"
	"shopback/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	st := setupTestStores(t)
	svc := NewAuthService(st.users, "test-secret", time.Hour, []string{"Boss@Shop.test"})

	user, err := svc.Register(ctx, RegisterRequest{
		Email:    " Lee@Shop.test ",
		Password: "correct horse",
		Username: "lee",
		Birthday: "1995-04-12",
	})
	require.NoError(t, err)
	assert.Equal(t, "lee@shop.test", user.Email)
	assert.Equal(t, model.RoleUser, user.Role)
	assert.NotEqual(t, "correct horse", user.PasswordHash)
	require.NotNil(t, user.Birthday)
	assert.Equal(t, 1995, user.Birthday.Year())

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterRequest{Email: "lee@shop.test", Password: "another pw", Username: "lee2"})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("admin email", func(t *testing.T) {
		boss, err := svc.Register(ctx, RegisterRequest{Email: "boss@shop.test", Password: "password1", Username: "boss"})
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, boss.Role)
	})

	t.Run("login issues a token", func(t *testing.T) {
		resp, err := svc.Login(ctx, LoginRequest{Email: "LEE@shop.test", Password: "correct horse"})
		require.NoError(t, err)
		assert.Equal(t, "Bearer", resp.TokenType)
		assert.Equal(t, int64(3600), resp.ExpiresIn)

		claims, err := util.ValidateToken(resp.AccessToken, "test-secret")
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, model.RoleUser, claims.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginRequest{Email: "lee@shop.test", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginRequest{Email: "ghost@shop.test", Password: "whatever"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("get user", func(t *testing.T) {
		found, err := svc.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "lee", found.Username)

		_, err = svc.GetUser(ctx, 9999)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
