package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/chathub_go_server/config"
	"github.com/qs3c/chathub_go_server/internal/model/dto"
	"github.com/qs3c/chathub_go_server/internal/pkg/jwt"
	"github.com/qs3c/chathub_go_server/internal/repository"
	"github.com/qs3c/chathub_go_server/internal/testutil"
)

func setupAuthService(t *testing.T, mode string) (*AuthService, *repository.UserRepository) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := quotaTestConfig()
	cfg.Server.Mode = mode
	cfg.JWT = config.JWTConfig{
		Secret:      "test-secret-key",
		ExpireHours: 24,
	}

	userRepo := repository.NewUserRepository(db)
	// 不配置邮件服务，注册只落库验证码
	return NewAuthService(userRepo, nil, cfg), userRepo
}

func TestAuthService_Register(t *testing.T) {
	service, userRepo := setupAuthService(t, "release")

	resp, err := service.Register(&dto.RegisterRequest{
		Username: "newuser",
		Email:    "newuser@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.NotZero(t, resp.UserID)

	user, err := userRepo.GetByID(resp.UserID)
	require.NoError(t, err)
	assert.Equal(t, "newuser", user.Username)
	assert.False(t, user.EmailVerified)
	assert.NotNil(t, user.VerificationCode)
	// 新用户落在免费档
	assert.Equal(t, "free", user.SubscriptionLevel)
	assert.Equal(t, 50, user.MonthlyQuota)
	assert.NotNil(t, user.QuotaResetAt)
}

func TestAuthService_Register_DebugAutoVerify(t *testing.T) {
	service, userRepo := setupAuthService(t, "debug")

	resp, err := service.Register(&dto.RegisterRequest{
		Username: "devuser",
		Email:    "dev@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	user, err := userRepo.GetByID(resp.UserID)
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	service, _ := setupAuthService(t, "release")

	req := &dto.RegisterRequest{
		Username: "user1",
		Email:    "dup@example.com",
		Password: "password123",
	}
	_, err := service.Register(req)
	require.NoError(t, err)

	req.Username = "user2"
	_, err = service.Register(req)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	service, _ := setupAuthService(t, "release")

	_, err := service.Register(&dto.RegisterRequest{
		Username: "sameuser",
		Email:    "first@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	_, err = service.Register(&dto.RegisterRequest{
		Username: "sameuser",
		Email:    "second@example.com",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestAuthService_Login(t *testing.T) {
	service, _ := setupAuthService(t, "debug")

	_, err := service.Register(&dto.RegisterRequest{
		Username: "loginuser",
		Email:    "login@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	resp, err := service.Login(&dto.LoginRequest{
		Email:    "login@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "loginuser", resp.User.Username)

	// Token 可以被解析回同一个用户
	claims, err := jwt.ParseToken(resp.Token, "test-secret-key")
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	service, _ := setupAuthService(t, "debug")

	_, err := service.Register(&dto.RegisterRequest{
		Username: "pwuser",
		Email:    "pw@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	_, err = service.Login(&dto.LoginRequest{
		Email:    "pw@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	service, _ := setupAuthService(t, "debug")

	_, err := service.Login(&dto.LoginRequest{
		Email:    "nobody@example.com",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_EmailNotVerified(t *testing.T) {
	service, _ := setupAuthService(t, "release")

	_, err := service.Register(&dto.RegisterRequest{
		Username: "unverified",
		Email:    "unverified@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	_, err = service.Login(&dto.LoginRequest{
		Email:    "unverified@example.com",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestAuthService_VerifyEmail(t *testing.T) {
	service, userRepo := setupAuthService(t, "release")

	resp, err := service.Register(&dto.RegisterRequest{
		Username: "verifyuser",
		Email:    "verify@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	user, err := userRepo.GetByID(resp.UserID)
	require.NoError(t, err)
	require.NotNil(t, user.VerificationCode)

	loginResp, err := service.VerifyEmail(*user.VerificationCode)
	require.NoError(t, err)
	assert.NotEmpty(t, loginResp.Token)

	verified, err := userRepo.GetByID(resp.UserID)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)
	assert.Nil(t, verified.VerificationCode)
}

func TestAuthService_VerifyEmail_InvalidCode(t *testing.T) {
	service, _ := setupAuthService(t, "release")

	_, err := service.VerifyEmail("no-such-code")
	assert.ErrorIs(t, err, ErrInvalidVerifyCode)
}
