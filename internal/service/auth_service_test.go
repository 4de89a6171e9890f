package service

import (
	"errors"
	"testing"
	"time"

	"DocTrack/internal/conf"
	"DocTrack/internal/dto"
	"DocTrack/internal/model"
	"DocTrack/internal/repository"
	"DocTrack/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuthFixture(t *testing.T) (AuthService, *gorm.DB) {
	t.Helper()
	require.NoError(t, utils.InitJWT("test-secret", time.Hour))
	db := newTestDB(t)
	// 测试用最低 cost，省掉 bcrypt 的耗时
	cfg := &conf.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour, BcryptCost: 4}
	return NewAuthService(repository.NewUserRepository(db), cfg, testLogger()), db
}

func TestRegister(t *testing.T) {
	svc, db := newAuthFixture(t)

	t.Run("first registrant becomes department admin", func(t *testing.T) {
		resp, err := svc.Register(dto.RegisterReq{
			Name: "Erin", Email: "erin@corp.test", Password: "secret123", Department: "Engineering",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, model.RoleAdmin, resp.User.Role)
		assert.Equal(t, "Engineering", resp.User.Department)

		claims, err := utils.VerifyToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, resp.User.ID, claims.UserID)
	})

	t.Run("second admin for same department rejected", func(t *testing.T) {
		_, err := svc.Register(dto.RegisterReq{
			Name: "Evil", Email: "evil@corp.test", Password: "secret123", Department: "Engineering",
		})
		assert.True(t, errors.Is(err, ErrConflict))
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		_, err := svc.Register(dto.RegisterReq{
			Name: "Erin2", Email: "erin@corp.test", Password: "secret123", Department: "Sales",
		})
		assert.True(t, errors.Is(err, ErrConflict))
	})

	t.Run("other department can still register its admin", func(t *testing.T) {
		resp, err := svc.Register(dto.RegisterReq{
			Name: "Sam", Email: "sam@corp.test", Password: "secret123", Department: "Sales",
		})
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, resp.User.Role)
	})

	// 密码不落明文
	var stored model.User
	require.NoError(t, db.Where("email = ?", "erin@corp.test").First(&stored).Error)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
	assert.True(t, utils.CheckPasswordHash("secret123", stored.PasswordHash))
}

func TestLogin(t *testing.T) {
	svc, db := newAuthFixture(t)

	_, err := svc.Register(dto.RegisterReq{
		Name: "Erin", Email: "erin@corp.test", Password: "secret123", Department: "Engineering",
	})
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		resp, err := svc.Login(dto.LoginReq{Email: "erin@corp.test", Password: "secret123"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		require.NotNil(t, resp.User.LastLogin)
	})

	t.Run("wrong password and unknown email look identical", func(t *testing.T) {
		_, errWrongPass := svc.Login(dto.LoginReq{Email: "erin@corp.test", Password: "nope"})
		_, errNoUser := svc.Login(dto.LoginReq{Email: "ghost@corp.test", Password: "nope"})
		require.Error(t, errWrongPass)
		require.Error(t, errNoUser)
		assert.True(t, errors.Is(errWrongPass, ErrUnauthorized))
		assert.Equal(t, errWrongPass.Error(), errNoUser.Error())
	})

	t.Run("deactivated account cannot login", func(t *testing.T) {
		require.NoError(t, db.Model(&model.User{}).
			Where("email = ?", "erin@corp.test").
			Update("is_active", false).Error)

		_, err := svc.Login(dto.LoginReq{Email: "erin@corp.test", Password: "secret123"})
		assert.True(t, errors.Is(err, ErrUnauthorized))
	})
}

func TestChangePassword(t *testing.T) {
	svc, _ := newAuthFixture(t)

	resp, err := svc.Register(dto.RegisterReq{
		Name: "Erin", Email: "erin@corp.test", Password: "secret123", Department: "Engineering",
	})
	require.NoError(t, err)

	t.Run("wrong current password rejected", func(t *testing.T) {
		err := svc.ChangePassword(resp.User.ID, dto.ChangePasswordReq{
			CurrentPassword: "nope", NewPassword: "newsecret",
		})
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("rotation works end to end", func(t *testing.T) {
		require.NoError(t, svc.ChangePassword(resp.User.ID, dto.ChangePasswordReq{
			CurrentPassword: "secret123", NewPassword: "newsecret",
		}))

		_, err := svc.Login(dto.LoginReq{Email: "erin@corp.test", Password: "secret123"})
		require.Error(t, err)

		_, err = svc.Login(dto.LoginReq{Email: "erin@corp.test", Password: "newsecret"})
		require.NoError(t, err)
	})
}
