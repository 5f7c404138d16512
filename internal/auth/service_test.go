package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/suryanarayanrenjith/stock-portfolio/internal/config"
	"github.com/suryanarayanrenjith/stock-portfolio/internal/database"
	"github.com/suryanarayanrenjith/stock-portfolio/internal/models"
)

func setupAuthTest(t *testing.T) (*gorm.DB, *Service) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	svc := NewService(db, NewMemorySessionStore(), zap.NewNop(), &config.Auth{
		JWTSecret:       "test-secret",
		SessionTTLHours: 1,
	})
	return db, svc
}

func userCount(t *testing.T, db *gorm.DB) int64 {
	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	return count
}

func TestSignup_HashesPassword(t *testing.T) {
	db, svc := setupAuthTest(t)

	err := svc.Signup(context.Background(), "alice", "alice@example.com", "s3cret99", "s3cret99")
	assert.NoError(t, err)

	var user models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&user).Error)
	assert.NotEqual(t, "s3cret99", user.PasswordHash)
	assert.NotEmpty(t, user.PasswordHash)
}

func TestSignup_PasswordMismatch(t *testing.T) {
	db, svc := setupAuthTest(t)

	err := svc.Signup(context.Background(), "alice", "alice@example.com", "s3cret99", "different")
	assert.ErrorIs(t, err, ErrPasswordMismatch)
	assert.Equal(t, int64(0), userCount(t, db))
}

func TestSignup_DuplicateUsernameLeavesTableUnchanged(t *testing.T) {
	db, svc := setupAuthTest(t)

	require.NoError(t, svc.Signup(context.Background(), "alice", "alice@example.com", "s3cret99", "s3cret99"))
	before := userCount(t, db)

	err := svc.Signup(context.Background(), "alice", "other@example.com", "s3cret99", "s3cret99")
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
	assert.Equal(t, before, userCount(t, db))
}

func TestSignup_DuplicateEmail(t *testing.T) {
	db, svc := setupAuthTest(t)

	require.NoError(t, svc.Signup(context.Background(), "alice", "alice@example.com", "s3cret99", "s3cret99"))

	err := svc.Signup(context.Background(), "bob", "alice@example.com", "s3cret99", "s3cret99")
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
	assert.Equal(t, int64(1), userCount(t, db))
}

func TestLogin_SuccessEstablishesSession(t *testing.T) {
	_, svc := setupAuthTest(t)
	require.NoError(t, svc.Signup(context.Background(), "alice", "alice@example.com", "s3cret99", "s3cret99"))

	token, user, err := svc.Login(context.Background(), "alice@example.com", "s3cret99")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "alice", user.Username)

	resolved, err := svc.Authenticate(context.Background(), token)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, resolved)
}

func TestLogin_WrongPasswordAndUnknownEmailAreIndistinguishable(t *testing.T) {
	_, svc := setupAuthTest(t)
	require.NoError(t, svc.Signup(context.Background(), "alice", "alice@example.com", "s3cret99", "s3cret99"))

	_, _, errWrongPassword := svc.Login(context.Background(), "alice@example.com", "nope")
	_, _, errUnknownEmail := svc.Login(context.Background(), "ghost@example.com", "nope")

	assert.ErrorIs(t, errWrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknownEmail, ErrInvalidCredentials)
	assert.Equal(t, errWrongPassword.Error(), errUnknownEmail.Error())
}

func TestLogout_RevokesSession(t *testing.T) {
	_, svc := setupAuthTest(t)
	require.NoError(t, svc.Signup(context.Background(), "alice", "alice@example.com", "s3cret99", "s3cret99"))

	token, _, err := svc.Login(context.Background(), "alice@example.com", "s3cret99")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), token))

	// The JWT is still within its validity window, but the session is gone.
	_, err = svc.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// Logging out again is not an error.
	assert.NoError(t, svc.Logout(context.Background(), token))
}

func TestAuthenticate_RejectsGarbageAndForgedTokens(t *testing.T) {
	_, svc := setupAuthTest(t)

	_, err := svc.Authenticate(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// Token signed with a different secret.
	otherDB, err2 := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err2)
	require.NoError(t, database.AutoMigrate(otherDB))
	other := NewService(otherDB, NewMemorySessionStore(), zap.NewNop(), &config.Auth{
		JWTSecret:       "another-secret",
		SessionTTLHours: 1,
	})
	require.NoError(t, other.Signup(context.Background(), "eve", "eve@example.com", "s3cret99", "s3cret99"))
	forged, _, err2 := other.Login(context.Background(), "eve@example.com", "s3cret99")
	require.NoError(t, err2)

	_, err = svc.Authenticate(context.Background(), forged)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestMemorySessionStore_Expiry(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "tok", 7, 50*time.Millisecond))

	id, err := store.Get(ctx, "tok")
	assert.NoError(t, err)
	assert.Equal(t, uint(7), id)

	time.Sleep(60 * time.Millisecond)
	_, err = store.Get(ctx, "tok")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
