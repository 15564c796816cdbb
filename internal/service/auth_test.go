package service

import (
	"testing"
	"time"

	"tasklist-backend/internal/models"
	"tasklist-backend/internal/repository"
	"tasklist-backend/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeUserRepository is an in-memory UserRepository.
type fakeUserRepository struct {
	users  map[int64]*models.User
	nextID int64
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: map[int64]*models.User{}, nextID: 1}
}

func (f *fakeUserRepository) Create(user *models.User) error {
	for _, existing := range f.users {
		if existing.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
	}
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	f.nextID++
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepository) GetByUsername(username string) (*models.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepository) GetByID(id int64) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepository) UpdatePassword(id int64, passwordHash string) error {
	user, ok := f.users[id]
	if !ok {
		return nil
	}
	user.PasswordHash = passwordHash
	return nil
}

func newTestAuthService(repo repository.UserRepository) AuthService {
	codec := token.NewCodec("test-secret", time.Hour)
	return NewAuthService(repo, codec, zap.NewNop())
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")
	assert.NotContains(t, hash, "s3cret")

	assert.True(t, VerifyPassword(hash, "s3cret"))
	assert.False(t, VerifyPassword(hash, "S3cret"))
	assert.False(t, VerifyPassword(hash, ""))
}

func TestHashPasswordUniqueSalt(t *testing.T) {
	first, err := HashPassword("same-password")
	require.NoError(t, err)
	second, err := HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, VerifyPassword(first, "same-password"))
	assert.True(t, VerifyPassword(second, "same-password"))
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	for _, malformed := range []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=65536,t=1,p=4$onlyonesection",
		"$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
	} {
		assert.False(t, VerifyPassword(malformed, "whatever"), "hash %q", malformed)
	}
}

func TestCreateUserValidation(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepository())

	_, err := svc.CreateUser("", "password", models.RoleUser)
	assert.ErrorIs(t, err, ErrEmptyField)

	_, err = svc.CreateUser("   ", "password", models.RoleUser)
	assert.ErrorIs(t, err, ErrEmptyField)

	_, err = svc.CreateUser("bob", "", models.RoleUser)
	assert.ErrorIs(t, err, ErrEmptyField)

	_, err = svc.CreateUser("bob", "password", "superuser")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestCreateUserDuplicate(t *testing.T) {
	repo := newFakeUserRepository()
	svc := newTestAuthService(repo)

	_, err := svc.CreateUser("bob", "password", models.RoleUser)
	require.NoError(t, err)

	_, err = svc.CreateUser("bob", "other-password", models.RoleUser)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
	assert.Len(t, repo.users, 1)
}

func TestLogin(t *testing.T) {
	repo := newFakeUserRepository()
	codec := token.NewCodec("test-secret", time.Hour)
	svc := NewAuthService(repo, codec, zap.NewNop())

	created, err := svc.CreateUser("alice", "password", models.RoleAdmin)
	require.NoError(t, err)

	user, tokenString, err := svc.Login("alice", "password")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	claims, err := codec.Verify(tokenString)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestLoginBadCredentials(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepository())

	_, err := svc.CreateUser("alice", "password", models.RoleUser)
	require.NoError(t, err)

	_, _, err = svc.Login("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login("nobody", "password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePassword(t *testing.T) {
	repo := newFakeUserRepository()
	svc := newTestAuthService(repo)

	user, err := svc.CreateUser("alice", "old-password", models.RoleUser)
	require.NoError(t, err)

	err = svc.ChangePassword(user, "old-password", "new-password")
	require.NoError(t, err)

	_, _, err = svc.Login("alice", "old-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login("alice", "new-password")
	assert.NoError(t, err)
}

func TestChangePasswordRejections(t *testing.T) {
	repo := newFakeUserRepository()
	svc := newTestAuthService(repo)

	user, err := svc.CreateUser("alice", "old-password", models.RoleUser)
	require.NoError(t, err)
	originalHash := repo.users[user.ID].PasswordHash

	err = svc.ChangePassword(user, "", "new-password")
	assert.ErrorIs(t, err, ErrEmptyField)

	err = svc.ChangePassword(user, "old-password", "")
	assert.ErrorIs(t, err, ErrEmptyField)

	err = svc.ChangePassword(user, "old-password", "old-password")
	assert.ErrorIs(t, err, ErrSamePassword)

	err = svc.ChangePassword(user, "not-the-old-one", "new-password")
	assert.ErrorIs(t, err, ErrWrongPassword)

	// No rejection may leave a mutated hash behind.
	assert.Equal(t, originalHash, repo.users[user.ID].PasswordHash)
}

func TestEnsureAdmin(t *testing.T) {
	repo := newFakeUserRepository()
	svc := newTestAuthService(repo)

	require.NoError(t, svc.EnsureAdmin("bootstrap"))

	admin, err := repo.GetByUsername("admin")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, VerifyPassword(admin.PasswordHash, "bootstrap"))

	// Second boot is a no-op, the existing hash stays.
	require.NoError(t, svc.EnsureAdmin("different-password"))
	again, err := repo.GetByUsername("admin")
	require.NoError(t, err)
	assert.Equal(t, admin.PasswordHash, again.PasswordHash)
	assert.Len(t, repo.users, 1)
}
