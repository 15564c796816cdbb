package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"tasklist-backend/internal/models"
	"tasklist-backend/internal/repository"
	"tasklist-backend/internal/token"

	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmptyField         = errors.New("username and password must not be empty")
	ErrInvalidRole        = errors.New("invalid role")
	ErrSamePassword       = errors.New("new password must differ from the old one")
	ErrWrongPassword      = errors.New("old password is incorrect")
)

// Argon2id parameters. Time/memory cost is deliberately high so stolen
// hashes resist brute force.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

type AuthService interface {
	Login(username, password string) (*models.User, string, error)
	CreateUser(username, password, role string) (*models.User, error)
	ChangePassword(user *models.User, oldPassword, newPassword string) error
	EnsureAdmin(password string) error
}

type authService struct {
	repo   repository.UserRepository
	codec  *token.Codec
	logger *zap.Logger
}

func NewAuthService(repo repository.UserRepository, codec *token.Codec, logger *zap.Logger) AuthService {
	return &authService{repo: repo, codec: codec, logger: logger}
}

// Login verifies the credentials and issues a bearer token. The same error
// is returned for an unknown username and a wrong password.
func (s *authService) Login(username, password string) (*models.User, string, error) {
	user, err := s.repo.GetByUsername(username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to retrieve user: %w", err)
	}
	if user == nil || !VerifyPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	tokenString, _, err := s.codec.Issue(user)
	if err != nil {
		s.logger.Error("Failed to issue token", zap.Error(err))
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("User logged in successfully.", zap.String("username", user.Username))
	return user, tokenString, nil
}

// CreateUser registers a new account. Role defaults are the caller's
// responsibility; an unknown role is rejected here.
func (s *authService) CreateUser(username, password, role string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrEmptyField
	}
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
	}

	err = s.repo.Create(user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUserAlreadyExists
		}
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User created.", zap.String("username", user.Username), zap.String("role", user.Role))
	return user, nil
}

// ChangePassword replaces the stored hash after the old password verifies.
// Nothing is mutated on any failure.
func (s *authService) ChangePassword(user *models.User, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return ErrEmptyField
	}
	if oldPassword == newPassword {
		return ErrSamePassword
	}
	if !VerifyPassword(user.PasswordHash, oldPassword) {
		return ErrWrongPassword
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(user.ID, passwordHash); err != nil {
		s.logger.Error("Failed to update password", zap.Int64("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("failed to update password: %w", err)
	}
	user.PasswordHash = passwordHash

	s.logger.Info("Password changed.", zap.String("username", user.Username))
	return nil
}

// EnsureAdmin seeds the bootstrap admin account on first boot. It is a
// no-op when the account already exists.
func (s *authService) EnsureAdmin(password string) error {
	admin, err := s.repo.GetByUsername("admin")
	if err != nil {
		return fmt.Errorf("failed to check admin account: %w", err)
	}
	if admin != nil {
		return nil
	}

	_, err = s.CreateUser("admin", password, models.RoleAdmin)
	if err != nil {
		// Lost a race against a sibling worker; the account exists now.
		if errors.Is(err, ErrUserAlreadyExists) {
			return nil
		}
		return err
	}

	s.logger.Info("Seeded bootstrap admin account.")
	return nil
}

// HashPassword derives an argon2id hash in PHC string form, e.g.
// $argon2id$v=19$m=65536,t=1,p=4$BASE64_SALT$BASE64_HASH. The salt is random
// per call.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads, encodedSalt, encodedHash), nil
}

// VerifyPassword re-derives the hash with the parameters and salt embedded
// in the stored PHC string and compares in constant time.
func VerifyPassword(hashedPassword, password string) bool {
	sections := strings.Split(strings.TrimPrefix(hashedPassword, "$"), "$")
	// Expected: ["argon2id", "v=19", "m=65536,t=1,p=4", salt, hash]
	if len(sections) != 5 || sections[0] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(sections[1], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(sections[2], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(sections[3])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(sections[4])
	if err != nil {
		return false
	}

	derived := argon2.IDKey([]byte(password), salt, t, m, p, uint32(len(expected)))
	return subtle.ConstantTimeCompare(derived, expected) == 1
}
