package token

import (
	"errors"
	"time"

	"tasklist-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the domain separator baked into every token. Tokens signed with
// the same secret by another subsystem carry a different issuer and do not
// verify here.
const Issuer = "tasklist-auth"

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims defines the structure of the JWT claims.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Codec issues and verifies signed, time-limited bearer tokens. It holds no
// mutable state, so a single instance is safe for concurrent use.
type Codec struct {
	secret []byte
	maxAge time.Duration
}

func NewCodec(secret string, maxAge time.Duration) *Codec {
	return &Codec{secret: []byte(secret), maxAge: maxAge}
}

// Issue signs a token carrying the user's id and role. It returns the token
// string and its expiration time.
func (c *Codec) Issue(user *models.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(c.maxAge)
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Verify parses and validates a token string. It returns ErrTokenExpired for
// a well-formed but stale token and ErrTokenInvalid for everything else:
// tampered payload, wrong secret, wrong signing method, wrong issuer or a
// string that is not a token at all.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return c.secret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithIssuedAt())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
