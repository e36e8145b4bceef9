// Package auth issues and validates the bearer tokens handed out on login.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/nabzkeeper/internal/common"
)

// Identity is the authenticated user a token speaks for.
type Identity struct {
	UserID   int64
	Username string
}

// Claims carries the identity next to the standard expiry claim.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	UserID   int64  `json:"uid"`
}

func GenerateToken(id Identity, secretKey []byte, validityDuration time.Duration, now time.Time) (string, time.Time, error) {
	expires := now.Add(validityDuration)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   id.Username,
		},
		Username: id.Username,
		UserID:   id.UserID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expires, nil
}

func ParseToken(tokenString string, secretKey []byte) (*Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Username == "" {
		return nil, common.ErrInvalidToken
	}

	return &Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

// Issuer signs tokens with one secret and validity period.
type Issuer struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

func NewIssuer(secret string, validity time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), validity: validity, now: time.Now}
}

// Issue returns a signed token for id and its expiry time.
func (i *Issuer) Issue(id Identity) (string, time.Time, error) {
	return GenerateToken(id, i.secret, i.validity, i.now())
}

// Validate checks the signature and expiry of token.
func (i *Issuer) Validate(token string) (*Identity, error) {
	return ParseToken(token, i.secret)
}
