// Package token issues and validates the session JWTs handed out by the
// user service.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dhruva/internal/user"
)

const defaultTTL = 24 * time.Hour

// Claims is the JWT payload. Wallet is the subject for wallet-first
// sessions and may be empty for password-only accounts.
type Claims struct {
	Wallet   string    `json:"wallet,omitempty"`
	Username string    `json:"username"`
	Role     user.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and validates HS256 session tokens.
type Issuer struct {
	key []byte
	ttl time.Duration
}

func NewIssuer(signingKey string) *Issuer {
	return &Issuer{key: []byte(signingKey), ttl: defaultTTL}
}

// Issue mints a token for the account.
func (i *Issuer) Issue(account *user.Account, now time.Time) (string, error) {
	claims := Claims{
		Wallet:   account.WalletAddress,
		Username: account.Username,
		Role:     account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns its claims.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return i.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return &claims, nil
}

// WalletFromToken satisfies the auth middleware's validator interface.
func (i *Issuer) WalletFromToken(tokenString string) (string, error) {
	claims, err := i.Parse(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Wallet == "" {
		return "", fmt.Errorf("token has no wallet binding")
	}
	return claims.Wallet, nil
}
