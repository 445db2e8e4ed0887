package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"worklink/internal/domain"
)

// TokenService validates the identity service's JWTs and mints principal
// tokens for tooling and tests. Credentials themselves are owned upstream;
// this API only trusts the signed principal.
type TokenService struct {
	secret    []byte
	expiresIn time.Duration
}

func NewTokenService(secret string, expiresIn time.Duration) *TokenService {
	return &TokenService{
		secret:    []byte(secret),
		expiresIn: expiresIn,
	}
}

// CreateForPrincipal creates a JWT carrying the principal id and role.
func (t *TokenService) CreateForPrincipal(p domain.Principal) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  p.ID,
		"role": string(p.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(t.expiresIn).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse validates a token and returns its claims.
func (t *TokenService) Parse(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok {
		return claims, nil
	}
	return nil, jwt.ErrTokenMalformed
}

// PrincipalFromClaims extracts the authenticated principal from claims.
func PrincipalFromClaims(claims jwt.MapClaims) (domain.Principal, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return domain.Principal{}, fmt.Errorf("token has no subject")
	}
	role, _ := claims["role"].(string)
	p := domain.Principal{ID: sub, Role: domain.Role(role)}
	if p.Role != domain.RoleUser && p.Role != domain.RoleRecruiter {
		p.Role = domain.RoleUser
	}
	return p, nil
}
