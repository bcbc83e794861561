package crypto

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/testhub.net/internal/config"
	"gitlab.com/testhub.net/internal/core/ports/primary"
)

var _ primary.JWTService = (*JWTServiceImpl)(nil)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("jwt secret is not configured")
)

type JWTServiceImpl struct {
	HMACSecretKey string
	Issuer        string
	clock         func() time.Time
}

func NewJWTService(jwtConfig *config.JwtConfig) *JWTServiceImpl {
	return &JWTServiceImpl{
		HMACSecretKey: jwtConfig.Secret,
		Issuer:        jwtConfig.Issuer,
		clock:         time.Now,
	}
}

// GenerateTokenHMAC signs an HS256 token for subject. A ttl of 0 defaults to
// one hour.
func (J *JWTServiceImpl) GenerateTokenHMAC(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	if J.HMACSecretKey == "" {
		return "", ErrNoSecret
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := J.clock()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    J.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(J.HMACSecretKey))
}

// VerifyTokenHMAC validates signature, expiry and issuer and returns the
// token subject.
func (J *JWTServiceImpl) VerifyTokenHMAC(ctx context.Context, token string) (string, error) {
	if J.HMACSecretKey == "" {
		return "", ErrNoSecret
	}
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithTimeFunc(J.clock),
	}
	if J.Issuer != "" {
		options = append(options, jwt.WithIssuer(J.Issuer))
	}

	claims := &jwt.RegisteredClaims{}
	parsedToken, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(J.HMACSecretKey), nil
	}, options...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsedToken.Valid {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
