package primary

import (
	"context"
	"time"
)

// JWTService issues and checks the HMAC bearer tokens that guard the API.
type JWTService interface {
	GenerateTokenHMAC(ctx context.Context, subject string, ttl time.Duration) (string, error)
	VerifyTokenHMAC(ctx context.Context, token string) (string, error)
}
