package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/layer-3/starnotary/ports"
)

const AudienceAdmin = "starnotary:admin"

// ScopeOperator allows changing runtime settings and auditing the ledger
const ScopeOperator = "operator"

// DefaultAdminTTL is how long minted operator tokens stay valid
const DefaultAdminTTL = 24 * time.Hour

var errInvalidScope = errors.New("token lacks operator scope")

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
	ttl     time.Duration
	now     func() time.Time
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey, ttl time.Duration) ports.Tokenizer {
	if ttl <= 0 {
		ttl = DefaultAdminTTL
	}
	return &JWTTokenizer{signKey: signKey, ttl: ttl, now: time.Now}
}

// IssueAdminToken signs an operator token for subject
func (j *JWTTokenizer) IssueAdminToken(subject string) (string, error) {
	now := j.now()
	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Audience:  jwt.ClaimStrings{AudienceAdmin},
		},
		Scope: ScopeOperator,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}

	return signedToken, nil
}

// ParseAdminToken validates an operator token and returns its subject
func (j *JWTTokenizer) ParseAdminToken(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceAdmin), jwt.WithTimeFunc(j.now))

	if err != nil {
		return "", fmt.Errorf("failed to parse admin token: %w", err)
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid claims type")
	}
	if claims.Scope != ScopeOperator {
		return "", errInvalidScope
	}

	return claims.Subject, nil
}
