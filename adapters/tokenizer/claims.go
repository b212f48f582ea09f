package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AdminClaims are the standard claims carried by operator tokens
type AdminClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}
