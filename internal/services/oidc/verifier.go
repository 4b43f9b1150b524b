package oidc

import (
	"context"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claims holds the token claims the rest of the service cares about
type Claims struct {
	Sub      string
	Email    string
	Name     string
	Zoneinfo string
	Iss      string
	Aud      string
	Exp      int64
	Iat      int64
}

// Verifier verifies JWT tokens against a JWKS endpoint
type Verifier struct {
	jwksManager *JWKSManager
	issuer      string
	jwksURL     string
}

// NewVerifier creates a new JWT verifier bound to an issuer and its JWKS URL
func NewVerifier(jwksManager *JWKSManager, issuer, jwksURL string) *Verifier {
	return &Verifier{
		jwksManager: jwksManager,
		issuer:      issuer,
		jwksURL:     jwksURL,
	}
}

// Verify verifies a JWT token and extracts claims
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	keys, err := v.jwksManager.GetJWKS(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	token, err := jwt.Parse([]byte(tokenString), jwt.WithKeySet(keys), jwt.WithValidate(true))
	if err != nil {
		return nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}

	iss, ok := token.Get("iss")
	if !ok {
		return nil, fmt.Errorf("token missing issuer claim")
	}
	if issStr, ok := iss.(string); !ok || issStr != v.issuer {
		return nil, fmt.Errorf("token issuer mismatch: expected %s, got %v", v.issuer, iss)
	}

	claims := &Claims{}

	claims.Sub = stringClaim(token, "sub")
	if claims.Sub == "" {
		return nil, fmt.Errorf("token missing sub claim")
	}
	claims.Email = stringClaim(token, "email")
	claims.Name = stringClaim(token, "name")
	claims.Zoneinfo = stringClaim(token, "zoneinfo")
	claims.Iss = stringClaim(token, "iss")

	if exp, ok := token.Get("exp"); ok {
		claims.Exp = unixClaim(exp)
	}
	if iat, ok := token.Get("iat"); ok {
		claims.Iat = unixClaim(iat)
	}

	if aud, ok := token.Get("aud"); ok {
		if audStr, ok := aud.(string); ok {
			claims.Aud = audStr
		} else if audArr, ok := aud.([]any); ok && len(audArr) > 0 {
			if audStr, ok := audArr[0].(string); ok {
				claims.Aud = audStr
			}
		} else if audArr, ok := aud.([]string); ok && len(audArr) > 0 {
			claims.Aud = audArr[0]
		}
	}

	return claims, nil
}

func stringClaim(token jwt.Token, name string) string {
	v, ok := token.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func unixClaim(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int64:
		return t
	}
	// jwx returns exp/iat as time.Time
	if tm, ok := v.(interface{ Unix() int64 }); ok {
		return tm.Unix()
	}
	return 0
}
