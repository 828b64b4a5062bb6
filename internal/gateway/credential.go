package gateway

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// CredentialInfo describes a gateway key without verifying its signature.
// Supabase keys are JWTs carrying a role claim; other keys are opaque.
type CredentialInfo struct {
	Opaque    bool
	Role      string
	Issuer    string
	ExpiresAt time.Time
	Expired   bool
}

// InspectCredential decodes key as an unverified JWT. The signing secret is
// held by the upstream, so only the claims are read.
func InspectCredential(key string, now time.Time) CredentialInfo {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(key, claims); err != nil {
		return CredentialInfo{Opaque: true}
	}

	info := CredentialInfo{}
	if role, ok := claims["role"].(string); ok {
		info.Role = role
	}
	if iss, err := claims.GetIssuer(); err == nil {
		info.Issuer = iss
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
		info.Expired = !exp.Time.After(now)
	}
	return info
}
