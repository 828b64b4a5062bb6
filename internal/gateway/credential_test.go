package gateway

import (
	"context"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casehub/casehub/internal/core"
)

func signedKey(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("upstream-secret"))
	require.NoError(t, err)
	return s
}

func TestInspectCredential(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	info := InspectCredential(signedKey(t, jwt.MapClaims{
		"role": "service_role",
		"iss":  "supabase",
		"exp":  now.Add(time.Hour).Unix(),
	}), now)
	assert.False(t, info.Opaque)
	assert.Equal(t, "service_role", info.Role)
	assert.Equal(t, "supabase", info.Issuer)
	assert.False(t, info.Expired)

	expired := InspectCredential(signedKey(t, jwt.MapClaims{"role": "anon", "exp": now.Add(-time.Hour).Unix()}), now)
	assert.True(t, expired.Expired)

	opaque := InspectCredential("sb_secret_abc123", now)
	assert.True(t, opaque.Opaque)
}

func TestUnconfiguredNamesMissingSettings(t *testing.T) {
	g := Unconfigured{Missing: []string{"SUPABASE_URL", "SUPABASE_KEY"}}

	_, err := g.Select(context.Background(), Query{Table: "exhibits"})
	require.Error(t, err)
	assert.Equal(t, core.KindNotConfigured, core.KindOf(err))
	assert.Contains(t, err.Error(), "SUPABASE_URL, SUPABASE_KEY")

	_, err = g.Count(context.Background(), Query{Table: "claims"})
	assert.Equal(t, core.KindNotConfigured, core.KindOf(err))
	_, err = g.Call(context.Background(), "search_embeddings", nil)
	assert.Equal(t, core.KindNotConfigured, core.KindOf(err))
}
