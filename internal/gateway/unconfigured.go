package gateway

import (
	"context"
	"strings"

	"github.com/casehub/casehub/internal/core"
)

// Unconfigured stands in when the gateway URL or credential is missing.
// Every call fails with a not_configured error naming the missing settings.
type Unconfigured struct {
	Missing []string
}

func (u Unconfigured) err() error {
	return core.Errorf(core.KindNotConfigured, "gateway not configured: missing %s", strings.Join(u.Missing, ", "))
}

func (u Unconfigured) Select(context.Context, Query) ([]Row, error) {
	return nil, u.err()
}

func (u Unconfigured) Count(context.Context, Query) (int, error) {
	return 0, u.err()
}

func (u Unconfigured) Call(context.Context, string, map[string]any) ([]Row, error) {
	return nil, u.err()
}
