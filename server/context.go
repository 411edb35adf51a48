package server

import (
	"context"
	"fmt"

	"github.com/prior-it/socialauth/core"
	"github.com/prior-it/socialauth/oauth"
)

type contextKey uint

const (
	ctxInstagram contextKey = iota
)

// InstagramProvider returns the provider that was attached to ctx by RequireInstagram.
func InstagramProvider(ctx context.Context) (*oauth.Instagram, error) {
	ig, ok := ctx.Value(ctxInstagram).(*oauth.Instagram)
	if !ok {
		return nil, fmt.Errorf("%w: not connected to instagram", core.ErrUnauthenticated)
	}
	return ig, nil
}
