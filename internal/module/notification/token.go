package notification

import (
	"context"
	"regexp"

	"github.com/crewboard/server/internal/module/identity"
)

var pushTokenPattern = regexp.MustCompile(`^Expo(?:nent)?PushToken\[[^\[\]\s]+\]$`)

// ValidPushToken reports whether token is a well-formed Expo push token.
func ValidPushToken(token string) bool {
	return pushTokenPattern.MatchString(token)
}

// TokenResolver resolves the push destination of an identity. An empty
// token means the identity has none.
type TokenResolver interface {
	PushToken(ctx context.Context, identityID string) (string, error)
}

// GatewayTokenResolver reads push tokens from identity public metadata.
type GatewayTokenResolver struct {
	identities identity.Gateway
}

// NewTokenResolver creates a resolver backed by the identity gateway.
func NewTokenResolver(identities identity.Gateway) *GatewayTokenResolver {
	return &GatewayTokenResolver{identities: identities}
}

// PushToken implements TokenResolver.
func (r *GatewayTokenResolver) PushToken(ctx context.Context, identityID string) (string, error) {
	id, err := r.identities.GetIdentity(ctx, identityID)
	if err != nil {
		return "", err
	}
	return id.MetadataString(identity.MetaPushToken), nil
}
