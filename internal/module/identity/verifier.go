package identity

import (
	"fmt"

	"github.com/crewboard/server/internal/shared/config"
	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates session tokens issued by the identity provider.
type Verifier struct {
	key     any
	methods []string
	issuer  string
}

// NewVerifier builds a verifier from a PEM encoded RSA public key, or an
// HMAC secret when no key is configured.
func NewVerifier(cfg config.IdentityConfig) (*Verifier, error) {
	switch {
	case cfg.PublicKey != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKey))
		if err != nil {
			return nil, fmt.Errorf("parse identity public key: %w", err)
		}
		return &Verifier{key: key, methods: []string{"RS256"}, issuer: cfg.Issuer}, nil
	case cfg.JWTSecret != "":
		return &Verifier{key: []byte(cfg.JWTSecret), methods: []string{"HS256"}, issuer: cfg.Issuer}, nil
	default:
		return nil, ErrNoVerifierKey
	}
}

// Verify validates the token and returns its subject identity id.
func (v *Verifier) Verify(tokenString string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.Parse(tokenString, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return sub, nil
}
