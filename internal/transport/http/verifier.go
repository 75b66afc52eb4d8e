package http

import (
	"github.com/smolkov/gridchat-server/internal/auth"
	"github.com/smolkov/gridchat-server/internal/core"
)

// credentialVerifier adapts the auth service to the hub's token check.
type credentialVerifier struct {
	auth *auth.Service
}

// NewVerifier wraps an auth service as a core.TokenVerifier.
func NewVerifier(svc *auth.Service) core.TokenVerifier {
	return &credentialVerifier{auth: svc}
}

func (v *credentialVerifier) VerifyCredential(token string) (*core.Identity, error) {
	claims, err := v.auth.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return &core.Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
	}, nil
}
