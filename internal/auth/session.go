package auth

import (
	"context"

	"github.com/spec-kit/maintenance-tracker/internal/domain"
	apperrors "github.com/spec-kit/maintenance-tracker/pkg/util"
)

// SessionStore issues access tokens and tracks their revocation.
type SessionStore struct {
	tokens  *TokenManager
	revoked RevocationList
}

// NewSessionStore combines a token manager with a revocation list.
func NewSessionStore(tokens *TokenManager, revoked RevocationList) *SessionStore {
	return &SessionStore{tokens: tokens, revoked: revoked}
}

// Issue signs a new access token for the user.
func (s *SessionStore) Issue(user *domain.User) (domain.Session, error) {
	token, identity, err := s.tokens.GenerateToken(user)
	if err != nil {
		return domain.Session{}, apperrors.NewInternalError(err)
	}
	return domain.Session{Token: token, Identity: identity}, nil
}

// Authenticate parses a bearer token and rejects revoked ones.
func (s *SessionStore) Authenticate(ctx context.Context, token string) (*domain.Identity, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	revoked, err := s.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, apperrors.NewUnauthorized("token has been revoked")
	}
	identity := claims.Identity()
	return &identity, nil
}

// Revoke invalidates the token behind identity until it expires.
func (s *SessionStore) Revoke(ctx context.Context, identity domain.Identity) error {
	ok, err := s.revoked.Revoke(ctx, identity.JTI, identity.ExpiresAt)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !ok {
		return apperrors.NewBadRequest("token already revoked")
	}
	return nil
}

// IsRevoked reports whether the token id was revoked.
func (s *SessionStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	revoked, err := s.revoked.IsRevoked(ctx, jti)
	if err != nil {
		return false, apperrors.NewInternalError(err)
	}
	return revoked, nil
}
