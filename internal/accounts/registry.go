// Package accounts implements the account-registry surface the orchestrator
// consumes: linked-account lookup, credential resolution, and revocation.
// Linking itself (the OAuth dance) happens upstream; rows arrive here
// already holding encrypted tokens.
package accounts

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/oauth2"

	config "github.com/sagarpkr/multipost/configs"
	"github.com/sagarpkr/multipost/internal/models"
	"github.com/sagarpkr/multipost/internal/repository"
	"github.com/sagarpkr/multipost/pkg/utils"
)

type Registry struct {
	cfg config.Config
	sa  repository.SocialAccountRepository
}

func NewRegistry(cfg config.Config, sa repository.SocialAccountRepository) *Registry {
	return &Registry{cfg: cfg, sa: sa}
}

func (r *Registry) ListLinked(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	accounts, err := r.sa.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	linked := make([]*models.SocialAccount, 0, len(accounts))
	for _, acc := range accounts {
		if acc.IsRevoked() {
			continue
		}
		linked = append(linked, acc)
	}
	return linked, nil
}

// ListAll returns every account of the user, revoked ones included. The
// publish path wants ListLinked; this one is for the account listing.
func (r *Registry) ListAll(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	return r.sa.ListByUserID(ctx, userID)
}

func (r *Registry) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	return r.sa.GetByID(ctx, id)
}

// Remove unlinks the account entirely.
func (r *Registry) Remove(ctx context.Context, userID, accountID int64) error {
	owned, err := r.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return errors.New("account doesn't exist")
	}
	return r.sa.Remove(ctx, accountID)
}

// Credential decrypts the stored tokens into an OAuth2 token the publish
// adapters can use directly.
func (r *Registry) Credential(ctx context.Context, acc *models.SocialAccount) (*oauth2.Token, error) {
	if acc == nil {
		return nil, errors.New("account is nil")
	}

	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(r.cfg.SecretKey))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	token := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		Expiry:      acc.TokenExpiresAt,
	}

	if acc.RefreshToken != "" {
		refreshToken, err := utils.Decrypt(acc.RefreshToken, []byte(r.cfg.SecretKey))
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		token.RefreshToken = refreshToken
	}

	return token, nil
}

// Revoke flags the account revoked. Safe to call repeatedly.
func (r *Registry) Revoke(ctx context.Context, accountID int64) error {
	return r.sa.Revoke(ctx, accountID)
}
