package models

import (
	"time"
)

// SocialAccount is owned by the account registry; the orchestration core
// reads it and may flip the status to revoked after a permanent provider
// failure. Tokens are stored encrypted.
type SocialAccount struct {
	ID                int64     `db:"id" json:"id"`
	UserID            int64     `db:"user_id" json:"user_id"`
	Provider          string    `db:"provider" json:"provider"`
	ProviderAccountID string    `db:"provider_account_id" json:"provider_account_id"`
	AccountName       string    `db:"account_name" json:"account_name"`
	AccessToken       string    `db:"access_token" json:"-"`
	RefreshToken      string    `db:"refresh_token" json:"-"`
	TokenExpiresAt    time.Time `db:"token_expires_at" json:"token_expires_at"`
	AccountStatus     string    `db:"account_status" json:"account_status"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

const (
	AccountStatusLinked  = "linked"
	AccountStatusRevoked = "revoked"
)

func (sa *SocialAccount) IsRevoked() bool {
	return sa.AccountStatus == AccountStatusRevoked
}
