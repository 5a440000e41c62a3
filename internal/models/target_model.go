package models

import "time"

// PublishTarget is one (post, account) publication attempt. Exactly one row
// exists per pair; it is mutated only by the orchestrator's dispatch loop.
type PublishTarget struct {
	ID             int64     `db:"id" json:"id"`
	PostID         int64     `db:"post_id" json:"post_id"`
	AccountID      int64     `db:"account_id" json:"account_id"`
	Provider       string    `db:"provider" json:"provider"`
	Status         string    `db:"status" json:"status"`
	ProviderPostID string    `db:"provider_post_id" json:"provider_post_id,omitempty"`
	ErrorKind      string    `db:"error_kind" json:"error_kind,omitempty"`
	ErrorMessage   string    `db:"error_message" json:"error_message,omitempty"`
	AttemptCount   int       `db:"attempt_count" json:"attempt_count"`
	LastAttemptAt  time.Time `db:"last_attempt_at" json:"last_attempt_at,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

const (
	TargetStatusPending    = "pending"
	TargetStatusPublishing = "publishing"
	TargetStatusSucceeded  = "succeeded"
	TargetStatusFailed     = "failed"
)

// Per-target error kinds recorded alongside a failure.
const (
	ErrorKindTransient     = "transient"
	ErrorKindPermanent     = "permanent"
	ErrorKindCancelled     = "cancelled"
	ErrorKindRevoked       = "account_revoked"
	ErrorKindMediaNotReady = "media_not_ready"
)

func (t *PublishTarget) IsTerminal() bool {
	return t.Status == TargetStatusSucceeded || t.Status == TargetStatusFailed
}
