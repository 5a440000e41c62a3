package transfer

import (
	"time"

	"github.com/sagarpkr/multipost/internal/models"
)

type PostCreation struct {
	Text             string  `json:"text"`
	ScheduledAt      string  `json:"scheduled_at"`
	MediaRefs        []int64 `json:"media_refs"`
	TargetAccountIDs []int64 `json:"target_account_ids"`
}

type PublishRequest struct {
	PostID           int64   `json:"post_id"`
	TargetAccountIDs []int64 `json:"target_account_ids"`
}

type CancelRequest struct {
	PostID int64 `json:"post_id"`
}

type TargetResult struct {
	AccountID      int64     `json:"account_id"`
	Provider       string    `json:"provider"`
	Status         string    `json:"status"`
	ProviderPostID string    `json:"provider_post_id,omitempty"`
	ErrorKind      string    `json:"error_kind,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	AttemptCount   int       `json:"attempt_count"`
	LastAttemptAt  time.Time `json:"last_attempt_at,omitempty"`
}

type PostResponse struct {
	ID          int64                     `json:"id"`
	Text        string                    `json:"text"`
	ScheduledAt string                    `json:"scheduled_at,omitempty"`
	Status      string                    `json:"status"`
	CreatedAt   time.Time                 `json:"created_at"`
	Media       []*models.MediaAttachment `json:"media"`
	Targets     []TargetResult            `json:"targets"`
}

func ToTargetResult(t *models.PublishTarget) TargetResult {
	return TargetResult{
		AccountID:      t.AccountID,
		Provider:       t.Provider,
		Status:         t.Status,
		ProviderPostID: t.ProviderPostID,
		ErrorKind:      t.ErrorKind,
		ErrorMessage:   t.ErrorMessage,
		AttemptCount:   t.AttemptCount,
		LastAttemptAt:  t.LastAttemptAt,
	}
}

func ToPostResponse(p *models.Post, media []*models.MediaAttachment, targets []*models.PublishTarget) *PostResponse {
	resp := &PostResponse{
		ID:        p.ID,
		Text:      p.Text,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		Media:     media,
	}
	if !p.ScheduledAt.IsZero() {
		resp.ScheduledAt = p.ScheduledAt.Format(time.RFC3339)
	}
	for _, t := range targets {
		resp.Targets = append(resp.Targets, ToTargetResult(t))
	}
	return resp
}
