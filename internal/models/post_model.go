package models

import "time"

type Post struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	Text          string    `db:"text" json:"text"`
	ScheduledAt   time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	Status        string    `db:"status" json:"status"`
	DispatchEpoch string    `db:"dispatch_epoch" json:"-"`
	Cancelled     bool      `db:"cancelled" json:"cancelled"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusDraft           = "draft"
	PostStatusScheduled       = "scheduled"
	PostStatusDispatching     = "dispatching"
	PostStatusPublished       = "published"
	PostStatusPartiallyFailed = "partially_failed"
	PostStatusFailed          = "failed"
)

// IsTerminal reports whether the post status can no longer change.
func (p *Post) IsTerminal() bool {
	switch p.Status {
	case PostStatusPublished, PostStatusPartiallyFailed, PostStatusFailed:
		return true
	}
	return false
}

// IsScheduled reports whether dispatch is deferred to a future time.
func (p *Post) IsScheduled(now time.Time) bool {
	return !p.ScheduledAt.IsZero() && p.ScheduledAt.After(now)
}

type PostMedia struct {
	PostID       int64     `db:"post_id" json:"post_id"`
	AttachmentID int64     `db:"attachment_id" json:"attachment_id"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
