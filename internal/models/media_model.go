package models

import "time"

// MediaAttachment references media held by external storage. Only metadata
// and the readiness flag live here; the bytes never pass through this
// service.
type MediaAttachment struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	StorageKey string    `db:"storage_key" json:"storage_key"`
	Type       string    `db:"type" json:"type"`
	Width      int       `db:"width" json:"width,omitempty"`
	Height     int       `db:"height" json:"height,omitempty"`
	Duration   int       `db:"duration" json:"duration,omitempty"`
	Ready      bool      `db:"ready" json:"ready"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)
