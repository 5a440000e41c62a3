// Package publisher defines the uniform publish capability every provider
// client conforms to, and the registry that maps a provider name to one.
package publisher

import (
	"context"

	"golang.org/x/oauth2"
)

const (
	ProviderFacebook  = "facebook"
	ProviderInstagram = "instagram"
	ProviderTiktok    = "tiktok"
)

type MediaItem struct {
	StorageKey string `json:"storage_key"`
	Type       string `json:"type"`
}

type Content struct {
	Text  string      `json:"text"`
	Media []MediaItem `json:"media,omitempty"`
}

// Request carries everything a single publish attempt needs. The credential
// is resolved by the caller; publishers never touch credential storage.
type Request struct {
	Content        Content
	Credential     *oauth2.Token
	IdempotencyKey string
}

// Publisher posts content to one provider and returns the provider-side post
// id. Failures must be tagged transient or permanent via Transient/Permanent
// so the dispatch loop can decide whether to retry.
type Publisher interface {
	Publish(ctx context.Context, req *Request) (string, error)
}
