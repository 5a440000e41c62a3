package publisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func publishReq() *Request {
	return &Request{
		Content: Content{
			Text: "hello",
			Media: []MediaItem{
				{StorageKey: "media/1.jpg", Type: "image"},
			},
		},
		Credential:     &oauth2.Token{AccessToken: "secret-token", TokenType: "Bearer"},
		IdempotencyKey: "1-2-1",
	}
}

func TestRESTPublisherPublish(t *testing.T) {
	var gotAuth, gotIdem string
	var gotContent Content

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotContent))
		json.NewEncoder(w).Encode(map[string]string{"id": "remote-42"})
	}))
	defer srv.Close()

	p := NewRESTPublisher(ProviderFacebook, srv.URL)
	id, err := p.Publish(context.Background(), publishReq())

	require.NoError(t, err)
	assert.Equal(t, "remote-42", id)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "1-2-1", gotIdem)
	assert.Equal(t, "hello", gotContent.Text)
	require.Len(t, gotContent.Media, 1)
	assert.Equal(t, "media/1.jpg", gotContent.Media[0].StorageKey)
}

func TestRESTPublisherRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewRESTPublisher(ProviderInstagram, srv.URL)
	_, err := p.Publish(context.Background(), publishReq())

	require.Error(t, err)
	assert.Equal(t, KindTransient, KindOf(err))
}

func TestRESTPublisherRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	p := NewRESTPublisher(ProviderTiktok, srv.URL)
	_, err := p.Publish(context.Background(), publishReq())

	require.Error(t, err)
	assert.Equal(t, KindPermanent, KindOf(err))
}

func TestRESTPublisherMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p := NewRESTPublisher(ProviderFacebook, srv.URL)
	_, err := p.Publish(context.Background(), publishReq())

	require.Error(t, err)
	assert.Equal(t, KindPermanent, KindOf(err))
}

func TestRESTPublisherConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	p := NewRESTPublisher(ProviderFacebook, srv.URL)
	_, err := p.Publish(context.Background(), publishReq())

	require.Error(t, err)
	assert.Equal(t, KindTransient, KindOf(err))
}
