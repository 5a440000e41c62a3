package publisher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPublisher struct{ id string }

func (s *stubPublisher) Publish(ctx context.Context, req *Request) (string, error) {
	return s.id, nil
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	fb := &stubPublisher{id: "fb"}
	r.Register(ProviderFacebook, fb)

	got, err := r.Resolve(ProviderFacebook)
	require.NoError(t, err)
	assert.Same(t, Publisher(fb), got)
}

func TestRegistryResolveUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("myspace")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Contains(t, err.Error(), "myspace")
}

func TestRegistryReRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register(ProviderTiktok, &stubPublisher{id: "old"})
	r.Register(ProviderTiktok, &stubPublisher{id: "new"})

	got, err := r.Resolve(ProviderTiktok)
	require.NoError(t, err)
	id, _ := got.Publish(context.Background(), nil)
	assert.Equal(t, "new", id)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryProviders(t *testing.T) {
	r := NewRegistry()
	r.Register(ProviderFacebook, &stubPublisher{})
	r.Register(ProviderInstagram, &stubPublisher{})

	assert.ElementsMatch(t, []string{ProviderFacebook, ProviderInstagram}, r.Providers())
}
