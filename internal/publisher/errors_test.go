package publisher

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")

	assert.Equal(t, KindTransient, KindOf(Transient(base)))
	assert.Equal(t, KindPermanent, KindOf(Permanent(base)))

	// Wrapped tags still classify.
	assert.Equal(t, KindPermanent, KindOf(fmt.Errorf("publish: %w", Permanent(base))))

	// Untagged errors default to retryable.
	assert.Equal(t, KindTransient, KindOf(base))
}

func TestTaggingNilReturnsNil(t *testing.T) {
	assert.NoError(t, Transient(nil))
	assert.NoError(t, Permanent(nil))
}

func TestProviderErrorUnwraps(t *testing.T) {
	base := errors.New("token expired")
	err := Permanent(base)

	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "token expired")
}

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, KindTransient, ClassifyStatus(http.StatusTooManyRequests))
	assert.Equal(t, KindTransient, ClassifyStatus(http.StatusInternalServerError))
	assert.Equal(t, KindTransient, ClassifyStatus(http.StatusBadGateway))

	assert.Equal(t, KindPermanent, ClassifyStatus(http.StatusBadRequest))
	assert.Equal(t, KindPermanent, ClassifyStatus(http.StatusUnauthorized))
	assert.Equal(t, KindPermanent, ClassifyStatus(http.StatusUnprocessableEntity))
}
