package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sagarpkr/multipost/internal/models"
)

type stubPosts struct {
	mu  sync.Mutex
	due []*models.Post
	err error
}

func (s *stubPosts) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []*models.Post
	for _, p := range s.due {
		if !p.ScheduledAt.After(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubPosts) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	return 0, nil
}
func (s *stubPosts) GetByID(ctx context.Context, id int64) (*models.Post, error) { return nil, nil }
func (s *stubPosts) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	return nil, nil
}
func (s *stubPosts) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	return false, nil
}
func (s *stubPosts) UpdateStatus(ctx context.Context, status string, postID int64) error { return nil }
func (s *stubPosts) ClaimDispatch(ctx context.Context, postID int64, epoch string) (bool, error) {
	return false, nil
}
func (s *stubPosts) CancelPending(ctx context.Context, postID int64) (bool, error) {
	return false, nil
}
func (s *stubPosts) SetCancelled(ctx context.Context, postID int64) error { return nil }
func (s *stubPosts) Remove(ctx context.Context, id int64) error           { return nil }

// casClaimer grants each post's claim exactly once, like the dispatch-epoch
// compare-and-set does.
type casClaimer struct {
	mu      sync.Mutex
	claimed map[int64]bool
	errFor  map[int64]error
}

func newCasClaimer() *casClaimer {
	return &casClaimer{claimed: make(map[int64]bool), errFor: make(map[int64]error)}
}

func (c *casClaimer) Claim(ctx context.Context, postID int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.errFor[postID]; err != nil {
		return false, err
	}
	if c.claimed[postID] {
		return false, nil
	}
	c.claimed[postID] = true
	return true, nil
}

type recordingEnqueuer struct {
	mu      sync.Mutex
	postIDs []int64
	err     error
}

func (r *recordingEnqueuer) EnqueueDispatch(ctx context.Context, postID int64, delay time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.postIDs = append(r.postIDs, postID)
	return nil
}

func (r *recordingEnqueuer) enqueued() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.postIDs...)
}

func scheduledPost(id int64, at time.Time) *models.Post {
	return &models.Post{
		ID:          id,
		Status:      models.PostStatusScheduled,
		ScheduledAt: at,
	}
}

func TestSweepEnqueuesDuePosts(t *testing.T) {
	now := time.Now()
	posts := &stubPosts{due: []*models.Post{
		scheduledPost(1, now.Add(-time.Minute)),
		scheduledPost(2, now.Add(-time.Second)),
		scheduledPost(3, now.Add(time.Hour)),
	}}
	claimer := newCasClaimer()
	enqueue := &recordingEnqueuer{}

	s := NewSweeper(posts, claimer, enqueue)
	s.Sweep()

	assert.ElementsMatch(t, []int64{1, 2}, enqueue.enqueued())
}

func TestSweepSkipsLostClaims(t *testing.T) {
	now := time.Now()
	posts := &stubPosts{due: []*models.Post{scheduledPost(1, now.Add(-time.Minute))}}
	claimer := newCasClaimer()
	claimer.claimed[1] = true // a rival sweep got there first
	enqueue := &recordingEnqueuer{}

	s := NewSweeper(posts, claimer, enqueue)
	s.Sweep()

	assert.Empty(t, enqueue.enqueued())
}

func TestDoubleSweepEnqueuesOnce(t *testing.T) {
	now := time.Now()
	posts := &stubPosts{due: []*models.Post{scheduledPost(1, now.Add(-time.Minute))}}
	claimer := newCasClaimer()
	enqueue := &recordingEnqueuer{}

	s := NewSweeper(posts, claimer, enqueue)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Sweep()
		}()
	}
	wg.Wait()

	assert.Equal(t, []int64{1}, enqueue.enqueued())
}

func TestSweepClaimErrorSkipsPost(t *testing.T) {
	now := time.Now()
	posts := &stubPosts{due: []*models.Post{
		scheduledPost(1, now.Add(-time.Minute)),
		scheduledPost(2, now.Add(-time.Minute)),
	}}
	claimer := newCasClaimer()
	claimer.errFor[1] = errors.New("db down")
	enqueue := &recordingEnqueuer{}

	s := NewSweeper(posts, claimer, enqueue)
	s.Sweep()

	assert.Equal(t, []int64{2}, enqueue.enqueued())
}

func TestSweepListErrorIsQuiet(t *testing.T) {
	posts := &stubPosts{err: errors.New("db down")}
	enqueue := &recordingEnqueuer{}

	s := NewSweeper(posts, newCasClaimer(), enqueue)
	s.Sweep()

	assert.Empty(t, enqueue.enqueued())
}
