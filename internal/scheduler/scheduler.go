// Package scheduler finds posts whose scheduled time has elapsed and hands
// each of them to the dispatch queue exactly once. The posts table itself is
// the durable schedule, so deferred dispatch survives restarts.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/sagarpkr/multipost/internal/repository"
)

// Claimer stamps the dispatch epoch; only a winning claim may enqueue.
type Claimer interface {
	Claim(ctx context.Context, postID int64) (bool, error)
}

type Enqueuer interface {
	EnqueueDispatch(ctx context.Context, postID int64, delay time.Duration) error
}

type Sweeper struct {
	posts   repository.PostRepository
	claimer Claimer
	enqueue Enqueuer
	now     func() time.Time
}

func NewSweeper(posts repository.PostRepository, claimer Claimer, enqueue Enqueuer) *Sweeper {
	return &Sweeper{
		posts:   posts,
		claimer: claimer,
		enqueue: enqueue,
		now:     time.Now,
	}
}

// Sweep enqueues dispatch for every due post it manages to claim. The claim
// is a transactional compare-and-set on the post's dispatch epoch, so two
// sweeps racing over the same due post enqueue it once: the loser observes
// an already-stamped epoch and moves on. The sweep never calls provider
// adapters; it only feeds the dispatch queue.
func (s *Sweeper) Sweep() {
	ctx := context.Background()

	due, err := s.posts.ListDue(ctx, s.now())
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, post := range due {
		claimed, err := s.claimer.Claim(ctx, post.ID)
		if err != nil {
			slog.Info(err.Error())
			continue
		}
		if !claimed {
			continue
		}

		if err := s.enqueue.EnqueueDispatch(ctx, post.ID, 0); err != nil {
			slog.Error("enqueue due post", "post_id", post.ID, "err", err.Error())
			continue
		}
		slog.Info("scheduled post dispatched", "post_id", post.ID, "scheduled_at", post.ScheduledAt)
	}
}
