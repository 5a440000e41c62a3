package orchestrator

import "github.com/sagarpkr/multipost/internal/models"

// Aggregate maps the multiset of target statuses onto one post status. Pure
// function; the caller enforces monotonicity by never downgrading a terminal
// post.
func Aggregate(targets []*models.PublishTarget) string {
	if len(targets) == 0 {
		return models.PostStatusDispatching
	}

	var succeeded, failed int
	for _, t := range targets {
		switch t.Status {
		case models.TargetStatusSucceeded:
			succeeded++
		case models.TargetStatusFailed:
			failed++
		default:
			// Any pending or publishing target keeps the post in flight.
			return models.PostStatusDispatching
		}
	}

	switch {
	case failed == 0:
		return models.PostStatusPublished
	case succeeded == 0:
		return models.PostStatusFailed
	default:
		return models.PostStatusPartiallyFailed
	}
}
