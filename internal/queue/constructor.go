package queue

import (
	"github.com/sagarpkr/multipost/internal/orchestrator"
)

// Worker processes dispatch tasks pulled off the asynq queue.
type Worker struct {
	o *orchestrator.Orchestrator
}

func NewWorker(o *orchestrator.Orchestrator) *Worker {
	return &Worker{o: o}
}

const TaskTypeDispatchPost = "dispatch:post"

type DispatchPostPayload struct {
	PostID int64 `json:"post_id"`
}
