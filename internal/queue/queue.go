package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Client wraps the asynq producer behind the orchestrator's Enqueuer
// interface.
type Client struct {
	asynq *asynq.Client
}

func NewClient(asynqClient *asynq.Client) *Client {
	return &Client{asynq: asynqClient}
}

func (c *Client) EnqueueDispatch(ctx context.Context, postID int64, delay time.Duration) error {
	payload, err := json.Marshal(DispatchPostPayload{PostID: postID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeDispatchPost, payload)

	if _, err := c.asynq.EnqueueContext(ctx, task, asynq.ProcessIn(delay)); err != nil {
		return err
	}

	slog.Info("dispatch task enqueued", "post_id", postID, "delay", delay)
	return nil
}
