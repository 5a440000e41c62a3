package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/sagarpkr/multipost/internal/orchestrator"
)

func (w *Worker) HandleDispatchPostTask(ctx context.Context, task *asynq.Task) error {
	var payload DispatchPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	if err := w.o.DispatchNow(ctx, payload.PostID); err != nil {
		if errors.Is(err, orchestrator.ErrPostNotFound) {
			// Deleted between enqueue and processing; nothing to do.
			slog.Info("dispatch task for missing post", "post_id", payload.PostID)
			return nil
		}
		return err
	}

	return nil
}
