package job

import (
	"context"

	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/hibiken/asynq"
)

// EmailDrainer runs one bounded pass over the email queue.
type EmailDrainer interface {
	Drain(ctx context.Context) (model.DrainResult, error)
}

// handleEmailDrainTask drains one batch of the email queue.
//
// Returning an error makes asynq record the failure; individual send
// failures are tracked on the queue rows and do not fail the task.
func (j *JobService) handleEmailDrainTask(ctx context.Context, t *asynq.Task) error {
	if j.drainer == nil {
		return asynq.SkipRetry
	}

	result, err := j.drainer.Drain(ctx)
	if err != nil {
		j.logger.Error().
			Str("task", t.Type()).
			Err(err).
			Msg("failed to drain email queue")
		return err
	}

	if result.Processed > 0 {
		j.logger.Info().
			Str("task", t.Type()).
			Int("processed", result.Processed).
			Int("sent", result.Sent).
			Int("retrying", result.Retrying).
			Int("failed", result.Failed).
			Msg("email queue drained")
	}

	return nil
}
