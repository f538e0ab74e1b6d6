package job

import (
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskEmailDrain is the job type name stored in Redis.
	// Asynq uses task type strings to route to handlers.
	TaskEmailDrain = "email:drain"
)

// drainUniqueTTL collapses bursts of enqueues (one per queued email) into
// a single pending drain task.
const drainUniqueTTL = 30 * time.Second

// NewEmailDrainTask constructs the task that runs one bounded pass over
// the email queue. It carries no payload; every run claims whatever rows
// are pending at that moment.
//
// Options:
//   - MaxRetry(0): failed rows are retried by the next drain, not by asynq
//   - Queue("critical"): user facing confirmations should not wait
//   - Timeout(5m): one batch of sequential sends
func NewEmailDrainTask() *asynq.Task {
	return asynq.NewTask(
		TaskEmailDrain,
		nil,
		asynq.MaxRetry(0),
		asynq.Queue("critical"),
		asynq.Timeout(5*time.Minute),
	)
}
