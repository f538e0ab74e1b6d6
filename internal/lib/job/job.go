// Package job provides background job processing using Asynq.
//
// Asynq is a Redis-backed job queue:
//   - tasks are enqueued (producer) with asynq.Client
//   - a server runs workers that process those tasks (consumer)
//   - a scheduler enqueues periodic tasks from cron specs
package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/deppfellow/aquaservice/internal/config"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// JobService holds the Asynq client (enqueue), server (worker execution)
// and scheduler (periodic enqueue).
type JobService struct {
	// Client is used to enqueue tasks into Redis.
	Client *asynq.Client

	server    *asynq.Server
	scheduler *asynq.Scheduler
	drainer   EmailDrainer
	drainSpec string
	logger    *zerolog.Logger
}

// RedisOpt converts the redis config block into asynq connection options.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewJobService creates a JobService configured to use Redis from cfg.
//
// Queue weights distribute workers by ratio so "critical" tasks
// (email drains) get the largest share:
//
//	critical: 6
//	default:  3
//	low:      1
func NewJobService(logger *zerolog.Logger, cfg *config.Config) *JobService {
	redisOpt := RedisOpt(cfg.Redis)
	asynqLog := &asynqLogger{logger: logger}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Jobs.Concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			Logger: asynqLog,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error().Str("task", task.Type()).Err(err).Msg("background task failed")
			}),
		},
	)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Logger: asynqLog,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
				logger.Error().Err(err).Msg("scheduler failed to enqueue task")
			}
		},
	})

	return &JobService{
		Client:    asynq.NewClient(redisOpt),
		server:    server,
		scheduler: scheduler,
		drainSpec: cfg.Jobs.EmailDrainSpec,
		logger:    logger,
	}
}

// SetEmailDrainer wires the queue service into the task handlers. It must
// be called before Start.
func (j *JobService) SetEmailDrainer(d EmailDrainer) {
	j.drainer = d
}

// EnqueueEmailDrain asks a worker to drain the email queue soon.
// A drain already waiting in Redis makes this a no-op.
func (j *JobService) EnqueueEmailDrain(ctx context.Context) error {
	_, err := j.Client.EnqueueContext(ctx, NewEmailDrainTask(), asynq.Unique(drainUniqueTTL))
	if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		return fmt.Errorf("failed to enqueue email drain: %w", err)
	}
	return nil
}

// Start registers task handlers and periodic schedules, then starts the
// worker server and the scheduler. Both run in background goroutines.
func (j *JobService) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskEmailDrain, j.handleEmailDrainTask)

	if _, err := j.scheduler.Register(j.drainSpec, NewEmailDrainTask(), asynq.Unique(drainUniqueTTL)); err != nil {
		return fmt.Errorf("failed to register email drain schedule %q: %w", j.drainSpec, err)
	}

	j.logger.Info().Str("email_drain_spec", j.drainSpec).Msg("Starting background job server")

	if err := j.server.Start(mux); err != nil {
		return fmt.Errorf("failed to start job server: %w", err)
	}
	if err := j.scheduler.Start(); err != nil {
		j.server.Shutdown()
		return fmt.Errorf("failed to start job scheduler: %w", err)
	}

	return nil
}

// Stop shuts down the scheduler and the workers, waiting for in-flight
// tasks, then closes the enqueue client.
func (j *JobService) Stop() {
	j.logger.Info().Msg("Stopping background job server")
	j.scheduler.Shutdown()
	j.server.Shutdown()
	if err := j.Client.Close(); err != nil {
		j.logger.Warn().Err(err).Msg("failed to close job client")
	}
}

// Close releases the enqueue client only, for processes that never Start.
func (j *JobService) Close() {
	if err := j.Client.Close(); err != nil {
		j.logger.Warn().Err(err).Msg("failed to close job client")
	}
}

// asynqLogger routes asynq's internal logs through zerolog.
type asynqLogger struct {
	logger *zerolog.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.logger.Debug().Str("component", "asynq").Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.logger.Info().Str("component", "asynq").Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.logger.Warn().Str("component", "asynq").Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.logger.Error().Str("component", "asynq").Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Fatal().Str("component", "asynq").Msg(fmt.Sprint(args...))
}
