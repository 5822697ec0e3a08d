package scheduler

import (
	"context"
	"fmt"
	"time"

	"crm_backend/internal/notifier"
	"crm_backend/platform/config"
	"crm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// WorkerConfig bundles the settings the worker needs.
type WorkerConfig interface {
	config.SchedulerConfig
	config.ReminderConfig
}

// Worker runs the asynq server plus the periodic enqueuer that fires the
// daily birthday sweep.
type Worker struct {
	server     *asynq.Server
	scheduler  *asynq.Scheduler
	mux        *asynq.ServeMux
	dispatcher *notifier.Dispatcher
	log        *logger.Logger
}

func NewWorker(cfg WorkerConfig, dispatcher *notifier.Dispatcher, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	periodic := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})

	cronSpec := cfg.GetReminderCronSpec()
	if cronSpec == "" {
		cronSpec = "0 0 * * *"
	}
	// Date left empty: the handler resolves "today" at processing time.
	task, err := NewBirthdayReminderTask(BirthdayReminderPayload{})
	if err != nil {
		return nil, err
	}
	if _, err := periodic.Register(cronSpec, task, asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register birthday sweep: %w", err)
	}

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		scheduler:  periodic,
		mux:        mux,
		dispatcher: dispatcher,
		log:        log,
	}

	mux.HandleFunc(TaskBirthdayReminder, w.handleBirthdayReminder)

	return w, nil
}

func (w *Worker) handleBirthdayReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseBirthdayReminderPayload(task)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if payload.Date != "" {
		parsed, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			return fmt.Errorf("bad sweep date %q: %w", payload.Date, err)
		}
		now = parsed
	}

	w.log.Info("running birthday reminder sweep", "date", now.Format("2006-01-02"))
	return w.dispatcher.DispatchBirthdayReminders(ctx, now)
}

// Run starts the periodic enqueuer and the task server, blocking until the
// context is canceled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.scheduler.Shutdown()
		w.server.Shutdown()
	}()

	go func() {
		if err := w.scheduler.Run(); err != nil {
			w.log.Error("periodic scheduler stopped", "error", err)
		}
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
