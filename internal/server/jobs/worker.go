package jobs

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/hibiken/asynq"
)

// Worker consumes queued tasks until its context is cancelled.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger logging.Logger
}

type WorkerConfig struct {
	RedisOpts   asynq.RedisConnOpt
	Concurrency int
	Logger      logging.Logger
	SendEmail   *SendEmailHandler
}

func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.SendEmail == nil {
		return nil, errors.New("worker: mail handler is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}

	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{QueueDefault: 1},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeSendEmail, cfg.SendEmail.Handle)

	return &Worker{server: srv, mux: mux, logger: cfg.Logger}, nil
}

// Run starts processing and blocks until ctx is cancelled, then shuts the
// server down gracefully. A Worker cannot be restarted after Run returns.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}

	w.logger.Info(ctx, "worker started", "queue", QueueDefault)

	<-ctx.Done()
	w.logger.Info(ctx, "worker stopping")
	w.server.Shutdown()
	return nil
}
