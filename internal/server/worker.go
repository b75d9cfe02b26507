package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/config"
	"github.com/dmitrijs2005/fileshare/internal/server/jobs"
	"github.com/dmitrijs2005/fileshare/internal/server/notify"
)

// RunWorker consumes queued mail and delivers it over SMTP, or to the log
// when mail_mode is "log", until a signal arrives.
func RunWorker(ctx context.Context, c *config.Config) error {
	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)

	var n notify.Notifier = notify.NewLogNotifier(logger)
	if c.MailMode != config.MailModeLog {
		s, err := newSMTPNotifier(c)
		if err != nil {
			return fmt.Errorf("mail init error: %w", err)
		}
		n = s
	}

	w, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynqRedisOpt(c),
		Concurrency: c.WorkerConcurrency,
		Logger:      logger.With("module", "worker"),
		SendEmail:   jobs.NewSendEmailHandler(n, logger),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return w.Run(ctx)
}
