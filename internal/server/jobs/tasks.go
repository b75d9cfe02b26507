// Package jobs moves outbound email off the request path through an asynq
// queue backed by Redis.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/notify"
	"github.com/hibiken/asynq"
)

const (
	QueueDefault = "default"
	// TaskTypeSendEmail carries one SendEmailPayload.
	TaskTypeSendEmail = "mail:send"
)

type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func NewSendEmailTask(p SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// SendEmailHandler delivers queued mail through a Notifier.
type SendEmailHandler struct {
	notifier notify.Notifier
	logger   logging.Logger
}

func NewSendEmailHandler(n notify.Notifier, l logging.Logger) *SendEmailHandler {
	return &SendEmailHandler{notifier: n, logger: l.With("module", "jobs")}
}

// Handle returns asynq.SkipRetry for payloads that can never succeed so the
// task is archived instead of retried.
func (h *SendEmailHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var p SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error(ctx, "bad mail payload", "error", err)
		return fmt.Errorf("decoding payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.notifier.Send(ctx, p.To, p.Subject, p.Body); err != nil {
		if errors.Is(err, notify.ErrHeaderInjection) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		h.logger.Warn(ctx, "mail delivery failed", "to", p.To, "error", err)
		return err
	}

	h.logger.Info(ctx, "mail delivered", "to", p.To)
	return nil
}
