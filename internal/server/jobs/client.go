package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// enqueuer is the part of *asynq.Client used here.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client enqueues mail for the worker. It implements notify.Notifier, so the
// signup flow can hand off delivery without waiting on SMTP.
type Client struct {
	client   enqueuer
	maxRetry int
}

func NewClient(redisOpts asynq.RedisConnOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts), maxRetry: 5}
}

func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	task, err := NewSendEmailTask(SendEmailPayload{To: to, Subject: subject, Body: body})
	if err != nil {
		return err
	}
	if _, err := c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(c.maxRetry)); err != nil {
		return fmt.Errorf("enqueue %s: %w", TaskTypeSendEmail, err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
