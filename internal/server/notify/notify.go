// Package notify delivers outbound email such as signup verification links.
package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/fileshare/internal/logging"
)

// Notifier sends one plain-text message.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ErrHeaderInjection is returned when an address or subject contains a line
// break.
var ErrHeaderInjection = errors.New("line break in mail header")

func checkHeaders(values ...string) error {
	for _, v := range values {
		if strings.ContainsAny(v, "\r\n") {
			return ErrHeaderInjection
		}
	}
	return nil
}

// LogNotifier writes messages to the log instead of sending them. It is the
// development default.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(l logging.Logger) *LogNotifier {
	return &LogNotifier{logger: l.With("module", "notify")}
}

func (n *LogNotifier) Send(ctx context.Context, to, subject, body string) error {
	if err := checkHeaders(to, subject); err != nil {
		return err
	}
	n.logger.Info(ctx, "outbound mail", "to", to, "subject", subject, "body", body)
	return nil
}
