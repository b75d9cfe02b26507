package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// SMTPConfig describes the relay. Encryption is "starttls" (default) or
// "none" for local catchers such as Mailpit.
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Encryption string
}

// SMTPNotifier sends mail through an SMTP relay.
type SMTPNotifier struct {
	cfg  SMTPConfig
	from mail.Address
	now  func() time.Time

	// sendPlain is smtp.SendMail, replaced in tests.
	sendPlain func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	dial      func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is not configured")
	}
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", cfg.From, err)
	}
	d := &net.Dialer{Timeout: 10 * time.Second}
	return &SMTPNotifier{
		cfg:       cfg,
		from:      *from,
		now:       time.Now,
		sendPlain: smtp.SendMail,
		dial:      d.DialContext,
	}, nil
}

func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	if err := checkHeaders(to, subject); err != nil {
		return err
	}
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}

	msg := n.buildMessage(rcpt.Address, subject, body)
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))

	if n.cfg.Encryption == "none" {
		var auth smtp.Auth
		if n.cfg.Username != "" {
			auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
		}
		if err := n.sendPlain(addr, auth, n.from.Address, []string{rcpt.Address}, msg); err != nil {
			return fmt.Errorf("sending mail: %w", err)
		}
		return nil
	}

	return n.sendStartTLS(ctx, addr, rcpt.Address, msg)
}

func (n *SMTPNotifier) buildMessage(to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from.String())
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mimeSubject(subject))
	fmt.Fprintf(&b, "Date: %s\r\n", n.now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}

func mimeSubject(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.QEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

func (n *SMTPNotifier) sendStartTLS(ctx context.Context, addr, to string, msg []byte) error {
	conn, err := n.dial(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: n.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
		return fmt.Errorf("starting TLS: %w", err)
	}

	if n.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	if err := client.Mail(n.from.Address); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO %s: %w", to, err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data: %w", err)
	}
	return client.Quit()
}
