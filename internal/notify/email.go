package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

const defaultSMTPPort = 587

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type emailNotifier struct {
	addr string
	from string
	to   []string
	auth smtp.Auth
	send sendMailFunc
}

// NewEmail builds an SMTP notifier. to is a comma separated recipient list
// and a zero port means 587.
func NewEmail(host string, port int, from, to, username, password string) (Notifier, error) {
	host = strings.TrimSpace(host)
	from = strings.TrimSpace(from)
	switch {
	case host == "":
		return nil, fmt.Errorf("config.smtp_host is required")
	case port < 0:
		return nil, fmt.Errorf("config.smtp_port must be > 0")
	case from == "":
		return nil, fmt.Errorf("config.from is required")
	}
	if port == 0 {
		port = defaultSMTPPort
	}

	recipients := splitRecipients(to)
	if len(recipients) == 0 {
		return nil, fmt.Errorf("config.to must include at least one recipient")
	}

	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if (username == "") != (password == "") {
		return nil, fmt.Errorf("config.username and config.password must be set together")
	}

	n := &emailNotifier{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		from: from,
		to:   recipients,
		send: smtp.SendMail,
	}
	if username != "" {
		n.auth = smtp.PlainAuth("", username, password, host)
	}
	return n, nil
}

func (e *emailNotifier) Notify(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.send(e.addr, e.auth, e.from, e.to, e.message(event)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (e *emailNotifier) message(event Event) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.to, ", "))
	fmt.Fprintf(&b, "Subject: [dirkit] prune %s: %s\r\n", event.Status, event.Target)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(buildEmailBody(event))
	return []byte(b.String())
}

func buildEmailBody(event Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "target: %s\n", event.Target)
	fmt.Fprintf(&b, "path: %s\n", event.Path)
	fmt.Fprintf(&b, "status: %s\n", event.Status)
	fmt.Fprintf(&b, "deleted: %d\n", event.Deleted)
	fmt.Fprintf(&b, "kept: %d\n", event.Kept)
	fmt.Fprintf(&b, "duration: %s\n", event.Duration)
	if event.DryRun {
		b.WriteString("dry run: nothing was removed\n")
	}
	if event.Error != "" {
		fmt.Fprintf(&b, "error: %s\n", event.Error)
	}
	return b.String()
}

func splitRecipients(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
