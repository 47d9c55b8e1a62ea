// Package notify delivers prune job outcomes to webhooks and email.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/dev-tams/dirkit/internal/config"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Event describes one prune run. It is the payload shared by all notifier
// implementations.
type Event struct {
	Target   string `json:"target"`
	Status   string `json:"status"`
	Path     string `json:"path"`
	Deleted  int    `json:"deleted"`
	Kept     int    `json:"kept"`
	DryRun   bool   `json:"dry_run,omitempty"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

type trigger uint8

const (
	onSuccess trigger = 1 << iota
	onFailure
)

func (t trigger) fires(status string) bool {
	switch status {
	case StatusSuccess:
		return t&onSuccess != 0
	case StatusFailure:
		return t&onFailure != 0
	default:
		return false
	}
}

type route struct {
	on       trigger
	notifier Notifier
}

// Dispatcher fans an event out to every route whose trigger matches the
// event status. A nil Dispatcher notifies nobody.
type Dispatcher struct {
	routes []route
}

func NewDispatcher(cfgs []config.NotificationConfig) (*Dispatcher, error) {
	routes := make([]route, 0, len(cfgs))
	for i, n := range cfgs {
		on, err := parseOn(n.On)
		if err != nil {
			return nil, fmt.Errorf("notifications[%d]: %w", i, err)
		}

		nf, err := newNotifier(n)
		if err != nil {
			return nil, fmt.Errorf("notifications[%d] %s: %w", i, n.Type, err)
		}
		routes = append(routes, route{on: on, notifier: nf})
	}
	return &Dispatcher{routes: routes}, nil
}

func newNotifier(n config.NotificationConfig) (Notifier, error) {
	switch strings.ToLower(strings.TrimSpace(n.Type)) {
	case "webhook":
		return NewWebhook(n.Config.URL, n.Config.Headers)
	case "email":
		return NewEmail(n.Config.SMTPHost, n.Config.SMTPPort, n.Config.From, n.Config.To, n.Config.Username, n.Config.Password)
	default:
		return nil, fmt.Errorf("unsupported notification type %q", n.Type)
	}
}

// Notify delivers event to the matching routes concurrently and joins
// their errors.
func (d *Dispatcher) Notify(ctx context.Context, event Event) error {
	if d == nil || len(d.routes) == 0 {
		return nil
	}

	p := pool.New().WithErrors().WithContext(ctx)
	for i, r := range d.routes {
		if !r.on.fires(event.Status) {
			continue
		}
		p.Go(func(ctx context.Context) error {
			if err := r.notifier.Notify(ctx, event); err != nil {
				return fmt.Errorf("notification route %d: %w", i, err)
			}
			return nil
		})
	}
	return p.Wait()
}

func parseOn(raw []string) (trigger, error) {
	var on trigger
	for _, v := range raw {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "success":
			on |= onSuccess
		case "failure":
			on |= onFailure
		case "both":
			on |= onSuccess | onFailure
		default:
			return 0, fmt.Errorf("on contains unsupported value %q", v)
		}
	}
	if on == 0 {
		return 0, fmt.Errorf("on must include success, failure, or both")
	}
	return on, nil
}
