// Package reminder periodically nudges the operator about tickets that have
// been waiting longer than the promised response window.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/robfig/cron/v3"

	"github.com/relaydesk-io/relaydesk/internal/connector"
	"github.com/relaydesk-io/relaydesk/internal/ticket"
)

// Store is the slice of the ticket store the sweeper needs.
type Store interface {
	ListOverdue(cutoff time.Time) ([]*ticket.Ticket, error)
}

// Sender delivers the digest to the operator's chat.
type Sender interface {
	Send(ctx context.Context, msg connector.OutboundMessage) error
}

// Sweeper runs a cron-scheduled overdue-ticket digest.
type Sweeper struct {
	store        Store
	sender       Sender
	operatorChat string
	window       time.Duration
	cron         *cron.Cron
	logger       *slog.Logger
}

// New creates a sweeper. The window is how long a ticket may stay unanswered
// before it appears in the digest.
func New(store Store, sender Sender, operatorChat string, window time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Sweeper{
		store:        store,
		sender:       sender,
		operatorChat: operatorChat,
		window:       window,
		cron:         cron.New(),
		logger:       logger,
	}
}

// Start schedules the sweep and blocks until the context is cancelled.
// The schedule is a cron expression or a predefined one like @hourly.
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.Sweep(context.Background()); err != nil {
			s.logger.Warn("reminder sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("reminder: invalid schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.logger.Info("reminder sweeper started", "schedule", schedule, "window", s.window)

	<-ctx.Done()
	s.cron.Stop()
	s.logger.Info("reminder sweeper stopped")
	return ctx.Err()
}

// Sweep sends one digest of overdue tickets to the operator. No digest is
// sent when nothing is overdue.
func (s *Sweeper) Sweep(ctx context.Context) error {
	overdue, err := s.store.ListOverdue(time.Now().Add(-s.window))
	if err != nil {
		return fmt.Errorf("reminder: list overdue: %w", err)
	}
	if len(overdue) == 0 {
		return nil
	}

	msg := s.digest(overdue)
	if err := s.sender.Send(ctx, connector.OutboundMessage{
		ChatID:  s.operatorChat,
		Content: msg,
		Format:  connector.FormatMarkdown,
	}); err != nil {
		return fmt.Errorf("reminder: send digest: %w", err)
	}

	s.logger.Info("reminder digest sent", "overdue", len(overdue))
	return nil
}

func (s *Sweeper) digest(overdue []*ticket.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%d unanswered ticket(s) older than %s:**\n", len(overdue), formatWindow(s.window))
	for _, t := range overdue {
		name := t.UserName
		if name == "" {
			name = t.UserID
		}
		fmt.Fprintf(&b, "#%d from %s (waiting %s): %s\n", t.ID, name, age(t.CreatedAt), excerpt(t.Question))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatWindow(w time.Duration) string {
	if h := int(w.Hours()); h >= 1 {
		return fmt.Sprintf("%dh", h)
	}
	return w.String()
}

func age(created time.Time) string {
	d := time.Since(created)
	if d >= 24*time.Hour {
		return fmt.Sprintf("%dd%dh", int(d.Hours())/24, int(d.Hours())%24)
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}

func excerpt(q string) string {
	q = strings.ReplaceAll(q, "\n", " ")
	const max = 80
	if utf8.RuneCountInString(q) <= max {
		return q
	}
	runes := []rune(q)
	return string(runes[:max]) + "…"
}
