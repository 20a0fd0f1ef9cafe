package reminder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/relaydesk-io/relaydesk/internal/connector"
	"github.com/relaydesk-io/relaydesk/internal/ticket"
)

type fakeStore struct {
	overdue []*ticket.Ticket
	err     error
	cutoff  time.Time
}

func (f *fakeStore) ListOverdue(cutoff time.Time) ([]*ticket.Ticket, error) {
	f.cutoff = cutoff
	return f.overdue, f.err
}

type fakeSender struct {
	sent []connector.OutboundMessage
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg connector.OutboundMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newSweeper(store Store, sender Sender) *Sweeper {
	return New(store, sender, "999", 24*time.Hour,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSweep_NothingOverdue(t *testing.T) {
	sender := &fakeSender{}
	s := newSweeper(&fakeStore{}, sender)

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("expected no digest, got %v", sender.sent)
	}
}

func TestSweep_SendsDigest(t *testing.T) {
	store := &fakeStore{overdue: []*ticket.Ticket{
		{ID: 12, UserName: "Alice", Question: "How do I reset my password?", CreatedAt: time.Now().Add(-30 * time.Hour)},
		{ID: 15, UserID: "200", Question: "Billing issue", CreatedAt: time.Now().Add(-26 * time.Hour)},
	}}
	sender := &fakeSender{}
	s := newSweeper(store, sender)

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 digest, got %d", len(sender.sent))
	}
	digest := sender.sent[0]
	if digest.ChatID != "999" {
		t.Errorf("digest should go to the operator chat, got %q", digest.ChatID)
	}
	if !strings.Contains(digest.Content, "#12 from Alice") {
		t.Errorf("digest missing first ticket: %q", digest.Content)
	}
	if !strings.Contains(digest.Content, "#15 from 200") {
		t.Errorf("digest should fall back to user id: %q", digest.Content)
	}
	if !strings.Contains(digest.Content, "2 unanswered") {
		t.Errorf("digest missing count: %q", digest.Content)
	}
}

func TestSweep_CutoffMatchesWindow(t *testing.T) {
	store := &fakeStore{}
	s := newSweeper(store, &fakeSender{})

	s.Sweep(context.Background())

	want := time.Now().Add(-24 * time.Hour)
	if diff := store.cutoff.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff %v not ~24h ago", store.cutoff)
	}
}

func TestSweep_SendFailure(t *testing.T) {
	store := &fakeStore{overdue: []*ticket.Ticket{
		{ID: 1, UserName: "A", Question: "q", CreatedAt: time.Now().Add(-48 * time.Hour)},
	}}
	s := newSweeper(store, &fakeSender{err: fmt.Errorf("operator unreachable")})

	if err := s.Sweep(context.Background()); err == nil {
		t.Fatal("expected error when digest delivery fails")
	}
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := newSweeper(&fakeStore{}, &fakeSender{})
	err := s.Start(context.Background(), "not a schedule")
	if err == nil || !strings.Contains(err.Error(), "invalid schedule") {
		t.Fatalf("expected schedule error, got %v", err)
	}
}

func TestExcerpt(t *testing.T) {
	long := strings.Repeat("x", 100)
	got := excerpt(long)
	if len([]rune(got)) != 81 {
		t.Errorf("expected truncation to 80 chars plus ellipsis, got %d", len([]rune(got)))
	}
	if excerpt("short") != "short" {
		t.Error("short questions should pass through")
	}
}

func TestExcerpt_TruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("п", 100)
	got := excerpt(long)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune: %q", got)
	}
	if want := strings.Repeat("п", 80) + "…"; got != want {
		t.Errorf("expected 80 runes plus ellipsis, got %q", got)
	}
}
