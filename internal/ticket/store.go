package ticket

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a ticket does not exist or, for FindOpen and
// MarkAnswered, when it has already been answered.
var ErrNotFound = errors.New("ticket not found")

// Ticket is a persisted user question awaiting at most one operator reply.
type Ticket struct {
	ID         int64      `json:"id"`
	Channel    string     `json:"channel"`
	UserID     string     `json:"user_id"`
	UserName   string     `json:"user_name"`
	ChatID     string     `json:"chat_id"`
	Question   string     `json:"question"`
	Answered   bool       `json:"answered"`
	CreatedAt  time.Time  `json:"created_at"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
}

// Store is the persistence interface for tickets.
type Store interface {
	// Create inserts a new unanswered ticket and returns its assigned ID.
	// Insert and ID retrieval are a single atomic statement.
	Create(t *Ticket) (int64, error)
	// Get retrieves a ticket by ID regardless of answered state.
	Get(id int64) (*Ticket, error)
	// FindOpen retrieves a ticket only if it exists and is unanswered.
	FindOpen(id int64) (*Ticket, error)
	// MarkAnswered flips the answered flag. The update is conditional on
	// answered=false; an already-answered or missing ticket yields ErrNotFound.
	MarkAnswered(id int64) error
	// List returns tickets matching the filter, newest first.
	List(filter Filter) ([]*Ticket, error)
	// Count returns the number of tickets matching the filter.
	Count(filter Filter) (int, error)
	// ListOverdue returns unanswered tickets created before cutoff, oldest first.
	ListOverdue(cutoff time.Time) ([]*Ticket, error)
}

// Filter constrains ticket list queries.
type Filter struct {
	Answered *bool
	Channel  string
	Limit    int // 0 = no limit
}
