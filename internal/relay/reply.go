package relay

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/relaydesk-io/relaydesk/internal/connector"
	"github.com/relaydesk-io/relaydesk/internal/ticket"
)

const replySeparator = ". "

const replyUsageText = "Please reply in the format '<ticket id>. <your reply>'."

const replyNotFoundText = "Ticket not found or already answered."

// Reply parse failures. ErrNoSeparator and ErrEmptyReply are format
// problems; ErrBadTicketID means the text split cleanly but the first part
// is not a ticket ID.
var (
	ErrNoSeparator = errors.New("reply: missing '. ' separator")
	ErrEmptyReply  = errors.New("reply: empty reply text")
	ErrBadTicketID = errors.New("reply: invalid ticket id")
)

// ParseReply splits an operator message into a ticket ID and reply text.
// Only the first ". " separates the two, so the reply body may contain
// further punctuation untouched. A body with no visible text is rejected:
// delivering it would close the ticket without the user receiving anything.
func ParseReply(text string) (int64, string, error) {
	parts := strings.SplitN(text, replySeparator, 2)
	if len(parts) != 2 {
		return 0, "", ErrNoSeparator
	}
	idStr := strings.TrimSpace(parts[0])
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", ErrBadTicketID
	}
	if strings.TrimSpace(parts[1]) == "" {
		return 0, "", ErrEmptyReply
	}
	return id, parts[1], nil
}

// handleOperatorReply parses the operator's message, delivers the reply to
// the ticket's user, and marks the ticket answered. The answered flag only
// advances after confirmed delivery: an unreachable user leaves the ticket
// open for a retry, and the operator is told either way.
func (s *Service) handleOperatorReply(ctx context.Context, msg connector.InboundMessage) error {
	id, reply, err := ParseReply(msg.Content)
	switch {
	case errors.Is(err, ErrNoSeparator), errors.Is(err, ErrEmptyReply):
		return s.respondToOperator(ctx, msg, replyUsageText)
	case errors.Is(err, ErrBadTicketID):
		return s.respondToOperator(ctx, msg, replyNotFoundText)
	}

	t, err := s.store.FindOpen(id)
	if errors.Is(err, ticket.ErrNotFound) {
		return s.respondToOperator(ctx, msg, replyNotFoundText)
	}
	if err != nil {
		s.logger.Error("ticket lookup failed", "ticket", id, "error", err)
		return s.respondToOperator(ctx, msg, fmt.Sprintf("Could not look up ticket %d, try again.", id))
	}

	if err := s.send(ctx, t.Channel, t.ChatID, reply, connector.FormatPlain); err != nil {
		s.logger.Warn("reply delivery failed",
			"ticket", id,
			"channel", t.Channel,
			"user", t.UserID,
			"error", err,
		)
		return s.respondToOperator(ctx, msg,
			fmt.Sprintf("Could not deliver the reply for ticket %d, it stays open. Try again later.", id))
	}

	if err := s.store.MarkAnswered(id); err != nil {
		if errors.Is(err, ticket.ErrNotFound) {
			// Lost a double-send race after delivery already happened.
			s.logger.Warn("ticket answered concurrently", "ticket", id)
			return s.respondToOperator(ctx, msg, fmt.Sprintf("Ticket %d was already answered.", id))
		}
		s.logger.Error("mark answered failed", "ticket", id, "error", err)
		return s.respondToOperator(ctx, msg,
			fmt.Sprintf("Reply delivered, but ticket %d could not be marked answered.", id))
	}

	s.logger.Info("ticket answered", "ticket", id, "user", t.UserID)
	return s.respondToOperator(ctx, msg, fmt.Sprintf("Reply sent to the user (ticket %d).", id))
}

// respondToOperator answers the operator in the chat their message came
// from, so feedback lands next to the reply attempt.
func (s *Service) respondToOperator(ctx context.Context, msg connector.InboundMessage, text string) error {
	if err := s.send(ctx, msg.Channel, msg.ChatID, text, connector.FormatPlain); err != nil {
		return fmt.Errorf("relay: respond to operator: %w", err)
	}
	return nil
}
