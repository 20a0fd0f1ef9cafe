package relay

import (
	"context"
	"fmt"

	"github.com/relaydesk-io/relaydesk/internal/connector"
	"github.com/relaydesk-io/relaydesk/internal/ticket"
)

const greetingText = "Hi! I'm the support bot. Describe your problem in a single message and our operator will get back to you."

const helpText = "Send me your question as a regular message and I'll pass it to our operator. You'll get the reply right here."

// intake converts an inbound user message into a persisted ticket, notifies
// the operator, and acknowledges the user. A failed create aborts the whole
// intake; notification and acknowledgment are best-effort and never roll the
// ticket back.
func (s *Service) intake(ctx context.Context, msg connector.InboundMessage) error {
	t := &ticket.Ticket{
		Channel:  msg.Channel,
		UserID:   msg.SenderID,
		UserName: msg.SenderName,
		ChatID:   msg.ChatID,
		Question: msg.Content,
	}
	id, err := s.store.Create(t)
	if err != nil {
		return fmt.Errorf("relay: intake: %w", err)
	}

	s.logger.Info("ticket created",
		"ticket", id,
		"channel", msg.Channel,
		"user", msg.SenderID,
	)

	if err := s.notifyOperator(ctx, t, userRef(msg)); err != nil {
		s.logger.Warn("operator notification failed", "ticket", id, "error", err)
	}
	if err := s.send(ctx, msg.Channel, msg.ChatID, s.ackText(), connector.FormatMarkdown); err != nil {
		s.logger.Warn("user acknowledgment failed", "ticket", id, "error", err)
	}
	return nil
}

// Submit runs the intake path for questions arriving outside a chat
// connector (the admin API). The caller supplies the channel and chat the
// eventual reply should go to.
func (s *Service) Submit(ctx context.Context, channel, userID, userName, chatID, question string) (int64, error) {
	t := &ticket.Ticket{
		Channel:  channel,
		UserID:   userID,
		UserName: userName,
		ChatID:   chatID,
		Question: question,
	}
	id, err := s.store.Create(t)
	if err != nil {
		return 0, fmt.Errorf("relay: submit: %w", err)
	}
	ref := userName
	if ref == "" {
		ref = userID
	}
	if err := s.notifyOperator(ctx, t, ref); err != nil {
		s.logger.Warn("operator notification failed", "ticket", id, "error", err)
	}
	return id, nil
}

// notifyOperator forwards a freshly created ticket to the operator: who
// asked (clickable when the platform gave us a direct-address URI), the
// ticket ID to reply with, and the verbatim question text.
func (s *Service) notifyOperator(ctx context.Context, t *ticket.Ticket, ref string) error {
	msg := fmt.Sprintf("Message from %s (ID: %d):\n%s", ref, t.ID, t.Question)
	return s.send(ctx, s.operator.Channel, s.operator.ChatID, msg, connector.FormatMarkdown)
}

func (s *Service) ackText() string {
	hours := int(s.window.Hours())
	return fmt.Sprintf("**Your question is being processed.**\n"+
		"• Please expect a reply within %d hours.\n"+
		"• If you have not received one by then, send your question again.", hours)
}

// userRef renders the sender as a Markdown link when a direct-address URI is
// known, the bare name otherwise.
func userRef(msg connector.InboundMessage) string {
	name := msg.SenderName
	if name == "" {
		name = msg.SenderID
	}
	if msg.SenderLink != "" {
		return fmt.Sprintf("[%s](%s)", name, msg.SenderLink)
	}
	return name
}
