// Package relay implements the support-ticket relay core: it classifies
// inbound messages, turns user questions into tickets, and routes operator
// replies back to the asking user by ticket ID.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/relaydesk-io/relaydesk/internal/connector"
	"github.com/relaydesk-io/relaydesk/internal/state"
	"github.com/relaydesk-io/relaydesk/internal/ticket"
)

// Sender delivers outbound messages on one platform. Satisfied by
// connector.Connector; tests substitute fakes.
type Sender interface {
	Send(ctx context.Context, msg connector.OutboundMessage) error
}

// Operator identifies the single identity authorized to answer tickets.
type Operator struct {
	Channel string // connector name the operator uses
	ID      string // sender identifier on that connector
	ChatID  string // chat to notify; defaults to ID
}

// Kind tags an inbound message with the handler it routes to. Classification
// happens once per event and is matched exhaustively, so routing never
// depends on handler registration order.
type Kind int

const (
	// OperatorMessage is any message from the configured operator identity.
	// It always wins: the operator is never misclassified as a requester.
	OperatorMessage Kind = iota
	// CommandMessage is a recognized bot command from a non-operator.
	CommandMessage
	// StatefulUserMessage is the first message after a greeting, from a user
	// in the AwaitingQuestion state.
	StatefulUserMessage
	// GenericUserMessage is any other non-operator message. It is forwarded
	// through the same intake path as a stateful question.
	GenericUserMessage
)

// Service wires the ticket store, the conversation state tracker, and the
// transport adapters into the relay state machine.
type Service struct {
	store      ticket.Store
	tracker    *state.Tracker
	transports map[string]Sender
	operator   Operator
	window     time.Duration
	logger     *slog.Logger
}

// New creates a relay service. The response window is used in the user
// acknowledgment and defaults to 24 hours when zero.
func New(store ticket.Store, tracker *state.Tracker, op Operator, window time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	if op.ChatID == "" {
		op.ChatID = op.ID
	}
	return &Service{
		store:      store,
		tracker:    tracker,
		transports: make(map[string]Sender),
		operator:   op,
		window:     window,
		logger:     logger,
	}
}

// RegisterTransport makes a platform's sender available for outbound
// delivery under the given connector name.
func (s *Service) RegisterTransport(name string, sender Sender) {
	s.transports[name] = sender
}

// Classify tags an inbound message. Precedence: operator identity >
// explicit command > conversation state > generic forwarding.
func (s *Service) Classify(msg connector.InboundMessage) Kind {
	if msg.Channel == s.operator.Channel && msg.SenderID == s.operator.ID {
		return OperatorMessage
	}
	if command(msg.Content) != "" {
		return CommandMessage
	}
	if s.tracker.Get(userKey(msg)) == state.AwaitingQuestion {
		return StatefulUserMessage
	}
	return GenericUserMessage
}

// HandleInbound is the connector-facing entry point: one call per received
// message, dispatched exhaustively on its classification.
func (s *Service) HandleInbound(ctx context.Context, msg connector.InboundMessage) error {
	switch s.Classify(msg) {
	case OperatorMessage:
		return s.handleOperatorReply(ctx, msg)
	case CommandMessage:
		return s.handleCommand(ctx, msg)
	case StatefulUserMessage:
		err := s.intake(ctx, msg)
		if err == nil {
			s.tracker.Clear(userKey(msg))
		}
		return err
	case GenericUserMessage:
		return s.intake(ctx, msg)
	}
	return nil
}

func (s *Service) handleCommand(ctx context.Context, msg connector.InboundMessage) error {
	switch command(msg.Content) {
	case "/start":
		if err := s.send(ctx, msg.Channel, msg.ChatID, greetingText, connector.FormatPlain); err != nil {
			return fmt.Errorf("relay: send greeting: %w", err)
		}
		s.tracker.Set(userKey(msg), state.AwaitingQuestion)
	case "/help":
		if err := s.send(ctx, msg.Channel, msg.ChatID, helpText, connector.FormatPlain); err != nil {
			return fmt.Errorf("relay: send help: %w", err)
		}
	}
	return nil
}

// send routes an outbound message through the transport registered for the
// given channel.
func (s *Service) send(ctx context.Context, channel, chatID, content string, format connector.Format) error {
	tr, ok := s.transports[channel]
	if !ok {
		return fmt.Errorf("relay: no transport registered for channel %q", channel)
	}
	return tr.Send(ctx, connector.OutboundMessage{
		ChatID:  chatID,
		Content: content,
		Format:  format,
	})
}

// command recognizes explicit bot commands. Unrecognized slash commands are
// not commands here: they fall through to generic forwarding, like any other
// user text.
func command(content string) string {
	if !strings.HasPrefix(content, "/") {
		return ""
	}
	cmd := content
	if i := strings.IndexByte(cmd, ' '); i >= 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/start", "/help":
		return cmd
	}
	return ""
}

// userKey identifies a user across connectors for conversation state.
func userKey(msg connector.InboundMessage) string {
	return msg.Channel + ":" + msg.SenderID
}
