package connector

import "context"

// Connector is the interface for external messaging platforms (Telegram, Slack, etc.).
type Connector interface {
	// Name returns the connector type (e.g., "telegram", "slack").
	Name() string
	// Start begins listening for inbound messages. Blocks until context is cancelled.
	Start(ctx context.Context) error
	// Stop gracefully shuts down the connector.
	Stop() error
	// Send delivers an outbound message to the external platform.
	Send(ctx context.Context, msg OutboundMessage) error
}

// Format selects how outbound message content is rendered.
type Format int

const (
	// FormatMarkdown renders Content as Markdown, translated to the
	// platform's rich-text dialect (bold, links) on the way out.
	FormatMarkdown Format = iota
	// FormatPlain delivers Content verbatim with no markup processing.
	FormatPlain
)

// OutboundMessage is a message sent from the relay to an external platform.
type OutboundMessage struct {
	ChatID  string // Platform-specific chat identifier
	Content string // Message text
	Format  Format
}

// InboundMessage is a message received from an external platform.
type InboundMessage struct {
	Channel    string // Connector name (e.g., "telegram")
	SenderID   string // Platform-specific sender identifier
	SenderName string // Display name, best effort
	SenderLink string // URI addressing the sender directly, empty if the platform has none
	ChatID     string // Platform-specific chat identifier
	Content    string // Message text
}

// InboundHandler processes messages received from external platforms.
// Implementations classify the message and run ticket intake or operator
// reply dispatch.
type InboundHandler func(ctx context.Context, msg InboundMessage) error
