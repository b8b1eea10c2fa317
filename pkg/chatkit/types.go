package chatkit

import (
	"strings"
	"time"
)

// ProvisionalPrefix marks ids synthesized locally for messages that the
// backend has not confirmed yet.
const ProvisionalPrefix = "temp-"

type Sender struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Nick   string  `json:"nick"`
	Avatar *string `json:"avatar,omitempty"`
}

type Attachment struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

type Reaction struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	Sender         *Sender     `json:"sender,omitempty"`
	Content        *string     `json:"content,omitempty"`
	Attachment     *Attachment `json:"attachment,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	Reactions      []Reaction  `json:"reactions"`
	Pending        bool        `json:"pending,omitempty"`
}

// IsProvisional reports whether the message only exists locally.
func (m Message) IsProvisional() bool {
	return strings.HasPrefix(m.ID, ProvisionalPrefix)
}

func (m Message) hasReaction(id string) bool {
	for _, r := range m.Reactions {
		if r.ID == id {
			return true
		}
	}
	return false
}

func (m Message) clone() Message {
	out := m
	if m.Content != nil {
		content := *m.Content
		out.Content = &content
	}
	if m.Attachment != nil {
		attachment := *m.Attachment
		out.Attachment = &attachment
	}
	if m.Sender != nil {
		sender := *m.Sender
		out.Sender = &sender
	}
	out.Reactions = append([]Reaction(nil), m.Reactions...)
	return out
}

// Draft is what the composer hands to Store.Send.
type Draft struct {
	Content        string `json:"content,omitempty"`
	AttachmentURL  string `json:"attachment_url,omitempty"`
	AttachmentType string `json:"attachment_type,omitempty"`
}

// Normalize trims the content and rejects drafts that carry neither text
// nor an attachment.
func (d Draft) Normalize() (Draft, error) {
	d.Content = strings.TrimSpace(d.Content)
	d.AttachmentURL = strings.TrimSpace(d.AttachmentURL)
	if len(d.Content) == 0 && len(d.AttachmentURL) == 0 {
		return d, &ValidationError{Err: ErrEmptyMessage}
	}
	if len(d.AttachmentURL) > 0 && len(d.AttachmentType) == 0 {
		d.AttachmentType = "file"
	}
	return d, nil
}

type Preview struct {
	Content        *string   `json:"content,omitempty"`
	AttachmentType *string   `json:"attachment_type,omitempty"`
	SenderID       string    `json:"sender_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Summary is one row of the conversation list read model.
type Summary struct {
	ConversationID string    `json:"conversation_id"`
	Type           string    `json:"type"`
	Name           string    `json:"name"`
	UnreadCount    int       `json:"unread_count"`
	LastMessage    *Preview  `json:"last_message,omitempty"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

type EventKind int

const (
	EventMessageInserted EventKind = iota
	EventReactionInserted
	EventReactionDeleted
	EventTyping
)

func (k EventKind) String() string {
	switch k {
	case EventMessageInserted:
		return "message.inserted"
	case EventReactionInserted:
		return "reaction.inserted"
	case EventReactionDeleted:
		return "reaction.deleted"
	case EventTyping:
		return "status.typing"
	default:
		return "unknown"
	}
}

// Event is a typed change feed notification scoped to one conversation.
type Event struct {
	Kind           EventKind
	ConversationID string

	// MessageID is set for inserted messages and, when known, for the owning
	// message of a reaction event.
	MessageID string
	SenderID  string

	Reaction   *Reaction
	ReactionID string

	// UserID is the typing user for EventTyping.
	UserID string
}
