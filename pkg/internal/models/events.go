package models

import "time"

const (
	FeedInsert    = "insert"
	FeedDelete    = "delete"
	FeedBroadcast = "broadcast"

	FeedTableMessages  = "messages"
	FeedTableReactions = "reactions"

	FeedEventTyping = "status.typing"
)

// FeedEvent is one frame of a conversation change feed.
type FeedEvent struct {
	Type           string `json:"type"`
	Table          string `json:"table,omitempty"`
	Event          string `json:"event,omitempty"`
	ConversationID string `json:"conversation_id"`
	Record         any    `json:"record,omitempty"`
	OldRecord      any    `json:"old_record,omitempty"`
	Payload        any    `json:"payload,omitempty"`
}

// FeedCommand is a frame sent by a feed client.
type FeedCommand struct {
	Action string `json:"action"`
}

type MessagePreview struct {
	Content        *string   `json:"content"`
	AttachmentType *string   `json:"attachment_type"`
	SenderID       string    `json:"sender_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type ConversationSummary struct {
	ConversationID string           `json:"conversation_id"`
	Type           ConversationType `json:"type"`
	Name           string           `json:"name"`
	UnreadCount    int              `json:"unread_count"`
	LastMessage    *MessagePreview  `json:"last_message"`
	LastActivityAt time.Time        `json:"last_activity_at"`
}
