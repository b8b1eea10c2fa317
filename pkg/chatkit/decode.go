package chatkit

import (
	"errors"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var errMissing = errors.New("missing required field")

type wireSender struct {
	ID     *string `json:"id"`
	Name   string  `json:"name"`
	Nick   string  `json:"nick"`
	Avatar *string `json:"avatar"`
}

type wireReaction struct {
	ID        *string    `json:"id"`
	MessageID *string    `json:"message_id"`
	UserID    *string    `json:"user_id"`
	Emoji     *string    `json:"emoji"`
	CreatedAt *time.Time `json:"created_at"`
}

type wireMessage struct {
	ID             *string        `json:"id"`
	ConversationID *string        `json:"conversation_id"`
	SenderID       *string        `json:"sender_id"`
	Sender         *wireSender    `json:"sender"`
	Content        *string        `json:"content"`
	AttachmentURL  *string        `json:"attachment_url"`
	AttachmentType *string        `json:"attachment_type"`
	CreatedAt      *time.Time     `json:"created_at"`
	Reactions      []wireReaction `json:"reactions"`
}

type wirePreview struct {
	Content        *string    `json:"content"`
	AttachmentType *string    `json:"attachment_type"`
	SenderID       *string    `json:"sender_id"`
	CreatedAt      *time.Time `json:"created_at"`
}

type wireSummary struct {
	ConversationID *string      `json:"conversation_id"`
	Type           string       `json:"type"`
	Name           string       `json:"name"`
	UnreadCount    *int         `json:"unread_count"`
	LastMessage    *wirePreview `json:"last_message"`
	LastActivityAt *time.Time   `json:"last_activity_at"`
}

type wireFrame struct {
	Type           string              `json:"type"`
	Table          string              `json:"table"`
	Event          string              `json:"event"`
	ConversationID string              `json:"conversation_id"`
	Record         jsoniter.RawMessage `json:"record"`
	OldRecord      jsoniter.RawMessage `json:"old_record"`
	Payload        jsoniter.RawMessage `json:"payload"`
}

func required(entity, field string, value *string) (string, error) {
	if value == nil || len(*value) == 0 {
		return "", &DecodeError{Entity: entity, Field: field, Err: errMissing}
	}
	return *value, nil
}

func unmarshal(entity string, raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return &DecodeError{Entity: entity, Err: err}
	}
	return nil
}

func (w wireReaction) decode() (Reaction, error) {
	var out Reaction
	var err error
	if out.ID, err = required("reaction", "id", w.ID); err != nil {
		return out, err
	}
	if out.MessageID, err = required("reaction", "message_id", w.MessageID); err != nil {
		return out, err
	}
	if out.UserID, err = required("reaction", "user_id", w.UserID); err != nil {
		return out, err
	}
	if out.Emoji, err = required("reaction", "emoji", w.Emoji); err != nil {
		return out, err
	}
	if w.CreatedAt != nil {
		out.CreatedAt = *w.CreatedAt
	}
	return out, nil
}

func (w wireMessage) decode() (Message, error) {
	var out Message
	var err error
	if out.ID, err = required("message", "id", w.ID); err != nil {
		return out, err
	}
	if out.ConversationID, err = required("message", "conversation_id", w.ConversationID); err != nil {
		return out, err
	}
	if out.SenderID, err = required("message", "sender_id", w.SenderID); err != nil {
		return out, err
	}
	if w.CreatedAt == nil {
		return out, &DecodeError{Entity: "message", Field: "created_at", Err: errMissing}
	}
	out.CreatedAt = *w.CreatedAt

	if w.Content != nil && len(strings.TrimSpace(*w.Content)) > 0 {
		content := *w.Content
		out.Content = &content
	}
	if w.AttachmentURL != nil && len(*w.AttachmentURL) > 0 {
		out.Attachment = &Attachment{URL: *w.AttachmentURL}
		if w.AttachmentType != nil {
			out.Attachment.Type = *w.AttachmentType
		}
	}
	if out.Content == nil && out.Attachment == nil {
		return out, &DecodeError{Entity: "message", Field: "content", Err: ErrEmptyMessage}
	}

	if w.Sender != nil {
		sender := Sender{Name: w.Sender.Name, Nick: w.Sender.Nick, Avatar: w.Sender.Avatar}
		if w.Sender.ID != nil {
			sender.ID = *w.Sender.ID
		}
		out.Sender = &sender
	}

	out.Reactions = make([]Reaction, 0, len(w.Reactions))
	for _, item := range w.Reactions {
		reaction, err := item.decode()
		if err != nil {
			return out, err
		}
		out.Reactions = append(out.Reactions, reaction)
	}

	return out, nil
}

func decodeMessage(raw []byte) (Message, error) {
	var w wireMessage
	if err := unmarshal("message", raw, &w); err != nil {
		return Message{}, err
	}
	return w.decode()
}

func decodeMessageList(raw []byte) ([]Message, error) {
	var page struct {
		Count int           `json:"count"`
		Data  []wireMessage `json:"data"`
	}
	if err := unmarshal("message list", raw, &page); err != nil {
		return nil, err
	}

	out := make([]Message, 0, len(page.Data))
	for _, item := range page.Data {
		message, err := item.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, message)
	}
	return out, nil
}

func decodeSummaries(raw []byte) ([]Summary, error) {
	var items []wireSummary
	if err := unmarshal("summary list", raw, &items); err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(items))
	for _, item := range items {
		id, err := required("summary", "conversation_id", item.ConversationID)
		if err != nil {
			return nil, err
		}
		summary := Summary{ConversationID: id, Type: item.Type, Name: item.Name}
		if item.UnreadCount != nil {
			summary.UnreadCount = *item.UnreadCount
		}
		if item.LastActivityAt != nil {
			summary.LastActivityAt = *item.LastActivityAt
		}
		if item.LastMessage != nil && item.LastMessage.CreatedAt != nil {
			summary.LastMessage = &Preview{
				Content:        item.LastMessage.Content,
				AttachmentType: item.LastMessage.AttachmentType,
				CreatedAt:      *item.LastMessage.CreatedAt,
			}
			if item.LastMessage.SenderID != nil {
				summary.LastMessage.SenderID = *item.LastMessage.SenderID
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

// decodeFrame converts a change feed frame into an Event. Frames for tables or
// broadcasts the core does not track report ok == false.
func decodeFrame(raw []byte) (event Event, ok bool, err error) {
	var frame wireFrame
	if err = unmarshal("feed frame", raw, &frame); err != nil {
		return event, false, err
	}
	event.ConversationID = frame.ConversationID

	switch {
	case frame.Type == "insert" && frame.Table == "messages":
		var record struct {
			ID             *string `json:"id"`
			ConversationID *string `json:"conversation_id"`
			SenderID       *string `json:"sender_id"`
		}
		if err = unmarshal("message record", frame.Record, &record); err != nil {
			return event, false, err
		}
		if event.MessageID, err = required("message record", "id", record.ID); err != nil {
			return event, false, err
		}
		if len(event.ConversationID) == 0 && record.ConversationID != nil {
			event.ConversationID = *record.ConversationID
		}
		if record.SenderID != nil {
			event.SenderID = *record.SenderID
		}
		event.Kind = EventMessageInserted
		return event, true, nil
	case frame.Type == "insert" && frame.Table == "reactions":
		var record wireReaction
		if err = unmarshal("reaction record", frame.Record, &record); err != nil {
			return event, false, err
		}
		reaction, err := record.decode()
		if err != nil {
			return event, false, err
		}
		event.Kind = EventReactionInserted
		event.Reaction = &reaction
		event.MessageID = reaction.MessageID
		return event, true, nil
	case frame.Type == "delete" && frame.Table == "reactions":
		var record struct {
			ID        *string `json:"id"`
			MessageID *string `json:"message_id"`
		}
		if err = unmarshal("reaction record", frame.OldRecord, &record); err != nil {
			return event, false, err
		}
		if event.ReactionID, err = required("reaction record", "id", record.ID); err != nil {
			return event, false, err
		}
		if record.MessageID != nil {
			event.MessageID = *record.MessageID
		}
		event.Kind = EventReactionDeleted
		return event, true, nil
	case frame.Type == "broadcast" && frame.Event == "status.typing":
		var payload struct {
			UserID *string `json:"user_id"`
		}
		if err = unmarshal("typing payload", frame.Payload, &payload); err != nil {
			return event, false, err
		}
		if event.UserID, err = required("typing payload", "user_id", payload.UserID); err != nil {
			return event, false, err
		}
		event.Kind = EventTyping
		return event, true, nil
	}

	return event, false, nil
}
