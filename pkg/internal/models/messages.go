package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AttachmentTypeImage = "image"
	AttachmentTypeVideo = "video"
	AttachmentTypeAudio = "audio"
	AttachmentTypeFile  = "file"
)

type Message struct {
	BaseModel

	ConversationID string     `json:"conversation_id" gorm:"index"`
	SenderID       string     `json:"sender_id"`
	Sender         Account    `json:"sender"`
	Content        *string    `json:"content"`
	AttachmentURL  *string    `json:"attachment_url"`
	AttachmentType *string    `json:"attachment_type"`
	Mentions       datatypes.JSONSlice[string] `json:"mentions,omitempty"`
	Reactions      []Reaction                  `json:"reactions"`
}

// Reaction rows are hard deleted, the uniqueness of one emoji per user per
// message is enforced by the database.
type Reaction struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time `json:"created_at"`
	MessageID string    `json:"message_id" gorm:"uniqueIndex:idx_reactions_unique"`
	UserID    string    `json:"user_id" gorm:"uniqueIndex:idx_reactions_unique"`
	Emoji     string    `json:"emoji" gorm:"uniqueIndex:idx_reactions_unique"`
}

const ReactionUniqueConstraint = "idx_reactions_unique"

func (v *Reaction) BeforeCreate(_ *gorm.DB) error {
	if len(v.ID) == 0 {
		v.ID = uuid.NewString()
	}
	return nil
}
