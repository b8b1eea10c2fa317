package models

import (
	"fmt"
	"sort"
	"time"
)

type ConversationType = string

const (
	ConversationTypeDirect  = ConversationType("direct")
	ConversationTypeChannel = ConversationType("channel")
)

type Conversation struct {
	BaseModel

	Type        ConversationType     `json:"type" gorm:"index"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	DirectKey   *string              `json:"-" gorm:"uniqueIndex"`
	Members     []ConversationMember `json:"members,omitempty"`
	AccountID   string               `json:"account_id"`

	LastActivityAt time.Time `json:"last_activity_at" gorm:"index"`
}

func (v Conversation) DisplayText() string {
	if v.Type == ConversationTypeDirect {
		return "DM"
	}
	return v.Name
}

// DirectKey identifies the one direct conversation between two accounts
// regardless of who opened it.
func DirectKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return fmt.Sprintf("%s:%s", pair[0], pair[1])
}

type NotifyLevel = int8

const (
	NotifyLevelAll = NotifyLevel(iota)
	NotifyLevelMentioned
	NotifyLevelNone
)

type ConversationMember struct {
	BaseModel

	ConversationID string       `json:"conversation_id" gorm:"uniqueIndex:idx_members_unique"`
	AccountID      string       `json:"account_id" gorm:"uniqueIndex:idx_members_unique"`
	Conversation   Conversation `json:"conversation,omitempty"`
	Account        Account      `json:"account"`
	Notify         NotifyLevel  `json:"notify"`
	PowerLevel     int          `json:"power_level"`
	LastReadAt     *time.Time   `json:"last_read_at"`
}
