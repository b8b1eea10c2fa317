package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/chat/pkg/internal/database"
	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type MessageBody struct {
	Content        string `json:"content"`
	AttachmentURL  string `json:"attachment_url"`
	AttachmentType string `json:"attachment_type"`
}

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_.-]+)`)

// ValidateMessageBody trims the body and rejects messages without text and
// without an attachment.
func ValidateMessageBody(body MessageBody) (MessageBody, error) {
	body.Content = strings.TrimSpace(body.Content)
	body.AttachmentURL = strings.TrimSpace(body.AttachmentURL)
	body.AttachmentType = strings.TrimSpace(body.AttachmentType)
	if len(body.Content) == 0 && len(body.AttachmentURL) == 0 {
		return body, ErrEmptyMessage
	}
	if len(body.AttachmentURL) > 0 && len(body.AttachmentType) == 0 {
		body.AttachmentType = models.AttachmentTypeFile
	}
	if len(body.AttachmentURL) == 0 {
		body.AttachmentType = ""
	}
	return body, nil
}

func ParseMentions(content string) []string {
	return lo.Uniq(lo.Map(mentionPattern.FindAllStringSubmatch(content, -1), func(item []string, index int) string {
		return item[1]
	}))
}

func CountMessage(conversation models.Conversation) int64 {
	var count int64
	if err := database.C.Where(models.Message{
		ConversationID: conversation.ID,
	}).Model(&models.Message{}).Count(&count).Error; err != nil {
		return 0
	} else {
		return count
	}
}

// ListMessage returns the history in creation order. A zero take returns
// everything.
func ListMessage(conversation models.Conversation, take int, offset int) ([]models.Message, error) {
	var messages []models.Message
	tx := database.C.
		Where(models.Message{ConversationID: conversation.ID}).
		Order("created_at ASC").
		Preload("Sender").
		Preload("Reactions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC")
		})
	if take > 0 {
		tx = tx.Limit(take).Offset(offset)
	}
	if err := tx.Find(&messages).Error; err != nil {
		return messages, err
	}
	return messages, nil
}

func GetMessage(id string) (models.Message, error) {
	var message models.Message
	if err := database.C.
		Where("id = ?", id).
		Preload("Sender").
		Preload("Reactions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC")
		}).
		First(&message).Error; err != nil {
		return message, err
	}
	return message, nil
}

func messageRecord(message models.Message) map[string]any {
	return map[string]any{
		"id":              message.ID,
		"conversation_id": message.ConversationID,
		"sender_id":       message.SenderID,
		"created_at":      message.CreatedAt,
	}
}

// NewMessage persists a validated body, then publishes the insert to the
// change feed and notifies the other members.
func NewMessage(conversation models.Conversation, sender models.ConversationMember, body MessageBody) (models.Message, error) {
	message := models.Message{
		ConversationID: conversation.ID,
		SenderID:       sender.AccountID,
		Mentions:       ParseMentions(body.Content),
	}
	if len(body.Content) > 0 {
		message.Content = lo.ToPtr(body.Content)
	}
	if len(body.AttachmentURL) > 0 {
		message.AttachmentURL = lo.ToPtr(body.AttachmentURL)
		message.AttachmentType = lo.ToPtr(body.AttachmentType)
	}

	if err := database.C.Create(&message).Error; err != nil {
		return message, err
	}
	messagesSentCounter.Inc()

	if err := TouchConversation(conversation.ID, message.CreatedAt); err != nil {
		log.Warn().Err(err).Str("conversation", conversation.ID).Msg("An error occurred when updating conversation activity...")
	}

	message.Sender = sender.Account
	message.Reactions = []models.Reaction{}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	Feed.Publish(ctx, models.FeedEvent{
		Type:           models.FeedInsert,
		Table:          models.FeedTableMessages,
		ConversationID: conversation.ID,
		Record:         messageRecord(message),
	})

	go func() {
		members, err := ListConversationMemberForNotify(conversation.ID)
		if err != nil {
			// Couldn't get members, skip notifying
			log.Warn().Err(err).Msg("An error occurred when listing members to notify...")
			return
		}
		NotifyMessageEvent(members, conversation, message)
	}()

	return message, nil
}
