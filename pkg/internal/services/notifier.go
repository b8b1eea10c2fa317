package services

import (
	"context"
	"fmt"
	"time"

	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/segmentio/kafka-go"
	"github.com/spf13/viper"
)

// Notification is the payload handed to the push pipeline.
type Notification struct {
	Topic       string         `json:"topic"`
	RecipientID string         `json:"recipient_id"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Avatar      *string        `json:"avatar,omitempty"`
	Metadata    map[string]any `json:"metadata"`
	ReplyToken  string         `json:"reply_token,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

type notificationWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var notifier notificationWriter

func NewNotifier() {
	brokers := viper.GetStringSlice("kafka.brokers")
	if len(brokers) == 0 {
		log.Warn().Msg("No kafka brokers configured, notifications are disabled.")
		return
	}

	notifier = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        viper.GetString("kafka.topic"),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
}

func CloseNotifier() {
	if notifier == nil {
		return
	}
	if err := notifier.Close(); err != nil {
		log.Warn().Err(err).Msg("An error occurred when closing notifier...")
	}
}

// FilterNotifyRecipients picks the members to notify about message. The
// sender is never notified, muted members never are and members at the
// mentioned level only are when their name is mentioned.
func FilterNotifyRecipients(members []models.ConversationMember, message models.Message) []models.ConversationMember {
	var pending []models.ConversationMember
	for _, member := range members {
		if member.AccountID == message.SenderID {
			continue
		}
		switch member.Notify {
		case models.NotifyLevelNone:
			continue
		case models.NotifyLevelMentioned:
			if len(message.Mentions) == 0 || !lo.Contains(message.Mentions, member.Account.Name) {
				continue
			}
		default:
			break
		}
		pending = append(pending, member)
	}
	return pending
}

func NotificationDisplayText(message models.Message) string {
	if message.Content != nil && len(*message.Content) > 0 {
		return *message.Content
	}
	if message.AttachmentType != nil {
		return fmt.Sprintf("1 attachment (%s)", *message.AttachmentType)
	}
	return "1 attachment"
}

func NotifyMessageEvent(members []models.ConversationMember, conversation models.Conversation, message models.Message) {
	if notifier == nil {
		return
	}

	pending := FilterNotifyRecipients(members, message)
	if len(pending) == 0 {
		return
	}

	sender := message.Sender
	senderName := lo.Ternary(len(sender.Nick) > 0, sender.Nick, sender.Name)
	displayText := NotificationDisplayText(message)

	var batch []kafka.Message
	for _, member := range pending {
		notification := Notification{
			Topic:       "chat.message",
			RecipientID: member.AccountID,
			Title:       fmt.Sprintf("%s in %s", senderName, conversation.DisplayText()),
			Body:        displayText,
			Avatar:      sender.Avatar,
			Metadata: map[string]any{
				"user_id":         sender.ID,
				"user_name":       sender.Name,
				"user_nick":       sender.Nick,
				"conversation_id": conversation.ID,
				"message_id":      message.ID,
			},
			CreatedAt: message.CreatedAt,
		}
		if tk, err := CreateReplyToken(conversation.ID, message.ID, member.AccountID); err != nil {
			log.Warn().Err(err).Msg("An error occurred when creating reply token...")
		} else {
			notification.ReplyToken = tk
		}

		raw, err := jsoniter.Marshal(notification)
		if err != nil {
			continue
		}
		batch = append(batch, kafka.Message{
			Key:   []byte(member.AccountID),
			Value: raw,
			Time:  time.Now(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := notifier.WriteMessages(ctx, batch...); err != nil {
		notificationsCounter.WithLabelValues("error").Add(float64(len(batch)))
		log.Warn().Err(err).Msg("An error occurred when trying notify user.")
		return
	}
	notificationsCounter.WithLabelValues("ok").Add(float64(len(batch)))
}
