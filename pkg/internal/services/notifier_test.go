package services

import (
	"context"
	"testing"

	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"github.com/segmentio/kafka-go"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func notifyFixture() ([]models.ConversationMember, models.Message) {
	members := []models.ConversationMember{
		{AccountID: "sender", Account: models.Account{ID: "sender", Name: "sender"}},
		{AccountID: "all", Account: models.Account{ID: "all", Name: "all"}, Notify: models.NotifyLevelAll},
		{AccountID: "muted", Account: models.Account{ID: "muted", Name: "muted"}, Notify: models.NotifyLevelNone},
		{AccountID: "mentioned", Account: models.Account{ID: "mentioned", Name: "carol"}, Notify: models.NotifyLevelMentioned},
		{AccountID: "ignored", Account: models.Account{ID: "ignored", Name: "dave"}, Notify: models.NotifyLevelMentioned},
	}
	message := models.Message{
		BaseModel: models.BaseModel{ID: "m-1"},
		SenderID:  "sender",
		Sender:    models.Account{ID: "sender", Name: "sender", Nick: "Sender"},
		Content:   lo.ToPtr("hi @carol"),
		Mentions:  []string{"carol"},
	}
	return members, message
}

func TestFilterNotifyRecipients(t *testing.T) {
	members, message := notifyFixture()

	recipients := FilterNotifyRecipients(members, message)
	ids := lo.Map(recipients, func(item models.ConversationMember, _ int) string { return item.AccountID })
	assert.Equal(t, []string{"all", "mentioned"}, ids)
}

func TestNotifyMessageEvent(t *testing.T) {
	viper.Set("security.reply_token_secret", "notify-test-secret")
	writer := &recordingWriter{}
	notifier = writer
	t.Cleanup(func() { notifier = nil })

	members, message := notifyFixture()
	conversation := models.Conversation{BaseModel: models.BaseModel{ID: "conv-a"}, Type: models.ConversationTypeChannel, Name: "general"}
	NotifyMessageEvent(members, conversation, message)

	require.Len(t, writer.messages, 2)
	assert.Equal(t, "all", string(writer.messages[0].Key))

	var notification Notification
	require.NoError(t, jsoniter.Unmarshal(writer.messages[0].Value, &notification))
	assert.Equal(t, "Sender in general", notification.Title)
	assert.Equal(t, "hi @carol", notification.Body)
	assert.Equal(t, "conv-a", notification.Metadata["conversation_id"])

	claims, err := ParseReplyToken(notification.ReplyToken)
	require.NoError(t, err)
	assert.Equal(t, "all", claims.UserID)
	assert.Equal(t, "m-1", claims.MessageID)
	assert.Equal(t, "conv-a", claims.ConversationID)
}

func TestNotificationDisplayText(t *testing.T) {
	assert.Equal(t, "hey", NotificationDisplayText(models.Message{Content: lo.ToPtr("hey")}))
	assert.Equal(t, "1 attachment (image)", NotificationDisplayText(models.Message{AttachmentType: lo.ToPtr("image")}))
}
