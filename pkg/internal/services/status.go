package services

import (
	"context"
	"time"

	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
)

// SetTypingStatus broadcasts that the member is typing. The caller has
// already checked the membership.
func SetTypingStatus(member models.ConversationMember) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	Feed.Publish(ctx, models.FeedEvent{
		Type:           models.FeedBroadcast,
		Event:          models.FeedEventTyping,
		ConversationID: member.ConversationID,
		Payload: map[string]any{
			"user_id":         member.AccountID,
			"conversation_id": member.ConversationID,
		},
	})
}
