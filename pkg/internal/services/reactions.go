package services

import (
	"context"
	"errors"
	"time"

	"git.solsynth.dev/hypernet/chat/pkg/internal/database"
	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// IsReactionConflict reports whether err is the violation of the one
// reaction per (message, user, emoji) constraint. Other unique violations
// are not matched.
func IsReactionConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == models.ReactionUniqueConstraint
}

func AddReaction(message models.Message, user string, emoji string) (models.Reaction, error) {
	reaction := models.Reaction{
		MessageID: message.ID,
		UserID:    user,
		Emoji:     emoji,
	}

	if err := database.C.Create(&reaction).Error; err != nil {
		if IsReactionConflict(err) {
			reactionsCounter.WithLabelValues("add", "duplicate").Inc()
			return reaction, ErrReactionExists
		}
		reactionsCounter.WithLabelValues("add", "error").Inc()
		return reaction, err
	}
	reactionsCounter.WithLabelValues("add", "ok").Inc()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	Feed.Publish(ctx, models.FeedEvent{
		Type:           models.FeedInsert,
		Table:          models.FeedTableReactions,
		ConversationID: message.ConversationID,
		Record:         reaction,
	})

	return reaction, nil
}

func GetReaction(id string) (models.Reaction, error) {
	var reaction models.Reaction
	if err := database.C.Where("id = ?", id).First(&reaction).Error; err != nil {
		return reaction, err
	}
	return reaction, nil
}

// RemoveReaction deletes a reaction of user. conversationId scopes the
// delete frame.
func RemoveReaction(reaction models.Reaction, conversationId string, user string) error {
	if reaction.UserID != user {
		return ErrNotReactionAuthor
	}

	if err := database.C.Delete(&reaction).Error; err != nil {
		reactionsCounter.WithLabelValues("remove", "error").Inc()
		return err
	}
	reactionsCounter.WithLabelValues("remove", "ok").Inc()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	Feed.Publish(ctx, models.FeedEvent{
		Type:           models.FeedDelete,
		Table:          models.FeedTableReactions,
		ConversationID: conversationId,
		OldRecord: map[string]any{
			"id":         reaction.ID,
			"message_id": reaction.MessageID,
		},
	})

	return nil
}
