package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	localCache "git.solsynth.dev/hypernet/chat/pkg/internal/cache"
	"git.solsynth.dev/hypernet/chat/pkg/internal/database"
	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type conversationIdentityCacheEntry struct {
	Conversation       models.Conversation
	ConversationMember models.ConversationMember
}

func GetConversationIdentityCacheKey(conversation string, user string) string {
	return fmt.Sprintf("conversation-identity-%s#%s", conversation, user)
}

func conversationCacheTags(conversation string, user string) []string {
	return []string{"conversation-identity", fmt.Sprintf("conversation#%s", conversation), fmt.Sprintf("user#%s", user)}
}

func CacheConversationIdentity(conversation models.Conversation, member models.ConversationMember, user string) {
	if localCache.S == nil {
		return
	}

	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)
	contx := context.Background()

	_ = marshal.Set(
		contx,
		GetConversationIdentityCacheKey(conversation.ID, user),
		conversationIdentityCacheEntry{conversation, member},
		store.WithTags(conversationCacheTags(conversation.ID, user)),
	)
}

func InvalidateConversationIdentity(tags ...string) {
	if localCache.S == nil {
		return
	}

	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)
	contx := context.Background()

	_ = marshal.Invalidate(contx, store.WithInvalidateTags(tags))
}

func GetConversation(id string) (models.Conversation, error) {
	var conversation models.Conversation
	if err := database.C.
		Where("id = ?", id).
		Preload("Members").
		Preload("Members.Account").
		First(&conversation).Error; err != nil {
		return conversation, err
	}
	return conversation, nil
}

// GetAvailableConversation returns the conversation together with the
// membership of user, failing with ErrNotMember for outsiders.
func GetAvailableConversation(id string, user string) (models.Conversation, models.ConversationMember, error) {
	if localCache.S != nil {
		cacheManager := cache.New[any](localCache.S)
		marshal := marshaler.New(cacheManager)
		if val, err := marshal.Get(context.Background(), GetConversationIdentityCacheKey(id, user), new(conversationIdentityCacheEntry)); err == nil {
			entry := val.(*conversationIdentityCacheEntry)
			return entry.Conversation, entry.ConversationMember, nil
		}
	}

	var member models.ConversationMember
	conversation, err := GetConversation(id)
	if err != nil {
		return conversation, member, err
	}

	if err := database.C.Where(&models.ConversationMember{
		ConversationID: conversation.ID,
		AccountID:      user,
	}).Preload("Account").First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conversation, member, ErrNotMember
		}
		return conversation, member, err
	}

	CacheConversationIdentity(conversation, member, user)

	return conversation, member, nil
}

// FindOrCreateDirectConversation returns the direct conversation between the
// two accounts, creating it on first use. Concurrent calls converge on the
// same row through the unique direct key.
func FindOrCreateDirectConversation(user models.Account, other models.Account) (models.Conversation, error) {
	key := models.DirectKey(user.ID, other.ID)

	var conversation models.Conversation
	if err := database.C.Where("direct_key = ?", key).First(&conversation).Error; err == nil {
		return conversation, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return conversation, err
	}

	conversation = models.Conversation{
		Type:           models.ConversationTypeDirect,
		DirectKey:      &key,
		AccountID:      user.ID,
		LastActivityAt: time.Now(),
		Members: []models.ConversationMember{
			{AccountID: user.ID, PowerLevel: 100},
			{AccountID: other.ID, PowerLevel: 100},
		},
	}
	if user.ID == other.ID {
		conversation.Members = conversation.Members[:1]
	}

	if err := database.C.Create(&conversation).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			err = database.C.Where("direct_key = ?", key).First(&conversation).Error
		}
		return conversation, err
	}

	return conversation, nil
}

func NewChannel(owner models.Account, name, description string, members []models.Account) (models.Conversation, error) {
	conversation := models.Conversation{
		Type:           models.ConversationTypeChannel,
		Name:           name,
		Description:    description,
		AccountID:      owner.ID,
		LastActivityAt: time.Now(),
		Members:        []models.ConversationMember{{AccountID: owner.ID, PowerLevel: 100}},
	}
	for _, member := range members {
		if member.ID == owner.ID {
			continue
		}
		conversation.Members = append(conversation.Members, models.ConversationMember{AccountID: member.ID})
	}

	err := database.C.Create(&conversation).Error
	return conversation, err
}

// TouchConversation moves the conversation to the top of the inbox.
func TouchConversation(id string, at time.Time) error {
	return database.C.Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("last_activity_at", gorm.Expr("GREATEST(last_activity_at, ?)", at)).Error
}

// MarkConversationRead advances the read marker of user. The marker never
// moves backwards so repeating the call is harmless.
func MarkConversationRead(id string, user string) error {
	tx := database.C.Model(&models.ConversationMember{}).
		Where("conversation_id = ? AND account_id = ?", id, user).
		Updates(map[string]any{
			"last_read_at": gorm.Expr("GREATEST(COALESCE(last_read_at, to_timestamp(0)), ?)", time.Now()),
		})
	if tx.Error != nil {
		return tx.Error
	} else if tx.RowsAffected == 0 {
		return ErrNotMember
	}
	return nil
}

type unreadCount struct {
	ConversationID string
	UnreadCount    int
}

// ListConversationSummaries builds the inbox of user, most recent activity
// first.
func ListConversationSummaries(user string) ([]models.ConversationSummary, error) {
	var members []models.ConversationMember
	if err := database.C.Where("account_id = ?", user).Find(&members).Error; err != nil {
		return nil, fmt.Errorf("unable to get conversation identities: %v", err)
	}
	if len(members) == 0 {
		return []models.ConversationSummary{}, nil
	}
	idx := lo.Map(members, func(item models.ConversationMember, index int) string {
		return item.ConversationID
	})

	var conversations []models.Conversation
	if err := database.C.Where("id IN ?", idx).
		Preload("Members").
		Preload("Members.Account").
		Order("last_activity_at DESC").
		Find(&conversations).Error; err != nil {
		return nil, err
	}

	var unread []unreadCount
	if err := database.C.Table(database.Table("conversation_members")+" AS cm").
		Select("cm.conversation_id, COUNT(m.id) AS unread_count").
		Joins(fmt.Sprintf("JOIN %s AS m ON m.conversation_id = cm.conversation_id AND m.deleted_at IS NULL", database.Table("messages"))).
		Where("cm.account_id = ? AND cm.deleted_at IS NULL AND m.sender_id <> ?", user, user).
		Where("cm.last_read_at IS NULL OR m.created_at > cm.last_read_at").
		Group("cm.conversation_id").
		Scan(&unread).Error; err != nil {
		return nil, err
	}
	unreadMap := lo.SliceToMap(unread, func(item unreadCount) (string, int) {
		return item.ConversationID, item.UnreadCount
	})

	var latest []models.Message
	if err := database.C.Raw(
		fmt.Sprintf(
			"SELECT DISTINCT ON (conversation_id) * FROM %s WHERE conversation_id IN ? AND deleted_at IS NULL ORDER BY conversation_id, created_at DESC",
			database.Table("messages"),
		),
		idx,
	).Scan(&latest).Error; err != nil {
		return nil, err
	}
	latestMap := lo.KeyBy(latest, func(item models.Message) string {
		return item.ConversationID
	})

	return lo.Map(conversations, func(item models.Conversation, index int) models.ConversationSummary {
		summary := models.ConversationSummary{
			ConversationID: item.ID,
			Type:           item.Type,
			Name:           ConversationDisplayName(item, user),
			UnreadCount:    unreadMap[item.ID],
			LastActivityAt: item.LastActivityAt,
		}
		if message, ok := latestMap[item.ID]; ok {
			summary.LastMessage = &models.MessagePreview{
				Content:        message.Content,
				AttachmentType: message.AttachmentType,
				SenderID:       message.SenderID,
				CreatedAt:      message.CreatedAt,
			}
		}
		return summary
	}), nil
}

// ConversationDisplayName names a direct conversation after the other
// participant.
func ConversationDisplayName(conversation models.Conversation, user string) string {
	if conversation.Type != models.ConversationTypeDirect {
		return conversation.Name
	}
	other, ok := lo.Find(conversation.Members, func(item models.ConversationMember) bool {
		return item.AccountID != user
	})
	if !ok {
		return conversation.Name
	}
	if len(other.Account.Nick) > 0 {
		return other.Account.Nick
	}
	return other.Account.Name
}
