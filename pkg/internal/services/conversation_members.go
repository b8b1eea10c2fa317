package services

import (
	"errors"
	"fmt"

	"git.solsynth.dev/hypernet/chat/pkg/internal/database"
	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func CountConversationMember(conversationId string) (int64, error) {
	var count int64
	if err := database.C.Where(&models.ConversationMember{
		ConversationID: conversationId,
	}).Model(&models.ConversationMember{}).Count(&count).Error; err != nil {
		return 0, err
	} else {
		return count, nil
	}
}

func ListConversationMember(conversationId string, take int, offset int) ([]models.ConversationMember, error) {
	var members []models.ConversationMember

	if err := database.C.
		Limit(take).Offset(offset).
		Where(&models.ConversationMember{ConversationID: conversationId}).
		Preload("Account").
		Find(&members).Error; err != nil {
		return members, err
	}

	return members, nil
}

// ListConversationMemberForNotify returns every member with the account
// preloaded, used to resolve notification recipients.
func ListConversationMemberForNotify(conversationId string) ([]models.ConversationMember, error) {
	var members []models.ConversationMember
	if err := database.C.
		Where(&models.ConversationMember{ConversationID: conversationId}).
		Preload("Account").
		Find(&members).Error; err != nil {
		return members, err
	}
	return members, nil
}

func AddConversationMember(user models.Account, target models.Conversation) error {
	if target.Type == models.ConversationTypeDirect {
		return ErrDirectMembership
	}

	var member models.ConversationMember
	if err := database.C.Where(&models.ConversationMember{
		AccountID:      user.ID,
		ConversationID: target.ID,
	}).First(&member).Error; err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("unable to check conversation membership: %w", err)
	}

	member = models.ConversationMember{
		ConversationID: target.ID,
		AccountID:      user.ID,
	}

	err := database.C.Save(&member).Error

	if err == nil {
		InvalidateConversationIdentity(
			fmt.Sprintf("conversation#%s", target.ID),
			fmt.Sprintf("user#%s", user.ID),
		)
	}

	return err
}

func EditConversationMember(membership models.ConversationMember) (models.ConversationMember, error) {
	if err := database.C.Omit(clause.Associations).Save(&membership).Error; err != nil {
		return membership, err
	} else {
		InvalidateConversationIdentity(
			fmt.Sprintf("conversation#%s", membership.ConversationID),
			fmt.Sprintf("user#%s", membership.AccountID),
		)
	}

	return membership, nil
}

func RemoveConversationMember(member models.ConversationMember, target models.Conversation) error {
	if target.Type == models.ConversationTypeDirect {
		return ErrDirectMembership
	}

	if err := database.C.Unscoped().Delete(&member).Error; err == nil {
		InvalidateConversationIdentity(
			fmt.Sprintf("conversation#%s", target.ID),
			fmt.Sprintf("user#%s", member.AccountID),
		)
		Feed.DisconnectUser(target.ID, member.AccountID)
		return nil
	} else {
		return err
	}
}
