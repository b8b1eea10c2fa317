package database

import (
	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"gorm.io/gorm"
)

var AutoMaintainRange = []any{
	&models.Account{},
	&models.Conversation{},
	&models.ConversationMember{},
	&models.Message{},
	&models.Reaction{},
}

// SoftDeleteRange lists the models purged by the cleaner.
var SoftDeleteRange = []any{
	&models.Conversation{},
	&models.ConversationMember{},
	&models.Message{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.AutoMigrate(AutoMaintainRange...); err != nil {
		return err
	}

	return nil
}
