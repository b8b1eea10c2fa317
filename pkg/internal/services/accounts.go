package services

import (
	"git.solsynth.dev/hypernet/chat/pkg/internal/database"
	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"gorm.io/gorm/clause"
)

// LinkAccount upserts the local profile of a token subject.
func LinkAccount(account models.Account) (models.Account, error) {
	if err := database.C.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "nick", "avatar", "updated_at"}),
	}).Create(&account).Error; err != nil {
		return account, err
	}
	return account, nil
}

func GetAccount(id string) (models.Account, error) {
	var account models.Account
	if err := database.C.Where("id = ?", id).First(&account).Error; err != nil {
		return account, err
	}
	return account, nil
}

func GetAccountWithName(name string) (models.Account, error) {
	var account models.Account
	if err := database.C.Where("name = ?", name).First(&account).Error; err != nil {
		return account, err
	}
	return account, nil
}
