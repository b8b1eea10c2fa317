package models

import "time"

// Account is a local profile of a token subject. The id is the subject
// issued by the identity provider, so it is never generated here.
type Account struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name   string  `json:"name" gorm:"uniqueIndex"`
	Nick   string  `json:"nick"`
	Avatar *string `json:"avatar"`
}
