package models

import "time"

// AdminModel is a moderator account. Accounts are provisioned out of band.
type AdminModel struct {
	ID           uint      `json:"id"       gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"type:varchar(50);uniqueIndex;not null"`
	PasswordHash string    `json:"-"        gorm:"column:password_hash;type:varchar(255);not null"`
	CreatedAt    time.Time `json:"created_at"`
}

func (AdminModel) TableName() string { return "admins" }
