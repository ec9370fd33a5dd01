package auth

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/vbg-space/core/internal/models"
	"github.com/vbg-space/core/internal/pkg/apperr"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const minPasswordLength = 12

// bcrypt ignores input beyond 72 bytes.
const maxPasswordBytes = 72

var ErrWeakPassword = apperr.New(apperr.KindValidation, "password must be 12 to 72 bytes long")

// UpsertAdmin creates the administrator or replaces its password hash.
func UpsertAdmin(ctx context.Context, db *gorm.DB, username, password string, cost int) error {
	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLength {
		return ErrMissingCredentials
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordBytes {
		return ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "hash password failed", err)
	}
	admin := models.AdminModel{Username: username, PasswordHash: string(hash)}
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"password_hash"}),
	}).Create(&admin).Error
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "save admin failed", err)
	}
	return nil
}

// DeleteAdmin removes an administrator by username.
func DeleteAdmin(ctx context.Context, db *gorm.DB, username string) error {
	res := db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).Delete(&models.AdminModel{})
	if res.Error != nil {
		return apperr.Wrap(apperr.KindInternal, "delete admin failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "admin not found")
	}
	return nil
}

// ListAdmins returns all usernames.
func ListAdmins(ctx context.Context, db *gorm.DB) ([]string, error) {
	var names []string
	err := db.WithContext(ctx).Model(&models.AdminModel{}).Order("username").Pluck("username", &names).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list admins failed", err)
	}
	return names, nil
}
