package database

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/cascadehq/flowdeck/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Folder{},
		&models.FolderPermission{},
		&models.WorkflowBinding{},
		&models.AuditLog{},
	)
}

// SeedData ensures an initial administrator account exists. The password is
// taken from FLOWDECK_ADMIN_PASSWORD on first boot and must be rotated after
// the first login.
func SeedData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Where("is_admin = ?", true).Count(&count).Error; err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	password := strings.TrimSpace(os.Getenv("FLOWDECK_ADMIN_PASSWORD"))
	if password == "" {
		return errors.New("no admin account present and FLOWDECK_ADMIN_PASSWORD is not set")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := models.User{
		Username: "admin",
		Email:    "admin@localhost",
		Password: string(hash),
		IsAdmin:  true,
		IsActive: true,
	}
	return db.Create(&admin).Error
}
