package database

import (
	_ "embed"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/odilbek/timeclock/internal/models"
)

//go:embed seed/users.yaml
var seedUsersYAML []byte

type seedFile struct {
	Users []struct {
		Email    string `yaml:"email"`
		Name     string `yaml:"name"`
		Role     string `yaml:"role"`
		Password string `yaml:"password"`
	} `yaml:"users"`
}

// SeedDevData populates the database with development accounts from the
// embedded fixture. Idempotent: existing emails are skipped.
func SeedDevData(db *gorm.DB) error {
	var fixture seedFile
	if err := yaml.Unmarshal(seedUsersYAML, &fixture); err != nil {
		return fmt.Errorf("failed to parse seed fixture: %w", err)
	}

	for _, su := range fixture.Users {
		var existing models.User
		if err := db.Where("email = ?", su.Email).First(&existing).Error; err == nil {
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(su.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash seed password for %s: %w", su.Email, err)
		}

		user := models.User{
			Email:        su.Email,
			Name:         su.Name,
			Role:         su.Role,
			PasswordHash: string(hash),
			Status:       models.StatusOffline,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create seed user %s: %w", su.Email, err)
		}
		slog.Info("seeded development user", "email", su.Email, "role", su.Role)
	}

	return nil
}
