package bootstrap

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"foreman/internal/cache"
	"foreman/internal/config"
	"foreman/internal/database"
	"foreman/internal/models"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// InitRuntime connects to DB and Redis and ensures the master administrator
// account exists when bootstrap is enabled.
func InitRuntime(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	// Connect DB
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureMasterAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap master administrator: %w", err)
	}

	return db, r, nil
}

// ensureMasterAdmin provisions user ID 1 as the master administrator.
// Config validation already rejects BOOTSTRAP_MASTER_ADMIN in production,
// so this only ever runs against development databases.
func ensureMasterAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.BootstrapMasterAdmin {
		return nil
	}

	username := strings.TrimSpace(cfg.MasterAdminUsername)
	if username == "" {
		username = "foreman_root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.MasterAdminEmail))
	if email == "" {
		email = "root@foreman.local"
	}
	password := cfg.MasterAdminPassword
	if password == "" {
		return fmt.Errorf("MASTER_ADMIN_PASSWORD must be set when BOOTSTRAP_MASTER_ADMIN is enabled")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash master admin password: %w", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.First(&root, 1).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				ID:            1,
				Username:      username,
				Email:         email,
				Password:      string(hashedPassword),
				ViewMode:      models.ViewModeAdmin,
				IsMasterAdmin: true,
			}
			if err := tx.Create(&root).Error; err != nil {
				return err
			}
		case findErr != nil:
			return findErr
		default:
			updates := map[string]any{"is_master_admin": true}
			if cfg.MasterAdminForceUpdate {
				updates["username"] = username
				updates["email"] = email
				updates["password"] = string(hashedPassword)
			}
			if err := tx.Model(&models.User{}).Where("id = ?", 1).Updates(updates).Error; err != nil {
				return err
			}
		}

		// Ensure users ID sequence is not behind explicit ID insertion.
		// This is PostgreSQL-specific.
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec(`
				SELECT setval(
					pg_get_serial_sequence('users', 'id'),
					GREATEST((SELECT COALESCE(MAX(id), 1) FROM users), 1),
					true
				)
			`).Error; err != nil {
				return fmt.Errorf("failed to reset users sequence: %w", err)
			}
		}

		return nil
	}); err != nil {
		return err
	}

	log.Printf("master administrator bootstrap ensured for user ID 1 (%s)", email)
	return nil
}
