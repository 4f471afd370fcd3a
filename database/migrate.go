package database

import (
	"fmt"

	"github.com/yeremiapane/restaurant-qr/models"
	"github.com/yeremiapane/restaurant-qr/utils"
	"gorm.io/gorm"
)

// Models lists every table the service owns, in dependency order.
var Models = []interface{}{
	&models.Table{},
	&models.TableSession{},
	&models.Order{},
	&models.OrderItem{},
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}
