// Package db contains the database connection and all queries used by
// the rest of the application
package db

import (
	"fmt"

	"github.com/rigwild/soft-skills/model"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func New() (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch viper.GetString("storage.driver") {
	case "postgres":
		dialector = postgres.Open(viper.GetString("storage.dsn"))
	case "sqlite", "":
		dsn := viper.GetString("storage.dsn")
		if dsn == "" {
			dsn = "database.db"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", viper.GetString("storage.driver"))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	err = db.AutoMigrate(model.User{}, model.Upload{}, model.Analysis{}, model.Stats{})
	if err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return db, nil
}
