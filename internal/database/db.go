package database

import (
	"context"
	"time"

	"nabook/config"
	"nabook/internal/database/model"
	"nabook/pkg/logger"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var db *gorm.DB

func connect() (*gorm.DB, error) {
	conn, err := gorm.Open(mysql.Open(config.Cfg.Dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(config.Cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.Cfg.Database.MaxOpenConns)
	lifetime := time.Duration(config.Cfg.Database.MaxLifetime) * time.Minute
	sqlDB.SetConnMaxIdleTime(lifetime)
	sqlDB.SetConnMaxLifetime(lifetime)

	return conn, nil
}

// Init connects and migrates the session schema. Called once at startup;
// connection failures are fatal there, not at first use.
func Init() error {
	conn, err := connect()
	if err != nil {
		return err
	}
	if err := conn.AutoMigrate(&model.Session{}, &model.WeakPoint{}); err != nil {
		return err
	}
	db = conn
	return nil
}

// GetDB returns a healthy *gorm.DB, reconnecting if the pool went away.
func GetDB() (*gorm.DB, error) {
	if db == nil {
		conn, err := connect()
		if err != nil {
			logger.Error(err, "database: failed to connect")
			return nil, err
		}
		db = conn
		return db, nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		conn, err := connect()
		if err != nil {
			logger.Error(err, "database: failed to reconnect")
			return nil, err
		}
		db = conn
	}
	return db, nil
}

// WithTx runs fn inside a transaction on the shared DB.
func WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	conn, err := GetDB()
	if err != nil {
		return err
	}
	return conn.WithContext(ctx).Transaction(fn)
}
