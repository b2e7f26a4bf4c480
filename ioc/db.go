package ioc

import (
	"os"
	"path/filepath"

	"github.com/KNICEX/auto-trader/internal/config"
	"github.com/KNICEX/auto-trader/internal/repo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg config.DBConfig) *gorm.DB {
	if dir := filepath.Dir(cfg.DSN); dir != "." && cfg.DSN != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			panic(err)
		}
	}
	db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		panic(err)
	}
	// sqlite 单写
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := repo.InitTables(db); err != nil {
		panic(err)
	}
	return db
}
