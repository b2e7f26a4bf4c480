package repo

import (
	"errors"

	"github.com/KNICEX/auto-trader/internal/entity"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&entity.Position{}, &entity.Decision{}, &entity.AccountDay{})
}

func convertErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
