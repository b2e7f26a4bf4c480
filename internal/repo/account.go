package repo

import (
	"context"

	"github.com/KNICEX/auto-trader/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepo interface {
	Upsert(ctx context.Context, day entity.AccountDay) error
	FindByDay(ctx context.Context, day string) (entity.AccountDay, error)
}

type accountRepo struct {
	db *gorm.DB
}

func NewAccountRepo(db *gorm.DB) AccountRepo {
	return &accountRepo{
		db: db,
	}
}

func (r *accountRepo) Upsert(ctx context.Context, day entity.AccountDay) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{"realized_pnl", "trades", "updated_at"}),
	}).Create(&day).Error
}

func (r *accountRepo) FindByDay(ctx context.Context, day string) (entity.AccountDay, error) {
	var res entity.AccountDay
	err := r.db.WithContext(ctx).Where("day = ?", day).First(&res).Error
	if err != nil {
		return entity.AccountDay{}, convertErr(err)
	}
	return res, nil
}
