package repo

import (
	"context"

	"github.com/KNICEX/auto-trader/internal/entity"
	"gorm.io/gorm"
)

type PositionRepo interface {
	// Save 按 Id 插入或整行更新
	Save(ctx context.Context, position entity.Position) error
	FindById(ctx context.Context, id string) (entity.Position, error)
	FindByStatus(ctx context.Context, status string) ([]entity.Position, error)
	// FindClosed 最近平仓的, 按平仓时间倒序
	FindClosed(ctx context.Context, limit int) ([]entity.Position, error)
}

type positionRepo struct {
	db *gorm.DB
}

func NewPositionRepo(db *gorm.DB) PositionRepo {
	return &positionRepo{
		db: db,
	}
}

func (r *positionRepo) Save(ctx context.Context, position entity.Position) error {
	return r.db.WithContext(ctx).Save(&position).Error
}

func (r *positionRepo) FindById(ctx context.Context, id string) (entity.Position, error) {
	var position entity.Position
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&position).Error
	if err != nil {
		return entity.Position{}, convertErr(err)
	}
	return position, nil
}

func (r *positionRepo) FindByStatus(ctx context.Context, status string) ([]entity.Position, error) {
	var positions []entity.Position
	err := r.db.WithContext(ctx).Where("status = ?", status).Order("entry_time ASC").Find(&positions).Error
	if err != nil {
		return nil, err
	}
	return positions, nil
}

func (r *positionRepo) FindClosed(ctx context.Context, limit int) ([]entity.Position, error) {
	var positions []entity.Position
	query := r.db.WithContext(ctx).Where("status = ?", entity.PositionStatusClosed).Order("exit_time DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}
