package repository

import (
	"context"

	"coingate/internal/model"

	"gorm.io/gorm"
)

type FlowRepository struct {
	db *gorm.DB
}

func NewFlowRepository(db *gorm.DB) *FlowRepository {
	return &FlowRepository{db: db}
}

func (r *FlowRepository) Create(ctx context.Context, tx *gorm.DB, flow *model.CoinFlow) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(flow).Error
}

func (r *FlowRepository) ListByUID(ctx context.Context, uid string, page, pageSize int) ([]*model.CoinFlow, int64, error) {
	var flows []*model.CoinFlow
	var total int64

	query := r.db.WithContext(ctx).Model(&model.CoinFlow{}).Where("uid = ?", uid)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&flows).Error

	return flows, total, err
}
