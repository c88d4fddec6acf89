// Package db provides gorm-backed repositories for the lucky draw module.
package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/frankieli/forum_product/internal/modules/luckydraw/domain"
)

// DrawOrderRepository implements domain.DrawOrderRepository using gorm
type DrawOrderRepository struct {
	db *gorm.DB
}

// NewDrawOrderRepository creates a new db draw order repository and
// migrates the draw_orders table
func NewDrawOrderRepository(db *gorm.DB) (*DrawOrderRepository, error) {
	if err := db.AutoMigrate(&domain.DrawOrder{}); err != nil {
		return nil, err
	}
	return &DrawOrderRepository{db: db}, nil
}

func (r *DrawOrderRepository) Create(ctx context.Context, order *domain.DrawOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *DrawOrderRepository) UpdateStatus(ctx context.Context, recordID, status string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&domain.DrawOrder{}).
		Where("record_id = ?", recordID).
		Updates(map[string]interface{}{
			"status":     status,
			"settled_at": &now,
		}).Error
}

func (r *DrawOrderRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.DrawOrder, error) {
	var orders []*domain.DrawOrder
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
