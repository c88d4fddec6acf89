// Package memory provides in-memory repositories for the lucky draw module.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/frankieli/forum_product/internal/modules/luckydraw/domain"
)

// DrawOrderRepository implements domain.DrawOrderRepository in memory
type DrawOrderRepository struct {
	orders map[string]*domain.DrawOrder // recordID -> order
	byUser map[int64][]string           // userID -> recordIDs, newest first
	mu     sync.RWMutex
}

// NewDrawOrderRepository creates a new memory draw order repository
func NewDrawOrderRepository() *DrawOrderRepository {
	return &DrawOrderRepository{
		orders: make(map[string]*domain.DrawOrder),
		byUser: make(map[int64][]string),
	}
}

func (r *DrawOrderRepository) Create(ctx context.Context, order *domain.DrawOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *order
	r.orders[order.RecordID] = &stored
	r.byUser[order.UserID] = append([]string{order.RecordID}, r.byUser[order.UserID]...)
	return nil
}

func (r *DrawOrderRepository) UpdateStatus(ctx context.Context, recordID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[recordID]
	if !ok {
		return nil
	}
	order.Status = status
	now := time.Now()
	order.SettledAt = &now
	return nil
}

func (r *DrawOrderRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.DrawOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recordIDs := r.byUser[userID]
	if limit > 0 && len(recordIDs) > limit {
		recordIDs = recordIDs[:limit]
	}

	out := make([]*domain.DrawOrder, 0, len(recordIDs))
	for _, id := range recordIDs {
		if order, ok := r.orders[id]; ok {
			copied := *order
			out = append(out, &copied)
		}
	}
	return out, nil
}
