package domain

import "context"

// DrawOrderRepository archives draw records for display across sessions
type DrawOrderRepository interface {
	Create(ctx context.Context, order *DrawOrder) error
	UpdateStatus(ctx context.Context, recordID, status string) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*DrawOrder, error)
}
