package domain

import "context"

// CatalogAccessor fetches the normalized prize pool from the forum backend
type CatalogAccessor interface {
	FetchCatalog(ctx context.Context) ([]Prize, error)
}

// DrawService performs the single-draw call. The server is authoritative
// for the random outcome.
type DrawService interface {
	Draw(ctx context.Context, userID int64) (Prize, error)
}

// SettlementService performs the pay / give-up calls for a drawn prize
type SettlementService interface {
	Pay(ctx context.Context, userID int64, giftID string) error
	Abandon(ctx context.Context, userID int64, giftID string) error
}

// OrderAccessor fetches the authoritative latest paid order.
// Returns ErrOrderNotFound when the user has no paid order yet.
type OrderAccessor interface {
	LatestOrder(ctx context.Context, userID int64) (*LotteryOrder, error)
}

// CatalogCache is an optional shared cache for the normalized catalog
type CatalogCache interface {
	Get(ctx context.Context) ([]Prize, error)
	Set(ctx context.Context, catalog []Prize) error
}
