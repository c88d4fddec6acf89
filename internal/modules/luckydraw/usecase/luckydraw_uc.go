// Package usecase implements the business logic for the lucky draw module.
package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/frankieli/forum_product/internal/modules/luckydraw/domain"
	"github.com/frankieli/forum_product/internal/modules/luckydraw/machine"
	"github.com/frankieli/forum_product/pkg/logger"
)

// Archive status values for draw_orders rows
const (
	archiveStatusPending   = "pending"
	archiveStatusMissed    = "missed"
	archiveStatusPaid      = "paid"
	archiveStatusAbandoned = "abandoned"
	archiveStatusTimedOut  = "timed_out"
)

// LuckyDrawUseCase hosts one decision engine per user and orchestrates
// catalog, draw, settlement and reconciliation against the forum backend
type LuckyDrawUseCase struct {
	catalogSvc  domain.CatalogAccessor
	drawSvc     domain.DrawService
	settleSvc   domain.SettlementService
	orderSvc    domain.OrderAccessor
	orderRepo   domain.DrawOrderRepository
	cache       domain.CatalogCache     // optional
	broadcaster domain.StateBroadcaster // optional

	clock        clockwork.Clock
	window       time.Duration
	tickInterval time.Duration

	catalogGroup singleflight.Group

	mu       sync.Mutex
	sessions map[int64]*machine.DecisionMachine
	tokens   map[int64]string // last bearer token seen per user, for timeout cleanup
	catalog  []domain.Prize
	rnd      *rand.Rand
}

// NewLuckyDrawUseCase creates a new lucky draw use case. cache and
// broadcaster may be nil.
func NewLuckyDrawUseCase(
	catalogSvc domain.CatalogAccessor,
	drawSvc domain.DrawService,
	settleSvc domain.SettlementService,
	orderSvc domain.OrderAccessor,
	orderRepo domain.DrawOrderRepository,
	cache domain.CatalogCache,
	broadcaster domain.StateBroadcaster,
	clock clockwork.Clock,
	window time.Duration,
	tickInterval time.Duration,
) *LuckyDrawUseCase {
	return &LuckyDrawUseCase{
		catalogSvc:   catalogSvc,
		drawSvc:      drawSvc,
		settleSvc:    settleSvc,
		orderSvc:     orderSvc,
		orderRepo:    orderRepo,
		cache:        cache,
		broadcaster:  broadcaster,
		clock:        clock,
		window:       window,
		tickInterval: tickInterval,
		sessions:     make(map[int64]*machine.DecisionMachine),
		tokens:       make(map[int64]string),
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// engineFor returns the user's decision machine, creating and wiring it
// on first use
func (uc *LuckyDrawUseCase) engineFor(userID int64) *machine.DecisionMachine {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if eng, ok := uc.sessions[userID]; ok {
		return eng
	}

	eng := machine.NewDecisionMachine(uc.clock, uc.window, uc.tickInterval)
	eng.SetTimeoutHandler(func(recordID string, prize domain.Prize) {
		uc.cleanupTimeout(userID, recordID, prize)
	})
	eng.RegisterEventHandler(func(event machine.Event) {
		uc.onEngineEvent(userID, event)
	})
	uc.sessions[userID] = eng
	return eng
}

// onEngineEvent archives transitions and pushes the snapshot to the
// user's display channel
func (uc *LuckyDrawUseCase) onEngineEvent(userID int64, event machine.Event) {
	ctx := logger.WithFields(context.Background(), map[string]interface{}{
		"user_id":   userID,
		"record_id": event.RecordID,
	})

	switch event.Type {
	case machine.EventDecisionStarted, machine.EventMissed:
		uc.archiveCreate(ctx, userID, event)
	case machine.EventPaid:
		uc.archiveSettle(ctx, event.RecordID, archiveStatusPaid)
	case machine.EventAbandoned:
		uc.archiveSettle(ctx, event.RecordID, archiveStatusAbandoned)
	case machine.EventTimedOut:
		uc.archiveSettle(ctx, event.RecordID, archiveStatusTimedOut)
	}

	if uc.broadcaster != nil {
		uc.broadcaster.PushState(userID, event.Snapshot)
	}
}

func (uc *LuckyDrawUseCase) archiveCreate(ctx context.Context, userID int64, event machine.Event) {
	if uc.orderRepo == nil || event.Snapshot.CurrentPrize == nil {
		return
	}

	status := archiveStatusPending
	if event.Type == machine.EventMissed {
		status = archiveStatusMissed
	}

	order := &domain.DrawOrder{
		RecordID:  event.RecordID,
		UserID:    userID,
		GiftID:    event.Snapshot.CurrentPrize.Prize.ID,
		GiftName:  event.Snapshot.CurrentPrize.Prize.Name,
		Status:    status,
		CreatedAt: uc.clock.Now(),
	}
	if err := uc.orderRepo.Create(ctx, order); err != nil {
		logger.Warn(ctx).Err(err).Msg("抽奖记录归档失败")
	}
}

func (uc *LuckyDrawUseCase) archiveSettle(ctx context.Context, recordID, status string) {
	if uc.orderRepo == nil {
		return
	}
	if err := uc.orderRepo.UpdateStatus(ctx, recordID, status); err != nil {
		logger.Warn(ctx).Err(err).Str("status", status).Msg("抽奖记录状态更新失败")
	}
}

// rememberToken keeps the user's bearer token so a later timeout
// cleanup, which runs off a timer with no request context, can still
// act on the user's behalf
func (uc *LuckyDrawUseCase) rememberToken(ctx context.Context, userID int64) {
	token := domain.TokenFrom(ctx)
	if token == "" {
		return
	}
	uc.mu.Lock()
	uc.tokens[userID] = token
	uc.mu.Unlock()
}

// cleanupTimeout releases the prize server-side after a timeout abandon.
// The local transition has already happened; a failure here is logged
// and nothing else.
func (uc *LuckyDrawUseCase) cleanupTimeout(userID int64, recordID string, prize domain.Prize) {
	ctx := logger.WithFields(context.Background(), map[string]interface{}{
		"user_id":   userID,
		"record_id": recordID,
	})

	uc.mu.Lock()
	token := uc.tokens[userID]
	uc.mu.Unlock()
	if token != "" {
		ctx = domain.WithToken(ctx, token)
	}

	if err := uc.settleSvc.Abandon(ctx, userID, prize.ID); err != nil {
		logger.Warn(ctx).
			Err(err).
			Str("gift_id", prize.ID).
			Msg("超时放弃的服务端清理失败，本地状态保持已放弃")
		return
	}

	logger.Info(ctx).Str("gift_id", prize.ID).Msg("⏰ 超时自动放弃，奖品已释放")
}

// Catalog returns the normalized prize pool, fetching it on first use.
// Concurrent refreshes collapse into a single backend round trip.
func (uc *LuckyDrawUseCase) Catalog(ctx context.Context) ([]domain.Prize, error) {
	uc.mu.Lock()
	cached := uc.catalog
	uc.mu.Unlock()

	if len(cached) > 0 {
		return cached, nil
	}
	return uc.RefreshCatalog(ctx)
}

// RefreshCatalog forces a catalog fetch. Failure is reported, not
// retried; drawing stays disabled while the pool is empty.
func (uc *LuckyDrawUseCase) RefreshCatalog(ctx context.Context) ([]domain.Prize, error) {
	result, err, _ := uc.catalogGroup.Do("catalog", func() (interface{}, error) {
		if uc.cache != nil {
			if catalog, cacheErr := uc.cache.Get(ctx); cacheErr == nil && len(catalog) > 0 {
				return ensureSentinel(catalog), nil
			}
		}

		catalog, fetchErr := uc.catalogSvc.FetchCatalog(ctx)
		if fetchErr != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, fetchErr)
		}

		catalog = ensureSentinel(catalog)

		if uc.cache != nil {
			if cacheErr := uc.cache.Set(ctx, catalog); cacheErr != nil {
				logger.Warn(ctx).Err(cacheErr).Msg("奖品目录缓存写入失败")
			}
		}
		return catalog, nil
	})
	if err != nil {
		return nil, err
	}

	catalog := result.([]domain.Prize)
	uc.mu.Lock()
	uc.catalog = catalog
	uc.mu.Unlock()

	return catalog, nil
}

// ensureSentinel guarantees the wheel always has a "no win" slot, even
// when the backend catalog omits one
func ensureSentinel(catalog []domain.Prize) []domain.Prize {
	for _, p := range catalog {
		if p.IsSentinel() {
			return catalog
		}
	}
	return append(catalog, domain.SentinelPrize())
}

// Draw performs a spin: the server picks the prize, the client maps it
// onto a wheel slot and opens the decision window
func (uc *LuckyDrawUseCase) Draw(ctx context.Context, userID int64) (*domain.DrawnPrize, error) {
	ctx = logger.WithFields(ctx, map[string]interface{}{
		"user_id": userID,
	})

	uc.rememberToken(ctx, userID)
	eng := uc.engineFor(userID)

	// Precondition: no open window, no in-flight settlement.
	snap := eng.Snapshot()
	if snap.Submitting {
		return nil, domain.ErrSubmissionInProgress
	}
	if snap.State == domain.StatePending {
		return nil, domain.ErrDecisionActive
	}

	catalog, err := uc.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	if len(catalog) == 0 {
		return nil, domain.ErrCatalogUnavailable
	}

	prize, err := uc.drawSvc.Draw(ctx, userID)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("抽奖请求失败")
		return nil, fmt.Errorf("%w: %v", domain.ErrDrawFailed, err)
	}

	uc.mu.Lock()
	slot := domain.WheelSlot(catalog, prize, uc.rnd)
	rotation := domain.WheelRotation(slot, len(catalog), uc.rnd)
	uc.mu.Unlock()

	drawn := domain.DrawnPrize{
		Prize:     prize,
		SlotIndex: slot,
		RotateDeg: rotation,
	}

	recordID, err := eng.StartDecision(drawn)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).
		Str("record_id", recordID).
		Str("gift_id", prize.ID).
		Str("gift_name", prize.Name).
		Bool("sentinel", prize.IsSentinel()).
		Msg("🎰 抽奖完成")

	return &drawn, nil
}

// Pay settles the pending decision by paying. On success the latest paid
// order is fetched for confirmation display; a reconciliation failure is
// logged, never fatal.
func (uc *LuckyDrawUseCase) Pay(ctx context.Context, userID int64) (*domain.LotteryOrder, error) {
	ctx = logger.WithFields(ctx, map[string]interface{}{
		"user_id": userID,
	})

	uc.rememberToken(ctx, userID)
	eng := uc.engineFor(userID)

	recordID, prize, err := eng.BeginSettlement()
	if err != nil {
		return nil, err
	}

	if err := uc.settleSvc.Pay(ctx, userID, prize.ID); err != nil {
		// Stay Pending: the countdown keeps running while time remains and
		// the user may retry or let the window expire.
		eng.FinishSettlement(domain.StatePaid, false)
		logger.Error(ctx).
			Err(err).
			Str("record_id", recordID).
			Str("gift_id", prize.ID).
			Msg("支付失败，保持等待确认")
		return nil, fmt.Errorf("%w: %v", domain.ErrSettlementFailed, err)
	}

	eng.FinishSettlement(domain.StatePaid, true)

	logger.Info(ctx).
		Str("record_id", recordID).
		Str("gift_id", prize.ID).
		Msg("💰 支付成功")

	order, err := uc.orderSvc.LatestOrder(ctx, userID)
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("支付后订单确认拉取失败")
		return nil, nil
	}
	return order, nil
}

// Abandon settles the pending decision by giving the prize up. Unlike
// the timeout path, a user-initiated abandon reflects confirmed fact:
// the transition waits for the server acknowledgement.
func (uc *LuckyDrawUseCase) Abandon(ctx context.Context, userID int64) error {
	ctx = logger.WithFields(ctx, map[string]interface{}{
		"user_id": userID,
	})

	uc.rememberToken(ctx, userID)
	eng := uc.engineFor(userID)

	recordID, prize, err := eng.BeginSettlement()
	if err != nil {
		return err
	}

	if err := uc.settleSvc.Abandon(ctx, userID, prize.ID); err != nil {
		eng.FinishSettlement(domain.StateAbandoned, false)
		logger.Error(ctx).
			Err(err).
			Str("record_id", recordID).
			Str("gift_id", prize.ID).
			Msg("放弃失败，保持等待确认")
		return fmt.Errorf("%w: %v", domain.ErrSettlementFailed, err)
	}

	eng.FinishSettlement(domain.StateAbandoned, true)

	logger.Info(ctx).
		Str("record_id", recordID).
		Str("gift_id", prize.ID).
		Msg("🗑 已放弃奖品")

	return nil
}

// Reset dismisses the result panel: terminal state back to Idle.
// History is untouched.
func (uc *LuckyDrawUseCase) Reset(userID int64) {
	uc.engineFor(userID).Reset()
}

// Snapshot returns the user's engine snapshot for polling clients
func (uc *LuckyDrawUseCase) Snapshot(userID int64) domain.Snapshot {
	return uc.engineFor(userID).Snapshot()
}

// LatestOrder fetches the authoritative latest paid order.
// domain.ErrOrderNotFound is a valid outcome, not a transport failure.
func (uc *LuckyDrawUseCase) LatestOrder(ctx context.Context, userID int64) (*domain.LotteryOrder, error) {
	return uc.orderSvc.LatestOrder(ctx, userID)
}

// Records lists the user's archived draw orders, newest first
func (uc *LuckyDrawUseCase) Records(ctx context.Context, userID int64, limit int) ([]*domain.DrawOrder, error) {
	if uc.orderRepo == nil {
		return []*domain.DrawOrder{}, nil
	}
	return uc.orderRepo.ListByUser(ctx, userID, limit)
}

// Stop disposes all engines
func (uc *LuckyDrawUseCase) Stop() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	for _, eng := range uc.sessions {
		eng.Stop()
	}
}
