package engine

import (
	"context"

	"github.com/code-payments/gift-protocol/pkg/database/query"
	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/giftcard/ledger"
	"github.com/code-payments/gift-protocol/pkg/metrics"
)

type Stats struct {
	TotalGiftCards       uint64
	TotalCommission      uint64
	TotalReferralPayouts uint64
	TotalStaked          uint64

	TreasuryBalance uint64
	StakedAmount    uint64
}

// GetStats returns the protocol counters alongside the treasury balances
func (e *Engine) GetStats(ctx context.Context) (*Stats, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "GetStats").End()

	config, err := e.getConfig(ctx)
	if err != nil {
		return nil, err
	}

	treasury, err := e.getTreasury(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalGiftCards:       config.TotalGiftCards,
		TotalCommission:      config.TotalCommission,
		TotalReferralPayouts: config.TotalReferralPayouts,
		TotalStaked:          config.TotalStaked,
		TreasuryBalance:      treasury.Balance,
		StakedAmount:         treasury.StakedAmount,
	}, nil
}

func (e *Engine) GetConfig(ctx context.Context) (*ledger.Config, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "GetConfig").End()

	return e.getConfig(ctx)
}

func (e *Engine) GetCard(ctx context.Context, address string) (*ledger.Card, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "GetCard").End()

	if err := giftcard.ValidateAddress(address); err != nil {
		return nil, err
	}
	return e.getCard(ctx, address)
}

// GetCardsByCreator returns a page of cards created by creator. An empty
// page is not an error.
func (e *Engine) GetCardsByCreator(ctx context.Context, creator string, opts ...query.Option) ([]*ledger.Card, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "GetCardsByCreator").End()

	if err := giftcard.ValidateAddress(creator); err != nil {
		return nil, err
	}

	req, err := query.DefaultPaginationHandlerWithLimit(e.conf.maxPageSize.Get(ctx), opts...)
	if err != nil {
		return nil, err
	}

	cards, err := e.store.GetCardsByCreator(ctx, creator, req.Cursor, req.Limit, req.SortBy)
	if err == ledger.ErrCardNotFound {
		return nil, nil
	}
	return cards, err
}

func (e *Engine) GetReferral(ctx context.Context, owner string) (*ledger.Referral, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "GetReferral").End()

	if err := giftcard.ValidateAddress(owner); err != nil {
		return nil, err
	}

	referral, err := e.store.GetReferral(ctx, owner)
	if err == ledger.ErrReferralNotFound {
		return nil, giftcard.ErrReferralNotFound
	}
	return referral, err
}

// GetExpiredCards returns up to limit cards eligible for ReclaimGiftCard at
// the engine's current time. Cards whose balance can't cover the fee reserve
// are never eligible and are left out.
func (e *Engine) GetExpiredCards(ctx context.Context, limit uint64) ([]*ledger.Card, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "GetExpiredCards").End()

	cards, err := e.store.GetExpiredCards(ctx, e.now(), e.conf.feeReserve.Get(ctx), limit)
	if err == ledger.ErrCardNotFound {
		return nil, nil
	}
	return cards, err
}
