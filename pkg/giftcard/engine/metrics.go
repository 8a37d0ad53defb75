package engine

import (
	"context"

	"github.com/code-payments/gift-protocol/pkg/giftcard/ledger"
	"github.com/code-payments/gift-protocol/pkg/metrics"
)

const (
	metricsStructName = "giftcard.engine"

	giftCardCreatedEventName   = "GiftCardCreated"
	giftCardRedeemedEventName  = "GiftCardRedeemed"
	giftCardReclaimedEventName = "GiftCardReclaimed"
	rewardsDistributedEvent    = "TreasuryRewardsDistributed"
	proposalFinalizedEventName = "ProposalFinalized"

	operationFailureMetricName = "GiftCardEngine/OperationFailure"
)

func recordCardCreatedEvent(ctx context.Context, card *ledger.Card, referralCredited bool) {
	metrics.RecordEvent(ctx, giftCardCreatedEventName, map[string]interface{}{
		"card":              card.Address,
		"net_amount":        card.Amount,
		"commission":        card.CommissionAmount,
		"referral_amount":   card.ReferralAmount,
		"referral_credited": referralCredited,
		"has_expiry":        card.ExpiryTime != 0,
		"theme_id":          card.ThemeId,
	})
}

func recordCardTerminalEvent(ctx context.Context, card *ledger.Card, payout uint64) {
	eventName := giftCardRedeemedEventName
	if card.Resolution == ledger.ResolutionReclaimed {
		eventName = giftCardReclaimedEventName
	}

	metrics.RecordEvent(ctx, eventName, map[string]interface{}{
		"card":   card.Address,
		"payout": payout,
	})
}

func recordRewardsDistributedEvent(ctx context.Context, recipients int, share uint64) {
	metrics.RecordEvent(ctx, rewardsDistributedEvent, map[string]interface{}{
		"recipients": recipients,
		"share":      share,
	})
}

func recordProposalFinalizedEvent(ctx context.Context, proposal *ledger.Proposal) {
	kvPairs := map[string]interface{}{
		"proposal":    proposal.ProposalId,
		"total_votes": proposal.TotalVotes,
	}
	if proposal.WinningChoice != nil {
		kvPairs["winning_choice"] = *proposal.WinningChoice
	}
	metrics.RecordEvent(ctx, proposalFinalizedEventName, kvPairs)
}

func recordOperationFailure(ctx context.Context) {
	metrics.RecordCount(ctx, operationFailureMetricName, 1)
}
