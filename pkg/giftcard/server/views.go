package server

import (
	"time"

	"github.com/code-payments/gift-protocol/pkg/database/query"
	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/giftcard/ledger"
)

type configView struct {
	Authority            string    `json:"authority"`
	Treasury             string    `json:"treasury"`
	CommissionRate       uint16    `json:"commission_rate"`
	ReferralRate         uint16    `json:"referral_rate"`
	TotalGiftCards       uint64    `json:"total_gift_cards"`
	TotalCommission      uint64    `json:"total_commission"`
	TotalReferralPayouts uint64    `json:"total_referral_payouts"`
	TotalStaked          uint64    `json:"total_staked"`
	TotalProposals       uint64    `json:"total_proposals"`
	GovernanceTokenMint  *string   `json:"governance_token_mint,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

func toConfigView(r *ledger.Config) *configView {
	return &configView{
		Authority:            r.Authority,
		Treasury:             r.Treasury,
		CommissionRate:       r.CommissionRate,
		ReferralRate:         r.ReferralRate,
		TotalGiftCards:       r.TotalGiftCards,
		TotalCommission:      r.TotalCommission,
		TotalReferralPayouts: r.TotalReferralPayouts,
		TotalStaked:          r.TotalStaked,
		TotalProposals:       r.TotalProposals,
		GovernanceTokenMint:  r.GovernanceTokenMint,
		CreatedAt:            r.CreatedAt,
	}
}

type cardView struct {
	Address          string     `json:"address"`
	Creator          string     `json:"creator"`
	Recipient        string     `json:"recipient,omitempty"`
	Amount           uint64     `json:"amount"`
	Balance          uint64     `json:"balance"`
	CommissionAmount uint64     `json:"commission_amount"`
	ReferralAmount   uint64     `json:"referral_amount"`
	IsRedeemed       bool       `json:"is_redeemed"`
	Resolution       string     `json:"resolution"`
	RedeemedBy       string     `json:"redeemed_by,omitempty"`
	RedeemedAt       *time.Time `json:"redeemed_at,omitempty"`
	ExpiryTime       int64      `json:"expiry_time"`
	Message          string     `json:"message"`
	Referrer         *string    `json:"referrer,omitempty"`
	ThemeId          uint32     `json:"theme_id"`
	Theme            string     `json:"theme"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toCardView(r *ledger.Card) *cardView {
	return &cardView{
		Address:          r.Address,
		Creator:          r.Creator,
		Recipient:        r.Recipient,
		Amount:           r.Amount,
		Balance:          r.Balance,
		CommissionAmount: r.CommissionAmount,
		ReferralAmount:   r.ReferralAmount,
		IsRedeemed:       r.IsRedeemed,
		Resolution:       r.Resolution.String(),
		RedeemedBy:       r.RedeemedBy,
		RedeemedAt:       r.RedeemedAt,
		ExpiryTime:       r.ExpiryTime,
		Message:          r.Message,
		Referrer:         r.Referrer,
		ThemeId:          r.ThemeId,
		Theme:            giftcard.ThemeName(r.ThemeId),
		CreatedAt:        r.CreatedAt,
	}
}

type cardPageView struct {
	Cards      []*cardView `json:"cards"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// NextCursor is set for every non-empty page, an empty page ends the listing
func toCardPageView(records []*ledger.Card) *cardPageView {
	page := &cardPageView{Cards: make([]*cardView, 0, len(records))}
	for _, r := range records {
		page.Cards = append(page.Cards, toCardView(r))
	}
	if len(records) > 0 {
		page.NextCursor = query.ToCursor(records[len(records)-1].Id).ToBase58()
	}
	return page
}

type referralView struct {
	Owner         string    `json:"owner"`
	TotalEarned   uint64    `json:"total_earned"`
	ReferralCount uint64    `json:"referral_count"`
	CreatedAt     time.Time `json:"created_at"`
}

func toReferralView(r *ledger.Referral) *referralView {
	return &referralView{
		Owner:         r.Owner,
		TotalEarned:   r.TotalEarned,
		ReferralCount: r.ReferralCount,
		CreatedAt:     r.CreatedAt,
	}
}

type treasuryView struct {
	Address      string `json:"address"`
	Balance      uint64 `json:"balance"`
	StakedAmount uint64 `json:"staked_amount"`
}

func toTreasuryView(r *ledger.Treasury) *treasuryView {
	return &treasuryView{
		Address:      r.Address,
		Balance:      r.Balance,
		StakedAmount: r.StakedAmount,
	}
}

type terminalView struct {
	Card       *cardView `json:"card"`
	Payout     uint64    `json:"payout"`
	FeeReserve uint64    `json:"fee_reserve"`
}
