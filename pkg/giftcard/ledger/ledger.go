package ledger

import (
	"time"

	"github.com/pkg/errors"
)

// Resolution records how a card reached its terminal state
type Resolution uint8

const (
	ResolutionNone Resolution = iota
	ResolutionRedeemed
	ResolutionReclaimed
)

func (r Resolution) String() string {
	switch r {
	case ResolutionRedeemed:
		return "redeemed"
	case ResolutionReclaimed:
		return "reclaimed"
	default:
		return "none"
	}
}

// Config is the protocol-wide singleton
type Config struct {
	Id uint64

	Authority      string
	CommissionRate uint16
	ReferralRate   uint16
	Treasury       string

	TotalGiftCards       uint64
	TotalCommission      uint64
	TotalReferralPayouts uint64
	TotalStaked          uint64

	// GovernanceTokenMint is set once the governance token is created
	GovernanceTokenMint *string
	TotalProposals      uint64

	CreatedAt time.Time
}

// Card is the escrow record of a single gift card, keyed by the bearer
// public key
type Card struct {
	Id uint64

	Address   string
	Creator   string
	Recipient string

	Amount           uint64
	Balance          uint64
	CommissionAmount uint64
	ReferralAmount   uint64

	IsRedeemed bool
	Resolution Resolution
	RedeemedBy string
	RedeemedAt *time.Time

	ExpiryTime int64
	Message    string
	Referrer   *string
	TokenMint  *string
	ThemeId    uint32

	CreatedAt time.Time
}

// Referral accumulates the earnings of a single referrer
type Referral struct {
	Id uint64

	Owner         string
	TotalEarned   uint64
	ReferralCount uint64

	CreatedAt time.Time
}

// Treasury is the singleton commission sink
type Treasury struct {
	Id uint64

	Address      string
	Balance      uint64
	StakedAmount uint64

	LastUpdatedAt time.Time
}

// Account is the native balance an identity holds in the ledger
type Account struct {
	Id uint64

	Owner   string
	Balance uint64

	LastUpdatedAt time.Time
}

func (r *Config) Validate() error {
	if len(r.Authority) == 0 {
		return errors.New("authority is required")
	}
	if len(r.Treasury) == 0 {
		return errors.New("treasury is required")
	}
	if r.CommissionRate > 10_000 || r.ReferralRate > r.CommissionRate {
		return errors.New("invalid rate configuration")
	}
	if r.GovernanceTokenMint != nil && len(*r.GovernanceTokenMint) == 0 {
		return errors.New("governance token mint cannot be empty when set")
	}
	return nil
}

func (r *Config) Clone() Config {
	cloned := *r
	if r.GovernanceTokenMint != nil {
		mint := *r.GovernanceTokenMint
		cloned.GovernanceTokenMint = &mint
	}
	return cloned
}

func (r *Config) CopyTo(dst *Config) {
	*dst = r.Clone()
}

func (r *Card) Validate() error {
	if len(r.Address) == 0 {
		return errors.New("address is required")
	}
	if len(r.Creator) == 0 {
		return errors.New("creator is required")
	}
	if r.Amount == 0 {
		return errors.New("amount must be positive")
	}
	if r.Balance > r.Amount {
		return errors.New("balance exceeds escrowed amount")
	}
	if r.IsRedeemed != (r.Resolution != ResolutionNone) {
		return errors.New("resolution must be set exactly when the card is terminal")
	}
	if r.IsRedeemed && (r.Balance != 0 || len(r.RedeemedBy) == 0 || r.RedeemedAt == nil) {
		return errors.New("terminal card must be drained and attributed")
	}
	if r.ExpiryTime < 0 {
		return errors.New("expiry time cannot be negative")
	}
	if r.Referrer != nil && len(*r.Referrer) == 0 {
		return errors.New("referrer cannot be empty when set")
	}
	if r.TokenMint != nil && len(*r.TokenMint) == 0 {
		return errors.New("token mint cannot be empty when set")
	}
	return nil
}

func (r *Card) Clone() Card {
	cloned := *r
	if r.RedeemedAt != nil {
		redeemedAt := *r.RedeemedAt
		cloned.RedeemedAt = &redeemedAt
	}
	if r.Referrer != nil {
		referrer := *r.Referrer
		cloned.Referrer = &referrer
	}
	if r.TokenMint != nil {
		mint := *r.TokenMint
		cloned.TokenMint = &mint
	}
	return cloned
}

func (r *Card) CopyTo(dst *Card) {
	*dst = r.Clone()
}

// IsExpired reports whether the card has an expiry that is at or before now
func (r *Card) IsExpired(now time.Time) bool {
	return r.ExpiryTime != 0 && now.Unix() >= r.ExpiryTime
}

func (r *Referral) Validate() error {
	if len(r.Owner) == 0 {
		return errors.New("owner is required")
	}
	return nil
}

func (r *Referral) Clone() Referral {
	return *r
}

func (r *Referral) CopyTo(dst *Referral) {
	*dst = *r
}

func (r *Treasury) Validate() error {
	if len(r.Address) == 0 {
		return errors.New("address is required")
	}
	return nil
}

func (r *Treasury) Clone() Treasury {
	return *r
}

func (r *Treasury) CopyTo(dst *Treasury) {
	*dst = *r
}

func (r *Account) Validate() error {
	if len(r.Owner) == 0 {
		return errors.New("owner is required")
	}
	return nil
}

func (r *Account) Clone() Account {
	return *r
}

func (r *Account) CopyTo(dst *Account) {
	*dst = *r
}
