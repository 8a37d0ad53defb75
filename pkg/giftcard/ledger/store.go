package ledger

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/gift-protocol/pkg/database/query"
)

var (
	ErrConfigNotFound   = errors.New("config not found")
	ErrConfigExists     = errors.New("config already exists")
	ErrTreasuryNotFound = errors.New("treasury not found")
	ErrCardNotFound     = errors.New("card not found")
	ErrCardExists       = errors.New("card already exists")
	ErrReferralNotFound = errors.New("referral not found")
	ErrReferralExists   = errors.New("referral already exists")
	ErrAccountNotFound  = errors.New("account not found")
	ErrHoldingNotFound  = errors.New("governance holding not found")
	ErrProposalNotFound = errors.New("proposal not found")
	ErrProposalExists   = errors.New("proposal already exists")
	ErrVoteNotFound     = errors.New("vote not found")

	// ErrNestedTx is returned when ExecuteInTx is called with a context that
	// is already bound to a transaction
	ErrNestedTx = errors.New("already executing in a ledger transaction")
)

type Store interface {
	// ExecuteInTx runs fn as a single atomic unit. Every store call made with
	// the context passed to fn participates in the unit. Nothing fn wrote is
	// visible when fn returns an error. Units that touch the same records are
	// serialized.
	ExecuteInTx(ctx context.Context, fn func(ctx context.Context) error) error

	// CreateConfig saves the singleton config. ErrConfigExists is returned if
	// it was already created.
	CreateConfig(ctx context.Context, record *Config) error

	// UpdateConfig updates the counters and governance token of the singleton
	// config. Rates are never updated.
	UpdateConfig(ctx context.Context, record *Config) error

	// GetConfig gets the singleton config. ErrConfigNotFound is returned if
	// the protocol is not initialized.
	GetConfig(ctx context.Context) (*Config, error)

	// SaveTreasury upserts the treasury record
	SaveTreasury(ctx context.Context, record *Treasury) error

	// GetTreasury gets the treasury record. ErrTreasuryNotFound is returned
	// if it doesn't exist.
	GetTreasury(ctx context.Context) (*Treasury, error)

	// CreateCard saves a new card. ErrCardExists is returned when a card with
	// the same address exists.
	CreateCard(ctx context.Context, record *Card) error

	// UpdateCard updates the mutable state of an existing card. ErrCardNotFound
	// is returned when the card doesn't exist.
	UpdateCard(ctx context.Context, record *Card) error

	// GetCard gets a card by its address. ErrCardNotFound is returned if it
	// doesn't exist.
	GetCard(ctx context.Context, address string) (*Card, error)

	// GetCardsByCreator gets a page of cards created by creator, ordered by
	// id. ErrCardNotFound is returned when the page is empty.
	GetCardsByCreator(ctx context.Context, creator string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Card, error)

	// GetExpiredCards gets up to limit unredeemed cards whose expiry is set
	// and at or before now and whose balance exceeds reserve, oldest expiry
	// first. ErrCardNotFound is returned when there are none.
	GetExpiredCards(ctx context.Context, now time.Time, reserve, limit uint64) ([]*Card, error)

	// CreateReferral saves a new referral. ErrReferralExists is returned when
	// the owner already has one.
	CreateReferral(ctx context.Context, record *Referral) error

	// UpdateReferral updates the counters of an existing referral
	UpdateReferral(ctx context.Context, record *Referral) error

	// GetReferral gets the referral owned by owner. ErrReferralNotFound is
	// returned if it doesn't exist.
	GetReferral(ctx context.Context, owner string) (*Referral, error)

	// SaveAccount upserts an account balance
	SaveAccount(ctx context.Context, record *Account) error

	// GetAccount gets the account of owner. ErrAccountNotFound is returned if
	// it doesn't exist.
	GetAccount(ctx context.Context, owner string) (*Account, error)

	// SaveHolding upserts the governance token balance of an owner
	SaveHolding(ctx context.Context, record *Holding) error

	// GetHolding gets the governance token balance of owner.
	// ErrHoldingNotFound is returned if it doesn't exist.
	GetHolding(ctx context.Context, owner string) (*Holding, error)

	// CreateProposal saves a new proposal. ErrProposalExists is returned when
	// a proposal with the same proposal id exists.
	CreateProposal(ctx context.Context, record *Proposal) error

	// UpdateProposal updates the tally and outcome of an existing proposal.
	// ErrProposalNotFound is returned when it doesn't exist.
	UpdateProposal(ctx context.Context, record *Proposal) error

	// GetProposal gets a proposal by its proposal id. ErrProposalNotFound is
	// returned if it doesn't exist.
	GetProposal(ctx context.Context, proposalId uint64) (*Proposal, error)

	// SaveVote upserts the vote of a voter on a proposal
	SaveVote(ctx context.Context, record *Vote) error

	// GetVote gets the vote voter cast on a proposal. ErrVoteNotFound is
	// returned if they haven't voted.
	GetVote(ctx context.Context, proposalId uint64, voter string) (*Vote, error)
}
