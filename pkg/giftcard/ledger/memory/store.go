package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/code-payments/gift-protocol/pkg/database/query"
	"github.com/code-payments/gift-protocol/pkg/giftcard/ledger"
)

type txContextKey struct{}

type state struct {
	last uint64

	config    *ledger.Config
	treasury  *ledger.Treasury
	cards     map[string]*ledger.Card
	referrals map[string]*ledger.Referral
	accounts  map[string]*ledger.Account
	holdings  map[string]*ledger.Holding
	proposals map[uint64]*ledger.Proposal
	votes     map[voteKey]*ledger.Vote
}

type voteKey struct {
	proposalId uint64
	voter      string
}

// store holds a single mutex for its whole lifetime. ExecuteInTx keeps it
// for the duration of the unit, and calls made with the unit's context skip
// locking.
type store struct {
	mu sync.Mutex
	state
}

// New returns a new in memory ledger.Store
func New() ledger.Store {
	return &store{
		state: newState(),
	}
}

func newState() state {
	return state{
		cards:     make(map[string]*ledger.Card),
		referrals: make(map[string]*ledger.Referral),
		accounts:  make(map[string]*ledger.Account),
		holdings:  make(map[string]*ledger.Holding),
		proposals: make(map[uint64]*ledger.Proposal),
		votes:     make(map[voteKey]*ledger.Vote),
	}
}

func (s *state) snapshot() state {
	cloned := newState()
	cloned.last = s.last

	if s.config != nil {
		c := s.config.Clone()
		cloned.config = &c
	}
	if s.treasury != nil {
		c := s.treasury.Clone()
		cloned.treasury = &c
	}
	for k, v := range s.cards {
		c := v.Clone()
		cloned.cards[k] = &c
	}
	for k, v := range s.referrals {
		c := v.Clone()
		cloned.referrals[k] = &c
	}
	for k, v := range s.accounts {
		c := v.Clone()
		cloned.accounts[k] = &c
	}
	for k, v := range s.holdings {
		c := v.Clone()
		cloned.holdings[k] = &c
	}
	for k, v := range s.proposals {
		c := v.Clone()
		cloned.proposals[k] = &c
	}
	for k, v := range s.votes {
		c := v.Clone()
		cloned.votes[k] = &c
	}
	return cloned
}

// ExecuteInTx implements ledger.Store.ExecuteInTx
func (s *store) ExecuteInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return ledger.ErrNestedTx
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	backup := s.state.snapshot()
	committed := false
	defer func() {
		if !committed {
			s.state = backup
		}
	}()

	// A panicking fn unwinds through the deferred restore above with the
	// lock still held, so no partial write is ever observable.
	if err := fn(context.WithValue(ctx, txContextKey{}, s)); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txContextKey{}).(*store)
	return ok && owner == s
}

func (s *store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// CreateConfig implements ledger.Store.CreateConfig
func (s *store) CreateConfig(ctx context.Context, data *ledger.Config) error {
	if err := data.Validate(); err != nil {
		return err
	}

	defer s.lock(ctx)()

	if s.config != nil {
		return ledger.ErrConfigExists
	}

	s.last++
	data.Id = s.last
	cloned := data.Clone()
	s.config = &cloned
	return nil
}

// UpdateConfig implements ledger.Store.UpdateConfig
func (s *store) UpdateConfig(ctx context.Context, data *ledger.Config) error {
	if err := data.Validate(); err != nil {
		return err
	}

	defer s.lock(ctx)()

	if s.config == nil {
		return ledger.ErrConfigNotFound
	}

	s.config.TotalGiftCards = data.TotalGiftCards
	s.config.TotalCommission = data.TotalCommission
	s.config.TotalReferralPayouts = data.TotalReferralPayouts
	s.config.TotalStaked = data.TotalStaked
	s.config.TotalProposals = data.TotalProposals
	if data.GovernanceTokenMint != nil {
		mint := *data.GovernanceTokenMint
		s.config.GovernanceTokenMint = &mint
	}
	s.config.CopyTo(data)
	return nil
}

// GetConfig implements ledger.Store.GetConfig
func (s *store) GetConfig(ctx context.Context) (*ledger.Config, error) {
	defer s.lock(ctx)()

	if s.config == nil {
		return nil, ledger.ErrConfigNotFound
	}
	cloned := s.config.Clone()
	return &cloned, nil
}

// SaveTreasury implements ledger.Store.SaveTreasury
func (s *store) SaveTreasury(ctx context.Context, data *ledger.Treasury) error {
	if err := data.Validate(); err != nil {
		return err
	}

	defer s.lock(ctx)()

	if s.treasury == nil {
		s.last++
		data.Id = s.last
	} else {
		data.Id = s.treasury.Id
		data.Address = s.treasury.Address
	}

	cloned := data.Clone()
	s.treasury = &cloned
	return nil
}

// GetTreasury implements ledger.Store.GetTreasury
func (s *store) GetTreasury(ctx context.Context) (*ledger.Treasury, error) {
	defer s.lock(ctx)()

	if s.treasury == nil {
		return nil, ledger.ErrTreasuryNotFound
	}
	cloned := s.treasury.Clone()
	return &cloned, nil
}

// CreateCard implements ledger.Store.CreateCard
func (s *store) CreateCard(ctx context.Context, data *ledger.Card) error {
	if err := data.Validate(); err != nil {
		return err
	}

	defer s.lock(ctx)()

	if _, ok := s.cards[data.Address]; ok {
		return ledger.ErrCardExists
	}

	s.last++
	data.Id = s.last
	cloned := data.Clone()
	s.cards[data.Address] = &cloned
	return nil
}

// UpdateCard implements ledger.Store.UpdateCard
func (s *store) UpdateCard(ctx context.Context, data *ledger.Card) error {
	if err := data.Validate(); err != nil {
		return err
	}

	defer s.lock(ctx)()

	item, ok := s.cards[data.Address]
	if !ok {
		return ledger.ErrCardNotFound
	}

	updated := item.Clone()
	updated.Balance = data.Balance
	updated.IsRedeemed = data.IsRedeemed
	updated.Resolution = data.Resolution
	updated.RedeemedBy = data.RedeemedBy
	updated.RedeemedAt = data.RedeemedAt
	s.cards[data.Address] = &updated

	updated.CopyTo(data)
	return nil
}

// GetCard implements ledger.Store.GetCard
func (s *store) GetCard(ctx context.Context, address string) (*ledger.Card, error) {
	defer s.lock(ctx)()

	item, ok := s.cards[address]
	if !ok {
		return nil, ledger.ErrCardNotFound
	}
	cloned := item.Clone()
	return &cloned, nil
}

// GetCardsByCreator implements ledger.Store.GetCardsByCreator
func (s *store) GetCardsByCreator(ctx context.Context, creator string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*ledger.Card, error) {
	defer s.lock(ctx)()

	var res []*ledger.Card
	for _, item := range s.cards {
		if item.Creator != creator {
			continue
		}

		if len(cursor) > 0 {
			if direction == query.Ascending && item.Id <= cursor.ToUint64() {
				continue
			}
			if direction == query.Descending && item.Id >= cursor.ToUint64() {
				continue
			}
		}

		cloned := item.Clone()
		res = append(res, &cloned)
	}

	if len(res) == 0 {
		return nil, ledger.ErrCardNotFound
	}

	sort.Slice(res, func(i, j int) bool {
		if direction == query.Descending {
			return res[i].Id > res[j].Id
		}
		return res[i].Id < res[j].Id
	})

	if limit > 0 && uint64(len(res)) > limit {
		res = res[:limit]
	}
	return res, nil
}

// GetExpiredCards implements ledger.Store.GetExpiredCards
func (s *store) GetExpiredCards(ctx context.Context, now time.Time, reserve, limit uint64) ([]*ledger.Card, error) {
	defer s.lock(ctx)()

	var res []*ledger.Card
	for _, item := range s.cards {
		if !item.IsRedeemed && item.IsExpired(now) && item.Balance > reserve {
			cloned := item.Clone()
			res = append(res, &cloned)
		}
	}

	if len(res) == 0 {
		return nil, ledger.ErrCardNotFound
	}

	sort.Slice(res, func(i, j int) bool {
		if res[i].ExpiryTime != res[j].ExpiryTime {
			return res[i].ExpiryTime < res[j].ExpiryTime
		}
		return res[i].Id < res[j].Id
	})

	if limit > 0 && uint64(len(res)) > limit {
		res = res[:limit]
	}
	return res, nil
}

// CreateReferral implements ledger.Store.CreateReferral
func (s *store) CreateReferral(ctx context.Context, data *ledger.Referral) error {
	if err := data.Validate(); err != nil {
		return err
	}

	defer s.lock(ctx)()

	if _, ok := s.referrals[data.Owner]; ok {
		return ledger.ErrReferralExists
	}

	s.last++
	data.Id = s.last
	cloned := data.Clone()
	s.referrals[data.Owner] = &cloned
	return nil
}

// UpdateReferral implements ledger.Store.UpdateReferral
func (s *store) UpdateReferral(ctx context.Context, data *ledger.Referral) error {
	if err := data.Validate(); err != nil {
		return err
	}

	defer s.lock(ctx)()

	item, ok := s.referrals[data.Owner]
	if !ok {
		return ledger.ErrReferralNotFound
	}

	item.TotalEarned = data.TotalEarned
	item.ReferralCount = data.ReferralCount
	item.CopyTo(data)
	return nil
}

// GetReferral implements ledger.Store.GetReferral
func (s *store) GetReferral(ctx context.Context, owner string) (*ledger.Referral, error) {
	defer s.lock(ctx)()

	item, ok := s.referrals[owner]
	if !ok {
		return nil, ledger.ErrReferralNotFound
	}
	cloned := item.Clone()
	return &cloned, nil
}

// SaveAccount implements ledger.Store.SaveAccount
func (s *store) SaveAccount(ctx context.Context, data *ledger.Account) error {
	if err := data.Validate(); err != nil {
		return err
	}

	defer s.lock(ctx)()

	if item, ok := s.accounts[data.Owner]; ok {
		data.Id = item.Id
	} else {
		s.last++
		data.Id = s.last
	}

	cloned := data.Clone()
	s.accounts[data.Owner] = &cloned
	return nil
}

// GetAccount implements ledger.Store.GetAccount
func (s *store) GetAccount(ctx context.Context, owner string) (*ledger.Account, error) {
	defer s.lock(ctx)()

	item, ok := s.accounts[owner]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	cloned := item.Clone()
	return &cloned, nil
}

// SaveHolding implements ledger.Store.SaveHolding
func (s *store) SaveHolding(ctx context.Context, data *ledger.Holding) error {
	if err := data.Validate(); err != nil {
		return err
	}

	defer s.lock(ctx)()

	if item, ok := s.holdings[data.Owner]; ok {
		data.Id = item.Id
	} else {
		s.last++
		data.Id = s.last
	}

	cloned := data.Clone()
	s.holdings[data.Owner] = &cloned
	return nil
}

// GetHolding implements ledger.Store.GetHolding
func (s *store) GetHolding(ctx context.Context, owner string) (*ledger.Holding, error) {
	defer s.lock(ctx)()

	item, ok := s.holdings[owner]
	if !ok {
		return nil, ledger.ErrHoldingNotFound
	}
	cloned := item.Clone()
	return &cloned, nil
}

// CreateProposal implements ledger.Store.CreateProposal
func (s *store) CreateProposal(ctx context.Context, data *ledger.Proposal) error {
	if err := data.Validate(); err != nil {
		return err
	}

	defer s.lock(ctx)()

	if _, ok := s.proposals[data.ProposalId]; ok {
		return ledger.ErrProposalExists
	}

	s.last++
	data.Id = s.last
	cloned := data.Clone()
	s.proposals[data.ProposalId] = &cloned
	return nil
}

// UpdateProposal implements ledger.Store.UpdateProposal
func (s *store) UpdateProposal(ctx context.Context, data *ledger.Proposal) error {
	if err := data.Validate(); err != nil {
		return err
	}

	defer s.lock(ctx)()

	item, ok := s.proposals[data.ProposalId]
	if !ok {
		return ledger.ErrProposalNotFound
	}
	updated := item.Clone()
	updated.VoteCounts = append([]uint64(nil), data.VoteCounts...)
	updated.TotalVotes = data.TotalVotes
	updated.IsFinalized = data.IsFinalized
	updated.WinningChoice = nil
	if data.WinningChoice != nil {
		winner := *data.WinningChoice
		updated.WinningChoice = &winner
	}
	s.proposals[data.ProposalId] = &updated

	updated.CopyTo(data)
	return nil
}

// GetProposal implements ledger.Store.GetProposal
func (s *store) GetProposal(ctx context.Context, proposalId uint64) (*ledger.Proposal, error) {
	defer s.lock(ctx)()

	item, ok := s.proposals[proposalId]
	if !ok {
		return nil, ledger.ErrProposalNotFound
	}
	cloned := item.Clone()
	return &cloned, nil
}

// SaveVote implements ledger.Store.SaveVote
func (s *store) SaveVote(ctx context.Context, data *ledger.Vote) error {
	if err := data.Validate(); err != nil {
		return err
	}

	defer s.lock(ctx)()

	key := voteKey{proposalId: data.ProposalId, voter: data.Voter}
	if item, ok := s.votes[key]; ok {
		data.Id = item.Id
	} else {
		s.last++
		data.Id = s.last
	}

	cloned := data.Clone()
	s.votes[key] = &cloned
	return nil
}

// GetVote implements ledger.Store.GetVote
func (s *store) GetVote(ctx context.Context, proposalId uint64, voter string) (*ledger.Vote, error) {
	defer s.lock(ctx)()

	item, ok := s.votes[voteKey{proposalId: proposalId, voter: voter}]
	if !ok {
		return nil, ledger.ErrVoteNotFound
	}
	cloned := item.Clone()
	return &cloned, nil
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = newState()
}
