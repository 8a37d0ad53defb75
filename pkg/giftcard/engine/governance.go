package engine

import (
	"context"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/giftcard/ledger"
	"github.com/code-payments/gift-protocol/pkg/metrics"
)

const (
	// GovernanceTokenSupply is minted to the treasury when the governance
	// token is created. It is one million tokens at nine decimals.
	GovernanceTokenSupply uint64 = 1_000_000_000_000_000

	maxProposalTitleLength       = 128
	maxProposalDescriptionLength = 1024
	maxProposalChoiceLength      = 64
)

// CreateGovernanceToken records mint as the protocol's governance token and
// mints the full supply to the treasury. Only the protocol authority may
// create it, and only once.
func (e *Engine) CreateGovernanceToken(ctx context.Context, caller, mint string) (config *ledger.Config, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CreateGovernanceToken")
	defer tracer.End()

	log := e.log.WithFields(logrus.Fields{
		"method": "CreateGovernanceToken",
		"caller": caller,
		"mint":   mint,
	})
	defer func() {
		tracer.OnError(err)
		e.finish(ctx, log, err)
	}()

	if err := giftcard.ValidateAddress(mint); err != nil {
		return nil, err
	}

	err = e.store.ExecuteInTx(ctx, func(ctx context.Context) error {
		config, err = e.getConfig(ctx)
		if err != nil {
			return err
		}
		if config.Authority != caller {
			return giftcard.ErrUnauthorized
		}
		if config.GovernanceTokenMint != nil {
			return giftcard.ErrGovernanceTokenExists
		}

		config.GovernanceTokenMint = &mint
		if err := e.store.UpdateConfig(ctx, config); err != nil {
			return err
		}

		return e.store.SaveHolding(ctx, &ledger.Holding{
			Owner:         e.treasury,
			Balance:       GovernanceTokenSupply,
			LastUpdatedAt: e.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info("governance token created")
	return config, nil
}

// GrantGovernanceTokens moves amount of the treasury's governance tokens to
// recipient. Only the protocol authority may grant.
func (e *Engine) GrantGovernanceTokens(ctx context.Context, caller, recipient string, amount uint64) (holding *ledger.Holding, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GrantGovernanceTokens")
	defer tracer.End()

	log := e.log.WithFields(logrus.Fields{
		"method":    "GrantGovernanceTokens",
		"caller":    caller,
		"recipient": recipient,
		"amount":    amount,
	})
	defer func() {
		tracer.OnError(err)
		e.finish(ctx, log, err)
	}()

	if err := giftcard.ValidateAddress(recipient); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, giftcard.ErrInvalidAmount
	}

	err = e.store.ExecuteInTx(ctx, func(ctx context.Context) error {
		config, err := e.getGovernedConfig(ctx)
		if err != nil {
			return err
		}
		if config.Authority != caller {
			return giftcard.ErrUnauthorized
		}

		holding, err = e.moveGovernanceTokens(ctx, e.treasury, recipient, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Debug("governance tokens granted")
	return holding, nil
}

// TransferGovernanceTokens moves amount of owner's governance tokens to
// recipient
func (e *Engine) TransferGovernanceTokens(ctx context.Context, owner, recipient string, amount uint64) (holding *ledger.Holding, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "TransferGovernanceTokens")
	defer tracer.End()

	log := e.log.WithFields(logrus.Fields{
		"method":    "TransferGovernanceTokens",
		"owner":     owner,
		"recipient": recipient,
		"amount":    amount,
	})
	defer func() {
		tracer.OnError(err)
		e.finish(ctx, log, err)
	}()

	if err := giftcard.ValidateAddress(recipient); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, giftcard.ErrInvalidAmount
	}

	err = e.store.ExecuteInTx(ctx, func(ctx context.Context) error {
		if _, err := e.getGovernedConfig(ctx); err != nil {
			return err
		}

		holding, err = e.moveGovernanceTokens(ctx, owner, recipient, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Debug("governance tokens transferred")
	return holding, nil
}

type CreateProposalArgs struct {
	Creator     string
	Title       string
	Description string
	Choices     []string

	// VotingEndTime is a unix timestamp after which votes are refused and
	// the proposal can be finalized
	VotingEndTime int64
}

// CreateProposal opens a proposal for voting. The creator must hold
// governance tokens. Proposal ids are sequential from zero.
func (e *Engine) CreateProposal(ctx context.Context, args *CreateProposalArgs) (proposal *ledger.Proposal, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CreateProposal")
	defer tracer.End()

	log := e.log.WithFields(logrus.Fields{
		"method":          "CreateProposal",
		"creator":         args.Creator,
		"choices":         len(args.Choices),
		"voting_end_time": args.VotingEndTime,
	})
	defer func() {
		tracer.OnError(err)
		e.finish(ctx, log, err)
	}()

	if err := validateProposal(args); err != nil {
		return nil, err
	}

	now := e.now()
	if args.VotingEndTime <= now.Unix() {
		return nil, giftcard.ErrInvalidProposal
	}

	err = e.store.ExecuteInTx(ctx, func(ctx context.Context) error {
		config, err := e.getGovernedConfig(ctx)
		if err != nil {
			return err
		}

		holding, err := e.getHolding(ctx, args.Creator)
		if err != nil {
			return err
		}
		if holding.Balance == 0 {
			return giftcard.ErrNoVotingPower
		}

		proposal = &ledger.Proposal{
			ProposalId:    config.TotalProposals,
			Creator:       args.Creator,
			Title:         args.Title,
			Description:   args.Description,
			Choices:       append([]string(nil), args.Choices...),
			VoteCounts:    make([]uint64, len(args.Choices)),
			VotingEndTime: args.VotingEndTime,
			CreatedAt:     now,
		}
		if err := e.store.CreateProposal(ctx, proposal); err != nil {
			return err
		}

		config.TotalProposals, err = giftcard.CheckedAdd(config.TotalProposals, 1)
		if err != nil {
			return err
		}
		return e.store.UpdateConfig(ctx, config)
	})
	if err != nil {
		return nil, err
	}

	log.WithField("proposal", proposal.ProposalId).Info("proposal created")
	return proposal, nil
}

type VoteResult struct {
	Proposal *ledger.Proposal
	Vote     *ledger.Vote
}

// VoteOnProposal casts voter's current governance balance for choice. A voter
// holds a single vote per proposal. Voting again moves their weight to the
// new choice and refreshes it to their current balance.
func (e *Engine) VoteOnProposal(ctx context.Context, voter string, proposalId uint64, choice uint8) (result *VoteResult, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "VoteOnProposal")
	defer tracer.End()

	log := e.log.WithFields(logrus.Fields{
		"method":   "VoteOnProposal",
		"voter":    voter,
		"proposal": proposalId,
		"choice":   choice,
	})
	defer func() {
		tracer.OnError(err)
		e.finish(ctx, log, err)
	}()

	err = e.store.ExecuteInTx(ctx, func(ctx context.Context) error {
		if _, err := e.getGovernedConfig(ctx); err != nil {
			return err
		}

		proposal, err := e.getProposal(ctx, proposalId)
		if err != nil {
			return err
		}

		now := e.now()
		if proposal.IsFinalized {
			return giftcard.ErrProposalFinalized
		}
		if !proposal.IsVotingOpen(now) {
			return giftcard.ErrVotingEnded
		}
		if int(choice) >= len(proposal.Choices) {
			return giftcard.ErrInvalidChoice
		}

		holding, err := e.getHolding(ctx, voter)
		if err != nil {
			return err
		}
		if holding.Balance == 0 {
			return giftcard.ErrNoVotingPower
		}

		previous, err := e.store.GetVote(ctx, proposalId, voter)
		switch err {
		case nil:
			proposal.VoteCounts[previous.Choice], err = giftcard.CheckedSub(proposal.VoteCounts[previous.Choice], previous.Weight)
			if err != nil {
				return err
			}
			proposal.TotalVotes, err = giftcard.CheckedSub(proposal.TotalVotes, previous.Weight)
			if err != nil {
				return err
			}
		case ledger.ErrVoteNotFound:
		default:
			return err
		}

		proposal.VoteCounts[choice], err = giftcard.CheckedAdd(proposal.VoteCounts[choice], holding.Balance)
		if err != nil {
			return err
		}
		proposal.TotalVotes, err = giftcard.CheckedAdd(proposal.TotalVotes, holding.Balance)
		if err != nil {
			return err
		}

		vote := &ledger.Vote{
			ProposalId: proposalId,
			Voter:      voter,
			Choice:     choice,
			Weight:     holding.Balance,
			Timestamp:  now,
		}
		if err := e.store.SaveVote(ctx, vote); err != nil {
			return err
		}
		if err := e.store.UpdateProposal(ctx, proposal); err != nil {
			return err
		}

		result = &VoteResult{
			Proposal: proposal,
			Vote:     vote,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithField("weight", result.Vote.Weight).Debug("vote cast")
	return result, nil
}

// FinalizeProposal closes a proposal whose voting period has ended. The
// winning choice is the one with the most weight, the earliest on a tie, and
// is unset when nothing was cast. Anyone may finalize.
func (e *Engine) FinalizeProposal(ctx context.Context, proposalId uint64) (proposal *ledger.Proposal, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "FinalizeProposal")
	defer tracer.End()

	log := e.log.WithFields(logrus.Fields{
		"method":   "FinalizeProposal",
		"proposal": proposalId,
	})
	defer func() {
		tracer.OnError(err)
		e.finish(ctx, log, err)
	}()

	err = e.store.ExecuteInTx(ctx, func(ctx context.Context) error {
		proposal, err = e.getProposal(ctx, proposalId)
		if err != nil {
			return err
		}
		if proposal.IsFinalized {
			return giftcard.ErrProposalFinalized
		}
		if proposal.IsVotingOpen(e.now()) {
			return giftcard.ErrVotingActive
		}

		var most uint64
		for i, count := range proposal.VoteCounts {
			if count > most {
				most = count
				winner := uint8(i)
				proposal.WinningChoice = &winner
			}
		}
		proposal.IsFinalized = true

		return e.store.UpdateProposal(ctx, proposal)
	})
	if err != nil {
		return nil, err
	}

	recordProposalFinalizedEvent(ctx, proposal)
	log.Info("proposal finalized")
	return proposal, nil
}

// GetProposal returns a proposal by its id
func (e *Engine) GetProposal(ctx context.Context, proposalId uint64) (*ledger.Proposal, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "GetProposal").End()

	return e.getProposal(ctx, proposalId)
}

// GetVote returns the standing vote of voter on a proposal
func (e *Engine) GetVote(ctx context.Context, proposalId uint64, voter string) (*ledger.Vote, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "GetVote").End()

	if _, err := e.getProposal(ctx, proposalId); err != nil {
		return nil, err
	}

	vote, err := e.store.GetVote(ctx, proposalId, voter)
	if err == ledger.ErrVoteNotFound {
		return nil, giftcard.ErrVoteNotFound
	}
	return vote, err
}

// GetGovernanceBalance returns the governance token balance of owner, zero if
// they never held any
func (e *Engine) GetGovernanceBalance(ctx context.Context, owner string) (uint64, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "GetGovernanceBalance").End()

	if err := giftcard.ValidateAddress(owner); err != nil {
		return 0, err
	}

	holding, err := e.getHolding(ctx, owner)
	if err != nil {
		return 0, err
	}
	return holding.Balance, nil
}

func (e *Engine) getGovernedConfig(ctx context.Context) (*ledger.Config, error) {
	config, err := e.getConfig(ctx)
	if err != nil {
		return nil, err
	}
	if config.GovernanceTokenMint == nil {
		return nil, giftcard.ErrGovernanceNotEnabled
	}
	return config, nil
}

func (e *Engine) getProposal(ctx context.Context, proposalId uint64) (*ledger.Proposal, error) {
	proposal, err := e.store.GetProposal(ctx, proposalId)
	if err == ledger.ErrProposalNotFound {
		return nil, giftcard.ErrProposalNotFound
	}
	return proposal, err
}

// getHolding returns an empty holding for owners that never held tokens
func (e *Engine) getHolding(ctx context.Context, owner string) (*ledger.Holding, error) {
	holding, err := e.store.GetHolding(ctx, owner)
	if err == ledger.ErrHoldingNotFound {
		return &ledger.Holding{Owner: owner}, nil
	}
	return holding, err
}

func (e *Engine) moveGovernanceTokens(ctx context.Context, from, to string, amount uint64) (*ledger.Holding, error) {
	if from == to {
		return nil, giftcard.ErrInvalidRecipients
	}

	source, err := e.getHolding(ctx, from)
	if err != nil {
		return nil, err
	}
	destination, err := e.getHolding(ctx, to)
	if err != nil {
		return nil, err
	}

	source.Balance, err = giftcard.CheckedSub(source.Balance, amount)
	if err != nil {
		return nil, err
	}
	destination.Balance, err = giftcard.CheckedAdd(destination.Balance, amount)
	if err != nil {
		return nil, err
	}

	now := e.now()
	source.LastUpdatedAt = now
	destination.LastUpdatedAt = now
	if err := e.store.SaveHolding(ctx, source); err != nil {
		return nil, err
	}
	if err := e.store.SaveHolding(ctx, destination); err != nil {
		return nil, err
	}
	return destination, nil
}

func validateProposal(args *CreateProposalArgs) error {
	if err := giftcard.ValidateAddress(args.Creator); err != nil {
		return err
	}
	if !validText(args.Title, maxProposalTitleLength) || !validText(args.Description, maxProposalDescriptionLength) {
		return giftcard.ErrInvalidProposal
	}
	if len(args.Choices) < ledger.MinProposalChoices || len(args.Choices) > ledger.MaxProposalChoices {
		return giftcard.ErrInvalidProposal
	}

	seen := make(map[string]struct{}, len(args.Choices))
	for _, choice := range args.Choices {
		if !validText(choice, maxProposalChoiceLength) {
			return giftcard.ErrInvalidProposal
		}
		if _, ok := seen[choice]; ok {
			return giftcard.ErrInvalidProposal
		}
		seen[choice] = struct{}{}
	}
	return nil
}

func validText(text string, maxLength int) bool {
	return len(text) > 0 && utf8.ValidString(text) && utf8.RuneCountInString(text) <= maxLength
}
