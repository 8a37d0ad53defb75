package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/gift-protocol/pkg/giftcard"
)

func (e *testEnv) enableGovernance(t *testing.T) string {
	mint := newAddress(t)
	_, err := e.engine.CreateGovernanceToken(e.ctx, e.authority, mint)
	require.NoError(t, err)
	return mint
}

func (e *testEnv) grant(t *testing.T, recipient string, amount uint64) {
	_, err := e.engine.GrantGovernanceTokens(e.ctx, e.authority, recipient, amount)
	require.NoError(t, err)
}

func (e *testEnv) governanceBalance(t *testing.T, owner string) uint64 {
	balance, err := e.engine.GetGovernanceBalance(e.ctx, owner)
	require.NoError(t, err)
	return balance
}

func (e *testEnv) proposalArgs(creator string) *CreateProposalArgs {
	return &CreateProposalArgs{
		Creator:       creator,
		Title:         "Next theme",
		Description:   "Pick the seasonal card theme",
		Choices:       []string{"ocean", "forest", "space"},
		VotingEndTime: e.clock.Now().Add(time.Hour).Unix(),
	}
}

func TestCreateGovernanceToken(t *testing.T) {
	env := setup(t, nil)
	creator := newAddress(t)

	_, err := env.engine.CreateProposal(env.ctx, env.proposalArgs(creator))
	assert.Equal(t, giftcard.ErrGovernanceNotEnabled, err)

	_, err = env.engine.GrantGovernanceTokens(env.ctx, env.authority, creator, 1)
	assert.Equal(t, giftcard.ErrGovernanceNotEnabled, err)

	_, err = env.engine.CreateGovernanceToken(env.ctx, creator, newAddress(t))
	assert.Equal(t, giftcard.ErrUnauthorized, err)

	_, err = env.engine.CreateGovernanceToken(env.ctx, env.authority, "not-a-mint")
	assert.Equal(t, giftcard.ErrInvalidAddress, err)

	mint := newAddress(t)
	config, err := env.engine.CreateGovernanceToken(env.ctx, env.authority, mint)
	require.NoError(t, err)
	require.NotNil(t, config.GovernanceTokenMint)
	assert.Equal(t, mint, *config.GovernanceTokenMint)
	assert.Equal(t, GovernanceTokenSupply, env.governanceBalance(t, env.engine.TreasuryAddress()))

	_, err = env.engine.CreateGovernanceToken(env.ctx, env.authority, newAddress(t))
	assert.Equal(t, giftcard.ErrGovernanceTokenExists, err)

	config, err = env.engine.GetConfig(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, mint, *config.GovernanceTokenMint)
	assert.Equal(t, GovernanceTokenSupply, env.governanceBalance(t, env.engine.TreasuryAddress()))
}

func TestGovernanceTokenTransfers(t *testing.T) {
	env := setup(t, nil)
	env.enableGovernance(t)

	alice := newAddress(t)
	bob := newAddress(t)

	_, err := env.engine.GrantGovernanceTokens(env.ctx, alice, alice, 100)
	assert.Equal(t, giftcard.ErrUnauthorized, err)

	_, err = env.engine.GrantGovernanceTokens(env.ctx, env.authority, alice, 0)
	assert.Equal(t, giftcard.ErrInvalidAmount, err)

	_, err = env.engine.GrantGovernanceTokens(env.ctx, env.authority, alice, GovernanceTokenSupply+1)
	assert.Equal(t, giftcard.ErrInsufficientFunds, err)

	holding, err := env.engine.GrantGovernanceTokens(env.ctx, env.authority, alice, 500)
	require.NoError(t, err)
	assert.Equal(t, alice, holding.Owner)
	assert.EqualValues(t, 500, holding.Balance)

	holding, err = env.engine.TransferGovernanceTokens(env.ctx, alice, bob, 200)
	require.NoError(t, err)
	assert.Equal(t, bob, holding.Owner)
	assert.EqualValues(t, 200, holding.Balance)

	_, err = env.engine.TransferGovernanceTokens(env.ctx, alice, bob, 301)
	assert.Equal(t, giftcard.ErrInsufficientFunds, err)

	_, err = env.engine.TransferGovernanceTokens(env.ctx, alice, alice, 1)
	assert.Equal(t, giftcard.ErrInvalidRecipients, err)

	_, err = env.engine.TransferGovernanceTokens(env.ctx, alice, "bogus", 1)
	assert.Equal(t, giftcard.ErrInvalidAddress, err)

	assert.EqualValues(t, 300, env.governanceBalance(t, alice))
	assert.EqualValues(t, 200, env.governanceBalance(t, bob))
	assert.Zero(t, env.governanceBalance(t, newAddress(t)))

	var total uint64
	for _, owner := range []string{alice, bob, env.engine.TreasuryAddress()} {
		total += env.governanceBalance(t, owner)
	}
	assert.Equal(t, GovernanceTokenSupply, total)
}

func TestCreateProposal(t *testing.T) {
	env := setup(t, nil)
	env.enableGovernance(t)

	creator := newAddress(t)

	_, err := env.engine.CreateProposal(env.ctx, env.proposalArgs(creator))
	assert.Equal(t, giftcard.ErrNoVotingPower, err)

	env.grant(t, creator, 100)

	for _, mutate := range []func(args *CreateProposalArgs){
		func(args *CreateProposalArgs) { args.Title = "" },
		func(args *CreateProposalArgs) { args.Description = "" },
		func(args *CreateProposalArgs) { args.Choices = args.Choices[:1] },
		func(args *CreateProposalArgs) {
			args.Choices = []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}
		},
		func(args *CreateProposalArgs) { args.Choices = []string{"ocean", ""} },
		func(args *CreateProposalArgs) { args.Choices = []string{"ocean", "ocean"} },
		func(args *CreateProposalArgs) { args.VotingEndTime = env.clock.Now().Unix() },
		func(args *CreateProposalArgs) { args.Title = string(make([]byte, maxProposalTitleLength+1)) },
	} {
		args := env.proposalArgs(creator)
		mutate(args)

		_, err := env.engine.CreateProposal(env.ctx, args)
		assert.Equal(t, giftcard.ErrInvalidProposal, err)
	}

	for i := uint64(0); i < 3; i++ {
		proposal, err := env.engine.CreateProposal(env.ctx, env.proposalArgs(creator))
		require.NoError(t, err)
		assert.Equal(t, i, proposal.ProposalId)
		assert.Equal(t, creator, proposal.Creator)
		assert.Equal(t, []uint64{0, 0, 0}, proposal.VoteCounts)
		assert.Zero(t, proposal.TotalVotes)
		assert.False(t, proposal.IsFinalized)
		assert.Nil(t, proposal.WinningChoice)
	}

	config, err := env.engine.GetConfig(env.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, config.TotalProposals)

	_, err = env.engine.GetProposal(env.ctx, 3)
	assert.Equal(t, giftcard.ErrProposalNotFound, err)
}

func TestProposalLifecycle(t *testing.T) {
	env := setup(t, nil)
	env.enableGovernance(t)

	alice := newAddress(t)
	bob := newAddress(t)
	carol := newAddress(t)
	env.grant(t, alice, 300)
	env.grant(t, bob, 200)

	proposal, err := env.engine.CreateProposal(env.ctx, env.proposalArgs(alice))
	require.NoError(t, err)
	id := proposal.ProposalId

	_, err = env.engine.VoteOnProposal(env.ctx, alice, id, 3)
	assert.Equal(t, giftcard.ErrInvalidChoice, err)

	_, err = env.engine.VoteOnProposal(env.ctx, carol, id, 0)
	assert.Equal(t, giftcard.ErrNoVotingPower, err)

	_, err = env.engine.VoteOnProposal(env.ctx, alice, id+1, 0)
	assert.Equal(t, giftcard.ErrProposalNotFound, err)

	result, err := env.engine.VoteOnProposal(env.ctx, alice, id, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 300, result.Vote.Weight)
	assert.Equal(t, []uint64{300, 0, 0}, result.Proposal.VoteCounts)

	_, err = env.engine.VoteOnProposal(env.ctx, bob, id, 1)
	require.NoError(t, err)

	// A second vote moves the whole weight rather than adding to it
	result, err = env.engine.VoteOnProposal(env.ctx, alice, id, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 200, 300}, result.Proposal.VoteCounts)
	assert.EqualValues(t, 500, result.Proposal.TotalVotes)

	// Weight is taken at vote time and refreshed by voting again
	_, err = env.engine.TransferGovernanceTokens(env.ctx, alice, bob, 100)
	require.NoError(t, err)
	result, err = env.engine.VoteOnProposal(env.ctx, bob, id, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 300, 300}, result.Proposal.VoteCounts)
	assert.EqualValues(t, 600, result.Proposal.TotalVotes)

	vote, err := env.engine.GetVote(env.ctx, id, alice)
	require.NoError(t, err)
	assert.EqualValues(t, 2, vote.Choice)
	assert.EqualValues(t, 300, vote.Weight)

	_, err = env.engine.GetVote(env.ctx, id, carol)
	assert.Equal(t, giftcard.ErrVoteNotFound, err)

	_, err = env.engine.FinalizeProposal(env.ctx, id)
	assert.Equal(t, giftcard.ErrVotingActive, err)

	env.clock.Advance(time.Hour)

	_, err = env.engine.VoteOnProposal(env.ctx, alice, id, 0)
	assert.Equal(t, giftcard.ErrVotingEnded, err)

	// Ties go to the earliest choice
	finalized, err := env.engine.FinalizeProposal(env.ctx, id)
	require.NoError(t, err)
	assert.True(t, finalized.IsFinalized)
	require.NotNil(t, finalized.WinningChoice)
	assert.EqualValues(t, 1, *finalized.WinningChoice)

	_, err = env.engine.FinalizeProposal(env.ctx, id)
	assert.Equal(t, giftcard.ErrProposalFinalized, err)

	_, err = env.engine.VoteOnProposal(env.ctx, bob, id, 0)
	assert.Equal(t, giftcard.ErrProposalFinalized, err)

	stored, err := env.engine.GetProposal(env.ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.IsFinalized)
	assert.EqualValues(t, 1, *stored.WinningChoice)
	assert.Equal(t, []uint64{0, 300, 300}, stored.VoteCounts)
}

func TestFinalizeProposal_NoVotes(t *testing.T) {
	env := setup(t, nil)
	env.enableGovernance(t)

	creator := newAddress(t)
	env.grant(t, creator, 1)

	proposal, err := env.engine.CreateProposal(env.ctx, env.proposalArgs(creator))
	require.NoError(t, err)

	env.clock.Advance(2 * time.Hour)

	finalized, err := env.engine.FinalizeProposal(env.ctx, proposal.ProposalId)
	require.NoError(t, err)
	assert.True(t, finalized.IsFinalized)
	assert.Nil(t, finalized.WinningChoice)
	assert.Zero(t, finalized.TotalVotes)
}
