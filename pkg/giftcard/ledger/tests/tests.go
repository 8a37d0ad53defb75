package tests

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/gift-protocol/pkg/database/query"
	"github.com/code-payments/gift-protocol/pkg/giftcard/ledger"
	"github.com/code-payments/gift-protocol/pkg/pointer"
)

func RunTests(t *testing.T, s ledger.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s ledger.Store){
		testConfigHappyPath,
		testTreasuryHappyPath,
		testCardHappyPath,
		testGetExpiredCards,
		testReferralHappyPath,
		testAccountHappyPath,
		testHoldingHappyPath,
		testProposalHappyPath,
		testVoteHappyPath,
		testTxRollback,
		testTxPanicRollback,
		testNestedTx,
		testConcurrentTx,
	} {
		tf(t, s)
		teardown()
	}
}

func testConfigHappyPath(t *testing.T, s ledger.Store) {
	t.Run("testConfigHappyPath", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetConfig(ctx)
		assert.Equal(t, ledger.ErrConfigNotFound, err)

		assert.Equal(t, ledger.ErrConfigNotFound, s.UpdateConfig(ctx, newConfig()))

		expected := newConfig()
		require.NoError(t, s.CreateConfig(ctx, expected))
		assert.True(t, expected.Id > 0)

		actual, err := s.GetConfig(ctx)
		require.NoError(t, err)
		assertEquivalentConfigs(t, expected, actual)

		assert.Equal(t, ledger.ErrConfigExists, s.CreateConfig(ctx, newConfig()))

		update := actual.Clone()
		update.Authority = "someone-else"
		update.CommissionRate = 10
		update.ReferralRate = 5
		update.TotalGiftCards = 3
		update.TotalCommission = 300
		update.TotalReferralPayouts = 100
		update.TotalStaked = 50
		require.NoError(t, s.UpdateConfig(ctx, &update))

		actual, err = s.GetConfig(ctx)
		require.NoError(t, err)
		assert.Equal(t, expected.Authority, actual.Authority)
		assert.Equal(t, expected.CommissionRate, actual.CommissionRate)
		assert.Equal(t, expected.ReferralRate, actual.ReferralRate)
		assert.EqualValues(t, 3, actual.TotalGiftCards)
		assert.EqualValues(t, 300, actual.TotalCommission)
		assert.EqualValues(t, 100, actual.TotalReferralPayouts)
		assert.EqualValues(t, 50, actual.TotalStaked)
		assert.Nil(t, actual.GovernanceTokenMint)
		assert.Zero(t, actual.TotalProposals)

		update = actual.Clone()
		update.GovernanceTokenMint = pointer.String("mint")
		update.TotalProposals = 2
		require.NoError(t, s.UpdateConfig(ctx, &update))

		actual, err = s.GetConfig(ctx)
		require.NoError(t, err)
		require.NotNil(t, actual.GovernanceTokenMint)
		assert.Equal(t, "mint", *actual.GovernanceTokenMint)
		assert.EqualValues(t, 2, actual.TotalProposals)

		// An unset mint never clears an existing one
		update = actual.Clone()
		update.GovernanceTokenMint = nil
		update.TotalProposals = 3
		require.NoError(t, s.UpdateConfig(ctx, &update))

		actual, err = s.GetConfig(ctx)
		require.NoError(t, err)
		require.NotNil(t, actual.GovernanceTokenMint)
		assert.Equal(t, "mint", *actual.GovernanceTokenMint)
		assert.EqualValues(t, 3, actual.TotalProposals)
	})
}

func testTreasuryHappyPath(t *testing.T, s ledger.Store) {
	t.Run("testTreasuryHappyPath", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetTreasury(ctx)
		assert.Equal(t, ledger.ErrTreasuryNotFound, err)

		expected := &ledger.Treasury{
			Address:       "treasury",
			LastUpdatedAt: now(),
		}
		require.NoError(t, s.SaveTreasury(ctx, expected))
		assert.True(t, expected.Id > 0)

		actual, err := s.GetTreasury(ctx)
		require.NoError(t, err)
		assertEquivalentTreasuries(t, expected, actual)

		actual.Balance = 1000
		actual.StakedAmount = 250
		actual.LastUpdatedAt = now().Add(time.Minute)
		require.NoError(t, s.SaveTreasury(ctx, actual))

		updated, err := s.GetTreasury(ctx)
		require.NoError(t, err)
		assertEquivalentTreasuries(t, actual, updated)
	})
}

func testCardHappyPath(t *testing.T, s ledger.Store) {
	t.Run("testCardHappyPath", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetCard(ctx, "card1")
		assert.Equal(t, ledger.ErrCardNotFound, err)

		_, err = s.GetCardsByCreator(ctx, "creator", query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, ledger.ErrCardNotFound, err)

		expected := newCard("card1", 0)
		expected.Referrer = pointer.String("referrer")
		expected.TokenMint = pointer.String("mint")
		cloned := expected.Clone()

		require.NoError(t, s.CreateCard(ctx, expected))
		assert.True(t, expected.Id > 0)
		assert.Equal(t, ledger.ErrCardExists, s.CreateCard(ctx, newCard("card1", 0)))

		actual, err := s.GetCard(ctx, "card1")
		require.NoError(t, err)
		cloned.Id = expected.Id
		assertEquivalentCards(t, &cloned, actual)

		second := newCard("card2", 0)
		require.NoError(t, s.CreateCard(ctx, second))

		third := newCard("card3", 0)
		third.Creator = "other"
		require.NoError(t, s.CreateCard(ctx, third))

		byCreator, err := s.GetCardsByCreator(ctx, "creator", query.EmptyCursor, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, byCreator, 2)
		assert.Equal(t, "card1", byCreator[0].Address)
		assert.Equal(t, "card2", byCreator[1].Address)

		byCreator, err = s.GetCardsByCreator(ctx, "creator", query.EmptyCursor, 1, query.Descending)
		require.NoError(t, err)
		require.Len(t, byCreator, 1)
		assert.Equal(t, "card2", byCreator[0].Address)

		byCreator, err = s.GetCardsByCreator(ctx, "creator", query.ToCursor(byCreator[0].Id), 10, query.Descending)
		require.NoError(t, err)
		require.Len(t, byCreator, 1)
		assert.Equal(t, "card1", byCreator[0].Address)

		_, err = s.GetCardsByCreator(ctx, "creator", query.ToCursor(second.Id), 10, query.Ascending)
		assert.Equal(t, ledger.ErrCardNotFound, err)

		assert.Equal(t, ledger.ErrCardNotFound, s.UpdateCard(ctx, newCard("card4", 0)))

		redeemedAt := now()
		actual.Balance = 0
		actual.IsRedeemed = true
		actual.Resolution = ledger.ResolutionRedeemed
		actual.RedeemedBy = "destination"
		actual.RedeemedAt = &redeemedAt
		actual.Message = "ignored on update"
		require.NoError(t, s.UpdateCard(ctx, actual))

		updated, err := s.GetCard(ctx, "card1")
		require.NoError(t, err)
		assert.True(t, updated.IsRedeemed)
		assert.Equal(t, ledger.ResolutionRedeemed, updated.Resolution)
		assert.Equal(t, "destination", updated.RedeemedBy)
		assert.EqualValues(t, 0, updated.Balance)
		require.NotNil(t, updated.RedeemedAt)
		assert.Equal(t, redeemedAt.Unix(), updated.RedeemedAt.Unix())
		assert.Equal(t, cloned.Message, updated.Message)
		assert.Equal(t, cloned.Amount, updated.Amount)

		invalid := updated.Clone()
		invalid.Resolution = ledger.ResolutionNone
		assert.Error(t, s.UpdateCard(ctx, &invalid))
	})
}

func testGetExpiredCards(t *testing.T, s ledger.Store) {
	t.Run("testGetExpiredCards", func(t *testing.T) {
		ctx := context.Background()

		current := now()

		_, err := s.GetExpiredCards(ctx, current, 0, 10)
		assert.Equal(t, ledger.ErrCardNotFound, err)

		require.NoError(t, s.CreateCard(ctx, newCard("never", 0)))
		require.NoError(t, s.CreateCard(ctx, newCard("future", current.Add(time.Hour).Unix())))
		require.NoError(t, s.CreateCard(ctx, newCard("exact", current.Unix())))
		for i := 0; i < 5; i++ {
			require.NoError(t, s.CreateCard(ctx, newCard(fmt.Sprintf("past%d", i), current.Add(-time.Duration(5-i)*time.Minute).Unix())))
		}

		redeemed := newCard("redeemed", current.Add(-time.Hour).Unix())
		require.NoError(t, s.CreateCard(ctx, redeemed))
		redeemed.Balance = 0
		redeemed.IsRedeemed = true
		redeemed.Resolution = ledger.ResolutionRedeemed
		redeemed.RedeemedBy = "someone"
		redeemed.RedeemedAt = pointer.Time(current)
		require.NoError(t, s.UpdateCard(ctx, redeemed))

		actual, err := s.GetExpiredCards(ctx, current, 0, 10)
		require.NoError(t, err)
		require.Len(t, actual, 6)
		for i := 0; i < 5; i++ {
			assert.Equal(t, fmt.Sprintf("past%d", i), actual[i].Address)
		}
		assert.Equal(t, "exact", actual[5].Address)

		actual, err = s.GetExpiredCards(ctx, current, 0, 2)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.Equal(t, "past0", actual[0].Address)
		assert.Equal(t, "past1", actual[1].Address)

		_, err = s.GetExpiredCards(ctx, current.Add(-time.Hour), 0, 10)
		assert.Equal(t, ledger.ErrCardNotFound, err)

		dust := newCard("dust", current.Add(-time.Hour).Unix())
		dust.Balance = 5000
		require.NoError(t, s.CreateCard(ctx, dust))

		actual, err = s.GetExpiredCards(ctx, current, 0, 10)
		require.NoError(t, err)
		require.Len(t, actual, 7)
		assert.Equal(t, "dust", actual[0].Address)

		actual, err = s.GetExpiredCards(ctx, current, 5000, 10)
		require.NoError(t, err)
		require.Len(t, actual, 6)
		assert.Equal(t, "past0", actual[0].Address)

		_, err = s.GetExpiredCards(ctx, current, 970_000_000, 10)
		assert.Equal(t, ledger.ErrCardNotFound, err)
	})
}

func testReferralHappyPath(t *testing.T, s ledger.Store) {
	t.Run("testReferralHappyPath", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetReferral(ctx, "owner")
		assert.Equal(t, ledger.ErrReferralNotFound, err)

		assert.Equal(t, ledger.ErrReferralNotFound, s.UpdateReferral(ctx, &ledger.Referral{Owner: "owner"}))

		expected := &ledger.Referral{
			Owner:     "owner",
			CreatedAt: now(),
		}
		require.NoError(t, s.CreateReferral(ctx, expected))
		assert.True(t, expected.Id > 0)
		assert.Equal(t, ledger.ErrReferralExists, s.CreateReferral(ctx, &ledger.Referral{Owner: "owner", CreatedAt: now()}))

		actual, err := s.GetReferral(ctx, "owner")
		require.NoError(t, err)
		assertEquivalentReferrals(t, expected, actual)

		actual.TotalEarned = 10_000_000
		actual.ReferralCount = 1
		require.NoError(t, s.UpdateReferral(ctx, actual))

		updated, err := s.GetReferral(ctx, "owner")
		require.NoError(t, err)
		assertEquivalentReferrals(t, actual, updated)
	})
}

func testAccountHappyPath(t *testing.T, s ledger.Store) {
	t.Run("testAccountHappyPath", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAccount(ctx, "owner")
		assert.Equal(t, ledger.ErrAccountNotFound, err)

		assert.Error(t, s.SaveAccount(ctx, &ledger.Account{}))

		expected := &ledger.Account{
			Owner:         "owner",
			Balance:       42,
			LastUpdatedAt: now(),
		}
		require.NoError(t, s.SaveAccount(ctx, expected))
		assert.True(t, expected.Id > 0)

		actual, err := s.GetAccount(ctx, "owner")
		require.NoError(t, err)
		assertEquivalentAccounts(t, expected, actual)

		actual.Balance = 0
		actual.LastUpdatedAt = now().Add(time.Second)
		require.NoError(t, s.SaveAccount(ctx, actual))
		assert.Equal(t, expected.Id, actual.Id)

		updated, err := s.GetAccount(ctx, "owner")
		require.NoError(t, err)
		assertEquivalentAccounts(t, actual, updated)
	})
}

func testTxRollback(t *testing.T, s ledger.Store) {
	t.Run("testTxRollback", func(t *testing.T) {
		ctx := context.Background()

		require.NoError(t, s.SaveAccount(ctx, &ledger.Account{Owner: "owner", Balance: 100, LastUpdatedAt: now()}))

		induced := errors.New("induced")
		err := s.ExecuteInTx(ctx, func(ctx context.Context) error {
			account, err := s.GetAccount(ctx, "owner")
			if err != nil {
				return err
			}
			account.Balance = 0
			if err := s.SaveAccount(ctx, account); err != nil {
				return err
			}
			if err := s.CreateCard(ctx, newCard("card", 0)); err != nil {
				return err
			}
			if err := s.CreateConfig(ctx, newConfig()); err != nil {
				return err
			}
			return induced
		})
		assert.Equal(t, induced, err)

		account, err := s.GetAccount(ctx, "owner")
		require.NoError(t, err)
		assert.EqualValues(t, 100, account.Balance)

		_, err = s.GetCard(ctx, "card")
		assert.Equal(t, ledger.ErrCardNotFound, err)

		_, err = s.GetConfig(ctx)
		assert.Equal(t, ledger.ErrConfigNotFound, err)

		err = s.ExecuteInTx(ctx, func(ctx context.Context) error {
			if err := s.CreateCard(ctx, newCard("card", 0)); err != nil {
				return err
			}
			return s.SaveAccount(ctx, &ledger.Account{Owner: "owner", Balance: 0, LastUpdatedAt: now()})
		})
		require.NoError(t, err)

		_, err = s.GetCard(ctx, "card")
		assert.NoError(t, err)

		account, err = s.GetAccount(ctx, "owner")
		require.NoError(t, err)
		assert.EqualValues(t, 0, account.Balance)

		err = s.ExecuteInTx(ctx, func(ctx context.Context) error {
			return s.CreateCard(ctx, newCard("card", 0))
		})
		assert.Equal(t, ledger.ErrCardExists, err)
	})
}

func testTxPanicRollback(t *testing.T, s ledger.Store) {
	t.Run("testTxPanicRollback", func(t *testing.T) {
		ctx := context.Background()

		require.NoError(t, s.SaveAccount(ctx, &ledger.Account{Owner: "owner", Balance: 100, LastUpdatedAt: now()}))

		assert.PanicsWithValue(t, "induced", func() {
			s.ExecuteInTx(ctx, func(ctx context.Context) error {
				account, err := s.GetAccount(ctx, "owner")
				if err != nil {
					return err
				}
				account.Balance = 0
				if err := s.SaveAccount(ctx, account); err != nil {
					return err
				}
				if err := s.CreateCard(ctx, newCard("card", 0)); err != nil {
					return err
				}
				panic("induced")
			})
		})

		account, err := s.GetAccount(ctx, "owner")
		require.NoError(t, err)
		assert.EqualValues(t, 100, account.Balance)

		_, err = s.GetCard(ctx, "card")
		assert.Equal(t, ledger.ErrCardNotFound, err)

		// The store remains usable after the unwound unit
		err = s.ExecuteInTx(ctx, func(ctx context.Context) error {
			return s.CreateCard(ctx, newCard("card", 0))
		})
		require.NoError(t, err)
	})
}

func testNestedTx(t *testing.T, s ledger.Store) {
	t.Run("testNestedTx", func(t *testing.T) {
		ctx := context.Background()

		err := s.ExecuteInTx(ctx, func(ctx context.Context) error {
			return s.ExecuteInTx(ctx, func(context.Context) error {
				return nil
			})
		})
		assert.True(t, errors.Is(err, ledger.ErrNestedTx))
	})
}

func testConcurrentTx(t *testing.T, s ledger.Store) {
	t.Run("testConcurrentTx", func(t *testing.T) {
		ctx := context.Background()

		require.NoError(t, s.SaveAccount(ctx, &ledger.Account{Owner: "owner", LastUpdatedAt: now()}))

		var wg sync.WaitGroup
		workers := 8
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()

				errs[i] = s.ExecuteInTx(ctx, func(ctx context.Context) error {
					account, err := s.GetAccount(ctx, "owner")
					if err != nil {
						return err
					}
					account.Balance++
					account.LastUpdatedAt = now()
					return s.SaveAccount(ctx, account)
				})
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			require.NoError(t, err)
		}

		account, err := s.GetAccount(ctx, "owner")
		require.NoError(t, err)
		assert.EqualValues(t, workers, account.Balance)
	})
}

func testHoldingHappyPath(t *testing.T, s ledger.Store) {
	t.Run("testHoldingHappyPath", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetHolding(ctx, "owner")
		assert.Equal(t, ledger.ErrHoldingNotFound, err)

		assert.Error(t, s.SaveHolding(ctx, &ledger.Holding{}))

		expected := &ledger.Holding{
			Owner:         "owner",
			Balance:       1_000_000,
			LastUpdatedAt: now(),
		}
		require.NoError(t, s.SaveHolding(ctx, expected))
		assert.True(t, expected.Id > 0)

		actual, err := s.GetHolding(ctx, "owner")
		require.NoError(t, err)
		assert.Equal(t, expected.Id, actual.Id)
		assert.Equal(t, expected.Balance, actual.Balance)
		assert.Equal(t, expected.LastUpdatedAt.Unix(), actual.LastUpdatedAt.Unix())

		actual.Balance = 0
		require.NoError(t, s.SaveHolding(ctx, actual))
		assert.Equal(t, expected.Id, actual.Id)

		updated, err := s.GetHolding(ctx, "owner")
		require.NoError(t, err)
		assert.Zero(t, updated.Balance)

		// Account balances and governance holdings are separate ledgers
		_, err = s.GetAccount(ctx, "owner")
		assert.Equal(t, ledger.ErrAccountNotFound, err)
	})
}

func testProposalHappyPath(t *testing.T, s ledger.Store) {
	t.Run("testProposalHappyPath", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetProposal(ctx, 0)
		assert.Equal(t, ledger.ErrProposalNotFound, err)

		assert.Equal(t, ledger.ErrProposalNotFound, s.UpdateProposal(ctx, newProposal(0)))

		invalid := newProposal(0)
		invalid.Choices = invalid.Choices[:1]
		invalid.VoteCounts = invalid.VoteCounts[:1]
		assert.Error(t, s.CreateProposal(ctx, invalid))

		invalid = newProposal(0)
		invalid.TotalVotes = 1
		assert.Error(t, s.CreateProposal(ctx, invalid))

		expected := newProposal(0)
		require.NoError(t, s.CreateProposal(ctx, expected))
		assert.True(t, expected.Id > 0)

		actual, err := s.GetProposal(ctx, 0)
		require.NoError(t, err)
		assertEquivalentProposals(t, expected, actual)

		assert.Equal(t, ledger.ErrProposalExists, s.CreateProposal(ctx, newProposal(0)))
		require.NoError(t, s.CreateProposal(ctx, newProposal(1)))

		update := actual.Clone()
		update.Title = "ignored"
		update.VoteCounts = []uint64{5, 0, 7}
		update.TotalVotes = 12
		require.NoError(t, s.UpdateProposal(ctx, &update))
		assert.Equal(t, expected.Title, update.Title)

		actual, err = s.GetProposal(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, expected.Title, actual.Title)
		assert.Equal(t, []uint64{5, 0, 7}, actual.VoteCounts)
		assert.EqualValues(t, 12, actual.TotalVotes)
		assert.False(t, actual.IsFinalized)
		assert.Nil(t, actual.WinningChoice)

		update = actual.Clone()
		update.IsFinalized = true
		update.WinningChoice = pointer.To(uint8(2))
		require.NoError(t, s.UpdateProposal(ctx, &update))

		actual, err = s.GetProposal(ctx, 0)
		require.NoError(t, err)
		assert.True(t, actual.IsFinalized)
		require.NotNil(t, actual.WinningChoice)
		assert.EqualValues(t, 2, *actual.WinningChoice)

		other, err := s.GetProposal(ctx, 1)
		require.NoError(t, err)
		assert.Zero(t, other.TotalVotes)
		assert.False(t, other.IsFinalized)
	})
}

func testVoteHappyPath(t *testing.T, s ledger.Store) {
	t.Run("testVoteHappyPath", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetVote(ctx, 0, "voter")
		assert.Equal(t, ledger.ErrVoteNotFound, err)

		assert.Error(t, s.SaveVote(ctx, &ledger.Vote{Voter: "voter"}))

		expected := &ledger.Vote{
			ProposalId: 0,
			Voter:      "voter",
			Choice:     1,
			Weight:     100,
			Timestamp:  now(),
		}
		require.NoError(t, s.SaveVote(ctx, expected))
		assert.True(t, expected.Id > 0)

		actual, err := s.GetVote(ctx, 0, "voter")
		require.NoError(t, err)
		assert.Equal(t, expected.Id, actual.Id)
		assert.Equal(t, expected.Choice, actual.Choice)
		assert.Equal(t, expected.Weight, actual.Weight)
		assert.Equal(t, expected.Timestamp.Unix(), actual.Timestamp.Unix())

		actual.Choice = 0
		actual.Weight = 250
		require.NoError(t, s.SaveVote(ctx, actual))
		assert.Equal(t, expected.Id, actual.Id)

		updated, err := s.GetVote(ctx, 0, "voter")
		require.NoError(t, err)
		assert.EqualValues(t, 0, updated.Choice)
		assert.EqualValues(t, 250, updated.Weight)

		_, err = s.GetVote(ctx, 1, "voter")
		assert.Equal(t, ledger.ErrVoteNotFound, err)
		_, err = s.GetVote(ctx, 0, "someone-else")
		assert.Equal(t, ledger.ErrVoteNotFound, err)
	})
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func newConfig() *ledger.Config {
	return &ledger.Config{
		Authority:      "authority",
		CommissionRate: 300,
		ReferralRate:   100,
		Treasury:       "treasury",
		CreatedAt:      now(),
	}
}

func newCard(address string, expiry int64) *ledger.Card {
	return &ledger.Card{
		Address:          address,
		Creator:          "creator",
		Recipient:        "recipient",
		Amount:           970_000_000,
		Balance:          970_000_000,
		CommissionAmount: 30_000_000,
		ReferralAmount:   10_000_000,
		ExpiryTime:       expiry,
		Message:          "happy birthday",
		ThemeId:          10,
		CreatedAt:        now(),
	}
}

func newProposal(proposalId uint64) *ledger.Proposal {
	return &ledger.Proposal{
		ProposalId:    proposalId,
		Creator:       "creator",
		Title:         "Next theme",
		Description:   "Which theme should launch next",
		Choices:       []string{"ocean", "forest", "space"},
		VoteCounts:    []uint64{0, 0, 0},
		VotingEndTime: now().Add(time.Hour).Unix(),
		CreatedAt:     now(),
	}
}

func assertEquivalentProposals(t *testing.T, obj1, obj2 *ledger.Proposal) {
	assert.Equal(t, obj1.Id, obj2.Id)
	assert.Equal(t, obj1.ProposalId, obj2.ProposalId)
	assert.Equal(t, obj1.Creator, obj2.Creator)
	assert.Equal(t, obj1.Title, obj2.Title)
	assert.Equal(t, obj1.Description, obj2.Description)
	assert.Equal(t, obj1.Choices, obj2.Choices)
	assert.Equal(t, obj1.VoteCounts, obj2.VoteCounts)
	assert.Equal(t, obj1.TotalVotes, obj2.TotalVotes)
	assert.Equal(t, obj1.VotingEndTime, obj2.VotingEndTime)
	assert.Equal(t, obj1.IsFinalized, obj2.IsFinalized)
	assert.Equal(t, obj1.WinningChoice, obj2.WinningChoice)
	assert.Equal(t, obj1.CreatedAt.Unix(), obj2.CreatedAt.Unix())
}

func assertEquivalentConfigs(t *testing.T, obj1, obj2 *ledger.Config) {
	assert.Equal(t, obj1.Authority, obj2.Authority)
	assert.Equal(t, obj1.CommissionRate, obj2.CommissionRate)
	assert.Equal(t, obj1.ReferralRate, obj2.ReferralRate)
	assert.Equal(t, obj1.Treasury, obj2.Treasury)
	assert.Equal(t, obj1.TotalGiftCards, obj2.TotalGiftCards)
	assert.Equal(t, obj1.TotalCommission, obj2.TotalCommission)
	assert.Equal(t, obj1.TotalReferralPayouts, obj2.TotalReferralPayouts)
	assert.Equal(t, obj1.TotalStaked, obj2.TotalStaked)
	assert.Equal(t, obj1.CreatedAt.Unix(), obj2.CreatedAt.Unix())
}

func assertEquivalentTreasuries(t *testing.T, obj1, obj2 *ledger.Treasury) {
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Balance, obj2.Balance)
	assert.Equal(t, obj1.StakedAmount, obj2.StakedAmount)
	assert.Equal(t, obj1.LastUpdatedAt.Unix(), obj2.LastUpdatedAt.Unix())
}

func assertEquivalentCards(t *testing.T, obj1, obj2 *ledger.Card) {
	assert.Equal(t, obj1.Id, obj2.Id)
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Creator, obj2.Creator)
	assert.Equal(t, obj1.Recipient, obj2.Recipient)
	assert.Equal(t, obj1.Amount, obj2.Amount)
	assert.Equal(t, obj1.Balance, obj2.Balance)
	assert.Equal(t, obj1.CommissionAmount, obj2.CommissionAmount)
	assert.Equal(t, obj1.ReferralAmount, obj2.ReferralAmount)
	assert.Equal(t, obj1.IsRedeemed, obj2.IsRedeemed)
	assert.Equal(t, obj1.Resolution, obj2.Resolution)
	assert.Equal(t, obj1.RedeemedBy, obj2.RedeemedBy)
	assert.Equal(t, obj1.RedeemedAt == nil, obj2.RedeemedAt == nil)
	assert.Equal(t, obj1.ExpiryTime, obj2.ExpiryTime)
	assert.Equal(t, obj1.Message, obj2.Message)
	assert.EqualValues(t, obj1.Referrer, obj2.Referrer)
	assert.EqualValues(t, obj1.TokenMint, obj2.TokenMint)
	assert.Equal(t, obj1.ThemeId, obj2.ThemeId)
	assert.Equal(t, obj1.CreatedAt.Unix(), obj2.CreatedAt.Unix())
}

func assertEquivalentReferrals(t *testing.T, obj1, obj2 *ledger.Referral) {
	assert.Equal(t, obj1.Owner, obj2.Owner)
	assert.Equal(t, obj1.TotalEarned, obj2.TotalEarned)
	assert.Equal(t, obj1.ReferralCount, obj2.ReferralCount)
	assert.Equal(t, obj1.CreatedAt.Unix(), obj2.CreatedAt.Unix())
}

func assertEquivalentAccounts(t *testing.T, obj1, obj2 *ledger.Account) {
	assert.Equal(t, obj1.Owner, obj2.Owner)
	assert.Equal(t, obj1.Balance, obj2.Balance)
	assert.Equal(t, obj1.LastUpdatedAt.Unix(), obj2.LastUpdatedAt.Unix())
}
