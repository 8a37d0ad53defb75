package engine

import (
	"context"
	"crypto/ed25519"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/gift-protocol/pkg/database/query"
	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/giftcard/ledger"
	"github.com/code-payments/gift-protocol/pkg/giftcard/ledger/memory"
	"github.com/code-payments/gift-protocol/pkg/giftcard/secret"
	"github.com/code-payments/gift-protocol/pkg/pointer"
	"github.com/code-payments/gift-protocol/pkg/testutil"
)

const (
	testNetworkFee = 5000
	testFeeReserve = 5000
	oneUnit        = 1_000_000_000
)

type testEnv struct {
	ctx       context.Context
	engine    *Engine
	store     ledger.Store
	clock     *clockwork.FakeClock
	authority string

	// owners tracks every ledger account touched so conservation can be
	// asserted without a listing API
	owners    map[string]struct{}
	deposited uint64
	cards     []string
}

type testCard struct {
	address string
	secret  *secret.Secret
}

func setup(t *testing.T, overrides *testOverrides) *testEnv {
	if overrides == nil {
		overrides = &testOverrides{
			networkFee: testNetworkFee,
			feeReserve: testFeeReserve,
		}
	}

	store := memory.New()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	engine, err := New(store, clock, withManualTestOverrides(overrides))
	require.NoError(t, err)

	env := &testEnv{
		ctx:       context.Background(),
		engine:    engine,
		store:     store,
		clock:     clock,
		authority: newAddress(t),
		owners:    make(map[string]struct{}),
	}
	env.owners[engine.FeeSink(env.ctx)] = struct{}{}

	_, err = engine.Initialize(env.ctx, env.authority, 300, 100)
	require.NoError(t, err)

	return env
}

func newAddress(t *testing.T) string {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return base58.Encode(pub)
}

func newTestCard(t *testing.T) *testCard {
	_, key, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	parsed, err := secret.Parse(secret.Encode(key))
	require.NoError(t, err)

	return &testCard{
		address: parsed.Address(),
		secret:  parsed,
	}
}

func (e *testEnv) fund(t *testing.T, owner string, amount uint64) {
	_, err := e.engine.Deposit(e.ctx, owner, amount)
	require.NoError(t, err)

	e.owners[owner] = struct{}{}
	e.deposited += amount
}

func (e *testEnv) track(owners ...string) {
	for _, owner := range owners {
		e.owners[owner] = struct{}{}
	}
}

func (e *testEnv) create(t *testing.T, creator string, amount uint64, expiry int64, referrer *string) (*testCard, *CreateGiftCardResult) {
	card := newTestCard(t)

	result, err := e.engine.CreateGiftCard(e.ctx, &CreateGiftCardArgs{
		Creator:    creator,
		Card:       card.address,
		Amount:     amount,
		ExpiryTime: expiry,
		Message:    "happy birthday",
		Referrer:   referrer,
		ThemeId:    10,
	})
	require.NoError(t, err)

	e.cards = append(e.cards, card.address)
	if referrer != nil {
		e.track(*referrer)
	}
	return card, result
}

func (e *testEnv) balance(t *testing.T, owner string) uint64 {
	balance, err := e.engine.GetBalance(e.ctx, owner)
	require.NoError(t, err)
	return balance
}

// assertConservation checks every unit deposited is held by exactly one of
// the ledger accounts, card escrows or the treasury
func (e *testEnv) assertConservation(t *testing.T) {
	var total uint64
	for owner := range e.owners {
		total += e.balance(t, owner)
	}

	for _, address := range e.cards {
		card, err := e.store.GetCard(e.ctx, address)
		require.NoError(t, err)
		total += card.Balance
	}

	treasury, err := e.store.GetTreasury(e.ctx)
	require.NoError(t, err)
	total += treasury.Balance + treasury.StakedAmount

	assert.Equal(t, e.deposited, total)
}

func TestMain(m *testing.M) {
	reset := testutil.DisableLogging()
	defer reset()

	m.Run()
}

func TestInitialize(t *testing.T) {
	env := setup(t, nil)

	config, err := env.engine.GetConfig(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, env.authority, config.Authority)
	assert.EqualValues(t, 300, config.CommissionRate)
	assert.EqualValues(t, 100, config.ReferralRate)
	assert.Equal(t, env.engine.TreasuryAddress(), config.Treasury)
	assert.Zero(t, config.TotalGiftCards)

	stats, err := env.engine.GetStats(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{}, stats)

	_, err = env.engine.Initialize(env.ctx, env.authority, 300, 100)
	assert.Equal(t, giftcard.ErrAlreadyInitialized, err)

	engine, err := New(memory.New(), nil, withManualTestOverrides(&testOverrides{}))
	require.NoError(t, err)

	_, err = engine.GetStats(env.ctx)
	assert.Equal(t, giftcard.ErrNotInitialized, err)

	for _, rates := range [][2]uint16{{10_001, 0}, {300, 301}, {0, 10_001}} {
		_, err = engine.Initialize(env.ctx, env.authority, rates[0], rates[1])
		assert.Equal(t, giftcard.ErrInvalidRateConfiguration, err)
	}

	_, err = engine.Initialize(env.ctx, "not-an-address", 300, 100)
	assert.Equal(t, giftcard.ErrInvalidAddress, err)

	_, err = engine.Initialize(env.ctx, env.authority, 10_000, 10_000)
	assert.NoError(t, err)
}

func TestCreateGiftCard_ReferenceScenario(t *testing.T) {
	env := setup(t, nil)

	creator := newAddress(t)
	referrer := newAddress(t)
	env.fund(t, creator, 2*oneUnit)

	_, err := env.engine.CreateReferral(env.ctx, referrer)
	require.NoError(t, err)

	card, result := env.create(t, creator, oneUnit, 0, pointer.String(referrer))
	assert.True(t, result.ReferralCredited)
	assert.EqualValues(t, 30_000_000, result.Split.Commission)
	assert.EqualValues(t, 10_000_000, result.Split.ReferralShare)
	assert.EqualValues(t, 20_000_000, result.Split.TreasuryShare)
	assert.EqualValues(t, 970_000_000, result.Split.Net)

	stored, err := env.engine.GetCard(env.ctx, card.address)
	require.NoError(t, err)
	assert.Equal(t, creator, stored.Creator)
	assert.EqualValues(t, 970_000_000, stored.Amount)
	assert.EqualValues(t, 970_000_000, stored.Balance)
	assert.EqualValues(t, 30_000_000, stored.CommissionAmount)
	assert.EqualValues(t, 10_000_000, stored.ReferralAmount)
	assert.False(t, stored.IsRedeemed)
	assert.Equal(t, ledger.ResolutionNone, stored.Resolution)
	require.NotNil(t, stored.Referrer)
	assert.Equal(t, referrer, *stored.Referrer)
	assert.Equal(t, "happy birthday", stored.Message)
	assert.EqualValues(t, 10, stored.ThemeId)

	assert.EqualValues(t, 2*oneUnit-oneUnit-testNetworkFee, env.balance(t, creator))
	assert.EqualValues(t, 10_000_000, env.balance(t, referrer))
	assert.EqualValues(t, testNetworkFee, env.balance(t, env.engine.FeeSink(env.ctx)))

	referral, err := env.engine.GetReferral(env.ctx, referrer)
	require.NoError(t, err)
	assert.EqualValues(t, 10_000_000, referral.TotalEarned)
	assert.EqualValues(t, 1, referral.ReferralCount)

	stats, err := env.engine.GetStats(env.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalGiftCards)
	assert.EqualValues(t, 30_000_000, stats.TotalCommission)
	assert.EqualValues(t, 10_000_000, stats.TotalReferralPayouts)
	assert.EqualValues(t, 20_000_000, stats.TreasuryBalance)

	destination := newAddress(t)
	env.track(destination)

	redeemed, err := env.engine.RedeemGiftCard(env.ctx, &RedeemGiftCardArgs{
		Card:        card.address,
		Secret:      card.secret,
		Destination: destination,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 970_000_000-testFeeReserve, redeemed.Payout)
	assert.EqualValues(t, testFeeReserve, redeemed.FeeReserve)
	assert.True(t, redeemed.Card.IsRedeemed)
	assert.Equal(t, ledger.ResolutionRedeemed, redeemed.Card.Resolution)
	assert.Equal(t, destination, redeemed.Card.RedeemedBy)
	require.NotNil(t, redeemed.Card.RedeemedAt)
	assert.Equal(t, env.clock.Now().Unix(), redeemed.Card.RedeemedAt.Unix())

	assert.EqualValues(t, 970_000_000-testFeeReserve, env.balance(t, destination))
	assert.EqualValues(t, testNetworkFee+testFeeReserve, env.balance(t, env.engine.FeeSink(env.ctx)))

	env.assertConservation(t)
}

func TestCreateGiftCard_WithoutReferrer(t *testing.T) {
	env := setup(t, nil)

	creator := newAddress(t)
	env.fund(t, creator, 2*oneUnit)

	_, result := env.create(t, creator, oneUnit, 0, nil)
	assert.False(t, result.ReferralCredited)
	assert.Nil(t, result.Card.Referrer)
	assert.EqualValues(t, 0, result.Split.ReferralShare)
	assert.EqualValues(t, 30_000_000, result.Split.TreasuryShare)
	assert.EqualValues(t, 970_000_000, result.Card.Amount)

	// A referrer without a referral record degrades to the no referrer path
	unregistered := newAddress(t)
	_, result = env.create(t, creator, oneUnit/2, 0, pointer.String(unregistered))
	assert.False(t, result.ReferralCredited)
	assert.Nil(t, result.Card.Referrer)
	assert.EqualValues(t, 15_000_000, result.Split.TreasuryShare)
	assert.Zero(t, env.balance(t, unregistered))

	stats, err := env.engine.GetStats(env.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalGiftCards)
	assert.EqualValues(t, 45_000_000, stats.TotalCommission)
	assert.Zero(t, stats.TotalReferralPayouts)
	assert.EqualValues(t, 45_000_000, stats.TreasuryBalance)

	env.assertConservation(t)
}

func TestCreateGiftCard_StrictReferrer(t *testing.T) {
	env := setup(t, &testOverrides{
		networkFee:              testNetworkFee,
		feeReserve:              testFeeReserve,
		requireExistingReferrer: true,
	})

	creator := newAddress(t)
	env.fund(t, creator, oneUnit)

	_, err := env.engine.CreateGiftCard(env.ctx, &CreateGiftCardArgs{
		Creator:  creator,
		Card:     newTestCard(t).address,
		Amount:   oneUnit / 2,
		Referrer: pointer.String(newAddress(t)),
	})
	assert.Equal(t, giftcard.ErrReferralNotFound, err)
	assert.EqualValues(t, oneUnit, env.balance(t, creator))

	env.assertConservation(t)
}

func TestCreateGiftCard_Validation(t *testing.T) {
	env := setup(t, nil)

	creator := newAddress(t)
	env.fund(t, creator, oneUnit)

	valid := func() *CreateGiftCardArgs {
		return &CreateGiftCardArgs{
			Creator: creator,
			Card:    newTestCard(t).address,
			Amount:  1_000_000,
		}
	}

	for _, tc := range []struct {
		mutate   func(args *CreateGiftCardArgs)
		expected error
	}{
		{func(args *CreateGiftCardArgs) { args.Amount = 0 }, giftcard.ErrInvalidAmount},
		{func(args *CreateGiftCardArgs) { args.Creator = "" }, giftcard.ErrInvalidAddress},
		{func(args *CreateGiftCardArgs) { args.Card = "abc" }, giftcard.ErrInvalidAddress},
		{func(args *CreateGiftCardArgs) { args.Recipient = "0OIl" }, giftcard.ErrInvalidAddress},
		{func(args *CreateGiftCardArgs) { args.Referrer = pointer.String(creator) }, giftcard.ErrInvalidReferrer},
		{func(args *CreateGiftCardArgs) { args.TokenMint = pointer.String(newAddress(t)) }, giftcard.ErrUnsupportedMint},
		{func(args *CreateGiftCardArgs) { args.Message = string(make([]rune, 257)) }, giftcard.ErrMessageTooLong},
		{func(args *CreateGiftCardArgs) { args.ExpiryTime = env.clock.Now().Unix() }, giftcard.ErrInvalidExpiry},
		{func(args *CreateGiftCardArgs) { args.ExpiryTime = env.clock.Now().Unix() - 1 }, giftcard.ErrInvalidExpiry},
		{func(args *CreateGiftCardArgs) { args.ExpiryTime = -1 }, giftcard.ErrInvalidExpiry},
		{func(args *CreateGiftCardArgs) { args.Amount = oneUnit }, giftcard.ErrInsufficientFunds},
	} {
		args := valid()
		tc.mutate(args)

		_, err := env.engine.CreateGiftCard(env.ctx, args)
		assert.Equal(t, tc.expected, err)

		_, err = env.engine.GetCard(env.ctx, args.Card)
		if err != giftcard.ErrInvalidAddress {
			assert.Equal(t, giftcard.ErrCardNotFound, err)
		}
	}

	args := valid()
	args.Message = "🎁 " + string(make([]rune, 254))
	args.ExpiryTime = env.clock.Now().Add(time.Hour).Unix()
	_, err := env.engine.CreateGiftCard(env.ctx, args)
	require.NoError(t, err)
	env.cards = append(env.cards, args.Card)

	_, err = env.engine.CreateGiftCard(env.ctx, args)
	assert.Equal(t, giftcard.ErrCardAlreadyExists, err)

	stats, err := env.engine.GetStats(env.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalGiftCards)

	env.assertConservation(t)
}

func TestCreateGiftCard_NotInitialized(t *testing.T) {
	engine, err := New(memory.New(), nil, withManualTestOverrides(&testOverrides{}))
	require.NoError(t, err)

	_, err = engine.CreateGiftCard(context.Background(), &CreateGiftCardArgs{
		Creator: newAddress(t),
		Card:    newAddress(t),
		Amount:  1,
	})
	assert.Equal(t, giftcard.ErrNotInitialized, err)
}

func TestCreateGiftCard_FeeCoveredByBalance(t *testing.T) {
	env := setup(t, nil)

	creator := newAddress(t)
	env.fund(t, creator, 1_000_000+testNetworkFee-1)

	_, err := env.engine.CreateGiftCard(env.ctx, &CreateGiftCardArgs{
		Creator: creator,
		Card:    newTestCard(t).address,
		Amount:  1_000_000,
	})
	assert.Equal(t, giftcard.ErrInsufficientFunds, err)
	assert.EqualValues(t, 1_000_000+testNetworkFee-1, env.balance(t, creator))

	env.fund(t, creator, 1)
	env.create(t, creator, 1_000_000, 0, nil)
	assert.Zero(t, env.balance(t, creator))

	env.assertConservation(t)
}

func TestReferralAccumulation(t *testing.T) {
	env := setup(t, nil)

	creator := newAddress(t)
	referrer := newAddress(t)
	env.fund(t, creator, 10*oneUnit)

	_, err := env.engine.CreateReferral(env.ctx, referrer)
	require.NoError(t, err)

	_, err = env.engine.CreateReferral(env.ctx, referrer)
	assert.Equal(t, giftcard.ErrReferralAlreadyExists, err)

	amounts := []uint64{1, 99, 100, 12_345, 1_000_001, 77_777_777, oneUnit}

	var expected uint64
	for _, amount := range amounts {
		_, result := env.create(t, creator, amount, 0, pointer.String(referrer))
		assert.Equal(t, result.Split.Commission, result.Split.TreasuryShare+result.Split.ReferralShare)
		assert.Equal(t, amount, result.Split.Commission+result.Split.Net)

		expected += amount * 100 / 10_000
	}

	referral, err := env.engine.GetReferral(env.ctx, referrer)
	require.NoError(t, err)
	assert.Equal(t, expected, referral.TotalEarned)
	assert.EqualValues(t, len(amounts), referral.ReferralCount)
	assert.Equal(t, expected, env.balance(t, referrer))

	_, err = env.engine.GetReferral(env.ctx, newAddress(t))
	assert.Equal(t, giftcard.ErrReferralNotFound, err)

	env.assertConservation(t)
}

func TestRedeemGiftCard_Guards(t *testing.T) {
	env := setup(t, nil)

	creator := newAddress(t)
	destination := newAddress(t)
	env.fund(t, creator, 10*oneUnit)
	env.track(destination)

	card, _ := env.create(t, creator, oneUnit, 0, nil)

	other := newTestCard(t)
	_, err := env.engine.RedeemGiftCard(env.ctx, &RedeemGiftCardArgs{
		Card:        card.address,
		Secret:      other.secret,
		Destination: destination,
	})
	assert.Equal(t, giftcard.ErrUnauthorized, err)

	_, err = env.engine.RedeemGiftCard(env.ctx, &RedeemGiftCardArgs{
		Card:        card.address,
		Destination: destination,
	})
	assert.Equal(t, giftcard.ErrUnauthorized, err)

	_, err = env.engine.RedeemGiftCard(env.ctx, &RedeemGiftCardArgs{
		Card:        other.address,
		Secret:      other.secret,
		Destination: destination,
	})
	assert.Equal(t, giftcard.ErrCardNotFound, err)

	_, err = env.engine.RedeemGiftCard(env.ctx, &RedeemGiftCardArgs{
		Card:        card.address,
		Secret:      card.secret,
		Destination: "bad",
	})
	assert.Equal(t, giftcard.ErrInvalidAddress, err)

	// Balances at or below the fee reserve cannot be redeemed
	dust, result := env.create(t, creator, testFeeReserve+testFeeReserve*3/97, 0, nil)
	require.LessOrEqual(t, result.Card.Balance, uint64(testFeeReserve))
	_, err = env.engine.RedeemGiftCard(env.ctx, &RedeemGiftCardArgs{
		Card:        dust.address,
		Secret:      dust.secret,
		Destination: destination,
	})
	assert.Equal(t, giftcard.ErrInsufficientCardBalance, err)

	_, err = env.engine.RedeemGiftCard(env.ctx, &RedeemGiftCardArgs{
		Card:        card.address,
		Secret:      card.secret,
		Destination: destination,
	})
	require.NoError(t, err)

	_, err = env.engine.RedeemGiftCard(env.ctx, &RedeemGiftCardArgs{
		Card:        card.address,
		Secret:      card.secret,
		Destination: newAddress(t),
	})
	assert.Equal(t, giftcard.ErrAlreadyRedeemed, err)

	_, err = env.engine.ReclaimGiftCard(env.ctx, card.address)
	assert.Equal(t, giftcard.ErrAlreadyRedeemed, err)

	stored, err := env.engine.GetCard(env.ctx, card.address)
	require.NoError(t, err)
	assert.True(t, stored.IsRedeemed)
	assert.Zero(t, stored.Balance)

	env.assertConservation(t)
}

func TestRedeemGiftCard_Concurrent(t *testing.T) {
	env := setup(t, nil)

	creator := newAddress(t)
	env.fund(t, creator, 2*oneUnit)

	card, _ := env.create(t, creator, oneUnit, 0, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded, rejected int

	workers := 16
	destinations := make([]string, workers)
	for i := range destinations {
		destinations[i] = newAddress(t)
	}
	env.track(destinations...)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(destination string) {
			defer wg.Done()

			_, err := env.engine.RedeemGiftCard(env.ctx, &RedeemGiftCardArgs{
				Card:        card.address,
				Secret:      card.secret,
				Destination: destination,
			})

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if err == giftcard.ErrAlreadyRedeemed {
				rejected++
			}
		}(destinations[i])
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, rejected)

	var paid int
	for _, destination := range destinations {
		if env.balance(t, destination) > 0 {
			paid++
		}
	}
	assert.Equal(t, 1, paid)

	env.assertConservation(t)
}

func TestExpiryAndReclaim(t *testing.T) {
	env := setup(t, nil)

	creator := newAddress(t)
	destination := newAddress(t)
	env.fund(t, creator, 10*oneUnit)
	env.track(destination)

	expiry := env.clock.Now().Add(time.Hour).Unix()
	expiring, _ := env.create(t, creator, oneUnit, expiry, nil)
	permanent, _ := env.create(t, creator, oneUnit, 0, nil)

	_, err := env.engine.ReclaimGiftCard(env.ctx, expiring.address)
	assert.Equal(t, giftcard.ErrNotExpiredYet, err)

	_, err = env.engine.ReclaimGiftCard(env.ctx, permanent.address)
	assert.Equal(t, giftcard.ErrNotExpiredYet, err)

	_, err = env.engine.ReclaimGiftCard(env.ctx, newAddress(t))
	assert.Equal(t, giftcard.ErrCardNotFound, err)

	expired, err := env.engine.GetExpiredCards(env.ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, expired)

	env.clock.Advance(time.Hour)

	_, err = env.engine.RedeemGiftCard(env.ctx, &RedeemGiftCardArgs{
		Card:        expiring.address,
		Secret:      expiring.secret,
		Destination: destination,
	})
	assert.Equal(t, giftcard.ErrCardExpired, err)

	expired, err = env.engine.GetExpiredCards(env.ctx, 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, expiring.address, expired[0].Address)

	before := env.balance(t, creator)
	result, err := env.engine.ReclaimGiftCard(env.ctx, expiring.address)
	require.NoError(t, err)
	assert.EqualValues(t, 970_000_000-testFeeReserve, result.Payout)
	assert.Equal(t, ledger.ResolutionReclaimed, result.Card.Resolution)
	assert.Equal(t, creator, result.Card.RedeemedBy)
	assert.True(t, result.Card.IsRedeemed)
	assert.Equal(t, before+result.Payout, env.balance(t, creator))

	_, err = env.engine.ReclaimGiftCard(env.ctx, expiring.address)
	assert.Equal(t, giftcard.ErrAlreadyRedeemed, err)

	_, err = env.engine.RedeemGiftCard(env.ctx, &RedeemGiftCardArgs{
		Card:        expiring.address,
		Secret:      expiring.secret,
		Destination: destination,
	})
	assert.Equal(t, giftcard.ErrAlreadyRedeemed, err)

	expired, err = env.engine.GetExpiredCards(env.ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, expired)

	// Cards without an expiry stay redeemable forever
	env.clock.Advance(365 * 24 * time.Hour)
	_, err = env.engine.RedeemGiftCard(env.ctx, &RedeemGiftCardArgs{
		Card:        permanent.address,
		Secret:      permanent.secret,
		Destination: destination,
	})
	require.NoError(t, err)

	env.assertConservation(t)
}

func TestStakeAndDistributeRewards(t *testing.T) {
	env := setup(t, nil)

	creator := newAddress(t)
	env.fund(t, creator, 10*oneUnit)
	env.create(t, creator, oneUnit, 0, nil)

	stranger := newAddress(t)

	_, err := env.engine.StakeTreasuryFunds(env.ctx, stranger, 1)
	assert.Equal(t, giftcard.ErrUnauthorized, err)

	_, err = env.engine.StakeTreasuryFunds(env.ctx, env.authority, 0)
	assert.Equal(t, giftcard.ErrInvalidAmount, err)

	_, err = env.engine.StakeTreasuryFunds(env.ctx, env.authority, 30_000_001)
	assert.Equal(t, giftcard.ErrInsufficientFunds, err)

	treasury, err := env.engine.StakeTreasuryFunds(env.ctx, env.authority, 20_000_000)
	require.NoError(t, err)
	assert.EqualValues(t, 10_000_000, treasury.Balance)
	assert.EqualValues(t, 20_000_000, treasury.StakedAmount)

	stats, err := env.engine.GetStats(env.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 20_000_000, stats.TotalStaked)

	recipients := []string{newAddress(t), newAddress(t), newAddress(t)}
	env.track(recipients...)

	_, err = env.engine.DistributeRewards(env.ctx, stranger, recipients)
	assert.Equal(t, giftcard.ErrUnauthorized, err)

	_, err = env.engine.DistributeRewards(env.ctx, env.authority, nil)
	assert.Equal(t, giftcard.ErrInvalidRecipients, err)

	_, err = env.engine.DistributeRewards(env.ctx, env.authority, []string{recipients[0], recipients[0]})
	assert.Equal(t, giftcard.ErrInvalidRecipients, err)

	result, err := env.engine.DistributeRewards(env.ctx, env.authority, recipients)
	require.NoError(t, err)
	assert.EqualValues(t, 6_666_666, result.Share)
	assert.EqualValues(t, 2, result.Remainder)
	for _, recipient := range recipients {
		assert.EqualValues(t, 6_666_666, env.balance(t, recipient))
	}

	_, err = env.engine.DistributeRewards(env.ctx, env.authority, recipients)
	assert.Equal(t, giftcard.ErrInsufficientFunds, err)

	stats, err = env.engine.GetStats(env.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.StakedAmount)
	assert.EqualValues(t, 20_000_000, stats.TotalStaked)

	env.assertConservation(t)
}

func TestGetCardsByCreator(t *testing.T) {
	env := setup(t, nil)

	creator := newAddress(t)
	env.fund(t, creator, 10*oneUnit)

	var created []string
	for i := 0; i < 5; i++ {
		card, _ := env.create(t, creator, 1_000_000, 0, nil)
		created = append(created, card.address)
	}

	cards, err := env.engine.GetCardsByCreator(env.ctx, creator)
	require.NoError(t, err)
	require.Len(t, cards, 5)
	for i, card := range cards {
		assert.Equal(t, created[i], card.Address)
	}

	cards, err = env.engine.GetCardsByCreator(env.ctx, creator, query.WithLimit(2), query.WithDirection(query.Descending))
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, created[4], cards[0].Address)
	assert.Equal(t, created[3], cards[1].Address)

	cards, err = env.engine.GetCardsByCreator(env.ctx, creator, query.WithCursor(query.ToCursor(cards[1].Id)), query.WithLimit(10))
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, created[4], cards[0].Address)

	cards, err = env.engine.GetCardsByCreator(env.ctx, newAddress(t))
	require.NoError(t, err)
	assert.Empty(t, cards)

	_, err = env.engine.GetCardsByCreator(env.ctx, creator, query.WithLimit(101))
	assert.Equal(t, query.ErrQueryNotSupported, err)
}

func TestDeposit(t *testing.T) {
	env := setup(t, nil)

	owner := newAddress(t)

	_, err := env.engine.Deposit(env.ctx, owner, 0)
	assert.Equal(t, giftcard.ErrInvalidAmount, err)

	_, err = env.engine.Deposit(env.ctx, "x", 1)
	assert.Equal(t, giftcard.ErrInvalidAddress, err)

	assert.Zero(t, env.balance(t, owner))

	account, err := env.engine.Deposit(env.ctx, owner, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 10, account.Balance)

	account, err = env.engine.Deposit(env.ctx, owner, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 15, account.Balance)
}
