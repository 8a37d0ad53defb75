package server

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/giftcard/engine"
	memory_ledger "github.com/code-payments/gift-protocol/pkg/giftcard/ledger/memory"
	"github.com/code-payments/gift-protocol/pkg/giftcard/notify"
	"github.com/code-payments/gift-protocol/pkg/giftcard/secret"
	"github.com/code-payments/gift-protocol/pkg/testutil"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*notify.GiftCardCreated
}

func (n *recordingNotifier) NotifyGiftCardCreated(_ context.Context, notification *notify.GiftCardCreated) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.sent = append(n.sent, notification)
	return fmt.Sprintf("notification-%d", len(n.sent)), nil
}

type testEnv struct {
	server   *Server
	clock    *clockwork.FakeClock
	notifier *recordingNotifier

	authority ed25519.PrivateKey
}

type wallet struct {
	key     ed25519.PrivateKey
	address string
}

func newWallet(t *testing.T) *wallet {
	pub, key, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return &wallet{key: key, address: base58.Encode(pub)}
}

func setup(t *testing.T, enableDeposits bool) *testEnv {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	e, err := engine.New(memory_ledger.New(), clock, engine.WithEnvConfigs())
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	return &testEnv{
		server:   New(e, notifier, clock, withManualTestOverrides(&testOverrides{enableDeposits: enableDeposits})),
		clock:    clock,
		notifier: notifier,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, caller *wallet, body interface{}) *httptest.ResponseRecorder {
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	if caller != nil {
		SignRequest(req.Header, caller.key, e.clock.Now(), method, path, raw)
	}

	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) *T {
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return &v
}

func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	require.Equal(t, status, w.Code, w.Body.String())
	assert.Equal(t, code, decode[errorBody](t, w).Error.Code)
}

func (e *testEnv) initialize(t *testing.T) *wallet {
	authority := newWallet(t)
	w := e.do(t, http.MethodPost, "/v1/initialize", authority, &initializeRequest{CommissionRate: 300, ReferralRate: 100})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return authority
}

func (e *testEnv) deposit(t *testing.T, owner *wallet, amount uint64) {
	w := e.do(t, http.MethodPost, "/v1/accounts/deposit", owner, &amountRequest{Amount: amount})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func newCard(t *testing.T) (string, string) {
	pub, key, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return base58.Encode(pub), secret.Encode(key)
}

func TestMain(m *testing.M) {
	testutil.DisableLogging()
	m.Run()
}

func TestGiftCardLifecycle(t *testing.T) {
	env := setup(t, true)
	env.initialize(t)

	referrer := newWallet(t)
	w := env.do(t, http.MethodPost, "/v1/referrals", referrer, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	creator := newWallet(t)
	env.deposit(t, creator, 1_000_000_000+5000)

	card, cardSecret := newCard(t)
	w = env.do(t, http.MethodPost, "/v1/cards", creator, &createGiftCardRequest{
		Card:           card,
		Amount:         1_000_000_000,
		Message:        "happy birthday",
		Referrer:       &referrer.address,
		ThemeId:        10,
		RecipientEmail: "friend@example.com",
		Secret:         cardSecret,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decode[createGiftCardResponse](t, w)
	assert.EqualValues(t, 970_000_000, created.Card.Balance)
	assert.EqualValues(t, 30_000_000, created.Commission)
	assert.EqualValues(t, 10_000_000, created.ReferralShare)
	assert.EqualValues(t, 20_000_000, created.TreasuryShare)
	assert.True(t, created.ReferralCredited)
	assert.Equal(t, "birthday", created.Card.Theme)
	assert.Equal(t, "notification-1", created.NotificationId)

	require.Len(t, env.notifier.sent, 1)
	assert.Equal(t, card, env.notifier.sent[0].Card)
	assert.Equal(t, cardSecret, env.notifier.sent[0].Secret)
	assert.EqualValues(t, 970_000_000, env.notifier.sent[0].Amount)

	w = env.do(t, http.MethodGet, "/v1/cards/"+card, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[cardView](t, w).IsRedeemed)
	assert.NotContains(t, w.Body.String(), cardSecret)

	w = env.do(t, http.MethodGet, "/v1/referrals/"+referrer.address, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 10_000_000, decode[referralView](t, w).TotalEarned)

	recipient := newWallet(t)
	w = env.do(t, http.MethodPost, "/v1/cards/"+card+"/redeem", recipient, &redeemGiftCardRequest{Secret: cardSecret})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	redeemed := decode[terminalView](t, w)
	assert.EqualValues(t, 970_000_000-5000, redeemed.Payout)
	assert.True(t, redeemed.Card.IsRedeemed)
	assert.Equal(t, "redeemed", redeemed.Card.Resolution)
	assert.Equal(t, recipient.address, redeemed.Card.RedeemedBy)

	w = env.do(t, http.MethodGet, "/v1/accounts/"+recipient.address, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 970_000_000-5000, decode[accountResponse](t, w).Balance)

	w = env.do(t, http.MethodPost, "/v1/cards/"+card+"/redeem", recipient, &redeemGiftCardRequest{Secret: cardSecret})
	requireError(t, w, http.StatusConflict, "already_redeemed")

	w = env.do(t, http.MethodGet, "/v1/stats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[statsResponse](t, w)
	assert.EqualValues(t, 1, stats.TotalGiftCards)
	assert.EqualValues(t, 30_000_000, stats.TotalCommission)
	assert.EqualValues(t, 10_000_000, stats.TotalReferralPayouts)
	assert.EqualValues(t, 20_000_000, stats.TreasuryBalance)
}

func TestReclaimAndTreasury(t *testing.T) {
	env := setup(t, true)
	authority := env.initialize(t)

	creator := newWallet(t)
	env.deposit(t, creator, 1_000_000_000+5000)

	card, _ := newCard(t)
	w := env.do(t, http.MethodPost, "/v1/cards", creator, &createGiftCardRequest{
		Card:       card,
		Amount:     1_000_000_000,
		ExpiryTime: env.clock.Now().Add(time.Hour).Unix(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	anyone := newWallet(t)
	w = env.do(t, http.MethodPost, "/v1/cards/"+card+"/reclaim", anyone, nil)
	requireError(t, w, http.StatusConflict, "not_expired_yet")

	env.clock.Advance(time.Hour)

	w = env.do(t, http.MethodPost, "/v1/cards/"+card+"/reclaim", anyone, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "reclaimed", decode[terminalView](t, w).Card.Resolution)

	w = env.do(t, http.MethodGet, "/v1/accounts/"+creator.address, nil, nil)
	assert.EqualValues(t, 970_000_000-5000, decode[accountResponse](t, w).Balance)

	w = env.do(t, http.MethodPost, "/v1/treasury/stake", anyone, &amountRequest{Amount: 10_000_000})
	requireError(t, w, http.StatusForbidden, "unauthorized")

	w = env.do(t, http.MethodPost, "/v1/treasury/stake", authority, &amountRequest{Amount: 30_000_001})
	requireError(t, w, http.StatusUnprocessableEntity, "insufficient_funds")

	w = env.do(t, http.MethodPost, "/v1/treasury/stake", authority, &amountRequest{Amount: 30_000_000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 30_000_000, decode[treasuryView](t, w).StakedAmount)

	recipients := []string{newWallet(t).address, newWallet(t).address, newWallet(t).address, newWallet(t).address}
	w = env.do(t, http.MethodPost, "/v1/treasury/distribute", authority, &distributeRewardsRequest{Recipients: recipients})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	distributed := decode[distributeRewardsResponse](t, w)
	assert.EqualValues(t, 7_500_000, distributed.Share)
	assert.Zero(t, distributed.Remainder)
}

func TestAuthentication(t *testing.T) {
	env := setup(t, true)
	caller := newWallet(t)

	w := env.do(t, http.MethodPost, "/v1/referrals", nil, nil)
	requireError(t, w, http.StatusUnauthorized, "unauthenticated")

	body := []byte(`{"amount":100}`)

	req := httptest.NewRequest(http.MethodPost, "/v1/accounts/deposit", bytes.NewReader([]byte(`{"amount":1000000}`)))
	SignRequest(req.Header, caller.key, env.clock.Now(), http.MethodPost, "/v1/accounts/deposit", body)
	w = httptest.NewRecorder()
	env.server.ServeHTTP(w, req)
	requireError(t, w, http.StatusUnauthorized, "unauthenticated")

	req = httptest.NewRequest(http.MethodPost, "/v1/accounts/deposit", bytes.NewReader(body))
	SignRequest(req.Header, caller.key, env.clock.Now().Add(-time.Hour), http.MethodPost, "/v1/accounts/deposit", body)
	w = httptest.NewRecorder()
	env.server.ServeHTTP(w, req)
	requireError(t, w, http.StatusUnauthorized, "unauthenticated")

	other := newWallet(t)
	req = httptest.NewRequest(http.MethodPost, "/v1/accounts/deposit", bytes.NewReader(body))
	SignRequest(req.Header, caller.key, env.clock.Now(), http.MethodPost, "/v1/accounts/deposit", body)
	req.Header.Set(WalletAddressHeader, other.address)
	w = httptest.NewRecorder()
	env.server.ServeHTTP(w, req)
	requireError(t, w, http.StatusUnauthorized, "unauthenticated")

	req = httptest.NewRequest(http.MethodPost, "/v1/accounts/deposit", bytes.NewReader(body))
	SignRequest(req.Header, caller.key, env.clock.Now(), http.MethodPost, "/v1/accounts/deposit", body)
	w = httptest.NewRecorder()
	env.server.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 100, decode[accountResponse](t, w).Balance)
}

func TestAuthentication_Replay(t *testing.T) {
	env := setup(t, true)
	authority := env.initialize(t)
	env.deposit(t, authority, 5_000_000)

	creator := newWallet(t)
	env.deposit(t, creator, 1_000_000_000+5000)
	card, _ := newCard(t)
	w := env.do(t, http.MethodPost, "/v1/cards", creator, &createGiftCardRequest{
		Card:       card,
		Amount:     1_000_000_000,
		ExpiryTime: env.clock.Now().Add(time.Hour).Unix(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := []byte(`{"amount":1000000}`)
	header := http.Header{}
	SignRequest(header, authority.key, env.clock.Now(), http.MethodPost, "/v1/treasury/stake", body)

	send := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
		for k, v := range header {
			req.Header[k] = v
		}
		w := httptest.NewRecorder()
		env.server.ServeHTTP(w, req)
		return w
	}

	w = send("/v1/treasury/stake")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = send("/v1/treasury/stake")
	requireError(t, w, http.StatusUnauthorized, "replayed_request")

	// The signature covers the route, so it can't be spent on another
	// endpoint taking the same body
	w = send("/v1/accounts/deposit")
	requireError(t, w, http.StatusUnauthorized, "unauthenticated")

	w = env.do(t, http.MethodGet, "/v1/stats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1_000_000, decode[statsResponse](t, w).TotalStaked)

	w = env.do(t, http.MethodGet, "/v1/accounts/"+authority.address, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 5_000_000, decode[accountResponse](t, w).Balance)

	// Identical requests signed separately are distinct
	w = env.do(t, http.MethodPost, "/v1/treasury/stake", authority, &amountRequest{Amount: 1_000_000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.do(t, http.MethodPost, "/v1/treasury/stake", authority, &amountRequest{Amount: 1_000_000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAuthentication_MethodBound(t *testing.T) {
	env := setup(t, true)
	caller := newWallet(t)

	body := []byte(`{"amount":100}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/accounts/deposit", bytes.NewReader(body))
	SignRequest(req.Header, caller.key, env.clock.Now(), http.MethodPut, "/v1/accounts/deposit", body)
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)
	requireError(t, w, http.StatusUnauthorized, "unauthenticated")

	req = httptest.NewRequest(http.MethodPost, "/v1/accounts/deposit", bytes.NewReader(body))
	SignRequest(req.Header, caller.key, env.clock.Now(), http.MethodPost, "/v1/accounts/deposit", body)
	req.Header.Del(WalletNonceHeader)
	w = httptest.NewRecorder()
	env.server.ServeHTTP(w, req)
	requireError(t, w, http.StatusUnauthorized, "unauthenticated")
}

func TestErrorMapping(t *testing.T) {
	env := setup(t, false)

	caller := newWallet(t)
	card, cardSecret := newCard(t)

	w := env.do(t, http.MethodGet, "/v1/config", nil, nil)
	requireError(t, w, http.StatusConflict, "not_initialized")

	// 65836 would wrap to a valid 300 basis points if narrowed unchecked
	w = env.do(t, http.MethodPost, "/v1/initialize", newWallet(t), &initializeRequest{CommissionRate: 65_836, ReferralRate: 100})
	requireError(t, w, http.StatusBadRequest, "invalid_rate_configuration")

	w = env.do(t, http.MethodPost, "/v1/initialize", newWallet(t), &initializeRequest{CommissionRate: 300, ReferralRate: 65_636})
	requireError(t, w, http.StatusBadRequest, "invalid_rate_configuration")

	w = env.do(t, http.MethodGet, "/v1/config", nil, nil)
	requireError(t, w, http.StatusConflict, "not_initialized")

	env.initialize(t)

	w = env.do(t, http.MethodGet, "/v1/cards/"+card, nil, nil)
	requireError(t, w, http.StatusNotFound, "card_not_found")

	w = env.do(t, http.MethodGet, "/v1/cards/not-an-address", nil, nil)
	requireError(t, w, http.StatusBadRequest, "invalid_address")

	w = env.do(t, http.MethodGet, "/v1/referrals/"+caller.address, nil, nil)
	requireError(t, w, http.StatusNotFound, "referral_not_found")

	w = env.do(t, http.MethodPost, "/v1/accounts/deposit", caller, &amountRequest{Amount: 1})
	requireError(t, w, http.StatusNotFound, "feature_disabled")

	w = env.do(t, http.MethodPost, "/v1/cards", caller, map[string]interface{}{"card": card, "amount": 1, "unknown": true})
	requireError(t, w, http.StatusBadRequest, "invalid_request")

	w = env.do(t, http.MethodPost, "/v1/cards", caller, &createGiftCardRequest{Card: card, Amount: 1_000_000})
	requireError(t, w, http.StatusUnprocessableEntity, "insufficient_funds")

	w = env.do(t, http.MethodPost, "/v1/cards", caller, &createGiftCardRequest{Card: card, Amount: 0})
	requireError(t, w, http.StatusBadRequest, "invalid_amount")

	other, otherSecret := newCard(t)
	w = env.do(t, http.MethodPost, "/v1/cards", caller, &createGiftCardRequest{
		Card:           other,
		Amount:         1_000_000,
		RecipientEmail: "friend@example.com",
		Secret:         cardSecret,
	})
	requireError(t, w, http.StatusForbidden, "unauthorized")

	w = env.do(t, http.MethodPost, "/v1/cards/"+card+"/redeem", caller, &redeemGiftCardRequest{Secret: "not a secret"})
	requireError(t, w, http.StatusBadRequest, "malformed_secret")

	w = env.do(t, http.MethodPost, "/v1/cards/"+card+"/redeem", caller, &redeemGiftCardRequest{Secret: otherSecret})
	requireError(t, w, http.StatusForbidden, "unauthorized")

	w = env.do(t, http.MethodGet, "/v1/creators/"+caller.address+"/cards?limit=1000", nil, nil)
	requireError(t, w, http.StatusBadRequest, "invalid_query")

	w = env.do(t, http.MethodGet, "/v1/creators/"+caller.address+"/cards?order=sideways", nil, nil)
	requireError(t, w, http.StatusBadRequest, "invalid_request")
}

func TestStatusFor(t *testing.T) {
	for _, tc := range []struct {
		err    error
		status int
		code   string
		kind   string
	}{
		{errors.Wrap(giftcard.ErrSubmissionRejected, "insufficient funds for fee"), http.StatusUnprocessableEntity, "rejected_by_validation", "rejected"},
		{giftcard.ErrAlreadyRedeemed, http.StatusConflict, "already_redeemed", "state_conflict"},
		{giftcard.ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds", "resource"},
		{&giftcard.OutcomeAmbiguousError{Signature: "5xyz"}, http.StatusServiceUnavailable, "outcome_ambiguous", "ambiguous"},
		{errReplayedRequest, http.StatusUnauthorized, "replayed_request", "validation"},
		{errors.New("boom"), http.StatusInternalServerError, "internal", "internal"},
	} {
		status, code, kind := statusFor(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
		assert.Equal(t, tc.kind, kind, tc.err.Error())
	}
}

func TestGetCardsByCreator(t *testing.T) {
	env := setup(t, true)
	env.initialize(t)

	creator := newWallet(t)
	env.deposit(t, creator, 5*(1_000_000+5000))

	var cards []string
	for i := 0; i < 5; i++ {
		card, _ := newCard(t)
		w := env.do(t, http.MethodPost, "/v1/cards", creator, &createGiftCardRequest{Card: card, Amount: 1_000_000})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		cards = append(cards, card)
	}

	var listed []string
	path := "/v1/creators/" + creator.address + "/cards?limit=2"
	for {
		w := env.do(t, http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		page := decode[cardPageView](t, w)
		if len(page.Cards) == 0 {
			assert.Empty(t, page.NextCursor)
			break
		}
		assert.LessOrEqual(t, len(page.Cards), 2)
		for _, card := range page.Cards {
			listed = append(listed, card.Address)
		}
		path = "/v1/creators/" + creator.address + "/cards?limit=2&cursor=" + page.NextCursor
	}
	assert.Equal(t, cards, listed)

	w := env.do(t, http.MethodGet, "/v1/creators/"+creator.address+"/cards?order=desc&limit=1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[cardPageView](t, w)
	require.Len(t, page.Cards, 1)
	assert.Equal(t, cards[4], page.Cards[0].Address)
}

func TestHealth(t *testing.T) {
	env := setup(t, false)

	w := env.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGovernance(t *testing.T) {
	env := setup(t, false)
	authority := env.initialize(t)

	alice := newWallet(t)
	bob := newWallet(t)

	w := env.do(t, http.MethodPost, "/v1/proposals", alice, &createProposalRequest{
		Title:         "Next theme",
		Description:   "Pick the seasonal card theme",
		Choices:       []string{"ocean", "forest"},
		VotingEndTime: env.clock.Now().Add(time.Hour).Unix(),
	})
	requireError(t, w, http.StatusConflict, "governance_not_enabled")

	mint := newWallet(t).address
	w = env.do(t, http.MethodPost, "/v1/governance/token", alice, &createGovernanceTokenRequest{Mint: mint})
	requireError(t, w, http.StatusForbidden, "unauthorized")

	w = env.do(t, http.MethodPost, "/v1/governance/token", authority, &createGovernanceTokenRequest{Mint: mint})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, mint, *decode[configView](t, w).GovernanceTokenMint)

	w = env.do(t, http.MethodPost, "/v1/governance/token", authority, &createGovernanceTokenRequest{Mint: mint})
	requireError(t, w, http.StatusConflict, "governance_token_exists")

	w = env.do(t, http.MethodPost, "/v1/governance/grant", authority, &governanceTransferRequest{Recipient: alice.address, Amount: 300})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/v1/governance/transfer", alice, &governanceTransferRequest{Recipient: bob.address, Amount: 100})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 100, decode[holdingResponse](t, w).Balance)

	w = env.do(t, http.MethodGet, "/v1/governance/holdings/"+alice.address, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 200, decode[holdingResponse](t, w).Balance)

	w = env.do(t, http.MethodPost, "/v1/proposals", alice, &createProposalRequest{
		Title:         "Next theme",
		Description:   "Pick the seasonal card theme",
		Choices:       []string{"ocean"},
		VotingEndTime: env.clock.Now().Add(time.Hour).Unix(),
	})
	requireError(t, w, http.StatusBadRequest, "invalid_proposal")

	w = env.do(t, http.MethodPost, "/v1/proposals", alice, &createProposalRequest{
		Title:         "Next theme",
		Description:   "Pick the seasonal card theme",
		Choices:       []string{"ocean", "forest"},
		VotingEndTime: env.clock.Now().Add(time.Hour).Unix(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.EqualValues(t, 0, decode[proposalView](t, w).ProposalId)

	// Choices past a byte never reach the engine as a wrapped index
	w = env.do(t, http.MethodPost, "/v1/proposals/0/vote", alice, &voteRequest{Choice: 256})
	requireError(t, w, http.StatusBadRequest, "invalid_choice")

	w = env.do(t, http.MethodPost, "/v1/proposals/0/vote", alice, &voteRequest{Choice: 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/v1/proposals/0/vote", bob, &voteRequest{Choice: 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	voted := decode[voteResponse](t, w)
	assert.Equal(t, []uint64{200, 100}, voted.Proposal.VoteCounts)
	assert.EqualValues(t, 100, voted.Vote.Weight)

	w = env.do(t, http.MethodGet, "/v1/proposals/0/votes/"+bob.address, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode[voteView](t, w).Choice)

	w = env.do(t, http.MethodPost, "/v1/proposals/0/finalize", bob, nil)
	requireError(t, w, http.StatusConflict, "voting_active")

	env.clock.Advance(time.Hour)

	w = env.do(t, http.MethodPost, "/v1/proposals/0/finalize", bob, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	finalized := decode[proposalView](t, w)
	assert.True(t, finalized.IsFinalized)
	require.NotNil(t, finalized.WinningChoice)
	assert.EqualValues(t, 0, *finalized.WinningChoice)

	w = env.do(t, http.MethodGet, "/v1/proposals/1", nil, nil)
	requireError(t, w, http.StatusNotFound, "proposal_not_found")

	w = env.do(t, http.MethodGet, "/v1/proposals/abc", nil, nil)
	requireError(t, w, http.StatusBadRequest, "invalid_request")
}
