package submit

import (
	"context"
	"crypto/ed25519"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ybbus/jsonrpc"

	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/solana"
	"github.com/code-payments/gift-protocol/pkg/solana/system"
)

var (
	zero, one = 0, 1

	pending   = &solana.SignatureStatus{Slot: 10, Confirmations: &zero, ConfirmationStatus: "processed"}
	confirmed = &solana.SignatureStatus{Slot: 11, Confirmations: &one, ConfirmationStatus: "confirmed"}
	failed    = &solana.SignatureStatus{Slot: 12, Confirmations: &one, ErrorResult: solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForFee)}
)

type fakeClient struct {
	mu sync.Mutex

	submitErr error
	submitted int

	// statuses are returned one per call, the last one repeating
	statuses    []*solana.SignatureStatus
	statusErr   error
	statusCalls int
}

func (c *fakeClient) SubmitTransaction(txn solana.Transaction, _ solana.Commitment) (solana.Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.submitted++
	return txn.Signature(), c.submitErr
}

func (c *fakeClient) GetSignatureStatuses(sigs []solana.Signature) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.statusCalls++
	if c.statusErr != nil {
		return nil, c.statusErr
	}
	if len(c.statuses) == 0 {
		return make([]*solana.SignatureStatus, len(sigs)), nil
	}

	index := c.statusCalls - 1
	if index >= len(c.statuses) {
		index = len(c.statuses) - 1
	}
	return []*solana.SignatureStatus{c.statuses[index]}, nil
}

func (c *fakeClient) calls() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitted, c.statusCalls
}

func (c *fakeClient) GetAccountInfo(ed25519.PublicKey, solana.Commitment) (solana.AccountInfo, error) {
	return solana.AccountInfo{}, solana.ErrNoAccountInfo
}

func (c *fakeClient) GetBalance(ed25519.PublicKey) (uint64, error) {
	return 0, solana.ErrNoBalance
}

func (c *fakeClient) GetLatestBlockhash() (solana.Blockhash, error) {
	return solana.Blockhash{1}, nil
}

func (c *fakeClient) GetMinimumBalanceForRentExemption(uint64) (uint64, error) {
	return 890880, nil
}

func (c *fakeClient) GetSignatureStatus(solana.Signature, solana.Commitment) (*solana.SignatureStatus, error) {
	return nil, solana.ErrSignatureNotFound
}

func (c *fakeClient) RequestAirdrop(ed25519.PublicKey, uint64, solana.Commitment) (solana.Signature, error) {
	return solana.Signature{}, errors.New("not supported")
}

func setup(t *testing.T, client *fakeClient, overrides *testOverrides) (*Submitter, solana.Transaction) {
	if overrides == nil {
		overrides = &testOverrides{
			confirmTimeout:      0,
			confirmPollInterval: time.Millisecond,
			statusCheckLimit:    3,
			statusCheckInterval: time.Millisecond,
		}
	}

	pub, key, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	txn := solana.NewTransaction(pub, system.Transfer(pub, make([]byte, 32), 1))
	txn.SetBlockhash(solana.Blockhash{1})
	require.NoError(t, txn.Sign(key))

	return New(client, nil, withManualTestOverrides(overrides)), txn
}

func TestSubmit_Confirmed(t *testing.T) {
	client := &fakeClient{statuses: []*solana.SignatureStatus{confirmed}}
	submitter, txn := setup(t, client, nil)

	result, err := submitter.Submit(context.Background(), txn)
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, result.State)
	assert.Equal(t, txn.Signature(), result.Signature)
	assert.EqualValues(t, 11, result.Slot)
	assert.Zero(t, result.StatusChecks)
	assert.NoError(t, result.Cause)

	submitted, statusCalls := client.calls()
	assert.Equal(t, 1, submitted)
	assert.Equal(t, 1, statusCalls)
}

func TestSubmit_ConfirmedWithinWindow(t *testing.T) {
	client := &fakeClient{statuses: []*solana.SignatureStatus{nil, pending, pending, confirmed}}
	submitter, txn := setup(t, client, &testOverrides{
		confirmTimeout:      time.Minute,
		confirmPollInterval: time.Millisecond,
		statusCheckLimit:    1,
		statusCheckInterval: time.Millisecond,
	})

	result, err := submitter.Submit(context.Background(), txn)
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, result.State)
	assert.Zero(t, result.StatusChecks)

	_, statusCalls := client.calls()
	assert.Equal(t, 4, statusCalls)
}

func TestSubmit_Rejected(t *testing.T) {
	for _, submitErr := range []error{
		solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForFee),
		&jsonrpc.RPCError{Code: -32602, Message: "invalid transaction"},
	} {
		client := &fakeClient{submitErr: submitErr}
		submitter, txn := setup(t, client, nil)

		result, err := submitter.Submit(context.Background(), txn)
		assert.True(t, errors.Is(err, giftcard.ErrSubmissionRejected))
		assert.Equal(t, giftcard.KindRejected, giftcard.KindOf(err))
		assert.Equal(t, StateFailed, result.State)

		_, statusCalls := client.calls()
		assert.Zero(t, statusCalls)
	}
}

func TestSubmit_FailedOnChain(t *testing.T) {
	client := &fakeClient{statuses: []*solana.SignatureStatus{failed}}
	submitter, txn := setup(t, client, nil)

	result, err := submitter.Submit(context.Background(), txn)
	assert.True(t, errors.Is(err, giftcard.ErrSubmissionRejected))
	assert.Contains(t, err.Error(), string(solana.TransactionErrorInsufficientFundsForFee))
	assert.Equal(t, StateFailed, result.State)
	assert.EqualValues(t, 12, result.Slot)
}

func TestSubmit_TimeoutResolvedByStatusCheck(t *testing.T) {
	client := &fakeClient{statuses: []*solana.SignatureStatus{nil, pending, confirmed}}
	submitter, txn := setup(t, client, nil)

	result, err := submitter.Submit(context.Background(), txn)
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, result.State)
	assert.Equal(t, 2, result.StatusChecks)

	client = &fakeClient{statuses: []*solana.SignatureStatus{pending, failed}}
	submitter, txn = setup(t, client, nil)

	result, err = submitter.Submit(context.Background(), txn)
	assert.True(t, errors.Is(err, giftcard.ErrSubmissionRejected))
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, 1, result.StatusChecks)
}

func TestSubmit_Ambiguous(t *testing.T) {
	client := &fakeClient{}
	submitter, txn := setup(t, client, nil)

	result, err := submitter.Submit(context.Background(), txn)
	require.Error(t, err)
	assert.True(t, errors.Is(err, giftcard.ErrOutcomeAmbiguous))
	assert.Equal(t, giftcard.KindAmbiguous, giftcard.KindOf(err))
	assert.Equal(t, StateTimedOutPendingStatusCheck, result.State)
	assert.Equal(t, giftcard.ErrSubmissionTimeout, result.Cause)
	assert.Equal(t, 3, result.StatusChecks)

	var ambiguous *giftcard.OutcomeAmbiguousError
	require.True(t, errors.As(err, &ambiguous))
	assert.Equal(t, txn.Signature().String(), ambiguous.Signature)
	assert.Equal(t, giftcard.ErrSubmissionTimeout, ambiguous.Cause)

	// One lookup inside the confirmation window plus the bounded checks
	_, statusCalls := client.calls()
	assert.Equal(t, 4, statusCalls)
}

func TestSubmit_StatusLookupErrors(t *testing.T) {
	client := &fakeClient{statusErr: errors.New("connection reset")}
	submitter, txn := setup(t, client, nil)

	result, err := submitter.Submit(context.Background(), txn)
	assert.True(t, errors.Is(err, giftcard.ErrOutcomeAmbiguous))
	assert.Equal(t, StateTimedOutPendingStatusCheck, result.State)
	assert.Equal(t, 3, result.StatusChecks)
}

func TestSubmit_NetworkUnavailable(t *testing.T) {
	client := &fakeClient{submitErr: errors.New("dial tcp: connection refused")}
	submitter, txn := setup(t, client, nil)

	result, err := submitter.Submit(context.Background(), txn)
	assert.True(t, errors.Is(err, giftcard.ErrOutcomeAmbiguous))
	assert.Equal(t, giftcard.ErrNetworkUnavailable, result.Cause)
	assert.Equal(t, 3, result.StatusChecks)

	var ambiguous *giftcard.OutcomeAmbiguousError
	require.True(t, errors.As(err, &ambiguous))
	assert.Equal(t, giftcard.ErrNetworkUnavailable, ambiguous.Cause)

	// The send may have reached the node regardless
	client = &fakeClient{
		submitErr: errors.New("dial tcp: i/o timeout"),
		statuses:  []*solana.SignatureStatus{confirmed},
	}
	submitter, txn = setup(t, client, nil)

	result, err = submitter.Submit(context.Background(), txn)
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, result.State)
	assert.Equal(t, 1, result.StatusChecks)
}

func TestSubmit_AlreadyProcessed(t *testing.T) {
	client := &fakeClient{
		submitErr: solana.NewTransactionError(solana.TransactionErrorAlreadyProcessed),
		statuses:  []*solana.SignatureStatus{confirmed},
	}
	submitter, txn := setup(t, client, nil)

	result, err := submitter.Submit(context.Background(), txn)
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, result.State)
}

func TestSubmit_ContextCancelled(t *testing.T) {
	client := &fakeClient{statuses: []*solana.SignatureStatus{pending}}
	submitter, txn := setup(t, client, &testOverrides{
		confirmTimeout:      time.Minute,
		confirmPollInterval: time.Millisecond,
		statusCheckLimit:    3,
		statusCheckInterval: time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result, err := submitter.Submit(ctx, txn)
	assert.True(t, errors.Is(err, giftcard.ErrOutcomeAmbiguous))
	assert.Equal(t, StateTimedOutPendingStatusCheck, result.State)
	assert.Equal(t, context.DeadlineExceeded, result.Cause)
}

func TestResolve(t *testing.T) {
	client := &fakeClient{}
	submitter, txn := setup(t, client, nil)

	result, err := submitter.Resolve(context.Background(), txn.Signature())
	assert.True(t, errors.Is(err, giftcard.ErrOutcomeAmbiguous))
	assert.Equal(t, StateTimedOutPendingStatusCheck, result.State)

	client.statuses = []*solana.SignatureStatus{confirmed}
	result, err = submitter.Resolve(context.Background(), txn.Signature())
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, result.State)

	client.statuses = []*solana.SignatureStatus{failed}
	_, err = submitter.Resolve(context.Background(), txn.Signature())
	assert.True(t, errors.Is(err, giftcard.ErrSubmissionRejected))
}

func TestState(t *testing.T) {
	assert.True(t, StateConfirmed.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
	assert.False(t, StateSubmitted.IsTerminal())
	assert.False(t, StateTimedOutPendingStatusCheck.IsTerminal())
	assert.Equal(t, "timed_out_pending_status_check", StateTimedOutPendingStatusCheck.String())
	assert.Equal(t, "unknown", State(42).String())
}
