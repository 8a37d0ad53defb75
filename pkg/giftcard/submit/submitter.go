// Package submit drives a signed transaction to a definite outcome. A
// transaction that can't be confirmed in time is never reported as failed
// until its signature status has been checked again.
package submit

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"

	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/metrics"
	"github.com/code-payments/gift-protocol/pkg/retry"
	"github.com/code-payments/gift-protocol/pkg/retry/backoff"
	"github.com/code-payments/gift-protocol/pkg/solana"
)

// State is the position of a submission in its lifecycle
type State uint8

const (
	StateUnknown State = iota
	StateSubmitted
	StateConfirmed
	StateTimedOutPendingStatusCheck
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StateConfirmed:
		return "confirmed"
	case StateTimedOutPendingStatusCheck:
		return "timed_out_pending_status_check"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// IsTerminal is true for states a submission never leaves
func (s State) IsTerminal() bool {
	return s == StateConfirmed || s == StateFailed
}

var errStatusPending = errors.New("signature status pending")

// Result is the last known state of a submission. It is returned alongside
// any error so callers always learn the signature.
type Result struct {
	Signature solana.Signature
	State     State
	Slot      uint64

	// StatusChecks counts the polls made after the confirmation window closed
	StatusChecks int

	// Cause is the error that moved the submission out of StateSubmitted,
	// if any
	Cause error
}

type Submitter struct {
	log    *logrus.Entry
	conf   *conf
	client solana.Client
	clock  clockwork.Clock
}

// New returns a Submitter sending through client. A nil clock uses the real
// clock.
func New(client solana.Client, clock clockwork.Clock, configProvider ConfigProvider) *Submitter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Submitter{
		log:    logrus.StandardLogger().WithField("type", "giftcard/submit"),
		conf:   configProvider(),
		client: client,
		clock:  clock,
	}
}

// Submit sends txn and waits for it to be confirmed.
//
// A transaction the node rejects outright fails with ErrSubmissionRejected.
// When confirmation doesn't arrive in time, or the node can't be reached,
// the submission moves to StateTimedOutPendingStatusCheck and its status is
// polled a bounded number of times. If that still doesn't settle it, a
// *giftcard.OutcomeAmbiguousError carrying the signature is returned.
func (s *Submitter) Submit(ctx context.Context, txn solana.Transaction) (result *Result, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Submit")
	defer tracer.End()

	result = &Result{
		Signature: txn.Signature(),
		State:     StateSubmitted,
	}

	log := s.log.WithFields(logrus.Fields{
		"method":    "Submit",
		"signature": result.Signature.String(),
	})

	defer func() {
		tracer.OnError(err)
		recordOutcomeEvent(ctx, result)
	}()

	_, err = s.client.SubmitTransaction(txn, solana.CommitmentConfirmed)
	if err != nil {
		cause, rejected := classifySubmitError(err)
		if rejected {
			log.WithError(err).Info("transaction rejected")
			return s.fail(result, err)
		}

		log.WithError(err).Warn("transaction submission outcome unknown")
		result.State = StateTimedOutPendingStatusCheck
		result.Cause = cause
		return s.checkStatus(ctx, log, result)
	}

	log.Debug("transaction submitted")

	if err := s.awaitConfirmation(ctx, result); err != nil {
		return result, err
	}
	if result.State.IsTerminal() {
		if result.State == StateFailed {
			return result, result.Cause
		}
		log.Debug("transaction confirmed")
		return result, nil
	}

	log.Warn("transaction not confirmed in time")
	return s.checkStatus(ctx, log, result)
}

// awaitConfirmation polls the signature until it settles or the confirmation
// window closes, leaving the submission in StateTimedOutPendingStatusCheck
// for the latter.
func (s *Submitter) awaitConfirmation(ctx context.Context, result *Result) error {
	pollInterval := s.conf.confirmPollInterval.Get(ctx)
	deadline := s.clock.Now().Add(s.conf.confirmTimeout.Get(ctx))

	for {
		if s.settle(result) {
			return nil
		}

		if !s.clock.Now().Before(deadline) {
			result.State = StateTimedOutPendingStatusCheck
			result.Cause = giftcard.ErrSubmissionTimeout
			return nil
		}

		select {
		case <-ctx.Done():
			result.State = StateTimedOutPendingStatusCheck
			result.Cause = ctx.Err()
			return &giftcard.OutcomeAmbiguousError{
				Signature: result.Signature.String(),
				Cause:     ctx.Err(),
			}
		case <-s.clock.After(pollInterval):
		}
	}
}

// checkStatus runs the bounded status checks of a submission that is
// pending a status check.
func (s *Submitter) checkStatus(ctx context.Context, log *logrus.Entry, result *Result) (*Result, error) {
	limit := s.conf.statusCheckLimit.Get(ctx)
	if limit == 0 {
		limit = 1
	}
	interval := s.conf.statusCheckInterval.Get(ctx)

	_, err := retry.Retry(
		func() error {
			result.StatusChecks++
			if s.settle(result) {
				return nil
			}
			return errStatusPending
		},
		retry.RetriableErrors(errStatusPending),
		retry.Limit(uint(limit)),
		retry.ContextActive(ctx),
		retry.Backoff(backoff.Constant(interval), interval),
	)

	switch {
	case err == nil && result.State == StateConfirmed:
		log.WithField("status_checks", result.StatusChecks).Info("transaction confirmed after status check")
		return result, nil
	case err == nil && result.State == StateFailed:
		log.WithError(result.Cause).Info("transaction failed after status check")
		return result, result.Cause
	}

	log.WithField("status_checks", result.StatusChecks).Warn("transaction outcome is ambiguous")
	return result, &giftcard.OutcomeAmbiguousError{
		Signature: result.Signature.String(),
		Cause:     result.Cause,
	}
}

// settle fetches the signature status once and reports whether it moved the
// submission to a terminal state. Lookup errors leave the state unchanged.
func (s *Submitter) settle(result *Result) bool {
	statuses, err := s.client.GetSignatureStatuses([]solana.Signature{result.Signature})
	if err != nil || len(statuses) == 0 || statuses[0] == nil {
		return false
	}

	status := statuses[0]
	result.Slot = status.Slot

	if status.ErrorResult != nil {
		s.fail(result, status.ErrorResult)
		return true
	}

	if status.Confirmed() {
		result.State = StateConfirmed
		result.Cause = nil
		return true
	}

	return false
}

func (s *Submitter) fail(result *Result, err error) (*Result, error) {
	result.State = StateFailed
	result.Cause = errors.Wrap(giftcard.ErrSubmissionRejected, err.Error())
	return result, result.Cause
}

// classifySubmitError decides whether a send error is a definite rejection.
// Otherwise it returns the transient cause to record.
func classifySubmitError(err error) (cause error, rejected bool) {
	var txErr *solana.TransactionError
	if errors.As(err, &txErr) {
		// The transaction already landed on an earlier send
		if txErr.ErrorKey() == solana.TransactionErrorAlreadyProcessed {
			return giftcard.ErrSubmissionTimeout, false
		}
		return nil, true
	}

	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return nil, true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return giftcard.ErrSubmissionTimeout, false
	}
	return giftcard.ErrNetworkUnavailable, false
}

// Resolve checks the status of a signature previously reported as ambiguous.
// It makes a single attempt and never resubmits.
func (s *Submitter) Resolve(ctx context.Context, sig solana.Signature) (*Result, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "Resolve").End()

	result := &Result{
		Signature: sig,
		State:     StateTimedOutPendingStatusCheck,
		Cause:     giftcard.ErrSubmissionTimeout,
	}
	result.StatusChecks++

	if !s.settle(result) {
		return result, &giftcard.OutcomeAmbiguousError{Signature: sig.String(), Cause: result.Cause}
	}
	if result.State == StateFailed {
		return result, result.Cause
	}
	return result, nil
}
