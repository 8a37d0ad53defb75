package giftcard

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind groups errors by what a caller should do about them.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindStateConflict
	KindResource
	KindNotFound
	KindAmbiguous

	// KindRejected is a definitive refusal by the network. Nothing committed,
	// and resubmitting the same transaction fails the same way.
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStateConflict:
		return "state_conflict"
	case KindResource:
		return "resource"
	case KindNotFound:
		return "not_found"
	case KindAmbiguous:
		return "ambiguous"
	case KindRejected:
		return "rejected"
	default:
		return "internal"
	}
}

var (
	ErrInvalidAmount            = errors.New("amount must be positive")
	ErrMessageTooLong           = errors.New("message too long")
	ErrInvalidExpiry            = errors.New("expiry time is in the past")
	ErrInvalidRateConfiguration = errors.New("invalid commission or referral rate")
	ErrInvalidReferrer          = errors.New("referrer cannot be the creator")
	ErrInvalidRecipients        = errors.New("recipients must be non-empty and unique")
	ErrInvalidAddress           = errors.New("invalid address")
	ErrUnsupportedMint          = errors.New("token gift cards are not supported")
	ErrUnauthorized             = errors.New("unauthorized")
	ErrMalformedSecret          = errors.New("malformed card secret")
	ErrInvalidProposal          = errors.New("invalid proposal")
	ErrInvalidChoice            = errors.New("invalid choice index")

	ErrAlreadyInitialized    = errors.New("protocol already initialized")
	ErrNotInitialized        = errors.New("protocol not initialized")
	ErrCardAlreadyExists     = errors.New("gift card already exists")
	ErrAlreadyRedeemed       = errors.New("gift card already redeemed")
	ErrCardExpired           = errors.New("gift card expired")
	ErrNotExpiredYet         = errors.New("gift card not expired yet")
	ErrReferralAlreadyExists = errors.New("referral already exists")
	ErrGovernanceTokenExists = errors.New("governance token already created")
	ErrGovernanceNotEnabled  = errors.New("governance token not created")
	ErrProposalFinalized     = errors.New("proposal already finalized")
	ErrVotingEnded           = errors.New("proposal voting period ended")
	ErrVotingActive          = errors.New("proposal voting period still active")

	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrInsufficientCardBalance = errors.New("card balance does not cover the fee reserve")
	ErrNoVotingPower           = errors.New("no governance tokens held")

	ErrCardNotFound     = errors.New("gift card not found")
	ErrReferralNotFound = errors.New("referral not found")
	ErrProposalNotFound = errors.New("proposal not found")
	ErrVoteNotFound     = errors.New("vote not found")

	ErrSubmissionRejected = errors.New("transaction rejected by validation")
	ErrSubmissionTimeout  = errors.New("transaction submission timed out")
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrOutcomeAmbiguous   = errors.New("transaction outcome unknown")

	ErrSigningRejected    = errors.New("signing rejected")
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
)

// OutcomeAmbiguousError is returned when a submitted transaction could be
// neither confirmed nor ruled out. Signature can be used to check again later.
type OutcomeAmbiguousError struct {
	Signature string

	// Cause is the transient error that left the outcome open, usually
	// ErrSubmissionTimeout or ErrNetworkUnavailable
	Cause error
}

func (e *OutcomeAmbiguousError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", ErrOutcomeAmbiguous.Error(), e.Signature, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrOutcomeAmbiguous.Error(), e.Signature)
}

func (e *OutcomeAmbiguousError) Unwrap() error {
	return ErrOutcomeAmbiguous
}

type classification struct {
	kind   Kind
	reason string
}

var classifications = []struct {
	err error
	classification
}{
	{ErrInvalidAmount, classification{KindValidation, "invalid_amount"}},
	{ErrMessageTooLong, classification{KindValidation, "message_too_long"}},
	{ErrInvalidExpiry, classification{KindValidation, "invalid_expiry"}},
	{ErrInvalidRateConfiguration, classification{KindValidation, "invalid_rate_configuration"}},
	{ErrInvalidReferrer, classification{KindValidation, "invalid_referrer"}},
	{ErrInvalidRecipients, classification{KindValidation, "invalid_recipients"}},
	{ErrInvalidAddress, classification{KindValidation, "invalid_address"}},
	{ErrUnsupportedMint, classification{KindValidation, "unsupported_mint"}},
	{ErrUnauthorized, classification{KindValidation, "unauthorized"}},
	{ErrMalformedSecret, classification{KindValidation, "malformed_secret"}},
	{ErrSigningRejected, classification{KindValidation, "signing_rejected"}},
	{ErrInvalidProposal, classification{KindValidation, "invalid_proposal"}},
	{ErrInvalidChoice, classification{KindValidation, "invalid_choice"}},

	{ErrAlreadyInitialized, classification{KindStateConflict, "already_initialized"}},
	{ErrNotInitialized, classification{KindStateConflict, "not_initialized"}},
	{ErrCardAlreadyExists, classification{KindStateConflict, "card_already_exists"}},
	{ErrAlreadyRedeemed, classification{KindStateConflict, "already_redeemed"}},
	{ErrCardExpired, classification{KindStateConflict, "card_expired"}},
	{ErrNotExpiredYet, classification{KindStateConflict, "not_expired_yet"}},
	{ErrReferralAlreadyExists, classification{KindStateConflict, "referral_already_exists"}},
	{ErrGovernanceTokenExists, classification{KindStateConflict, "governance_token_exists"}},
	{ErrGovernanceNotEnabled, classification{KindStateConflict, "governance_not_enabled"}},
	{ErrProposalFinalized, classification{KindStateConflict, "proposal_finalized"}},
	{ErrVotingEnded, classification{KindStateConflict, "voting_ended"}},
	{ErrVotingActive, classification{KindStateConflict, "voting_active"}},

	{ErrInsufficientFunds, classification{KindResource, "insufficient_funds"}},
	{ErrInsufficientCardBalance, classification{KindResource, "insufficient_card_balance"}},
	{ErrNoVotingPower, classification{KindResource, "no_voting_power"}},

	{ErrCardNotFound, classification{KindNotFound, "card_not_found"}},
	{ErrReferralNotFound, classification{KindNotFound, "referral_not_found"}},
	{ErrProposalNotFound, classification{KindNotFound, "proposal_not_found"}},
	{ErrVoteNotFound, classification{KindNotFound, "vote_not_found"}},

	{ErrSubmissionRejected, classification{KindRejected, "rejected_by_validation"}},

	{ErrOutcomeAmbiguous, classification{KindAmbiguous, "outcome_ambiguous"}},
	{ErrSubmissionTimeout, classification{KindAmbiguous, "timeout"}},
	{ErrNetworkUnavailable, classification{KindAmbiguous, "network_unavailable"}},

	{ErrArithmeticOverflow, classification{KindInternal, "arithmetic_overflow"}},
}

func classify(err error) classification {
	if err == nil {
		return classification{KindInternal, ""}
	}
	for _, c := range classifications {
		if errors.Is(err, c.err) {
			return c.classification
		}
	}
	return classification{KindInternal, "internal"}
}

// KindOf returns the Kind of err, KindInternal for unknown errors.
func KindOf(err error) Kind {
	return classify(err).kind
}

// ReasonCode returns a stable snake_case code for err. Unknown errors map to
// "internal" and nil maps to the empty string.
func ReasonCode(err error) string {
	return classify(err).reason
}
