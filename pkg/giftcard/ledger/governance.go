package ledger

import (
	"time"

	"github.com/pkg/errors"
)

const (
	MinProposalChoices = 2
	MaxProposalChoices = 10
)

// Holding is the governance token balance of an owner
type Holding struct {
	Id uint64

	Owner   string
	Balance uint64

	LastUpdatedAt time.Time
}

// Proposal is a governance vote between a fixed set of choices, tallied by
// token weight
type Proposal struct {
	Id uint64

	ProposalId  uint64
	Creator     string
	Title       string
	Description string
	Choices     []string

	// VoteCounts has one weighted tally per choice
	VoteCounts []uint64
	TotalVotes uint64

	VotingEndTime int64
	IsFinalized   bool
	WinningChoice *uint8

	CreatedAt time.Time
}

// Vote is the standing choice of one voter on one proposal
type Vote struct {
	Id uint64

	ProposalId uint64
	Voter      string
	Choice     uint8
	Weight     uint64

	Timestamp time.Time
}

func (r *Holding) Validate() error {
	if len(r.Owner) == 0 {
		return errors.New("owner is required")
	}
	return nil
}

func (r *Holding) Clone() Holding {
	return *r
}

func (r *Holding) CopyTo(dst *Holding) {
	*dst = *r
}

func (r *Proposal) Validate() error {
	if len(r.Creator) == 0 {
		return errors.New("creator is required")
	}
	if len(r.Title) == 0 {
		return errors.New("title is required")
	}
	if len(r.Choices) < MinProposalChoices || len(r.Choices) > MaxProposalChoices {
		return errors.New("invalid number of choices")
	}
	if len(r.VoteCounts) != len(r.Choices) {
		return errors.New("vote counts must match choices")
	}

	var total uint64
	for _, count := range r.VoteCounts {
		total += count
	}
	if total != r.TotalVotes {
		return errors.New("total votes must equal the sum of vote counts")
	}

	if r.WinningChoice != nil && (!r.IsFinalized || int(*r.WinningChoice) >= len(r.Choices)) {
		return errors.New("winning choice requires a finalized proposal and a valid index")
	}
	return nil
}

func (r *Proposal) Clone() Proposal {
	cloned := *r
	cloned.Choices = append([]string(nil), r.Choices...)
	cloned.VoteCounts = append([]uint64(nil), r.VoteCounts...)
	if r.WinningChoice != nil {
		winner := *r.WinningChoice
		cloned.WinningChoice = &winner
	}
	return cloned
}

func (r *Proposal) CopyTo(dst *Proposal) {
	*dst = r.Clone()
}

// IsVotingOpen reports whether votes are still accepted at now
func (r *Proposal) IsVotingOpen(now time.Time) bool {
	return !r.IsFinalized && now.Unix() < r.VotingEndTime
}

func (r *Vote) Validate() error {
	if len(r.Voter) == 0 {
		return errors.New("voter is required")
	}
	if r.Weight == 0 {
		return errors.New("weight must be positive")
	}
	return nil
}

func (r *Vote) Clone() Vote {
	return *r
}

func (r *Vote) CopyTo(dst *Vote) {
	*dst = *r
}
