package server

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/giftcard/engine"
	"github.com/code-payments/gift-protocol/pkg/giftcard/ledger"
)

type proposalView struct {
	ProposalId    uint64    `json:"proposal_id"`
	Creator       string    `json:"creator"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Choices       []string  `json:"choices"`
	VoteCounts    []uint64  `json:"vote_counts"`
	TotalVotes    uint64    `json:"total_votes"`
	VotingEndTime int64     `json:"voting_end_time"`
	IsFinalized   bool      `json:"is_finalized"`
	WinningChoice *uint8    `json:"winning_choice,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toProposalView(r *ledger.Proposal) *proposalView {
	return &proposalView{
		ProposalId:    r.ProposalId,
		Creator:       r.Creator,
		Title:         r.Title,
		Description:   r.Description,
		Choices:       r.Choices,
		VoteCounts:    r.VoteCounts,
		TotalVotes:    r.TotalVotes,
		VotingEndTime: r.VotingEndTime,
		IsFinalized:   r.IsFinalized,
		WinningChoice: r.WinningChoice,
		CreatedAt:     r.CreatedAt,
	}
}

type voteView struct {
	ProposalId uint64    `json:"proposal_id"`
	Voter      string    `json:"voter"`
	Choice     uint8     `json:"choice"`
	Weight     uint64    `json:"weight"`
	Timestamp  time.Time `json:"timestamp"`
}

func toVoteView(r *ledger.Vote) *voteView {
	return &voteView{
		ProposalId: r.ProposalId,
		Voter:      r.Voter,
		Choice:     r.Choice,
		Weight:     r.Weight,
		Timestamp:  r.Timestamp,
	}
}

type holdingResponse struct {
	Owner   string `json:"owner"`
	Balance uint64 `json:"balance"`
}

func parseProposalId(r *http.Request) (uint64, error) {
	proposalId, err := strconv.ParseUint(chi.URLParam(r, "proposal"), 10, 64)
	if err != nil {
		return 0, errors.Wrap(errInvalidRequest, "invalid proposal id")
	}
	return proposalId, nil
}

func (s *Server) handleGetHolding(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")

	balance, err := s.engine.GetGovernanceBalance(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &holdingResponse{Owner: owner, Balance: balance})
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	proposalId, err := parseProposalId(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	proposal, err := s.engine.GetProposal(r.Context(), proposalId)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalView(proposal))
}

func (s *Server) handleGetVote(w http.ResponseWriter, r *http.Request) {
	proposalId, err := parseProposalId(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	vote, err := s.engine.GetVote(r.Context(), proposalId, chi.URLParam(r, "voter"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVoteView(vote))
}

type createGovernanceTokenRequest struct {
	Mint string `json:"mint"`
}

func (s *Server) handleCreateGovernanceToken(w http.ResponseWriter, r *http.Request) {
	var req createGovernanceTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	config, err := s.engine.CreateGovernanceToken(r.Context(), callerFromContext(r.Context()), req.Mint)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toConfigView(config))
}

type governanceTransferRequest struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

func (s *Server) handleGrantGovernanceTokens(w http.ResponseWriter, r *http.Request) {
	var req governanceTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	holding, err := s.engine.GrantGovernanceTokens(r.Context(), callerFromContext(r.Context()), req.Recipient, req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &holdingResponse{Owner: holding.Owner, Balance: holding.Balance})
}

func (s *Server) handleTransferGovernanceTokens(w http.ResponseWriter, r *http.Request) {
	var req governanceTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	holding, err := s.engine.TransferGovernanceTokens(r.Context(), callerFromContext(r.Context()), req.Recipient, req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &holdingResponse{Owner: holding.Owner, Balance: holding.Balance})
}

type createProposalRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Choices       []string `json:"choices"`
	VotingEndTime int64    `json:"voting_end_time"`
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var req createProposalRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	proposal, err := s.engine.CreateProposal(r.Context(), &engine.CreateProposalArgs{
		Creator:       callerFromContext(r.Context()),
		Title:         req.Title,
		Description:   req.Description,
		Choices:       req.Choices,
		VotingEndTime: req.VotingEndTime,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProposalView(proposal))
}

type voteRequest struct {
	Choice uint64 `json:"choice"`
}

type voteResponse struct {
	Proposal *proposalView `json:"proposal"`
	Vote     *voteView     `json:"vote"`
}

func (s *Server) handleVoteOnProposal(w http.ResponseWriter, r *http.Request) {
	proposalId, err := parseProposalId(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Choice > math.MaxUint8 {
		s.writeError(w, r, giftcard.ErrInvalidChoice)
		return
	}

	result, err := s.engine.VoteOnProposal(r.Context(), callerFromContext(r.Context()), proposalId, uint8(req.Choice))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &voteResponse{
		Proposal: toProposalView(result.Proposal),
		Vote:     toVoteView(result.Vote),
	})
}

func (s *Server) handleFinalizeProposal(w http.ResponseWriter, r *http.Request) {
	proposalId, err := parseProposalId(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	proposal, err := s.engine.FinalizeProposal(r.Context(), proposalId)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalView(proposal))
}
