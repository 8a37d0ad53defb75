package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgtype"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	pgutil "github.com/code-payments/gift-protocol/pkg/database/postgres"
	"github.com/code-payments/gift-protocol/pkg/giftcard/ledger"
	"github.com/code-payments/gift-protocol/pkg/pointer"
)

const (
	holdingTableName  = "giftcard__governance_holding"
	proposalTableName = "giftcard__proposal"
	voteTableName     = "giftcard__vote"

	holdingColumns  = `id, owner, balance, last_updated_at`
	proposalColumns = `id, proposal_id, creator, title, description, choices, vote_counts, total_votes, voting_end_time, is_finalized, winning_choice, created_at`
	voteColumns     = `id, proposal_id, voter, choice, weight, voted_at`
)

type holdingModel struct {
	Id            sql.NullInt64 `db:"id"`
	Owner         string        `db:"owner"`
	Balance       uint64        `db:"balance"`
	LastUpdatedAt time.Time     `db:"last_updated_at"`
}

type proposalModel struct {
	Id            sql.NullInt64    `db:"id"`
	ProposalId    uint64           `db:"proposal_id"`
	Creator       string           `db:"creator"`
	Title         string           `db:"title"`
	Description   string           `db:"description"`
	Choices       pgtype.TextArray `db:"choices"`
	VoteCounts    pgtype.Int8Array `db:"vote_counts"`
	TotalVotes    uint64           `db:"total_votes"`
	VotingEndTime int64            `db:"voting_end_time"`
	IsFinalized   bool             `db:"is_finalized"`
	WinningChoice sql.NullInt32    `db:"winning_choice"`
	CreatedAt     time.Time        `db:"created_at"`
}

type voteModel struct {
	Id         sql.NullInt64 `db:"id"`
	ProposalId uint64        `db:"proposal_id"`
	Voter      string        `db:"voter"`
	Choice     uint8         `db:"choice"`
	Weight     uint64        `db:"weight"`
	Timestamp  time.Time     `db:"voted_at"`
}

func toHoldingModel(obj *ledger.Holding) (*holdingModel, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &holdingModel{
		Owner:         obj.Owner,
		Balance:       obj.Balance,
		LastUpdatedAt: obj.LastUpdatedAt,
	}, nil
}

func fromHoldingModel(obj *holdingModel) *ledger.Holding {
	return &ledger.Holding{
		Id:            uint64(obj.Id.Int64),
		Owner:         obj.Owner,
		Balance:       obj.Balance,
		LastUpdatedAt: obj.LastUpdatedAt.UTC(),
	}
}

func toProposalModel(obj *ledger.Proposal) (*proposalModel, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	m := &proposalModel{
		ProposalId:    obj.ProposalId,
		Creator:       obj.Creator,
		Title:         obj.Title,
		Description:   obj.Description,
		TotalVotes:    obj.TotalVotes,
		VotingEndTime: obj.VotingEndTime,
		IsFinalized:   obj.IsFinalized,
		CreatedAt:     obj.CreatedAt,
	}

	if err := m.Choices.Set(obj.Choices); err != nil {
		return nil, errors.Wrap(err, "error encoding choices")
	}

	counts := make([]int64, len(obj.VoteCounts))
	for i, count := range obj.VoteCounts {
		counts[i] = int64(count)
	}
	if err := m.VoteCounts.Set(counts); err != nil {
		return nil, errors.Wrap(err, "error encoding vote counts")
	}

	if obj.WinningChoice != nil {
		m.WinningChoice = sql.NullInt32{Valid: true, Int32: int32(*obj.WinningChoice)}
	}
	return m, nil
}

func fromProposalModel(obj *proposalModel) (*ledger.Proposal, error) {
	var choices []string
	if err := obj.Choices.AssignTo(&choices); err != nil {
		return nil, errors.Wrap(err, "error decoding choices")
	}

	var counts []int64
	if err := obj.VoteCounts.AssignTo(&counts); err != nil {
		return nil, errors.Wrap(err, "error decoding vote counts")
	}
	voteCounts := make([]uint64, len(counts))
	for i, count := range counts {
		voteCounts[i] = uint64(count)
	}

	var winningChoice *uint8
	if obj.WinningChoice.Valid {
		winningChoice = pointer.To(uint8(obj.WinningChoice.Int32))
	}

	return &ledger.Proposal{
		Id:            uint64(obj.Id.Int64),
		ProposalId:    obj.ProposalId,
		Creator:       obj.Creator,
		Title:         obj.Title,
		Description:   obj.Description,
		Choices:       choices,
		VoteCounts:    voteCounts,
		TotalVotes:    obj.TotalVotes,
		VotingEndTime: obj.VotingEndTime,
		IsFinalized:   obj.IsFinalized,
		WinningChoice: winningChoice,
		CreatedAt:     obj.CreatedAt.UTC(),
	}, nil
}

func toVoteModel(obj *ledger.Vote) (*voteModel, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &voteModel{
		ProposalId: obj.ProposalId,
		Voter:      obj.Voter,
		Choice:     obj.Choice,
		Weight:     obj.Weight,
		Timestamp:  obj.Timestamp,
	}, nil
}

func fromVoteModel(obj *voteModel) *ledger.Vote {
	return &ledger.Vote{
		Id:         uint64(obj.Id.Int64),
		ProposalId: obj.ProposalId,
		Voter:      obj.Voter,
		Choice:     obj.Choice,
		Weight:     obj.Weight,
		Timestamp:  obj.Timestamp.UTC(),
	}
}

func (m *holdingModel) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + holdingTableName + `
			(owner, balance, last_updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (owner)
			DO UPDATE
				SET balance = $2, last_updated_at = $3
				WHERE ` + holdingTableName + `.owner = $1
			RETURNING ` + holdingColumns

		return tx.QueryRowxContext(
			ctx,
			query,
			m.Owner,
			m.Balance,
			m.LastUpdatedAt.UTC(),
		).StructScan(m)
	})
}

func dbGetHolding(ctx context.Context, db *sqlx.DB, owner string) (*holdingModel, error) {
	res := &holdingModel{}
	err := pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `SELECT ` + holdingColumns + ` FROM ` + holdingTableName + `
			WHERE owner = $1
			LIMIT 1`
		return tx.GetContext(ctx, res, query, owner)
	})
	if err != nil {
		return nil, pgutil.CheckNoRows(err, ledger.ErrHoldingNotFound)
	}
	return res, nil
}

func (m *proposalModel) dbCreate(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + proposalTableName + `
			(proposal_id, creator, title, description, choices, vote_counts, total_votes, voting_end_time, is_finalized, winning_choice, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING ` + proposalColumns

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.ProposalId,
			m.Creator,
			m.Title,
			m.Description,
			&m.Choices,
			&m.VoteCounts,
			m.TotalVotes,
			m.VotingEndTime,
			m.IsFinalized,
			m.WinningChoice,
			m.CreatedAt.UTC(),
		).StructScan(m)
		return pgutil.CheckUniqueViolation(err, ledger.ErrProposalExists)
	})
}

func (m *proposalModel) dbUpdate(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `UPDATE ` + proposalTableName + `
			SET vote_counts = $2, total_votes = $3, is_finalized = $4, winning_choice = $5
			WHERE proposal_id = $1
			RETURNING ` + proposalColumns

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.ProposalId,
			&m.VoteCounts,
			m.TotalVotes,
			m.IsFinalized,
			m.WinningChoice,
		).StructScan(m)
		return pgutil.CheckNoRows(err, ledger.ErrProposalNotFound)
	})
}

func dbGetProposal(ctx context.Context, db *sqlx.DB, proposalId uint64) (*proposalModel, error) {
	res := &proposalModel{}
	err := pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `SELECT ` + proposalColumns + ` FROM ` + proposalTableName + `
			WHERE proposal_id = $1
			LIMIT 1`
		return tx.GetContext(ctx, res, query, proposalId)
	})
	if err != nil {
		return nil, pgutil.CheckNoRows(err, ledger.ErrProposalNotFound)
	}
	return res, nil
}

func (m *voteModel) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + voteTableName + `
			(proposal_id, voter, choice, weight, voted_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (proposal_id, voter)
			DO UPDATE
				SET choice = $3, weight = $4, voted_at = $5
				WHERE ` + voteTableName + `.proposal_id = $1 AND ` + voteTableName + `.voter = $2
			RETURNING ` + voteColumns

		return tx.QueryRowxContext(
			ctx,
			query,
			m.ProposalId,
			m.Voter,
			m.Choice,
			m.Weight,
			m.Timestamp.UTC(),
		).StructScan(m)
	})
}

func dbGetVote(ctx context.Context, db *sqlx.DB, proposalId uint64, voter string) (*voteModel, error) {
	res := &voteModel{}
	err := pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `SELECT ` + voteColumns + ` FROM ` + voteTableName + `
			WHERE proposal_id = $1 AND voter = $2
			LIMIT 1`
		return tx.GetContext(ctx, res, query, proposalId, voter)
	})
	if err != nil {
		return nil, pgutil.CheckNoRows(err, ledger.ErrVoteNotFound)
	}
	return res, nil
}

// SaveHolding implements ledger.Store.SaveHolding
func (s *store) SaveHolding(ctx context.Context, record *ledger.Holding) error {
	model, err := toHoldingModel(record)
	if err != nil {
		return err
	}

	if err := model.dbSave(ctx, s.db); err != nil {
		return err
	}

	fromHoldingModel(model).CopyTo(record)
	return nil
}

// GetHolding implements ledger.Store.GetHolding
func (s *store) GetHolding(ctx context.Context, owner string) (*ledger.Holding, error) {
	model, err := dbGetHolding(ctx, s.db, owner)
	if err != nil {
		return nil, err
	}
	return fromHoldingModel(model), nil
}

// CreateProposal implements ledger.Store.CreateProposal
func (s *store) CreateProposal(ctx context.Context, record *ledger.Proposal) error {
	model, err := toProposalModel(record)
	if err != nil {
		return err
	}

	if err := model.dbCreate(ctx, s.db); err != nil {
		return err
	}

	created, err := fromProposalModel(model)
	if err != nil {
		return err
	}
	created.CopyTo(record)
	return nil
}

// UpdateProposal implements ledger.Store.UpdateProposal
func (s *store) UpdateProposal(ctx context.Context, record *ledger.Proposal) error {
	model, err := toProposalModel(record)
	if err != nil {
		return err
	}

	if err := model.dbUpdate(ctx, s.db); err != nil {
		return err
	}

	updated, err := fromProposalModel(model)
	if err != nil {
		return err
	}
	updated.CopyTo(record)
	return nil
}

// GetProposal implements ledger.Store.GetProposal
func (s *store) GetProposal(ctx context.Context, proposalId uint64) (*ledger.Proposal, error) {
	model, err := dbGetProposal(ctx, s.db, proposalId)
	if err != nil {
		return nil, err
	}
	return fromProposalModel(model)
}

// SaveVote implements ledger.Store.SaveVote
func (s *store) SaveVote(ctx context.Context, record *ledger.Vote) error {
	model, err := toVoteModel(record)
	if err != nil {
		return err
	}

	if err := model.dbSave(ctx, s.db); err != nil {
		return err
	}

	fromVoteModel(model).CopyTo(record)
	return nil
}

// GetVote implements ledger.Store.GetVote
func (s *store) GetVote(ctx context.Context, proposalId uint64, voter string) (*ledger.Vote, error) {
	model, err := dbGetVote(ctx, s.db, proposalId, voter)
	if err != nil {
		return nil, err
	}
	return fromVoteModel(model), nil
}
