package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	pgutil "github.com/code-payments/gift-protocol/pkg/database/postgres"
	q "github.com/code-payments/gift-protocol/pkg/database/query"
	"github.com/code-payments/gift-protocol/pkg/giftcard/ledger"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres backed ledger.Store
func New(db *sql.DB) ledger.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// ExecuteInTx implements ledger.Store.ExecuteInTx
//
// The unit runs at serializable isolation and is re-executed whenever
// postgres aborts it with a serialization failure, so concurrent units
// always observe each other's committed writes.
func (s *store) ExecuteInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if pgutil.IsInTx(ctx) {
		return ledger.ErrNestedTx
	}
	return pgutil.ExecuteRetryableTxWithinCtx(ctx, s.db, sql.LevelSerializable, fn)
}

// CreateConfig implements ledger.Store.CreateConfig
func (s *store) CreateConfig(ctx context.Context, record *ledger.Config) error {
	model, err := toConfigModel(record)
	if err != nil {
		return err
	}

	if err := model.dbCreate(ctx, s.db); err != nil {
		return err
	}

	fromConfigModel(model).CopyTo(record)
	return nil
}

// UpdateConfig implements ledger.Store.UpdateConfig
func (s *store) UpdateConfig(ctx context.Context, record *ledger.Config) error {
	model, err := toConfigModel(record)
	if err != nil {
		return err
	}

	if err := model.dbUpdate(ctx, s.db); err != nil {
		return err
	}

	fromConfigModel(model).CopyTo(record)
	return nil
}

// GetConfig implements ledger.Store.GetConfig
func (s *store) GetConfig(ctx context.Context) (*ledger.Config, error) {
	model, err := dbGetConfig(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return fromConfigModel(model), nil
}

// SaveTreasury implements ledger.Store.SaveTreasury
func (s *store) SaveTreasury(ctx context.Context, record *ledger.Treasury) error {
	model, err := toTreasuryModel(record)
	if err != nil {
		return err
	}

	if err := model.dbSave(ctx, s.db); err != nil {
		return err
	}

	fromTreasuryModel(model).CopyTo(record)
	return nil
}

// GetTreasury implements ledger.Store.GetTreasury
func (s *store) GetTreasury(ctx context.Context) (*ledger.Treasury, error) {
	model, err := dbGetTreasury(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return fromTreasuryModel(model), nil
}

// CreateCard implements ledger.Store.CreateCard
func (s *store) CreateCard(ctx context.Context, record *ledger.Card) error {
	model, err := toCardModel(record)
	if err != nil {
		return err
	}

	if err := model.dbCreate(ctx, s.db); err != nil {
		return err
	}

	fromCardModel(model).CopyTo(record)
	return nil
}

// UpdateCard implements ledger.Store.UpdateCard
func (s *store) UpdateCard(ctx context.Context, record *ledger.Card) error {
	model, err := toCardModel(record)
	if err != nil {
		return err
	}

	if err := model.dbUpdate(ctx, s.db); err != nil {
		return err
	}

	fromCardModel(model).CopyTo(record)
	return nil
}

// GetCard implements ledger.Store.GetCard
func (s *store) GetCard(ctx context.Context, address string) (*ledger.Card, error) {
	model, err := dbGetCard(ctx, s.db, address)
	if err != nil {
		return nil, err
	}
	return fromCardModel(model), nil
}

// GetCardsByCreator implements ledger.Store.GetCardsByCreator
func (s *store) GetCardsByCreator(ctx context.Context, creator string, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*ledger.Card, error) {
	models, err := dbGetCardsByCreator(ctx, s.db, creator, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	res := make([]*ledger.Card, len(models))
	for i, model := range models {
		res[i] = fromCardModel(model)
	}
	return res, nil
}

// GetExpiredCards implements ledger.Store.GetExpiredCards
func (s *store) GetExpiredCards(ctx context.Context, now time.Time, reserve, limit uint64) ([]*ledger.Card, error) {
	models, err := dbGetExpiredCards(ctx, s.db, now, reserve, limit)
	if err != nil {
		return nil, err
	}

	res := make([]*ledger.Card, len(models))
	for i, model := range models {
		res[i] = fromCardModel(model)
	}
	return res, nil
}

// CreateReferral implements ledger.Store.CreateReferral
func (s *store) CreateReferral(ctx context.Context, record *ledger.Referral) error {
	model, err := toReferralModel(record)
	if err != nil {
		return err
	}

	if err := model.dbCreate(ctx, s.db); err != nil {
		return err
	}

	fromReferralModel(model).CopyTo(record)
	return nil
}

// UpdateReferral implements ledger.Store.UpdateReferral
func (s *store) UpdateReferral(ctx context.Context, record *ledger.Referral) error {
	model, err := toReferralModel(record)
	if err != nil {
		return err
	}

	if err := model.dbUpdate(ctx, s.db); err != nil {
		return err
	}

	fromReferralModel(model).CopyTo(record)
	return nil
}

// GetReferral implements ledger.Store.GetReferral
func (s *store) GetReferral(ctx context.Context, owner string) (*ledger.Referral, error) {
	model, err := dbGetReferral(ctx, s.db, owner)
	if err != nil {
		return nil, err
	}
	return fromReferralModel(model), nil
}

// SaveAccount implements ledger.Store.SaveAccount
func (s *store) SaveAccount(ctx context.Context, record *ledger.Account) error {
	model, err := toAccountModel(record)
	if err != nil {
		return err
	}

	if err := model.dbSave(ctx, s.db); err != nil {
		return err
	}

	fromAccountModel(model).CopyTo(record)
	return nil
}

// GetAccount implements ledger.Store.GetAccount
func (s *store) GetAccount(ctx context.Context, owner string) (*ledger.Account, error) {
	model, err := dbGetAccount(ctx, s.db, owner)
	if err != nil {
		return nil, err
	}
	return fromAccountModel(model), nil
}
