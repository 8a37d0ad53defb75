package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	pgutil "github.com/code-payments/gift-protocol/pkg/database/postgres"
	q "github.com/code-payments/gift-protocol/pkg/database/query"
	"github.com/code-payments/gift-protocol/pkg/giftcard/ledger"
	"github.com/code-payments/gift-protocol/pkg/pointer"
)

const (
	configTableName   = "giftcard__config"
	treasuryTableName = "giftcard__treasury"
	cardTableName     = "giftcard__card"
	referralTableName = "giftcard__referral"
	accountTableName  = "giftcard__account"

	configColumns   = `id, authority, commission_rate, referral_rate, treasury, total_gift_cards, total_commission, total_referral_payouts, total_staked, governance_token_mint, total_proposals, created_at`
	treasuryColumns = `id, address, balance, staked_amount, last_updated_at`
	cardColumns     = `id, address, creator, recipient, amount, balance, commission_amount, referral_amount, is_redeemed, resolution, redeemed_by, redeemed_at, expiry_time, message, referrer, token_mint, theme_id, created_at`
	referralColumns = `id, owner, total_earned, referral_count, created_at`
	accountColumns  = `id, owner, balance, last_updated_at`
)

type configModel struct {
	Id                   sql.NullInt64  `db:"id"`
	Authority            string         `db:"authority"`
	CommissionRate       uint16         `db:"commission_rate"`
	ReferralRate         uint16         `db:"referral_rate"`
	Treasury             string         `db:"treasury"`
	TotalGiftCards       uint64         `db:"total_gift_cards"`
	TotalCommission      uint64         `db:"total_commission"`
	TotalReferralPayouts uint64         `db:"total_referral_payouts"`
	TotalStaked          uint64         `db:"total_staked"`
	GovernanceTokenMint  sql.NullString `db:"governance_token_mint"`
	TotalProposals       uint64         `db:"total_proposals"`
	CreatedAt            time.Time      `db:"created_at"`
}

type treasuryModel struct {
	Id            sql.NullInt64 `db:"id"`
	Address       string        `db:"address"`
	Balance       uint64        `db:"balance"`
	StakedAmount  uint64        `db:"staked_amount"`
	LastUpdatedAt time.Time     `db:"last_updated_at"`
}

type cardModel struct {
	Id               sql.NullInt64  `db:"id"`
	Address          string         `db:"address"`
	Creator          string         `db:"creator"`
	Recipient        string         `db:"recipient"`
	Amount           uint64         `db:"amount"`
	Balance          uint64         `db:"balance"`
	CommissionAmount uint64         `db:"commission_amount"`
	ReferralAmount   uint64         `db:"referral_amount"`
	IsRedeemed       bool           `db:"is_redeemed"`
	Resolution       uint8          `db:"resolution"`
	RedeemedBy       string         `db:"redeemed_by"`
	RedeemedAt       sql.NullTime   `db:"redeemed_at"`
	ExpiryTime       int64          `db:"expiry_time"`
	Message          string         `db:"message"`
	Referrer         sql.NullString `db:"referrer"`
	TokenMint        sql.NullString `db:"token_mint"`
	ThemeId          uint32         `db:"theme_id"`
	CreatedAt        time.Time      `db:"created_at"`
}

type referralModel struct {
	Id            sql.NullInt64 `db:"id"`
	Owner         string        `db:"owner"`
	TotalEarned   uint64        `db:"total_earned"`
	ReferralCount uint64        `db:"referral_count"`
	CreatedAt     time.Time     `db:"created_at"`
}

type accountModel struct {
	Id            sql.NullInt64 `db:"id"`
	Owner         string        `db:"owner"`
	Balance       uint64        `db:"balance"`
	LastUpdatedAt time.Time     `db:"last_updated_at"`
}

func toConfigModel(obj *ledger.Config) (*configModel, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	m := &configModel{
		Authority:            obj.Authority,
		CommissionRate:       obj.CommissionRate,
		ReferralRate:         obj.ReferralRate,
		Treasury:             obj.Treasury,
		TotalGiftCards:       obj.TotalGiftCards,
		TotalCommission:      obj.TotalCommission,
		TotalReferralPayouts: obj.TotalReferralPayouts,
		TotalStaked:          obj.TotalStaked,
		TotalProposals:       obj.TotalProposals,
		CreatedAt:            obj.CreatedAt,
	}
	if obj.GovernanceTokenMint != nil {
		m.GovernanceTokenMint = sql.NullString{Valid: true, String: *obj.GovernanceTokenMint}
	}
	return m, nil
}

func fromConfigModel(obj *configModel) *ledger.Config {
	return &ledger.Config{
		Id:                   uint64(obj.Id.Int64),
		Authority:            obj.Authority,
		CommissionRate:       obj.CommissionRate,
		ReferralRate:         obj.ReferralRate,
		Treasury:             obj.Treasury,
		TotalGiftCards:       obj.TotalGiftCards,
		TotalCommission:      obj.TotalCommission,
		TotalReferralPayouts: obj.TotalReferralPayouts,
		TotalStaked:          obj.TotalStaked,
		GovernanceTokenMint:  pointer.IfValid(obj.GovernanceTokenMint.Valid, obj.GovernanceTokenMint.String),
		TotalProposals:       obj.TotalProposals,
		CreatedAt:            obj.CreatedAt.UTC(),
	}
}

func toTreasuryModel(obj *ledger.Treasury) (*treasuryModel, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &treasuryModel{
		Address:       obj.Address,
		Balance:       obj.Balance,
		StakedAmount:  obj.StakedAmount,
		LastUpdatedAt: obj.LastUpdatedAt,
	}, nil
}

func fromTreasuryModel(obj *treasuryModel) *ledger.Treasury {
	return &ledger.Treasury{
		Id:            uint64(obj.Id.Int64),
		Address:       obj.Address,
		Balance:       obj.Balance,
		StakedAmount:  obj.StakedAmount,
		LastUpdatedAt: obj.LastUpdatedAt.UTC(),
	}
}

func toCardModel(obj *ledger.Card) (*cardModel, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	m := &cardModel{
		Address:          obj.Address,
		Creator:          obj.Creator,
		Recipient:        obj.Recipient,
		Amount:           obj.Amount,
		Balance:          obj.Balance,
		CommissionAmount: obj.CommissionAmount,
		ReferralAmount:   obj.ReferralAmount,
		IsRedeemed:       obj.IsRedeemed,
		Resolution:       uint8(obj.Resolution),
		RedeemedBy:       obj.RedeemedBy,
		ExpiryTime:       obj.ExpiryTime,
		Message:          obj.Message,
		ThemeId:          obj.ThemeId,
		CreatedAt:        obj.CreatedAt,
	}
	if obj.RedeemedAt != nil {
		m.RedeemedAt = sql.NullTime{Valid: true, Time: obj.RedeemedAt.UTC()}
	}
	if obj.Referrer != nil {
		m.Referrer = sql.NullString{Valid: true, String: *obj.Referrer}
	}
	if obj.TokenMint != nil {
		m.TokenMint = sql.NullString{Valid: true, String: *obj.TokenMint}
	}
	return m, nil
}

func fromCardModel(obj *cardModel) *ledger.Card {
	var redeemedAt *time.Time
	if obj.RedeemedAt.Valid {
		redeemedAt = pointer.Time(obj.RedeemedAt.Time.UTC())
	}

	return &ledger.Card{
		Id:               uint64(obj.Id.Int64),
		Address:          obj.Address,
		Creator:          obj.Creator,
		Recipient:        obj.Recipient,
		Amount:           obj.Amount,
		Balance:          obj.Balance,
		CommissionAmount: obj.CommissionAmount,
		ReferralAmount:   obj.ReferralAmount,
		IsRedeemed:       obj.IsRedeemed,
		Resolution:       ledger.Resolution(obj.Resolution),
		RedeemedBy:       obj.RedeemedBy,
		RedeemedAt:       redeemedAt,
		ExpiryTime:       obj.ExpiryTime,
		Message:          obj.Message,
		Referrer:         pointer.IfValid(obj.Referrer.Valid, obj.Referrer.String),
		TokenMint:        pointer.IfValid(obj.TokenMint.Valid, obj.TokenMint.String),
		ThemeId:          obj.ThemeId,
		CreatedAt:        obj.CreatedAt.UTC(),
	}
}

func toReferralModel(obj *ledger.Referral) (*referralModel, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &referralModel{
		Owner:         obj.Owner,
		TotalEarned:   obj.TotalEarned,
		ReferralCount: obj.ReferralCount,
		CreatedAt:     obj.CreatedAt,
	}, nil
}

func fromReferralModel(obj *referralModel) *ledger.Referral {
	return &ledger.Referral{
		Id:            uint64(obj.Id.Int64),
		Owner:         obj.Owner,
		TotalEarned:   obj.TotalEarned,
		ReferralCount: obj.ReferralCount,
		CreatedAt:     obj.CreatedAt.UTC(),
	}
}

func toAccountModel(obj *ledger.Account) (*accountModel, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &accountModel{
		Owner:         obj.Owner,
		Balance:       obj.Balance,
		LastUpdatedAt: obj.LastUpdatedAt,
	}, nil
}

func fromAccountModel(obj *accountModel) *ledger.Account {
	return &ledger.Account{
		Id:            uint64(obj.Id.Int64),
		Owner:         obj.Owner,
		Balance:       obj.Balance,
		LastUpdatedAt: obj.LastUpdatedAt.UTC(),
	}
}

func (m *configModel) dbCreate(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + configTableName + `
			(authority, commission_rate, referral_rate, treasury, total_gift_cards, total_commission, total_referral_payouts, total_staked, governance_token_mint, total_proposals, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING ` + configColumns

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.Authority,
			m.CommissionRate,
			m.ReferralRate,
			m.Treasury,
			m.TotalGiftCards,
			m.TotalCommission,
			m.TotalReferralPayouts,
			m.TotalStaked,
			m.GovernanceTokenMint,
			m.TotalProposals,
			m.CreatedAt.UTC(),
		).StructScan(m)
		return pgutil.CheckUniqueViolation(err, ledger.ErrConfigExists)
	})
}

func (m *configModel) dbUpdate(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `UPDATE ` + configTableName + `
			SET total_gift_cards = $1, total_commission = $2, total_referral_payouts = $3, total_staked = $4,
				governance_token_mint = COALESCE($5, governance_token_mint), total_proposals = $6
			RETURNING ` + configColumns

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.TotalGiftCards,
			m.TotalCommission,
			m.TotalReferralPayouts,
			m.TotalStaked,
			m.GovernanceTokenMint,
			m.TotalProposals,
		).StructScan(m)
		return pgutil.CheckNoRows(err, ledger.ErrConfigNotFound)
	})
}

func dbGetConfig(ctx context.Context, db *sqlx.DB) (*configModel, error) {
	res := &configModel{}
	err := pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `SELECT ` + configColumns + ` FROM ` + configTableName + ` LIMIT 1`
		return tx.GetContext(ctx, res, query)
	})
	if err != nil {
		return nil, pgutil.CheckNoRows(err, ledger.ErrConfigNotFound)
	}
	return res, nil
}

func (m *treasuryModel) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + treasuryTableName + `
			(address, balance, staked_amount, last_updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (singleton)
			DO UPDATE
				SET balance = $2, staked_amount = $3, last_updated_at = $4
			RETURNING ` + treasuryColumns

		return tx.QueryRowxContext(
			ctx,
			query,
			m.Address,
			m.Balance,
			m.StakedAmount,
			m.LastUpdatedAt.UTC(),
		).StructScan(m)
	})
}

func dbGetTreasury(ctx context.Context, db *sqlx.DB) (*treasuryModel, error) {
	res := &treasuryModel{}
	err := pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `SELECT ` + treasuryColumns + ` FROM ` + treasuryTableName + ` LIMIT 1`
		return tx.GetContext(ctx, res, query)
	})
	if err != nil {
		return nil, pgutil.CheckNoRows(err, ledger.ErrTreasuryNotFound)
	}
	return res, nil
}

func (m *cardModel) dbCreate(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + cardTableName + `
			(address, creator, recipient, amount, balance, commission_amount, referral_amount, is_redeemed, resolution, redeemed_by, redeemed_at, expiry_time, message, referrer, token_mint, theme_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			RETURNING ` + cardColumns

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.Address,
			m.Creator,
			m.Recipient,
			m.Amount,
			m.Balance,
			m.CommissionAmount,
			m.ReferralAmount,
			m.IsRedeemed,
			m.Resolution,
			m.RedeemedBy,
			m.RedeemedAt,
			m.ExpiryTime,
			m.Message,
			m.Referrer,
			m.TokenMint,
			m.ThemeId,
			m.CreatedAt.UTC(),
		).StructScan(m)
		return pgutil.CheckUniqueViolation(err, ledger.ErrCardExists)
	})
}

func (m *cardModel) dbUpdate(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `UPDATE ` + cardTableName + `
			SET balance = $2, is_redeemed = $3, resolution = $4, redeemed_by = $5, redeemed_at = $6
			WHERE address = $1
			RETURNING ` + cardColumns

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.Address,
			m.Balance,
			m.IsRedeemed,
			m.Resolution,
			m.RedeemedBy,
			m.RedeemedAt,
		).StructScan(m)
		return pgutil.CheckNoRows(err, ledger.ErrCardNotFound)
	})
}

func dbGetCard(ctx context.Context, db *sqlx.DB, address string) (*cardModel, error) {
	res := &cardModel{}
	err := pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `SELECT ` + cardColumns + ` FROM ` + cardTableName + `
			WHERE address = $1
			LIMIT 1`
		return tx.GetContext(ctx, res, query, address)
	})
	if err != nil {
		return nil, pgutil.CheckNoRows(err, ledger.ErrCardNotFound)
	}
	return res, nil
}

func dbGetCardsByCreator(ctx context.Context, db *sqlx.DB, creator string, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*cardModel, error) {
	res := []*cardModel{}
	err := pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query, args := q.PaginateQuery(
			`SELECT `+cardColumns+` FROM `+cardTableName+` WHERE (creator = $1)`,
			[]interface{}{creator},
			cursor,
			limit,
			direction,
		)
		return tx.SelectContext(ctx, &res, query, args...)
	})
	if err != nil {
		return nil, pgutil.CheckNoRows(err, ledger.ErrCardNotFound)
	}
	if len(res) == 0 {
		return nil, ledger.ErrCardNotFound
	}
	return res, nil
}

func dbGetExpiredCards(ctx context.Context, db *sqlx.DB, now time.Time, reserve, limit uint64) ([]*cardModel, error) {
	res := []*cardModel{}
	err := pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `SELECT ` + cardColumns + ` FROM ` + cardTableName + `
			WHERE is_redeemed = FALSE AND expiry_time <> 0 AND expiry_time <= $1 AND balance > $2
			ORDER BY expiry_time ASC, id ASC`
		args := []interface{}{now.Unix(), reserve}
		if limit > 0 {
			query += ` LIMIT $3`
			args = append(args, limit)
		}
		return tx.SelectContext(ctx, &res, query, args...)
	})
	if err != nil {
		return nil, pgutil.CheckNoRows(err, ledger.ErrCardNotFound)
	}
	if len(res) == 0 {
		return nil, ledger.ErrCardNotFound
	}
	return res, nil
}

func (m *referralModel) dbCreate(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + referralTableName + `
			(owner, total_earned, referral_count, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING ` + referralColumns

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.Owner,
			m.TotalEarned,
			m.ReferralCount,
			m.CreatedAt.UTC(),
		).StructScan(m)
		return pgutil.CheckUniqueViolation(err, ledger.ErrReferralExists)
	})
}

func (m *referralModel) dbUpdate(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `UPDATE ` + referralTableName + `
			SET total_earned = $2, referral_count = $3
			WHERE owner = $1
			RETURNING ` + referralColumns

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.Owner,
			m.TotalEarned,
			m.ReferralCount,
		).StructScan(m)
		return pgutil.CheckNoRows(err, ledger.ErrReferralNotFound)
	})
}

func dbGetReferral(ctx context.Context, db *sqlx.DB, owner string) (*referralModel, error) {
	res := &referralModel{}
	err := pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `SELECT ` + referralColumns + ` FROM ` + referralTableName + `
			WHERE owner = $1
			LIMIT 1`
		return tx.GetContext(ctx, res, query, owner)
	})
	if err != nil {
		return nil, pgutil.CheckNoRows(err, ledger.ErrReferralNotFound)
	}
	return res, nil
}

func (m *accountModel) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + accountTableName + `
			(owner, balance, last_updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (owner)
			DO UPDATE
				SET balance = $2, last_updated_at = $3
				WHERE ` + accountTableName + `.owner = $1
			RETURNING ` + accountColumns

		return tx.QueryRowxContext(
			ctx,
			query,
			m.Owner,
			m.Balance,
			m.LastUpdatedAt.UTC(),
		).StructScan(m)
	})
}

func dbGetAccount(ctx context.Context, db *sqlx.DB, owner string) (*accountModel, error) {
	res := &accountModel{}
	err := pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `SELECT ` + accountColumns + ` FROM ` + accountTableName + `
			WHERE owner = $1
			LIMIT 1`
		return tx.GetContext(ctx, res, query, owner)
	})
	if err != nil {
		return nil, pgutil.CheckNoRows(err, ledger.ErrAccountNotFound)
	}
	return res, nil
}
