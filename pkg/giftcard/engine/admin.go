package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/giftcard/ledger"
	"github.com/code-payments/gift-protocol/pkg/metrics"
)

// Initialize creates the protocol config with authority as its administrator,
// along with an empty treasury. Rates are fixed for the protocol's lifetime.
func (e *Engine) Initialize(ctx context.Context, authority string, commissionRate, referralRate uint16) (config *ledger.Config, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Initialize")
	defer tracer.End()

	log := e.log.WithFields(logrus.Fields{
		"method":          "Initialize",
		"authority":       authority,
		"commission_rate": commissionRate,
		"referral_rate":   referralRate,
	})
	defer func() {
		tracer.OnError(err)
		e.finish(ctx, log, err)
	}()

	if err := giftcard.ValidateAddress(authority); err != nil {
		return nil, err
	}
	if err := giftcard.ValidateRates(uint64(commissionRate), uint64(referralRate)); err != nil {
		return nil, err
	}

	err = e.store.ExecuteInTx(ctx, func(ctx context.Context) error {
		_, err := e.store.GetConfig(ctx)
		if err == nil {
			return giftcard.ErrAlreadyInitialized
		} else if err != ledger.ErrConfigNotFound {
			return err
		}

		now := e.now()
		config = &ledger.Config{
			Authority:      authority,
			CommissionRate: commissionRate,
			ReferralRate:   referralRate,
			Treasury:       e.treasury,
			CreatedAt:      now,
		}
		err = e.store.CreateConfig(ctx, config)
		if err == ledger.ErrConfigExists {
			return giftcard.ErrAlreadyInitialized
		} else if err != nil {
			return err
		}

		return e.store.SaveTreasury(ctx, &ledger.Treasury{
			Address:       e.treasury,
			LastUpdatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info("protocol initialized")
	return config, nil
}

// CreateReferral creates an empty referral record for owner
func (e *Engine) CreateReferral(ctx context.Context, owner string) (referral *ledger.Referral, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CreateReferral")
	defer tracer.End()

	log := e.log.WithFields(logrus.Fields{
		"method": "CreateReferral",
		"owner":  owner,
	})
	defer func() {
		tracer.OnError(err)
		e.finish(ctx, log, err)
	}()

	if err := giftcard.ValidateAddress(owner); err != nil {
		return nil, err
	}

	referral = &ledger.Referral{
		Owner:     owner,
		CreatedAt: e.now(),
	}
	err = e.store.ExecuteInTx(ctx, func(ctx context.Context) error {
		err := e.store.CreateReferral(ctx, referral)
		if err == ledger.ErrReferralExists {
			return giftcard.ErrReferralAlreadyExists
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Debug("referral created")
	return referral, nil
}

// StakeTreasuryFunds moves amount of the treasury's liquid balance into its
// staking pool. Only the protocol authority may stake.
func (e *Engine) StakeTreasuryFunds(ctx context.Context, caller string, amount uint64) (treasury *ledger.Treasury, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "StakeTreasuryFunds")
	defer tracer.End()

	log := e.log.WithFields(logrus.Fields{
		"method": "StakeTreasuryFunds",
		"caller": caller,
		"amount": amount,
	})
	defer func() {
		tracer.OnError(err)
		e.finish(ctx, log, err)
	}()

	if amount == 0 {
		return nil, giftcard.ErrInvalidAmount
	}

	err = e.store.ExecuteInTx(ctx, func(ctx context.Context) error {
		config, err := e.getConfig(ctx)
		if err != nil {
			return err
		}
		if config.Authority != caller {
			return giftcard.ErrUnauthorized
		}

		treasury, err = e.getTreasury(ctx)
		if err != nil {
			return err
		}

		treasury.Balance, err = giftcard.CheckedSub(treasury.Balance, amount)
		if err != nil {
			return err
		}
		treasury.StakedAmount, err = giftcard.CheckedAdd(treasury.StakedAmount, amount)
		if err != nil {
			return err
		}
		config.TotalStaked, err = giftcard.CheckedAdd(config.TotalStaked, amount)
		if err != nil {
			return err
		}

		treasury.LastUpdatedAt = e.now()
		if err := e.store.SaveTreasury(ctx, treasury); err != nil {
			return err
		}
		return e.store.UpdateConfig(ctx, config)
	})
	if err != nil {
		return nil, err
	}

	log.Info("treasury funds staked")
	return treasury, nil
}

// DistributeRewardsResult describes a completed distribution
type DistributeRewardsResult struct {
	Share     uint64
	Remainder uint64
	Treasury  *ledger.Treasury
}

// DistributeRewards pays an equal share of the staking pool to every
// recipient. The share is floor(staked / len(recipients)) and whatever
// doesn't divide evenly stays staked. Only the protocol authority may
// distribute.
func (e *Engine) DistributeRewards(ctx context.Context, caller string, recipients []string) (result *DistributeRewardsResult, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "DistributeRewards")
	defer tracer.End()

	log := e.log.WithFields(logrus.Fields{
		"method":     "DistributeRewards",
		"caller":     caller,
		"recipients": len(recipients),
	})
	defer func() {
		tracer.OnError(err)
		e.finish(ctx, log, err)
	}()

	if len(recipients) == 0 {
		return nil, giftcard.ErrInvalidRecipients
	}
	seen := make(map[string]struct{}, len(recipients))
	for _, recipient := range recipients {
		if err := giftcard.ValidateAddress(recipient); err != nil {
			return nil, err
		}
		if _, ok := seen[recipient]; ok {
			return nil, giftcard.ErrInvalidRecipients
		}
		seen[recipient] = struct{}{}
	}

	err = e.store.ExecuteInTx(ctx, func(ctx context.Context) error {
		config, err := e.getConfig(ctx)
		if err != nil {
			return err
		}
		if config.Authority != caller {
			return giftcard.ErrUnauthorized
		}

		treasury, err := e.getTreasury(ctx)
		if err != nil {
			return err
		}

		count := uint64(len(recipients))
		share := treasury.StakedAmount / count
		if share == 0 {
			return giftcard.ErrInsufficientFunds
		}

		for _, recipient := range recipients {
			if err := e.credit(ctx, recipient, share); err != nil {
				return err
			}
		}

		treasury.StakedAmount -= share * count
		treasury.LastUpdatedAt = e.now()
		if err := e.store.SaveTreasury(ctx, treasury); err != nil {
			return err
		}

		result = &DistributeRewardsResult{
			Share:     share,
			Remainder: treasury.StakedAmount,
			Treasury:  treasury,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordRewardsDistributedEvent(ctx, len(recipients), result.Share)
	log.WithField("share", result.Share).Info("rewards distributed")
	return result, nil
}
