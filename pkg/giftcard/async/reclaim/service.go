// Package reclaim returns the balance of expired, unredeemed gift cards to
// their creators.
package reclaim

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/giftcard/engine"
	"github.com/code-payments/gift-protocol/pkg/giftcard/ledger"
	"github.com/code-payments/gift-protocol/pkg/lock"
	"github.com/code-payments/gift-protocol/pkg/metrics"
	"github.com/code-payments/gift-protocol/pkg/retry"
)

const (
	sweepMetricName       = "GiftCardReclaim/Reclaimed"
	sweepFailedMetricName = "GiftCardReclaim/Failed"
)

// Engine is the subset of the engine the worker drives
type Engine interface {
	GetExpiredCards(ctx context.Context, limit uint64) ([]*ledger.Card, error)
	ReclaimGiftCard(ctx context.Context, card string) (*engine.TerminalResult, error)
}

type Service struct {
	log    *logrus.Entry
	conf   *conf
	engine Engine
	locks  lock.Manager
	gate   Gate
	clock  clockwork.Clock
}

func New(engine Engine, locks lock.Manager, gate Gate, clock clockwork.Clock, configProvider ConfigProvider) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Service{
		log:    logrus.StandardLogger().WithField("type", "giftcard/async/reclaim"),
		conf:   configProvider(),
		engine: engine,
		locks:  locks,
		gate:   gate,
		clock:  clock,
	}
}

// Start sweeps every interval until ctx is cancelled
func (s *Service) Start(ctx context.Context, interval time.Duration) error {
	return retry.Loop(
		func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.clock.After(interval):
			}

			_, err := s.Sweep(ctx)
			if err != nil && ctx.Err() == nil {
				s.log.WithError(err).Warn("failure sweeping expired gift cards")
			}
			return ctx.Err()
		},
		retry.NonRetriableErrors(context.Canceled),
		retry.ContextActive(ctx),
	)
}

// StartCron sweeps on a cron schedule until ctx is cancelled
func (s *Service) StartCron(ctx context.Context, schedule string) error {
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(schedule, func() {
		_, err := s.Sweep(ctx)
		if err != nil && ctx.Err() == nil {
			s.log.WithError(err).Warn("failure sweeping expired gift cards")
		}
	})
	if err != nil {
		return errors.Wrap(err, "invalid reclaim schedule")
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	return ctx.Err()
}

// Sweep reclaims one batch of expired cards while holding the reclaim lock.
// It returns the number of cards reclaimed.
func (s *Service) Sweep(ctx context.Context) (reclaimed int, err error) {
	tracedCtx, end := metrics.StartTransaction(ctx, "async__giftcard_reclaim__sweep")
	defer func() { end(err) }()

	log := s.log.WithField("method", "Sweep")

	if s.gate != nil {
		if err := s.gate(tracedCtx); err != nil {
			return 0, errors.Wrap(err, "error waiting for reclaim gate")
		}
	}

	l, err := s.locks.Create(tracedCtx, s.conf.lockName.Get(tracedCtx))
	if err != nil {
		return 0, errors.Wrap(err, "error creating reclaim lock")
	}

	lockCtx, cancel := context.WithCancel(tracedCtx)
	defer cancel()

	lostCh, err := l.Acquire(lockCtx)
	if err != nil {
		return 0, errors.Wrap(err, "error acquiring reclaim lock")
	}
	defer func() {
		if err := l.Unlock(context.Background()); err != nil {
			log.WithError(err).Warn("failure releasing reclaim lock")
		}
	}()

	cards, err := s.engine.GetExpiredCards(lockCtx, s.conf.batchSize.Get(lockCtx))
	if err != nil {
		return 0, errors.Wrap(err, "error getting expired cards")
	}

	for _, card := range cards {
		select {
		case <-lostCh:
			log.Warn("reclaim lock lost, stopping sweep")
			return reclaimed, nil
		default:
		}

		if s.reclaim(lockCtx, card) {
			reclaimed++
		}
	}

	if reclaimed > 0 {
		metrics.RecordCount(tracedCtx, sweepMetricName, uint64(reclaimed))
	}
	return reclaimed, nil
}

func (s *Service) reclaim(ctx context.Context, card *ledger.Card) bool {
	log := s.log.WithFields(logrus.Fields{
		"method":  "reclaim",
		"card":    card.Address,
		"creator": card.Creator,
	})

	result, err := s.engine.ReclaimGiftCard(ctx, card.Address)
	switch {
	case err == nil:
		log.WithField("payout", result.Payout).Debug("gift card reclaimed")
		return true
	case errors.Is(err, giftcard.ErrAlreadyRedeemed), errors.Is(err, giftcard.ErrNotExpiredYet):
		log.Trace("gift card resolved concurrently")
	case errors.Is(err, giftcard.ErrInsufficientCardBalance):
		// The fee reserve was raised after the batch was read
		log.Info("gift card balance can't cover the fee reserve, skipping")
	default:
		log.WithError(err).Warn("failure reclaiming gift card")
		metrics.RecordCount(ctx, sweepFailedMetricName, 1)
	}
	return false
}
