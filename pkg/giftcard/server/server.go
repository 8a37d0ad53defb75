// Package server exposes the gift card engine over a JSON HTTP API.
//
// Reads are public. Mutations carry a wallet signature in the
// X-Wallet-Address, X-Wallet-Timestamp, X-Wallet-Nonce and
// X-Wallet-Signature headers, and the signing wallet is the acting identity
// of the operation.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/gift-protocol/pkg/cache"
	"github.com/code-payments/gift-protocol/pkg/giftcard/engine"
	"github.com/code-payments/gift-protocol/pkg/giftcard/notify"
	"github.com/code-payments/gift-protocol/pkg/metrics"
)

type Server struct {
	log      *logrus.Entry
	conf     *conf
	engine   *engine.Engine
	notifier notify.Notifier
	clock    clockwork.Clock
	router   chi.Router

	// seenSignatures holds accepted wallet signatures for replay rejection
	seenSignatures cache.Cache
}

// New returns the API handler. A nil notifier disables emails and a nil clock
// uses the real clock.
func New(engine *engine.Engine, notifier notify.Notifier, clock clockwork.Clock, configProvider ConfigProvider) *Server {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	conf := configProvider()
	s := &Server{
		log:      logrus.StandardLogger().WithField("type", "giftcard/server"),
		conf:     conf,
		engine:   engine,
		notifier: notifier,
		clock:    clock,
		router:   chi.NewRouter(),

		seenSignatures: cache.NewCache("giftcard/server/signatures", int(conf.maxTrackedSignatures.Get(context.Background()))),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequests)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/config", s.handleGetConfig)
		r.Get("/stats", s.handleGetStats)
		r.Get("/cards/{card}", s.handleGetCard)
		r.Get("/creators/{creator}/cards", s.handleGetCardsByCreator)
		r.Get("/referrals/{owner}", s.handleGetReferral)
		r.Get("/accounts/{owner}", s.handleGetAccount)
		r.Get("/governance/holdings/{owner}", s.handleGetHolding)
		r.Get("/proposals/{proposal}", s.handleGetProposal)
		r.Get("/proposals/{proposal}/votes/{voter}", s.handleGetVote)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Post("/initialize", s.handleInitialize)
			r.Post("/referrals", s.handleCreateReferral)
			r.Post("/cards", s.handleCreateGiftCard)
			r.Post("/cards/{card}/redeem", s.handleRedeemGiftCard)
			r.Post("/cards/{card}/reclaim", s.handleReclaimGiftCard)
			r.Post("/treasury/stake", s.handleStakeTreasuryFunds)
			r.Post("/treasury/distribute", s.handleDistributeRewards)
			r.Post("/accounts/deposit", s.handleDeposit)
			r.Post("/governance/token", s.handleCreateGovernanceToken)
			r.Post("/governance/grant", s.handleGrantGovernanceTokens)
			r.Post("/governance/transfer", s.handleTransferGovernanceTokens)
			r.Post("/proposals", s.handleCreateProposal)
			r.Post("/proposals/{proposal}/vote", s.handleVoteOnProposal)
			r.Post("/proposals/{proposal}/finalize", s.handleFinalizeProposal)
		})
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		ctx, end := metrics.StartTransaction(r.Context(), r.Method+" "+r.URL.Path)
		defer end(nil)

		next.ServeHTTP(ww, r.WithContext(ctx))

		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(ctx),
		}).Debug("handled request")
	})
}
