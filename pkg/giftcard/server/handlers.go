package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/gift-protocol/pkg/database/query"
	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/giftcard/engine"
	"github.com/code-payments/gift-protocol/pkg/giftcard/notify"
	"github.com/code-payments/gift-protocol/pkg/giftcard/secret"
)

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	config, err := s.engine.GetConfig(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigView(config))
}

type statsResponse struct {
	TotalGiftCards       uint64 `json:"total_gift_cards"`
	TotalCommission      uint64 `json:"total_commission"`
	TotalReferralPayouts uint64 `json:"total_referral_payouts"`
	TotalStaked          uint64 `json:"total_staked"`
	TreasuryBalance      uint64 `json:"treasury_balance"`
	StakedAmount         uint64 `json:"staked_amount"`
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.GetStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &statsResponse{
		TotalGiftCards:       stats.TotalGiftCards,
		TotalCommission:      stats.TotalCommission,
		TotalReferralPayouts: stats.TotalReferralPayouts,
		TotalStaked:          stats.TotalStaked,
		TreasuryBalance:      stats.TreasuryBalance,
		StakedAmount:         stats.StakedAmount,
	})
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	card, err := s.engine.GetCard(r.Context(), chi.URLParam(r, "card"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCardView(card))
}

func (s *Server) handleGetCardsByCreator(w http.ResponseWriter, r *http.Request) {
	var opts []query.Option

	values := r.URL.Query()
	if raw := values.Get("limit"); len(raw) > 0 {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, r, errors.Wrap(errInvalidRequest, "invalid limit"))
			return
		}
		opts = append(opts, query.WithLimit(parsed))
	}
	if raw := values.Get("cursor"); len(raw) > 0 {
		cursor, err := query.FromBase58Cursor(raw)
		if err != nil {
			s.writeError(w, r, errors.Wrap(errInvalidRequest, "invalid cursor"))
			return
		}
		opts = append(opts, query.WithCursor(cursor))
	}
	if raw := values.Get("order"); len(raw) > 0 {
		ordering, err := query.ToOrdering(raw)
		if err != nil {
			s.writeError(w, r, errors.Wrap(errInvalidRequest, "invalid order"))
			return
		}
		opts = append(opts, query.WithDirection(ordering))
	}

	cards, err := s.engine.GetCardsByCreator(r.Context(), chi.URLParam(r, "creator"), opts...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCardPageView(cards))
}

func (s *Server) handleGetReferral(w http.ResponseWriter, r *http.Request) {
	referral, err := s.engine.GetReferral(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReferralView(referral))
}

type accountResponse struct {
	Owner   string `json:"owner"`
	Balance uint64 `json:"balance"`
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")

	balance, err := s.engine.GetBalance(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &accountResponse{Owner: owner, Balance: balance})
}

type initializeRequest struct {
	CommissionRate uint64 `json:"commission_rate"`
	ReferralRate   uint64 `json:"referral_rate"`
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	// Rates are range checked before narrowing to basis points
	if err := giftcard.ValidateRates(req.CommissionRate, req.ReferralRate); err != nil {
		s.writeError(w, r, err)
		return
	}

	config, err := s.engine.Initialize(r.Context(), callerFromContext(r.Context()), uint16(req.CommissionRate), uint16(req.ReferralRate))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toConfigView(config))
}

func (s *Server) handleCreateReferral(w http.ResponseWriter, r *http.Request) {
	referral, err := s.engine.CreateReferral(r.Context(), callerFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReferralView(referral))
}

type createGiftCardRequest struct {
	Card       string  `json:"card"`
	Recipient  string  `json:"recipient,omitempty"`
	Amount     uint64  `json:"amount"`
	ExpiryTime int64   `json:"expiry_time,omitempty"`
	Message    string  `json:"message,omitempty"`
	Referrer   *string `json:"referrer,omitempty"`
	TokenMint  *string `json:"token_mint,omitempty"`
	ThemeId    uint32  `json:"theme_id,omitempty"`

	// Email delivery. The secret is only forwarded to the mail relay and is
	// never stored.
	RecipientEmail string `json:"recipient_email,omitempty"`
	SenderName     string `json:"sender_name,omitempty"`
	Secret         string `json:"secret,omitempty"`
}

type createGiftCardResponse struct {
	Card             *cardView `json:"card"`
	Commission       uint64    `json:"commission"`
	ReferralShare    uint64    `json:"referral_share"`
	TreasuryShare    uint64    `json:"treasury_share"`
	ReferralCredited bool      `json:"referral_credited"`
	NotificationId   string    `json:"notification_id,omitempty"`
}

func (s *Server) handleCreateGiftCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createGiftCardRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if len(req.RecipientEmail) > 0 {
		if _, err := secret.ParseForAddress(req.Secret, req.Card); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	result, err := s.engine.CreateGiftCard(ctx, &engine.CreateGiftCardArgs{
		Creator:    callerFromContext(ctx),
		Card:       req.Card,
		Recipient:  req.Recipient,
		Amount:     req.Amount,
		ExpiryTime: req.ExpiryTime,
		Message:    req.Message,
		Referrer:   req.Referrer,
		TokenMint:  req.TokenMint,
		ThemeId:    req.ThemeId,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := &createGiftCardResponse{
		Card:             toCardView(result.Card),
		Commission:       result.Split.Commission,
		ReferralShare:    result.Split.ReferralShare,
		TreasuryShare:    result.Split.TreasuryShare,
		ReferralCredited: result.ReferralCredited,
	}

	if len(req.RecipientEmail) > 0 {
		id, err := s.notifier.NotifyGiftCardCreated(ctx, &notify.GiftCardCreated{
			RecipientEmail: req.RecipientEmail,
			SenderName:     req.SenderName,
			Card:           result.Card.Address,
			Secret:         req.Secret,
			Amount:         result.Card.Balance,
			Message:        result.Card.Message,
			ExpiryTime:     result.Card.ExpiryTime,
			ThemeId:        result.Card.ThemeId,
		})
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"method": "handleCreateGiftCard",
				"card":   result.Card.Address,
			}).Info("gift card email not sent")
		}
		resp.NotificationId = id
	}

	writeJSON(w, http.StatusCreated, resp)
}

type redeemGiftCardRequest struct {
	Secret string `json:"secret"`

	// Destination defaults to the calling wallet
	Destination string `json:"destination,omitempty"`
}

func (s *Server) handleRedeemGiftCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req redeemGiftCardRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	parsed, err := secret.Parse(req.Secret)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	destination := req.Destination
	if len(destination) == 0 {
		destination = callerFromContext(ctx)
	}

	result, err := s.engine.RedeemGiftCard(ctx, &engine.RedeemGiftCardArgs{
		Card:        chi.URLParam(r, "card"),
		Secret:      parsed,
		Destination: destination,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTerminalView(result))
}

func (s *Server) handleReclaimGiftCard(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.ReclaimGiftCard(r.Context(), chi.URLParam(r, "card"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTerminalView(result))
}

func toTerminalView(result *engine.TerminalResult) *terminalView {
	return &terminalView{
		Card:       toCardView(result.Card),
		Payout:     result.Payout,
		FeeReserve: result.FeeReserve,
	}
}

type amountRequest struct {
	Amount uint64 `json:"amount"`
}

func (s *Server) handleStakeTreasuryFunds(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	treasury, err := s.engine.StakeTreasuryFunds(r.Context(), callerFromContext(r.Context()), req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTreasuryView(treasury))
}

type distributeRewardsRequest struct {
	Recipients []string `json:"recipients"`
}

type distributeRewardsResponse struct {
	Share     uint64        `json:"share"`
	Remainder uint64        `json:"remainder"`
	Treasury  *treasuryView `json:"treasury"`
}

func (s *Server) handleDistributeRewards(w http.ResponseWriter, r *http.Request) {
	var req distributeRewardsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.engine.DistributeRewards(r.Context(), callerFromContext(r.Context()), req.Recipients)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &distributeRewardsResponse{
		Share:     result.Share,
		Remainder: result.Remainder,
		Treasury:  toTreasuryView(result.Treasury),
	})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !s.conf.enableDeposits.Get(ctx) {
		s.writeError(w, r, errFeatureDisabled)
		return
	}

	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	account, err := s.engine.Deposit(ctx, callerFromContext(ctx), req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &accountResponse{Owner: account.Owner, Balance: account.Balance})
}
