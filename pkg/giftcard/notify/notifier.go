// Package notify emails gift card recipients through a mail relay. Sending
// is fire-and-forget: nothing here can fail or delay a card that was already
// created.
package notify

import (
	"context"
	"crypto/ed25519"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/gift-protocol/pkg/giftcard"
	"github.com/code-payments/gift-protocol/pkg/metrics"
	"github.com/code-payments/gift-protocol/pkg/rate"
)

const (
	metricsStructName = "giftcard.notify"

	sendFailureMetricName = "GiftCardNotify/SendFailure"
	sendSuccessMetricName = "GiftCardNotify/SendSuccess"

	contentTypeHeaderName  = "Content-Type"
	contentTypeHeaderValue = "application/jwt"
)

var (
	ErrInvalidEmail       = errors.New("invalid recipient email")
	ErrRateLimited        = errors.New("notification rate limited")
	ErrRelayNotConfigured = errors.New("mail relay not configured")
)

// GiftCardCreated is the content of a new card email
type GiftCardCreated struct {
	RecipientEmail string
	SenderName     string

	Card string

	// Secret is included so the recipient can redeem straight from the email
	Secret string

	Amount     uint64
	Message    string
	ExpiryTime int64
	ThemeId    uint32
}

type Notifier interface {
	// NotifyGiftCardCreated queues the email and returns its id. Errors are
	// only returned for notifications that were never queued.
	NotifyGiftCardCreated(ctx context.Context, n *GiftCardCreated) (string, error)
}

type relayNotifier struct {
	log     *logrus.Entry
	conf    *conf
	signer  ed25519.PrivateKey
	limiter rate.Limiter
	client  *http.Client

	wg sync.WaitGroup
}

// NewRelayNotifier returns a Notifier posting EdDSA signed JWTs to the
// configured relay. Sends are rate limited per recipient.
func NewRelayNotifier(signer ed25519.PrivateKey, configProvider ConfigProvider) *relayNotifier {
	conf := configProvider()

	return &relayNotifier{
		log:     logrus.StandardLogger().WithField("type", "giftcard/notify"),
		conf:    conf,
		signer:  signer,
		limiter: rate.NewLocalRateLimiter(xrate.Limit(conf.rateLimit.Get(context.Background()))),
		client:  &http.Client{},
	}
}

func (n *relayNotifier) NotifyGiftCardCreated(ctx context.Context, notification *GiftCardCreated) (string, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "NotifyGiftCardCreated").End()

	relayUrl := n.conf.relayUrl.Get(ctx)
	if len(relayUrl) == 0 {
		return "", ErrRelayNotConfigured
	}

	address, err := mail.ParseAddress(notification.RecipientEmail)
	if err != nil {
		return "", ErrInvalidEmail
	}
	recipient := strings.ToLower(address.Address)

	allowed, err := n.limiter.Allow(recipient)
	if err != nil {
		return "", errors.Wrap(err, "error checking rate limit")
	} else if !allowed {
		return "", ErrRateLimited
	}

	id := uuid.NewString()
	claims := n.toClaims(ctx, id, recipient, notification)
	timeout := n.conf.sendTimeout.Get(ctx)

	log := n.log.WithFields(logrus.Fields{
		"method":          "NotifyGiftCardCreated",
		"notification_id": id,
		"card":            notification.Card,
	})

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		// The request outlives the caller's context on purpose
		ctx := context.Background()

		err := n.send(ctx, relayUrl, timeout, claims)
		if err != nil {
			log.WithError(err).Warn("failure sending gift card email")
			metrics.RecordCount(ctx, sendFailureMetricName, 1)
			return
		}

		log.Debug("gift card email sent")
		metrics.RecordCount(ctx, sendSuccessMetricName, 1)
	}()

	return id, nil
}

// Wait blocks until every queued notification has been attempted
func (n *relayNotifier) Wait() {
	n.wg.Wait()
}

func (n *relayNotifier) toClaims(ctx context.Context, id, recipient string, notification *GiftCardCreated) jwt.MapClaims {
	senderName := notification.SenderName
	if len(senderName) == 0 {
		senderName = n.conf.senderName.Get(ctx)
	}

	claims := jwt.MapClaims{
		"jti":       id,
		"iat":       time.Now().Unix(),
		"to":        recipient,
		"sender":    senderName,
		"card":      notification.Card,
		"secret":    notification.Secret,
		"amount":    notification.Amount,
		"message":   notification.Message,
		"theme":     giftcard.ThemeName(notification.ThemeId),
		"themeId":   notification.ThemeId,
		"expiresAt": nil,
	}
	if notification.ExpiryTime != 0 {
		claims["expiresAt"] = notification.ExpiryTime
	}
	return claims
}

func (n *relayNotifier) send(ctx context.Context, relayUrl string, timeout time.Duration, claims jwt.MapClaims) error {
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	body, err := token.SignedString(n.signer)
	if err != nil {
		return errors.Wrap(err, "error signing jwt")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, relayUrl, strings.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "error creating http request")
	}
	req.Header.Set(contentTypeHeaderName, contentTypeHeaderValue)

	resp, err := n.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "error executing http post request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return errors.Errorf("%d status code returned", resp.StatusCode)
	}
	return nil
}

// NoopNotifier drops every notification
type NoopNotifier struct{}

func (NoopNotifier) NotifyGiftCardCreated(context.Context, *GiftCardCreated) (string, error) {
	return "", ErrRelayNotConfigured
}
