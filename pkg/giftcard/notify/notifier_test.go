package notify

import (
	"context"
	"crypto/ed25519"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/gift-protocol/pkg/testutil"
)

type relay struct {
	t      *testing.T
	status int

	mu       sync.Mutex
	received []string
}

func (r *relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	assert.Equal(r.t, http.MethodPost, req.Method)
	assert.Equal(r.t, contentTypeHeaderValue, req.Header.Get(contentTypeHeaderName))

	body, err := io.ReadAll(req.Body)
	require.NoError(r.t, err)

	r.mu.Lock()
	r.received = append(r.received, string(body))
	r.mu.Unlock()

	w.WriteHeader(r.status)
}

func (r *relay) tokens() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.received...)
}

func setup(t *testing.T, status int) (*relayNotifier, *relay, ed25519.PublicKey) {
	r := &relay{t: t, status: status}
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	n := NewRelayNotifier(priv, withManualTestOverrides(&testOverrides{
		relayUrl:    server.URL,
		sendTimeout: time.Second,
		rateLimit:   1,
	}))
	return n, r, pub
}

func TestMain(m *testing.M) {
	testutil.DisableLogging()
	m.Run()
}

func TestNotifyGiftCardCreated(t *testing.T) {
	n, r, pub := setup(t, http.StatusOK)

	id, err := n.NotifyGiftCardCreated(context.Background(), &GiftCardCreated{
		RecipientEmail: "Friend <Friend@Example.com>",
		Card:           "card",
		Secret:         "secret",
		Amount:         970_000_000,
		Message:        "enjoy",
		ExpiryTime:     1_800_000_000,
		ThemeId:        11,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	n.Wait()

	tokens := r.tokens()
	require.Len(t, tokens, 1)

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokens[0], claims, func(token *jwt.Token) (interface{}, error) {
		return pub, nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, jwt.SigningMethodEdDSA.Alg(), token.Method.Alg())

	assert.Equal(t, id, claims["jti"])
	assert.Equal(t, "friend@example.com", claims["to"])
	assert.Equal(t, defaultSenderName, claims["sender"])
	assert.Equal(t, "card", claims["card"])
	assert.Equal(t, "secret", claims["secret"])
	assert.EqualValues(t, 970_000_000, claims["amount"])
	assert.Equal(t, "enjoy", claims["message"])
	assert.EqualValues(t, 1_800_000_000, claims["expiresAt"])
	assert.Equal(t, "congratulations", claims["theme"])
}

func TestNotifyGiftCardCreated_NoExpiry(t *testing.T) {
	n, r, pub := setup(t, http.StatusOK)

	_, err := n.NotifyGiftCardCreated(context.Background(), &GiftCardCreated{
		RecipientEmail: "friend@example.com",
		SenderName:     "alice",
		Card:           "card",
	})
	require.NoError(t, err)
	n.Wait()

	tokens := r.tokens()
	require.Len(t, tokens, 1)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(tokens[0], claims, func(token *jwt.Token) (interface{}, error) {
		return pub, nil
	})
	require.NoError(t, err)
	assert.Nil(t, claims["expiresAt"])
	assert.Equal(t, "alice", claims["sender"])
}

func TestNotifyGiftCardCreated_Rejections(t *testing.T) {
	n, r, _ := setup(t, http.StatusOK)
	ctx := context.Background()

	_, err := n.NotifyGiftCardCreated(ctx, &GiftCardCreated{RecipientEmail: "not an email"})
	assert.Equal(t, ErrInvalidEmail, err)

	_, err = n.NotifyGiftCardCreated(ctx, &GiftCardCreated{RecipientEmail: "friend@example.com"})
	require.NoError(t, err)

	_, err = n.NotifyGiftCardCreated(ctx, &GiftCardCreated{RecipientEmail: "FRIEND@example.com"})
	assert.Equal(t, ErrRateLimited, err)

	_, err = n.NotifyGiftCardCreated(ctx, &GiftCardCreated{RecipientEmail: "other@example.com"})
	require.NoError(t, err)

	n.Wait()
	assert.Len(t, r.tokens(), 2)

	unconfigured := NewRelayNotifier(nil, withManualTestOverrides(&testOverrides{}))
	_, err = unconfigured.NotifyGiftCardCreated(ctx, &GiftCardCreated{RecipientEmail: "friend@example.com"})
	assert.Equal(t, ErrRelayNotConfigured, err)

	_, err = NoopNotifier{}.NotifyGiftCardCreated(ctx, &GiftCardCreated{})
	assert.Equal(t, ErrRelayNotConfigured, err)
}

func TestNotifyGiftCardCreated_RelayFailureIsSwallowed(t *testing.T) {
	n, r, _ := setup(t, http.StatusInternalServerError)

	id, err := n.NotifyGiftCardCreated(context.Background(), &GiftCardCreated{RecipientEmail: "friend@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	n.Wait()
	assert.Len(t, r.tokens(), 1)
}
