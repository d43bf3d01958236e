package directory

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/smallbiznis/creditdesk/internal/clock"
	"github.com/smallbiznis/creditdesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVerifier(t *testing.T, now time.Time) *WebhookVerifier {
	t.Helper()
	secret := "whsec_" + base64.StdEncoding.EncodeToString([]byte("super-secret-signing-key"))
	verifier, err := NewWebhookVerifier(config.Config{
		Directory: config.DirectoryConfig{WebhookSecret: secret},
	}, clock.NewFakeClock(now))
	require.NoError(t, err)
	return verifier
}

func signedHeader(v *WebhookVerifier, id string, sentAt time.Time, body []byte) http.Header {
	ts := strconv.FormatInt(sentAt.Unix(), 10)
	header := http.Header{}
	header.Set(HeaderID, id)
	header.Set(HeaderTimestamp, ts)
	header.Set(HeaderSignature, "v1,bm90LXRoZS1zaWduYXR1cmU= "+v.Sign(id, ts, body))
	return header
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	verifier := newTestVerifier(t, now)
	body := []byte(`{"type":"user.deleted","data":{"id":"user_1","deleted":true}}`)

	event, err := verifier.Verify(signedHeader(verifier, "msg_1", now, body), body)
	require.NoError(t, err)
	assert.Equal(t, EventUserDeleted, event.Type)
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	verifier := newTestVerifier(t, now)
	body := []byte(`{"type":"user.created","data":{}}`)
	header := signedHeader(verifier, "msg_1", now, body)

	_, err := verifier.Verify(header, []byte(`{"type":"user.deleted","data":{}}`))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	verifier := newTestVerifier(t, now)
	body := []byte(`{"type":"user.created","data":{}}`)

	_, err := verifier.Verify(signedHeader(verifier, "msg_1", now.Add(-10*time.Minute), body), body)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyRejectsMissingHeaders(t *testing.T) {
	verifier := newTestVerifier(t, time.Now())

	_, err := verifier.Verify(http.Header{}, []byte(`{}`))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyWithoutSecret(t *testing.T) {
	verifier, err := NewWebhookVerifier(config.Config{}, clock.SystemClock{})
	require.NoError(t, err)

	_, err = verifier.Verify(http.Header{}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
