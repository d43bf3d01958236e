package directory

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/creditdesk/internal/clock"
	"github.com/smallbiznis/creditdesk/internal/config"
)

const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"

	secretPrefix       = "whsec_"
	signatureVersion   = "v1"
	timestampTolerance = 5 * time.Minute
)

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Event is a directory webhook delivery.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DeletedUser is the payload of user.deleted.
type DeletedUser struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// WebhookVerifier checks svix-style signatures: HMAC-SHA256 over "id.timestamp.body"
// keyed with the base64 secret, compared against every "v1,<sig>" in the header.
type WebhookVerifier struct {
	secret []byte
	clock  clock.Clock
}

func NewWebhookVerifier(cfg config.Config, clk clock.Clock) (*WebhookVerifier, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(cfg.Directory.WebhookSecret), secretPrefix)
	if raw == "" {
		return &WebhookVerifier{clock: clk}, nil
	}
	secret, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	return &WebhookVerifier{secret: secret, clock: clk}, nil
}

// Verify authenticates body against the delivery headers and decodes the event.
func (v *WebhookVerifier) Verify(header http.Header, body []byte) (Event, error) {
	if v == nil || len(v.secret) == 0 {
		return Event{}, ErrNotConfigured
	}

	msgID := header.Get(HeaderID)
	timestamp := header.Get(HeaderTimestamp)
	signatures := header.Get(HeaderSignature)
	if msgID == "" || timestamp == "" || signatures == "" {
		return Event{}, ErrInvalidSignature
	}

	seconds, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return Event{}, ErrInvalidSignature
	}
	sentAt := time.Unix(seconds, 0)
	now := v.clock.Now()
	if now.Sub(sentAt) > timestampTolerance || sentAt.Sub(now) > timestampTolerance {
		return Event{}, ErrInvalidSignature
	}

	expected := v.sign(msgID, timestamp, body)
	matched := false
	for _, candidate := range strings.Fields(signatures) {
		version, sig, ok := strings.Cut(candidate, ",")
		if !ok || version != signatureVersion {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			matched = true
			break
		}
	}
	if !matched {
		return Event{}, ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil || event.Type == "" {
		return Event{}, ErrInvalidPayload
	}
	return event, nil
}

// Sign returns the header value a sender would attach to body.
func (v *WebhookVerifier) Sign(msgID, timestamp string, body []byte) string {
	return signatureVersion + "," + base64.StdEncoding.EncodeToString(v.sign(msgID, timestamp, body))
}

func (v *WebhookVerifier) sign(msgID, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(msgID))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}
