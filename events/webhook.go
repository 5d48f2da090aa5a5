package events

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	HeaderEventID   = "X-Bridge-Event-Id"
	HeaderTimestamp = "X-Bridge-Timestamp"
	HeaderSignature = "X-Bridge-Signature"
	HeaderEventType = "X-Bridge-Event-Type"

	typeNotification = "notification"
	typeVerification = "webhook_callback_verification"

	maxTimestampSkew = 10 * time.Minute
	maxBodyBytes     = 1 << 20
)

// Notification is one verified event delivery from the network.
type Notification struct {
	ID       string `json:"-"`
	Type     string `json:"-"`
	Channel  string `json:"channel"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Reward   string `json:"reward"`
}

// envelope is the delivery body shared by verifications and notifications.
type envelope struct {
	Challenge    string `json:"challenge,omitempty"`
	Subscription struct {
		Type string `json:"type"`
	} `json:"subscription"`
	Event json.RawMessage `json:"event,omitempty"`
}

// Seen deduplicates deliveries by event id. *db.Store satisfies it.
type Seen interface {
	MarkEventSeen(id string) (bool, error)
}

// Webhook receives the network's event callbacks: it verifies the HMAC
// signature, answers verification handshakes, drops replays, and forwards
// fresh notifications to the injected callback.
type Webhook struct {
	secret  []byte
	seen    Seen
	notify  func(context.Context, Notification)
	nowFunc func() time.Time // test hook
}

func NewWebhook(secret string, seen Seen, notify func(context.Context, Notification)) *Webhook {
	return &Webhook{
		secret:  []byte(secret),
		seen:    seen,
		notify:  notify,
		nowFunc: time.Now,
	}
}

func (w *Webhook) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
	if err != nil {
		http.Error(rw, "read failed", http.StatusBadRequest)
		return
	}

	id := req.Header.Get(HeaderEventID)
	timestamp := req.Header.Get(HeaderTimestamp)
	if id == "" || timestamp == "" {
		http.Error(rw, "missing delivery headers", http.StatusBadRequest)
		return
	}

	if !w.verifySignature(id, timestamp, body, req.Header.Get(HeaderSignature)) {
		slog.Warn("webhook: bad signature", "id", id)
		http.Error(rw, "bad signature", http.StatusForbidden)
		return
	}

	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil || absDuration(w.nowFunc().Sub(ts)) > maxTimestampSkew {
		slog.Warn("webhook: stale timestamp", "id", id, "timestamp", timestamp)
		http.Error(rw, "stale timestamp", http.StatusForbidden)
		return
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		http.Error(rw, "bad body", http.StatusBadRequest)
		return
	}

	switch req.Header.Get(HeaderEventType) {
	case typeVerification:
		rw.Header().Set("Content-Type", "text/plain")
		rw.Write([]byte(env.Challenge))

	case typeNotification:
		fresh, err := w.seen.MarkEventSeen(id)
		if err != nil {
			slog.Error("webhook: dedup check failed", "err", err)
			http.Error(rw, "internal error", http.StatusInternalServerError)
			return
		}
		if !fresh {
			// Replayed delivery; acknowledge without reprocessing.
			rw.WriteHeader(http.StatusNoContent)
			return
		}

		var n Notification
		if err := json.Unmarshal(env.Event, &n); err != nil {
			http.Error(rw, "bad event", http.StatusBadRequest)
			return
		}
		n.ID = id
		n.Type = env.Subscription.Type

		// Respond before the bot's governed announcement runs; a send can
		// legitimately wait out a full rate window.
		go w.notify(context.Background(), n)
		rw.WriteHeader(http.StatusNoContent)

	default:
		http.Error(rw, "unknown event type", http.StatusBadRequest)
	}
}

// verifySignature checks the hex HMAC-SHA256 over id + timestamp + body.
func (w *Webhook) verifySignature(id, timestamp string, body []byte, header string) bool {
	mac := hmac.New(sha256.New, w.secret)
	mac.Write([]byte(id))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(header))
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
