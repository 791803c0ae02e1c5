package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/archivesurmer-backend/pkg/config"
	"github.com/angelmondragon/archivesurmer-backend/pkg/payments"
)

func TestNewClientValidatesKeyForEnvironment(t *testing.T) {
	ctx := context.Background()

	if _, err := NewClient(ctx, config.StripeConfig{APIKey: "sk_live_123", WebhookSecret: "whsec", Env: "test"}, nil); err == nil {
		t.Fatal("expected live key to be rejected in test env")
	}
	if _, err := NewClient(ctx, config.StripeConfig{APIKey: "sk_test_123", Env: "test"}, nil); !errors.Is(err, errSecretRequired) {
		t.Fatalf("expected missing secret error, got %v", err)
	}
	if _, err := NewClient(ctx, config.StripeConfig{APIKey: "sk_test_123", WebhookSecret: "whsec", Env: "staging"}, nil); !errors.Is(err, errInvalidStripeEnv) {
		t.Fatalf("expected invalid env error, got %v", err)
	}

	client, err := NewClient(ctx, config.StripeConfig{APIKey: "sk_test_123", WebhookSecret: "whsec", Env: ""}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Environment() != "test" {
		t.Fatalf("expected test env, got %q", client.Environment())
	}
}

func TestParseWebhookExtractsCheckoutFields(t *testing.T) {
	payload := signedCheckoutEvent(t, stripe.EventTypeCheckoutSessionCompleted, "cs_test_1", map[string]string{"listing_id": "lst-1"})
	header := signatureHeader(payload, "whsec_test", time.Now().Unix())

	event, err := ParseWebhook(payload, header, "whsec_test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Type != payments.EventCheckoutCompleted {
		t.Fatalf("unexpected type %q", event.Type)
	}
	if event.SessionID != "cs_test_1" || event.ListingID != "lst-1" {
		t.Fatalf("unexpected session/listing %q/%q", event.SessionID, event.ListingID)
	}
}

func TestParseWebhookWithoutMetadata(t *testing.T) {
	payload := signedCheckoutEvent(t, stripe.EventTypeCheckoutSessionExpired, "cs_test_2", nil)
	header := signatureHeader(payload, "whsec_test", time.Now().Unix())

	event, err := ParseWebhook(payload, header, "whsec_test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.ListingID != "" || event.SessionID != "cs_test_2" {
		t.Fatalf("expected session-only event, got %+v", event)
	}
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	payload := signedCheckoutEvent(t, stripe.EventTypeCheckoutSessionCompleted, "cs_test_3", nil)

	_, err := ParseWebhook(payload, "t=1,v1=deadbeef", "whsec_test")
	if !errors.Is(err, payments.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func signedCheckoutEvent(t *testing.T, eventType stripe.EventType, sessionID string, metadata map[string]string) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":       sessionID,
		"object":   "checkout.session",
		"metadata": metadata,
	})
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	event := &stripe.Event{
		ID:         "evt_" + sessionID,
		Type:       eventType,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data:       &stripe.EventData{Raw: raw},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload
}

func signatureHeader(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
