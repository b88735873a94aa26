// Package webhooks hosts the inbound HTTP handlers for the three event
// sources that drive the pipeline: the voice-call provider (Retell), the
// scheduling provider (Cal.com) and the payment provider (Stripe).
//
// Every delivery is appended to the webhook event log before any processing.
// Failures that a redelivery cannot fix (unknown lead, unknown invoice) are
// recorded and acknowledged with 200 so the provider stops retrying;
// transient failures return 500 to request a retry.
package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/showrate/platform/internal/appointments"
	"github.com/showrate/platform/internal/billing"
	"github.com/showrate/platform/internal/calls"
	"github.com/showrate/platform/internal/clients"
	"github.com/showrate/platform/internal/leads"
)

// Source names used in the event log and metrics labels.
const (
	SourceRetell = "retell"
	SourceCalCom = "calcom"
	SourceStripe = "stripe"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func ack(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// permanent reports whether redelivering the webhook could possibly succeed.
// Data-shaped failures are acknowledged so the provider stops retrying.
func permanent(err error) bool {
	return errors.Is(err, leads.ErrLeadNotFound) ||
		errors.Is(err, leads.ErrAmbiguousMatch) ||
		errors.Is(err, appointments.ErrAppointmentNotFound) ||
		errors.Is(err, calls.ErrCallNotFound) ||
		errors.Is(err, billing.ErrInvoiceNotFound) ||
		errors.Is(err, clients.ErrClientNotFound)
}

// verifyHexHMAC checks a hex-encoded HMAC-SHA256 of the raw body, the scheme
// both Retell and Cal.com use. An empty secret bypasses verification for
// development.
func verifyHexHMAC(secret string, payload []byte, signature string) bool {
	if secret == "" {
		return true
	}
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// verifyStripeSignature checks Stripe's "t=<ts>,v1=<sig>" header: an
// HMAC-SHA256 of "timestamp.payload" with a five minute timestamp tolerance.
// An empty secret bypasses verification for development.
func verifyStripeSignature(secret string, payload []byte, header string) bool {
	if secret == "" {
		return true
	}
	if header == "" {
		return false
	}

	var timestamp string
	var signatures []string

	parts := strings.Split(header, ",")
	for _, part := range parts {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	if abs64(time.Now().Unix()-ts) > 300 {
		return false
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return true
		}
	}
	return false
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
