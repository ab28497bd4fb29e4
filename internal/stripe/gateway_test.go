package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		amount float64
		want   int64
	}{
		{0, 0},
		{1, 100},
		{19.99, 1999},
		{0.01, 1},
		{10.005, 1001},  // rounds half away from zero
		{10.004, 1000},
		{129.50, 12950},
		{0.999, 100},
	}
	for _, tc := range cases {
		if got := MinorUnits(tc.amount); got != tc.want {
			t.Fatalf("MinorUnits(%v) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}

func TestMinorUnits_TotalMatchesLineItems(t *testing.T) {
	// The total sent to the provider must equal the sum of per-item
	// conversions when item prices are exact cents.
	items := []CheckoutItem{
		{Name: "a", Price: 79.99, Quantity: 2},
		{Name: "b", Price: 9.99, Quantity: 3},
		{Name: "c", Price: 12.00, Quantity: 1},
	}
	var sum int64
	var total float64
	for _, it := range items {
		sum += MinorUnits(it.Price) * it.Quantity
		total += it.Price * float64(it.Quantity)
	}
	if got := MinorUnits(total); got != sum {
		t.Fatalf("total in cents %d does not match summed line items %d", got, sum)
	}
	if sum != 20195 {
		t.Fatalf("expected 20195 cents, got %d", sum)
	}
}

func signedHeader(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestConstructWebhookEvent_ValidSignature(t *testing.T) {
	const secret = "whsec_test"
	payload := []byte(`{"id":"evt_1","object":"event","api_version":"2025-03-31","type":"checkout.session.completed","data":{"object":{"id":"cs_1","payment_intent":"pi_1","metadata":{"orderId":"order-1"}}}}`)

	c := NewClient("sk_test")
	evt, err := c.ConstructWebhookEvent(payload, signedHeader(t, payload, secret), secret)
	if err != nil {
		t.Fatalf("construct event: %v", err)
	}
	if evt.Type != "checkout.session.completed" {
		t.Fatalf("unexpected event type %q", evt.Type)
	}

	var obj struct {
		ID            string            `json:"id"`
		PaymentIntent string            `json:"payment_intent"`
		Metadata      map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(evt.Data, &obj); err != nil {
		t.Fatalf("unmarshal event data: %v", err)
	}
	if obj.ID != "cs_1" || obj.PaymentIntent != "pi_1" || obj.Metadata["orderId"] != "order-1" {
		t.Fatalf("unexpected event data: %+v", obj)
	}
}

func TestConstructWebhookEvent_InvalidSignature(t *testing.T) {
	const secret = "whsec_test"
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{}}}`)

	c := NewClient("sk_test")

	// signed with the wrong secret
	if _, err := c.ConstructWebhookEvent(payload, signedHeader(t, payload, "whsec_other"), secret); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	// payload tampered after signing
	header := signedHeader(t, payload, secret)
	tampered := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_x"}}}`)
	if _, err := c.ConstructWebhookEvent(tampered, header, secret); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature for tampered payload, got %v", err)
	}

	// garbage header
	if _, err := c.ConstructWebhookEvent(payload, "t=0,v1=deadbeef", secret); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature for garbage header, got %v", err)
	}
}
