package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"stripe-checkout/internal/telemetry"
)

var emails = []string{
	"alice@example.com",
	"bob@example.com",
	"carol@example.com",
	"dave@example.com",
	"eve@example.com",
}

var catalog = []map[string]any{
	{"name": "Wireless Headphones", "price": 79.99},
	{"name": "Mechanical Keyboard", "price": 129.50},
	{"name": "USB-C Cable", "price": 9.99},
	{"name": "Desk Lamp", "price": 34.25},
	{"name": "Coffee Mug", "price": 12.00},
}

func apiAddr() string {
	if v := os.Getenv("CHECKOUT_API_ADDR"); v != "" {
		return v
	}
	return "http://localhost:5000"
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tel, err := telemetry.Setup(ctx, "load-gen")
	if err != nil {
		panic("failed to initialize telemetry: " + err.Error())
	}
	defer tel.Shutdown(context.Background())
	log := tel.Log

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down load-gen...")
		cancel()
	}()

	interval := 2 * time.Second
	if v := os.Getenv("INTERVAL_MS"); v != "" {
		if ms, err := time.ParseDuration(v + "ms"); err == nil {
			interval = ms
		}
	}

	addr := apiAddr()
	client := &http.Client{Timeout: 5 * time.Second}

	log.Info("load-gen started",
		zap.String("target", addr),
		zap.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			createOrder(ctx, client, addr, log)
		}
	}
}

func createOrder(ctx context.Context, client *http.Client, addr string, log *zap.Logger) {
	email := emails[rand.IntN(len(emails))]

	count := 1 + rand.IntN(3)
	items := make([]map[string]any, 0, count)
	total := 0.0
	for i := 0; i < count; i++ {
		product := catalog[rand.IntN(len(catalog))]
		qty := 1 + rand.IntN(3)
		items = append(items, map[string]any{
			"name":     product["name"],
			"price":    product["price"],
			"quantity": qty,
		})
		total += product["price"].(float64) * float64(qty)
	}

	body, _ := json.Marshal(map[string]any{
		"customerEmail": email,
		"items":         items,
		"totalAmount":   total,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/api/orders", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		log.Warn("request failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	status := "ok"
	if resp.StatusCode >= 500 {
		status = "error"
	} else if resp.StatusCode >= 400 {
		status = "rejected"
	}

	log.Info("order sent",
		zap.String("customer_email", email),
		zap.Float64("total_amount", total),
		zap.Int("items", count),
		zap.String("status", status),
		zap.Int("http_status", resp.StatusCode),
	)
}
