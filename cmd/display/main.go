package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"posDisplayWs/internal/config"
	"posDisplayWs/internal/modules/session/display"
	"posDisplayWs/internal/modules/session/transport"
	"posDisplayWs/internal/shared/clock"
	"posDisplayWs/internal/shared/logging"
)

// Headless customer display: renders state changes as log lines.
func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, ".env load warning: %v\n", err)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stderr, logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := display.NewSession(transport.Options{
		URL:            cfg.Client.RelayURL,
		ReconnectDelay: cfg.Client.ReconnectDelay,
		MaxAttempts:    cfg.Client.ReconnectMaxAttempts,
		PingInterval:   cfg.Client.PingInterval,
	}, clock.Real(), cfg.Client.QRTimeout, render)

	if err := session.Run(ctx); err != nil {
		slog.Error("display stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func render(v display.View) {
	switch v.Phase {
	case display.ShowingQR:
		fmt.Printf("[%s] scan to pay %.2f (%s) %s\n", time.Now().Format(time.TimeOnly), v.QR.Amount, v.QR.PaymentMethod, v.QR.QRCodeURL)
	case display.ShowingCart:
		fmt.Printf("[%s] cart\n", time.Now().Format(time.TimeOnly))
		for _, item := range v.Cart.Cart {
			fmt.Printf("  %-24s x%-3d %8s\n", item.Name, item.Quantity, item.Total)
		}
		fmt.Printf("  subtotal %s  tax %s  total %s\n", v.Cart.Subtotal, v.Cart.Tax, v.Cart.Total)
	default:
		if v.LastPaidTransaction != "" {
			fmt.Printf("[%s] thank you! (%s)\n", time.Now().Format(time.TimeOnly), v.LastPaidTransaction)
			return
		}
		fmt.Printf("[%s] welcome\n", time.Now().Format(time.TimeOnly))
	}
}
