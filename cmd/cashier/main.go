package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"posDisplayWs/internal/config"
	"posDisplayWs/internal/modules/realtime/domain"
	"posDisplayWs/internal/modules/session/cashier"
	"posDisplayWs/internal/modules/session/transport"
	"posDisplayWs/internal/shared/clock"
	"posDisplayWs/internal/shared/logging"
)

var errUsage = errors.New("usage")

// Line-driven cashier terminal mirroring its active order to the customer display.
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

	var session *cashier.Session
	socket := transport.New(transport.Options{
		URL:            cfg.Client.RelayURL,
		ReconnectDelay: cfg.Client.ReconnectDelay,
		MaxAttempts:    cfg.Client.ReconnectMaxAttempts,
		PingInterval:   cfg.Client.PingInterval,
	}, transport.Hooks{
		OnConnect: func(transport.SendFunc) {
			if err := session.Resync(); err != nil {
				slog.Warn("cashier resync failed", slog.Any("error", err))
			}
		},
	})
	session = cashier.NewSession(socket, clock.Real(), cfg.Client.TaxRateBps)

	go func() {
		if err := socket.Run(ctx); err != nil {
			slog.Error("relay connection abandoned", slog.Any("error", err))
		}
		stop()
	}()

	repl(ctx, session, os.Stdin, os.Stdout)
}

func repl(ctx context.Context, session *cashier.Session, in io.Reader, out io.Writer) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			if fields[0] == "quit" || fields[0] == "exit" {
				return
			}
			msg, err := execute(session, fields)
			switch {
			case errors.Is(err, cashier.ErrNotDelivered):
				fmt.Fprintf(out, "%s (display offline)\n", msg)
			case err != nil:
				fmt.Fprintf(out, "error: %v\n", err)
			case msg != "":
				fmt.Fprintln(out, msg)
			}
		}
	}
}

func execute(session *cashier.Session, args []string) (string, error) {
	switch args[0] {
	case "open":
		if len(args) != 2 {
			return "", fmt.Errorf("%w: open <order>", errUsage)
		}
		return "opened " + args[1], session.OpenOrder(args[1])
	case "use":
		if len(args) != 2 {
			return "", fmt.Errorf("%w: use <order>", errUsage)
		}
		return "active " + args[1], session.Activate(args[1])
	case "close":
		if len(args) != 2 {
			return "", fmt.Errorf("%w: close <order>", errUsage)
		}
		return "closed " + args[1], session.CloseOrder(args[1])
	case "add":
		if len(args) < 5 || len(args) > 6 {
			return "", fmt.Errorf("%w: add <order> <productId> <name> <price> [qty]", errUsage)
		}
		id, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: product id %q", errUsage, args[2])
		}
		price, err := domain.ParseMoney(args[4])
		if err != nil {
			return "", err
		}
		qty := 1
		if len(args) == 6 {
			if qty, err = strconv.Atoi(args[5]); err != nil {
				return "", fmt.Errorf("%w: quantity %q", errUsage, args[5])
			}
		}
		err = session.AddItem(args[1], domain.Product{ID: id, Name: args[3], Price: price}, qty)
		return summary(session), err
	case "qty":
		if len(args) != 4 {
			return "", fmt.Errorf("%w: qty <order> <productId> <qty>", errUsage)
		}
		id, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: product id %q", errUsage, args[2])
		}
		qty, err := strconv.Atoi(args[3])
		if err != nil {
			return "", fmt.Errorf("%w: quantity %q", errUsage, args[3])
		}
		err = session.SetQuantity(args[1], id, qty)
		return summary(session), err
	case "rm":
		if len(args) != 3 {
			return "", fmt.Errorf("%w: rm <order> <productId>", errUsage)
		}
		id, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: product id %q", errUsage, args[2])
		}
		err = session.RemoveItem(args[1], id)
		return summary(session), err
	case "clear":
		if len(args) != 2 {
			return "", fmt.Errorf("%w: clear <order>", errUsage)
		}
		return "cleared " + args[1], session.ClearCart(args[1])
	case "qr":
		if len(args) < 2 || len(args) > 3 {
			return "", fmt.Errorf("%w: qr <url> [method]", errUsage)
		}
		method := "qr"
		if len(args) == 3 {
			method = args[2]
		}
		qr, err := session.BeginQRPayment(args[1], method)
		return fmt.Sprintf("qr %s for %.2f", qr.TransactionUUID, qr.Amount), err
	case "cancel":
		return "qr cancelled", session.CancelQRPayment()
	case "paid":
		return "payment complete", session.CompletePayment()
	case "restore":
		return "display restored", session.RestoreCartDisplay()
	case "show":
		return summary(session), nil
	}
	return "", fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}

func summary(session *cashier.Session) string {
	snapshot, err := session.Snapshot()
	if err != nil {
		return err.Error()
	}
	var b strings.Builder
	for _, item := range snapshot.Cart {
		fmt.Fprintf(&b, "%d %s x%d %s\n", item.ID, item.Name, item.Quantity, item.Total)
	}
	fmt.Fprintf(&b, "subtotal %s tax %s total %s", snapshot.Subtotal, snapshot.Tax, snapshot.Total)
	return b.String()
}
