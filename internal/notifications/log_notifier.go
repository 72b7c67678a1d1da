package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"
)

const senderAddress = "hello@ourawesomewebsite.com"

// LogNotifier simulates the mail relay by emitting structured log entries.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendGreeting(ctx context.Context, to Recipient) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.greeting",
		"to", to.Email,
		"from", senderAddress,
		"subject", "Registration Confirmation",
		"body", fmt.Sprintf("Welcome, %s! Thanks for registering for OurAwesomeWebsite.com! Have a great day!", to.Email),
	)

	return nil
}

func (n *LogNotifier) SendGiftCard(ctx context.Context, to Recipient) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.gift_card",
		"to", to.Email,
		"from", senderAddress,
		"subject", "Gift Card",
		"code", giftCardCode(),
		"body", fmt.Sprintf("Hey, %s! Enter this code the next time you checkout for 50%% off your next order.", to.Email),
	)

	return nil
}

// giftCardCode builds a GC- prefixed code of 24 random digits.
func giftCardCode() string {
	var b strings.Builder

	b.WriteString("GC-")

	for i := 0; i < 24; i++ {
		b.WriteByte(byte('1' + rand.Intn(9)))
	}

	return b.String()
}

// simulateProvider honors the fault-injection env knobs used in local runs.
func simulateProvider(ctx context.Context) error {
	if msStr := os.Getenv("NOTIFIER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if os.Getenv("NOTIFIER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	return nil
}
