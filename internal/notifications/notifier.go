package notifications

import "context"

// Recipient identifies the newly registered user a message goes to.
type Recipient struct {
	UserID string
	Email  string
}

// Notifier dispatches the two registration side effects. Both are
// best-effort: callers await them but a failure never unwinds the already
// committed user record.
type Notifier interface {
	SendGreeting(ctx context.Context, to Recipient) error
	SendGiftCard(ctx context.Context, to Recipient) error
}
