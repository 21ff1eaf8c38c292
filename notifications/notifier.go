package notifications

import "context"

// Notifier delivers a message to a participant by opaque address.
// Delivery is fire-and-forget: implementations report errors so callers
// can log them, but no caller ever fails its own operation over one.
type Notifier interface {
	Notify(ctx context.Context, address string, message string) error
}

// NopNotifier drops every message, used when no sender is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, address string, message string) error {
	return nil
}
