package domain

import "context"

// Channel is the interface for user-facing I/O (Telegram, CLI).
type Channel interface {
	Name() string
	Start(ctx context.Context, bus MessageBus) error
	Stop() error
	Send(ctx context.Context, chatID int64, content string) error
}
