package domain

import "time"

// ChatKind classifies the Telegram chat a message came from.
type ChatKind string

const (
	KindPrivate    ChatKind = "private"
	KindGroup      ChatKind = "group"
	KindSupergroup ChatKind = "supergroup"
)

// IsGroup reports whether turns in this chat also belong to a shared group ledger.
func (k ChatKind) IsGroup() bool {
	return k == KindGroup || k == KindSupergroup
}

type InboundMessage struct {
	Channel   string
	UserID    int64
	ChatID    int64
	Handle    string // platform username, may be empty
	FirstName string
	ChatKind  ChatKind
	Command   string // set when the message is a /command; Text holds the arguments
	Text      string
	Timestamp time.Time
}

type OutboundMessage struct {
	Channel string
	ChatID  int64
	Content string
}
