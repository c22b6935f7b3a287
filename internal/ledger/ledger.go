// Package ledger owns the bounded conversation memory: a per-user ledger
// capped at 50 turns and a per-group ledger capped at 100, plus the context
// builder that turns ledgers into generator input and the retention purge.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ayaka/internal/domain"
)

const (
	maxUserTurns  = 50
	maxGroupTurns = 100

	// How many of the user's own turns the context prompt includes.
	contextTurns = 5
)

// Ledger records conversation turns and serves conversational context.
type Ledger struct {
	store  domain.Store
	logger *slog.Logger
	now    func() time.Time
}

func New(store domain.Store, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger, now: time.Now}
}

// SetClock overrides the ledger clock. Tests only.
func (l *Ledger) SetClock(now func() time.Time) { l.now = now }

// NewTurn builds a fully populated turn from an inbound message and its reply.
func (l *Ledger) NewTurn(msg domain.InboundMessage, reply string) domain.ConversationTurn {
	name := msg.FirstName
	if name == "" {
		name = msg.Handle
	}
	return domain.ConversationTurn{
		ID:          uuid.NewString(),
		UserMessage: msg.Text,
		Reply:       reply,
		AuthorName:  name,
		UserID:      msg.UserID,
		ChatID:      msg.ChatID,
		ChatKind:    msg.ChatKind,
		Timestamp:   l.now().Format(time.RFC3339),
	}
}

// AppendUserTurn appends a turn to the user's ledger, evicting the oldest
// turns past the cap.
func (l *Ledger) AppendUserTurn(ctx context.Context, userID int64, turn domain.ConversationTurn) error {
	turns, err := l.store.GetUserTurns(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user ledger %d: %w", userID, err)
	}

	turns = append(turns, turn)
	if len(turns) > maxUserTurns {
		turns = turns[len(turns)-maxUserTurns:]
	}

	if err := l.store.PutUserTurns(ctx, userID, turns); err != nil {
		return fmt.Errorf("save user ledger %d: %w", userID, err)
	}
	return nil
}

// AppendGroupTurn appends a turn to the group's ledger, evicting the oldest
// turns past the cap.
func (l *Ledger) AppendGroupTurn(ctx context.Context, chatID int64, turn domain.ConversationTurn) error {
	turns, err := l.store.GetGroupTurns(ctx, chatID)
	if err != nil {
		return fmt.Errorf("load group ledger %d: %w", chatID, err)
	}

	turns = append(turns, turn)
	if len(turns) > maxGroupTurns {
		turns = turns[len(turns)-maxGroupTurns:]
	}

	if err := l.store.PutGroupTurns(ctx, chatID, turns); err != nil {
		return fmt.Errorf("save group ledger %d: %w", chatID, err)
	}
	return nil
}

// RecentUser returns the last n turns of the user's ledger, oldest first.
func (l *Ledger) RecentUser(ctx context.Context, userID int64, n int) ([]domain.ConversationTurn, error) {
	turns, err := l.store.GetUserTurns(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user ledger %d: %w", userID, err)
	}
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns, nil
}

// BuildContext assembles the conversational context for a reply. In private
// chats it is the user's own history; in groups it is the group history
// followed by the user's last few turns, so the user's thread stands out
// against the room.
func (l *Ledger) BuildContext(ctx context.Context, userID, chatID int64, kind domain.ChatKind) ([]domain.ConversationTurn, error) {
	if !kind.IsGroup() {
		turns, err := l.store.GetUserTurns(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("build private context for %d: %w", userID, err)
		}
		return turns, nil
	}

	groupTurns, err := l.store.GetGroupTurns(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("build group context for %d: %w", chatID, err)
	}
	userTurns, err := l.RecentUser(ctx, userID, contextTurns)
	if err != nil {
		return nil, err
	}
	return append(groupTurns, userTurns...), nil
}

// PurgeOlderThan drops turns older than the cutoff. Turns whose timestamp
// does not parse are always retained.
func PurgeOlderThan(turns []domain.ConversationTurn, cutoff time.Time) []domain.ConversationTurn {
	kept := turns[:0:0]
	for _, turn := range turns {
		ts, ok := turn.ParsedTime()
		if ok && ts.Before(cutoff) {
			continue
		}
		kept = append(kept, turn)
	}
	return kept
}

// PurgeAll applies the retention cutoff to every user and group ledger and
// returns how many turns were dropped.
func (l *Ledger) PurgeAll(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := l.now().Add(-retention)
	dropped := 0

	userKeys, err := l.store.UserTurnKeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list user ledgers: %w", err)
	}
	for _, userID := range userKeys {
		turns, err := l.store.GetUserTurns(ctx, userID)
		if err != nil {
			return dropped, fmt.Errorf("load user ledger %d: %w", userID, err)
		}
		kept := PurgeOlderThan(turns, cutoff)
		if len(kept) == len(turns) {
			continue
		}
		if err := l.store.PutUserTurns(ctx, userID, kept); err != nil {
			return dropped, fmt.Errorf("save user ledger %d: %w", userID, err)
		}
		dropped += len(turns) - len(kept)
	}

	groupKeys, err := l.store.GroupTurnKeys(ctx)
	if err != nil {
		return dropped, fmt.Errorf("list group ledgers: %w", err)
	}
	for _, chatID := range groupKeys {
		turns, err := l.store.GetGroupTurns(ctx, chatID)
		if err != nil {
			return dropped, fmt.Errorf("load group ledger %d: %w", chatID, err)
		}
		kept := PurgeOlderThan(turns, cutoff)
		if len(kept) == len(turns) {
			continue
		}
		if err := l.store.PutGroupTurns(ctx, chatID, kept); err != nil {
			return dropped, fmt.Errorf("save group ledger %d: %w", chatID, err)
		}
		dropped += len(turns) - len(kept)
	}

	if dropped > 0 {
		l.logger.Info("purged old conversation turns", "dropped", dropped, "cutoff", cutoff.Format(time.RFC3339))
	}
	return dropped, nil
}

// FormatTurns renders turns as prompt lines, one exchange per pair of lines.
func FormatTurns(turns []domain.ConversationTurn) string {
	var b strings.Builder
	for _, turn := range turns {
		name := turn.AuthorName
		if name == "" {
			name = "User"
		}
		fmt.Fprintf(&b, "%s: %s\n", name, turn.UserMessage)
		if turn.Reply != "" {
			fmt.Fprintf(&b, "Bot: %s\n", turn.Reply)
		}
	}
	return b.String()
}
