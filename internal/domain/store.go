package domain

import (
	"context"
	"time"
)

// Role is the roster-assigned role of an identity.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// SkillLevel is a per-domain proficiency tier. Levels only move up between
// resets; see progress.raiseSkill.
type SkillLevel string

const (
	LevelBeginner     SkillLevel = "beginner"
	LevelIntermediate SkillLevel = "intermediate"
	LevelAdvanced     SkillLevel = "advanced"
)

// Skill domains tracked in a ProgressRecord.
const (
	SkillCrypto  = "crypto"
	SkillStocks  = "stocks"
	SkillTrading = "trading"
)

// Identity is one chat user as the bot knows them. Created on first
// interaction, updated on every later one, never deleted.
type Identity struct {
	UserID       int64     `json:"user_id"`
	Handle       string    `json:"handle,omitempty"`
	FirstName    string    `json:"first_name"`
	DisplayName  string    `json:"display_name"`
	Role         Role      `json:"role"`
	Known        bool      `json:"known"`
	RegisteredAt time.Time `json:"registered_at"`
	LastSeen     time.Time `json:"last_seen"`
}

// IsAdmin reports whether the identity carries the admin role.
func (id *Identity) IsAdmin() bool { return id.Role == RoleAdmin }

// ProgressRecord is the per-user learning state. All mutation goes through
// the pure transforms in internal/progress; the record itself is plain data.
type ProgressRecord struct {
	UserID           int64                 `json:"user_id"`
	OverallScore     int                   `json:"overall_score"`
	CompletedModules []string              `json:"completed_modules"`
	CurrentModules   []string              `json:"current_modules"`
	QuizzesCompleted int                   `json:"quizzes_completed"`
	CorrectAnswers   int                   `json:"correct_answers"`
	TotalQuestions   int                   `json:"total_questions"`
	LearningStreak   int                   `json:"learning_streak"`
	DaysActive       int                   `json:"days_active"`
	LastActivity     time.Time             `json:"last_activity,omitzero"`
	Achievements     []string              `json:"achievements"`
	RecentTopics     []string              `json:"recent_topics"`
	SkillLevels      map[string]SkillLevel `json:"skill_levels"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// HasCompleted reports whether the module is in the completed set.
func (r *ProgressRecord) HasCompleted(moduleID string) bool {
	for _, m := range r.CompletedModules {
		if m == moduleID {
			return true
		}
	}
	return false
}

// HasAchievement reports whether the achievement was already awarded.
func (r *ProgressRecord) HasAchievement(name string) bool {
	for _, a := range r.Achievements {
		if a == name {
			return true
		}
	}
	return false
}

// ConversationTurn is one message/reply exchange, immutable once stored.
// Timestamp is kept as a formatted string so that historical records with
// malformed timestamps survive loading; ParsedTime reports validity.
type ConversationTurn struct {
	ID          string   `json:"id"`
	UserMessage string   `json:"user_message"`
	Reply       string   `json:"reply,omitempty"`
	AuthorName  string   `json:"author_name"`
	UserID      int64    `json:"user_id"`
	ChatID      int64    `json:"chat_id"`
	ChatKind    ChatKind `json:"chat_kind"`
	Timestamp   string   `json:"timestamp"`
}

// ParsedTime returns the turn's timestamp and whether it could be parsed.
func (t *ConversationTurn) ParsedTime() (time.Time, bool) {
	if t.Timestamp == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, t.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Store is the durable key-value persistence layer. Four namespaces:
// identities and progress keyed by user id, user_memories keyed by user id,
// group_memories keyed by chat id. Get returns nil (not an error) when the
// key is absent; Put upserts the whole record.
type Store interface {
	GetIdentity(ctx context.Context, userID int64) (*Identity, error)
	PutIdentity(ctx context.Context, id *Identity) error
	AllIdentities(ctx context.Context) ([]*Identity, error)

	GetProgress(ctx context.Context, userID int64) (*ProgressRecord, error)
	PutProgress(ctx context.Context, rec *ProgressRecord) error
	AllProgress(ctx context.Context) (map[int64]*ProgressRecord, error)

	GetUserTurns(ctx context.Context, userID int64) ([]ConversationTurn, error)
	PutUserTurns(ctx context.Context, userID int64, turns []ConversationTurn) error
	UserTurnKeys(ctx context.Context) ([]int64, error)

	GetGroupTurns(ctx context.Context, chatID int64) ([]ConversationTurn, error)
	PutGroupTurns(ctx context.Context, chatID int64, turns []ConversationTurn) error
	GroupTurnKeys(ctx context.Context) ([]int64, error)

	Backup(ctx context.Context, destPath string) error
	Close() error
}
