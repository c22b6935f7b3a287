// Package progress owns the per-user learning state machine: scoring,
// activity and streak tracking, achievements, and skill-level derivation.
//
// ApplyEvent and TickActivity are pure transforms over a ProgressRecord;
// Engine wraps them with store access so that every read-modify-write goes
// through one place.
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"ayaka/internal/domain"
)

const (
	maxScore        = 100
	completionAward = 10
	quizAnswerAward = 5
	maxRecentTopics = 10
)

// Action is a learning event kind.
type Action int

const (
	ActionStarted Action = iota
	ActionCompleted
	ActionQuizCompleted
)

func (a Action) String() string {
	switch a {
	case ActionStarted:
		return "started"
	case ActionCompleted:
		return "completed"
	case ActionQuizCompleted:
		return "quiz_completed"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Engine loads, transforms, and persists progress records.
type Engine struct {
	store  domain.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewEngine(store domain.Store, logger *slog.Logger) *Engine {
	return &Engine{store: store, logger: logger, now: time.Now}
}

// SetClock overrides the engine clock. Tests only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// NewRecord returns the zero-value progress record for a user.
func NewRecord(userID int64, now time.Time) *domain.ProgressRecord {
	return &domain.ProgressRecord{
		UserID:           userID,
		CompletedModules: []string{},
		CurrentModules:   []string{},
		Achievements:     []string{},
		RecentTopics:     []string{},
		SkillLevels: map[string]domain.SkillLevel{
			domain.SkillCrypto:  domain.LevelBeginner,
			domain.SkillStocks:  domain.LevelBeginner,
			domain.SkillTrading: domain.LevelBeginner,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GetOrInit returns the stored record, creating and persisting a zero-value
// record if none exists. Idempotent.
func (e *Engine) GetOrInit(ctx context.Context, userID int64) (*domain.ProgressRecord, error) {
	rec, err := e.store.GetProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load progress for %d: %w", userID, err)
	}
	if rec != nil {
		normalize(rec)
		return rec, nil
	}

	rec = NewRecord(userID, e.now())
	if err := e.store.PutProgress(ctx, rec); err != nil {
		return nil, fmt.Errorf("init progress for %d: %w", userID, err)
	}
	e.logger.Info("initialized progress record", "user_id", userID)
	return rec, nil
}

// RecordEvent applies a learning event to the stored record and persists the
// result, returning the new record.
func (e *Engine) RecordEvent(ctx context.Context, userID int64, topic string, action Action, score int) (*domain.ProgressRecord, error) {
	rec, err := e.GetOrInit(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated := ApplyEvent(*rec, topic, action, score, e.now())
	if err := e.store.PutProgress(ctx, &updated); err != nil {
		return nil, fmt.Errorf("save progress for %d: %w", userID, err)
	}

	e.logger.Info("progress event",
		"user_id", userID,
		"topic", topic,
		"action", action.String(),
		"score", updated.OverallScore,
	)
	return &updated, nil
}

// TouchActivity applies the daily activity tick to the stored record.
func (e *Engine) TouchActivity(ctx context.Context, userID int64) (*domain.ProgressRecord, error) {
	rec, err := e.GetOrInit(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated := TickActivity(*rec, e.now())
	if err := e.store.PutProgress(ctx, &updated); err != nil {
		return nil, fmt.Errorf("save progress for %d: %w", userID, err)
	}
	return &updated, nil
}

// Reset replaces the stored record with a fresh zero-value record. Memory
// ledgers and identity are untouched.
func (e *Engine) Reset(ctx context.Context, userID int64) error {
	fresh := NewRecord(userID, e.now())
	if err := e.store.PutProgress(ctx, fresh); err != nil {
		return fmt.Errorf("reset progress for %d: %w", userID, err)
	}
	e.logger.Info("reset progress", "user_id", userID)
	return nil
}

// ApplyEvent is a pure transform: it returns a new record with the event
// applied, achievements re-evaluated, and skill levels re-derived. The input
// record is not modified.
func ApplyEvent(rec domain.ProgressRecord, topic string, action Action, score int, now time.Time) domain.ProgressRecord {
	out := clone(rec)
	out.UpdatedAt = now

	switch action {
	case ActionStarted:
		if !slices.Contains(out.CurrentModules, topic) {
			out.CurrentModules = append(out.CurrentModules, topic)
		}

	case ActionCompleted:
		if !slices.Contains(out.CompletedModules, topic) {
			out.CompletedModules = append(out.CompletedModules, topic)
		}
		if i := slices.Index(out.CurrentModules, topic); i >= 0 {
			out.CurrentModules = slices.Delete(out.CurrentModules, i, i+1)
		}
		out.OverallScore += completionAward

	case ActionQuizCompleted:
		out.QuizzesCompleted++
		out.TotalQuestions++
		if score > 0 {
			out.CorrectAnswers += score
			out.OverallScore += score * quizAnswerAward
		}
	}

	if !slices.Contains(out.RecentTopics, topic) {
		out.RecentTopics = append(out.RecentTopics, topic)
	}
	if len(out.RecentTopics) > maxRecentTopics {
		out.RecentTopics = out.RecentTopics[len(out.RecentTopics)-maxRecentTopics:]
	}

	if out.OverallScore > maxScore {
		out.OverallScore = maxScore
	}

	evalAchievements(&out)
	deriveSkillLevels(&out)

	return out
}

// TickActivity is a pure transform applied once per inbound message: it
// maintains days_active and the consecutive-day learning streak.
func TickActivity(rec domain.ProgressRecord, now time.Time) domain.ProgressRecord {
	out := clone(rec)

	today := calendarDay(now)
	if rec.LastActivity.IsZero() {
		out.DaysActive++
		out.LearningStreak = 1
	} else {
		prior := calendarDay(rec.LastActivity)
		switch gap := daysBetween(prior, today); {
		case gap == 0:
			// Same calendar day: no change.
		case gap == 1:
			out.DaysActive++
			out.LearningStreak++
		default:
			out.DaysActive++
			out.LearningStreak = 1
		}
	}

	out.LastActivity = now
	out.UpdatedAt = now
	return out
}

// calendarDay truncates a time to its local calendar date.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from a to b, rounding so that DST shifts
// cannot turn one day into zero.
func daysBetween(a, b time.Time) int {
	return int((b.Sub(a).Hours() + 12) / 24)
}

// Achievement names. Awarded once, never revoked except by Reset.
const (
	AchFirstSteps        = "First Steps"
	AchKnowledgeSeeker   = "Knowledge Seeker"
	AchQuizMaster        = "Quiz Master"
	AchConsistentLearner = "Consistent Learner"
	AchHighAchiever      = "High Achiever"
	AchPerfectScore      = "Perfect Score"
)

func evalAchievements(rec *domain.ProgressRecord) {
	award := func(name string, qualifies bool) {
		if qualifies && !rec.HasAchievement(name) {
			rec.Achievements = append(rec.Achievements, name)
		}
	}

	award(AchFirstSteps, len(rec.CompletedModules) >= 1)
	award(AchKnowledgeSeeker, len(rec.CompletedModules) >= 3)
	award(AchQuizMaster, rec.QuizzesCompleted >= 5)
	award(AchConsistentLearner, rec.LearningStreak >= 7)
	award(AchHighAchiever, rec.OverallScore >= 80)
	award(AchPerfectScore, rec.TotalQuestions >= 5 && rec.CorrectAnswers == rec.TotalQuestions)
}

// skillThresholds defines per-domain tier gates: a domain module count or an
// overall score reaches the tier, whichever comes first.
type skillThresholds struct {
	keywords   []string
	intModules int
	intScore   int
	advModules int
	advScore   int
}

var domainThresholds = map[string]skillThresholds{
	domain.SkillCrypto:  {keywords: []string{"crypto", "blockchain"}, intModules: 3, intScore: 60, advModules: 5, advScore: 80},
	domain.SkillStocks:  {keywords: []string{"stock", "trading"}, intModules: 3, intScore: 60, advModules: 5, advScore: 80},
	domain.SkillTrading: {keywords: []string{"trading", "analysis", "risk"}, intModules: 2, intScore: 50, advModules: 4, advScore: 75},
}

func deriveSkillLevels(rec *domain.ProgressRecord) {
	if rec.SkillLevels == nil {
		rec.SkillLevels = make(map[string]domain.SkillLevel, len(domainThresholds))
	}

	for name, th := range domainThresholds {
		count := 0
		for _, mod := range rec.CompletedModules {
			lower := strings.ToLower(mod)
			for _, kw := range th.keywords {
				if strings.Contains(lower, kw) {
					count++
					break
				}
			}
		}

		derived := domain.LevelBeginner
		if count >= th.intModules || rec.OverallScore >= th.intScore {
			derived = domain.LevelIntermediate
		}
		if count >= th.advModules || rec.OverallScore >= th.advScore {
			derived = domain.LevelAdvanced
		}

		rec.SkillLevels[name] = raiseSkill(rec.SkillLevels[name], derived)
	}
}

// raiseSkill is the monotonic ratchet: a derived level only ever raises the
// current one. A shrinking module count or corrected score never downgrades;
// only Reset returns a domain to beginner.
func raiseSkill(current, derived domain.SkillLevel) domain.SkillLevel {
	if skillRank(derived) > skillRank(current) {
		return derived
	}
	if current == "" {
		return domain.LevelBeginner
	}
	return current
}

func skillRank(l domain.SkillLevel) int {
	switch l {
	case domain.LevelAdvanced:
		return 2
	case domain.LevelIntermediate:
		return 1
	default:
		return 0
	}
}

// clone deep-copies a record so pure transforms never alias the caller's
// slices or maps.
func clone(rec domain.ProgressRecord) domain.ProgressRecord {
	out := rec
	out.CompletedModules = slices.Clone(rec.CompletedModules)
	out.CurrentModules = slices.Clone(rec.CurrentModules)
	out.Achievements = slices.Clone(rec.Achievements)
	out.RecentTopics = slices.Clone(rec.RecentTopics)
	out.SkillLevels = maps.Clone(rec.SkillLevels)
	return out
}

// normalize fills nil collections on records loaded from older data.
func normalize(rec *domain.ProgressRecord) {
	if rec.CompletedModules == nil {
		rec.CompletedModules = []string{}
	}
	if rec.CurrentModules == nil {
		rec.CurrentModules = []string{}
	}
	if rec.Achievements == nil {
		rec.Achievements = []string{}
	}
	if rec.RecentTopics == nil {
		rec.RecentTopics = []string{}
	}
	if rec.SkillLevels == nil {
		rec.SkillLevels = map[string]domain.SkillLevel{
			domain.SkillCrypto:  domain.LevelBeginner,
			domain.SkillStocks:  domain.LevelBeginner,
			domain.SkillTrading: domain.LevelBeginner,
		}
	}
}
