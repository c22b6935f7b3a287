package progress

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ayaka/internal/domain"
)

// Summary renders the formatted progress overview shown by /progress.
func Summary(rec *domain.ProgressRecord, displayName string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 Learning Progress for %s\n\n", displayName)
	fmt.Fprintf(&b, "🎯 Overall Score: %d%%\n", rec.OverallScore)
	fmt.Fprintf(&b, "📚 Completed Modules: %d\n", len(rec.CompletedModules))
	fmt.Fprintf(&b, "🔥 Learning Streak: %d days\n", rec.LearningStreak)
	fmt.Fprintf(&b, "📅 Days Active: %d\n", rec.DaysActive)
	fmt.Fprintf(&b, "❓ Quizzes Completed: %d\n", rec.QuizzesCompleted)

	if rec.TotalQuestions > 0 {
		accuracy := float64(rec.CorrectAnswers) / float64(rec.TotalQuestions) * 100
		fmt.Fprintf(&b, "🎯 Quiz Accuracy: %.1f%%\n", accuracy)
	}

	b.WriteString("\n📈 Skill Levels:\n")
	for _, name := range []string{domain.SkillCrypto, domain.SkillStocks, domain.SkillTrading} {
		level := rec.SkillLevels[name]
		if level == "" {
			level = domain.LevelBeginner
		}
		fmt.Fprintf(&b, "%s %s: %s\n", levelEmoji(level), titleCase(name), titleCase(string(level)))
	}

	if len(rec.RecentTopics) > 0 {
		b.WriteString("\n📚 Recent Topics:\n")
		topics := rec.RecentTopics
		if len(topics) > 5 {
			topics = topics[len(topics)-5:]
		}
		for _, topic := range topics {
			fmt.Fprintf(&b, "• %s\n", topic)
		}
	}

	if len(rec.Achievements) > 0 {
		b.WriteString("\n🏅 Achievements:\n")
		for _, a := range rec.Achievements {
			fmt.Fprintf(&b, "🏆 %s\n", a)
		}
	}

	return b.String()
}

func levelEmoji(level domain.SkillLevel) string {
	switch level {
	case domain.LevelAdvanced:
		return "🌟"
	case domain.LevelIntermediate:
		return "📈"
	default:
		return "🌱"
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// LeaderboardEntry is one row of the score ranking.
type LeaderboardEntry struct {
	UserID           int64
	DisplayName      string
	OverallScore     int
	CompletedModules int
	Achievements     int
}

// Leaderboard returns the top users by overall score. Users without a stored
// identity are skipped.
func (e *Engine) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	all, err := e.store.AllProgress(ctx)
	if err != nil {
		return nil, fmt.Errorf("load progress data: %w", err)
	}

	var entries []LeaderboardEntry
	for userID, rec := range all {
		id, err := e.store.GetIdentity(ctx, userID)
		if err != nil {
			return nil, err
		}
		if id == nil {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			UserID:           userID,
			DisplayName:      id.DisplayName,
			OverallScore:     rec.OverallScore,
			CompletedModules: len(rec.CompletedModules),
			Achievements:     len(rec.Achievements),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].OverallScore != entries[j].OverallScore {
			return entries[i].OverallScore > entries[j].OverallScore
		}
		return entries[i].UserID < entries[j].UserID
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Recommendations returns up to three personalized next steps.
func Recommendations(rec *domain.ProgressRecord) []string {
	var recs []string

	if !rec.HasCompleted("crypto_basics") {
		recs = append(recs, "Start with Cryptocurrency Basics - perfect for beginners!")
	}
	if !rec.HasCompleted("stocks_basics") {
		recs = append(recs, "Learn Stock Market Fundamentals - build your foundation!")
	}
	if len(rec.CompletedModules) >= 2 && !rec.HasCompleted("risk_management") {
		recs = append(recs, "Study Risk Management - essential for any trader!")
	}
	if rec.SkillLevels[domain.SkillCrypto] == domain.LevelBeginner && !rec.HasCompleted("blockchain") {
		recs = append(recs, "Dive deeper with the Blockchain Technology module!")
	}
	if rec.SkillLevels[domain.SkillStocks] == domain.LevelBeginner && !rec.HasCompleted("technical_analysis") {
		recs = append(recs, "Learn Technical Analysis to read charts like a pro!")
	}
	if rec.QuizzesCompleted < 3 {
		recs = append(recs, "Take more quizzes to test your knowledge!")
	}

	if len(recs) > 3 {
		recs = recs[:3]
	}
	return recs
}
