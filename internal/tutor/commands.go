package tutor

import (
	"context"
	"fmt"
	"strings"

	"ayaka/internal/curriculum"
	"ayaka/internal/domain"
	"ayaka/internal/metrics"
	"ayaka/internal/progress"
)

// moduleAliases maps short commands to module ids.
var moduleAliases = map[string]string{
	"crypto": "crypto_basics",
	"stocks": "stocks_basics",
}

func (t *Tutor) handleCommand(ctx context.Context, msg domain.InboundMessage, id *domain.Identity) {
	cmd := strings.ToLower(msg.Command)
	args := strings.TrimSpace(msg.Text)

	switch cmd {
	case "start":
		t.send(msg, t.welcome(id))
	case "help":
		t.send(msg, helpText)
	case "learn":
		t.cmdLearn(ctx, msg)
	case "progress":
		t.cmdProgress(ctx, msg, id)
	case "quiz":
		t.cmdQuiz(ctx, msg)
	case "complete":
		t.cmdComplete(ctx, msg, args)
	case "ask":
		t.cmdAsk(ctx, msg, id, args)
	case "explain":
		t.cmdExplain(ctx, msg, args)
	case "tips":
		t.send(msg, t.course.DailyTip())
	case "stats":
		t.cmdStats(ctx, msg, id)
	case "achievements":
		t.cmdAchievements(ctx, msg)
	case "leaderboard":
		t.cmdLeaderboard(ctx, msg)
	case "users":
		t.cmdUsers(ctx, msg, id)
	case "reset":
		t.cmdReset(ctx, msg)
	default:
		if moduleID, ok := moduleAliases[cmd]; ok {
			cmd = moduleID
		}
		if _, ok := t.course.Module(cmd); ok {
			t.cmdModule(ctx, msg, cmd)
			return
		}
		t.send(msg, "Unknown command. Try /help to see what I can do!")
	}
}

func (t *Tutor) welcome(id *domain.Identity) string {
	return fmt.Sprintf(`🚀 Welcome to Crypto & Stocks Learning Bot!

Hey %s! I'm %s, your friendly AI tutor. I'm here to help you learn about cryptocurrency and stock trading!

🎯 What I can do:
• Teach you crypto and stocks fundamentals
• Remember our conversations and your progress
• Provide personalized learning experiences
• Track your learning milestones
• Be your supportive learning companion

📚 Available Commands:
/help - Show all commands
/learn - Start learning modules
/progress - Check your learning progress
/crypto - Learn about cryptocurrency
/stocks - Learn about stock trading
/quiz - Take a knowledge quiz
/reset - Reset your progress

Let's start your financial education journey! What would you like to learn about first?`, id.DisplayName, t.botName)
}

const helpText = `🤖 Crypto & Stocks Learning Bot - Commands

Learning Commands:
/learn - Browse available learning modules
/crypto - Cryptocurrency fundamentals
/stocks - Stock trading basics
/quiz - Test your knowledge
/complete <module> - Mark a module as finished
/progress - View your learning progress

Interactive Commands:
/ask <question> - Ask me anything about crypto/stocks
/explain <topic> - Get detailed explanations
/tips - Get daily trading tips

Progress Commands:
/stats - View detailed statistics
/achievements - See your achievements
/leaderboard - Top learners
/reset - Reset your learning progress

Utility Commands:
/help - Show this help message
/start - Restart the bot

💡 Tip: You can also just chat with me naturally! I'll remember our conversations and help you learn step by step.`

// cmdModule sends module content and marks the module as started.
func (t *Tutor) cmdModule(ctx context.Context, msg domain.InboundMessage, moduleID string) {
	m, _ := t.course.Module(moduleID)
	metrics.ModulesServedTotal.Inc()

	lock := t.userLock(msg.UserID)
	lock.Lock()
	_, err := t.progress.RecordEvent(ctx, msg.UserID, moduleID, progress.ActionStarted, 0)
	if err == nil {
		_, err = t.progress.TouchActivity(ctx, msg.UserID)
	}
	lock.Unlock()
	if err != nil {
		t.logger.Error("record module start failed", "user_id", msg.UserID, "module", moduleID, "error", err)
	}

	t.send(msg, m.Content+fmt.Sprintf("\n\nWhen you're done, send /complete %s to log your progress!", moduleID))
}

// cmdComplete marks a module as completed and awards score.
func (t *Tutor) cmdComplete(ctx context.Context, msg domain.InboundMessage, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		t.send(msg, "Which module did you finish? Try: /complete crypto_basics")
		return
	}
	moduleID := strings.ToLower(fields[0])
	if alias, ok := moduleAliases[moduleID]; ok {
		moduleID = alias
	}
	m, ok := t.course.Module(moduleID)
	if !ok {
		t.send(msg, "I don't know that module. Use /learn to see the list!")
		return
	}

	lock := t.userLock(msg.UserID)
	lock.Lock()
	rec, err := t.progress.RecordEvent(ctx, msg.UserID, moduleID, progress.ActionCompleted, 0)
	if err == nil {
		_, err = t.progress.TouchActivity(ctx, msg.UserID)
	}
	lock.Unlock()
	if err != nil {
		t.logger.Error("record completion failed", "user_id", msg.UserID, "module", moduleID, "error", err)
		t.send(msg, fallbackReply)
		return
	}

	reply := fmt.Sprintf("🎉 %s completed! Your overall score is now %d%%.", m.Title, rec.OverallScore)
	if len(rec.Achievements) > 0 {
		reply += fmt.Sprintf("\n🏆 Achievements: %s", strings.Join(rec.Achievements, ", "))
	}
	t.send(msg, reply)
}

func (t *Tutor) cmdLearn(ctx context.Context, msg domain.InboundMessage) {
	lock := t.userLock(msg.UserID)
	lock.Lock()
	rec, err := t.progress.GetOrInit(ctx, msg.UserID)
	lock.Unlock()
	if err != nil {
		t.logger.Error("load progress failed", "user_id", msg.UserID, "error", err)
		t.send(msg, fallbackReply)
		return
	}
	t.send(msg, t.course.ModuleList(rec.CompletedModules))
}

func (t *Tutor) cmdProgress(ctx context.Context, msg domain.InboundMessage, id *domain.Identity) {
	lock := t.userLock(msg.UserID)
	lock.Lock()
	rec, err := t.progress.GetOrInit(ctx, msg.UserID)
	lock.Unlock()
	if err != nil {
		t.logger.Error("load progress failed", "user_id", msg.UserID, "error", err)
		t.send(msg, fallbackReply)
		return
	}

	out := progress.Summary(rec, id.DisplayName)
	if recs := progress.Recommendations(rec); len(recs) > 0 {
		out += "\n💡 Recommended Next Steps:\n"
		for _, r := range recs {
			out += "• " + r + "\n"
		}
	}
	t.send(msg, out)
}

// cmdQuiz serves a question from the bank and remembers it for grading.
func (t *Tutor) cmdQuiz(ctx context.Context, msg domain.InboundMessage) {
	q := t.course.RandomQuiz()

	t.mu.Lock()
	t.pendingQuiz[msg.UserID] = q
	t.mu.Unlock()

	t.send(msg, curriculum.FormatQuestion(q))
}

// cmdAsk answers a one-off question without conversation history.
func (t *Tutor) cmdAsk(ctx context.Context, msg domain.InboundMessage, id *domain.Identity, question string) {
	if question == "" {
		t.send(msg, "What would you like to ask? Try: /ask What is a stop loss?")
		return
	}
	// Route through the normal chat flow so the exchange is remembered.
	chatMsg := msg
	chatMsg.Command = ""
	chatMsg.Text = question
	t.chat(ctx, chatMsg, id)
}

// cmdExplain generates a level-matched explanation of a concept.
func (t *Tutor) cmdExplain(ctx context.Context, msg domain.InboundMessage, concept string) {
	if concept == "" {
		t.send(msg, "What should I explain? Try: /explain dollar cost averaging")
		return
	}

	lock := t.userLock(msg.UserID)
	lock.Lock()
	rec, err := t.progress.GetOrInit(ctx, msg.UserID)
	lock.Unlock()
	if err != nil {
		t.logger.Error("load progress failed", "user_id", msg.UserID, "error", err)
		t.send(msg, fallbackReply)
		return
	}

	level := string(domain.LevelBeginner)
	if l, ok := rec.SkillLevels[domain.SkillCrypto]; ok {
		level = string(l)
	}

	text, err := t.generator.Explain(ctx, concept, level)
	if err != nil {
		metrics.GenerationFails.Inc()
		t.logger.Error("explain failed", "user_id", msg.UserID, "error", err)
		t.send(msg, fallbackReply)
		return
	}
	metrics.RepliesTotal.Inc()
	t.send(msg, text)
}

func (t *Tutor) cmdStats(ctx context.Context, msg domain.InboundMessage, id *domain.Identity) {
	lock := t.userLock(msg.UserID)
	lock.Lock()
	rec, err := t.progress.GetOrInit(ctx, msg.UserID)
	lock.Unlock()
	if err != nil {
		t.logger.Error("load progress failed", "user_id", msg.UserID, "error", err)
		t.send(msg, fallbackReply)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Detailed Statistics for %s\n\n", id.DisplayName)
	fmt.Fprintf(&b, "Overall Score: %d%%\n", rec.OverallScore)
	fmt.Fprintf(&b, "Days Active: %d\n", rec.DaysActive)
	fmt.Fprintf(&b, "Learning Streak: %d days\n", rec.LearningStreak)
	fmt.Fprintf(&b, "Quizzes Completed: %d\n", rec.QuizzesCompleted)
	fmt.Fprintf(&b, "Correct Answers: %d of %d\n", rec.CorrectAnswers, rec.TotalQuestions)
	fmt.Fprintf(&b, "Completed: %s\n", listOrNone(rec.CompletedModules))
	fmt.Fprintf(&b, "In Progress: %s\n", listOrNone(rec.CurrentModules))
	t.send(msg, b.String())
}

func (t *Tutor) cmdAchievements(ctx context.Context, msg domain.InboundMessage) {
	lock := t.userLock(msg.UserID)
	lock.Lock()
	rec, err := t.progress.GetOrInit(ctx, msg.UserID)
	lock.Unlock()
	if err != nil {
		t.logger.Error("load progress failed", "user_id", msg.UserID, "error", err)
		t.send(msg, fallbackReply)
		return
	}

	if len(rec.Achievements) == 0 {
		t.send(msg, "No achievements yet. Complete your first module to earn First Steps! 🏆")
		return
	}
	var b strings.Builder
	b.WriteString("🏅 Your Achievements\n\n")
	for _, a := range rec.Achievements {
		fmt.Fprintf(&b, "🏆 %s\n", a)
	}
	t.send(msg, b.String())
}

func (t *Tutor) cmdLeaderboard(ctx context.Context, msg domain.InboundMessage) {
	board, err := t.progress.Leaderboard(ctx, 10)
	if err != nil {
		t.logger.Error("leaderboard failed", "error", err)
		t.send(msg, fallbackReply)
		return
	}
	if len(board) == 0 {
		t.send(msg, "No learners on the board yet. Be the first!")
		return
	}

	medals := []string{"🥇", "🥈", "🥉"}
	var b strings.Builder
	b.WriteString("🏆 Leaderboard\n\n")
	for i, e := range board {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		fmt.Fprintf(&b, "%s %s - %d%% (%d modules, %d achievements)\n",
			rank, e.DisplayName, e.OverallScore, e.CompletedModules, e.Achievements)
	}
	t.send(msg, b.String())
}

// cmdUsers lists registered users. Admin only.
func (t *Tutor) cmdUsers(ctx context.Context, msg domain.InboundMessage, id *domain.Identity) {
	if !id.IsAdmin() {
		t.send(msg, "Sorry, that command is for admins only.")
		return
	}

	ids, err := t.directory.All(ctx)
	if err != nil {
		t.logger.Error("list users failed", "error", err)
		t.send(msg, fallbackReply)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👥 Registered Users (%d)\n\n", len(ids))
	for _, u := range ids {
		marker := "•"
		if u.IsAdmin() {
			marker = "⭐"
		}
		handle := u.Handle
		if handle != "" {
			handle = " (@" + handle + ")"
		}
		fmt.Fprintf(&b, "%s %s%s - last seen %s\n", marker, u.DisplayName, handle, u.LastSeen.Format("2006-01-02"))
	}
	t.send(msg, b.String())
}

func (t *Tutor) cmdReset(ctx context.Context, msg domain.InboundMessage) {
	lock := t.userLock(msg.UserID)
	lock.Lock()
	err := t.progress.Reset(ctx, msg.UserID)
	lock.Unlock()
	if err != nil {
		t.logger.Error("reset failed", "user_id", msg.UserID, "error", err)
		t.send(msg, fallbackReply)
		return
	}
	t.send(msg, "🔄 Your learning progress has been reset. Fresh start!")
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
