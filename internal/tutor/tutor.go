// Package tutor is the core engine: receive message, assemble context,
// call the generator, record the exchange, respond.
package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"ayaka/internal/curriculum"
	"ayaka/internal/domain"
	"ayaka/internal/ledger"
	"ayaka/internal/metrics"
	"ayaka/internal/progress"
	"ayaka/internal/roster"
)

const (
	defaultConcurrency = 3

	// Sent whenever the generation backend fails. The exchange is not
	// recorded in that case.
	fallbackReply = "Sorry, I'm having trouble processing that right now. Please try again in a moment!"
)

// Tutor consumes inbound messages and drives the learning conversation.
type Tutor struct {
	botName     string
	bus         domain.MessageBus
	directory   *roster.Directory
	roster      *roster.Roster
	progress    *progress.Engine
	ledger      *ledger.Ledger
	course      *curriculum.Curriculum
	generator   domain.Generator
	logger      *slog.Logger
	concurrency int

	mu          sync.Mutex
	userLocks   map[int64]*sync.Mutex
	pendingQuiz map[int64]curriculum.Question
}

// Config holds all dependencies for the tutor.
type Config struct {
	BotName     string
	Bus         domain.MessageBus
	Directory   *roster.Directory
	Roster      *roster.Roster
	Progress    *progress.Engine
	Ledger      *ledger.Ledger
	Curriculum  *curriculum.Curriculum
	Generator   domain.Generator
	Logger      *slog.Logger
	Concurrency int // max parallel messages (default 3)
}

func New(cfg Config) *Tutor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.BotName == "" {
		cfg.BotName = "Ayaka"
	}
	return &Tutor{
		botName:     cfg.BotName,
		bus:         cfg.Bus,
		directory:   cfg.Directory,
		roster:      cfg.Roster,
		progress:    cfg.Progress,
		ledger:      cfg.Ledger,
		course:      cfg.Curriculum,
		generator:   cfg.Generator,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
		userLocks:   make(map[int64]*sync.Mutex),
		pendingQuiz: make(map[int64]curriculum.Question),
	}
}

// Run consumes inbound messages and processes them with bounded concurrency.
func (t *Tutor) Run(ctx context.Context) {
	t.logger.Info("tutor started", "concurrency", t.concurrency)

	sem := make(chan struct{}, t.concurrency)
	inbound := t.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("tutor stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				t.logger.Info("inbound channel closed, tutor stopping")
				return
			}
			sem <- struct{}{}
			go func(m domain.InboundMessage) {
				defer func() { <-sem }()
				t.processMessage(ctx, m)
			}(msg)
		}
	}
}

// userLock returns the per-user mutex, creating it on first use. Serializing
// per user keeps read-modify-write cycles on progress and ledgers consistent
// without blocking unrelated users.
func (t *Tutor) userLock(userID int64) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		t.userLocks[userID] = l
	}
	return l
}

func (t *Tutor) processMessage(ctx context.Context, msg domain.InboundMessage) {
	metrics.MessagesTotal.Inc()
	t.logger.Info("processing message",
		"channel", msg.Channel,
		"user_id", msg.UserID,
		"chat_kind", string(msg.ChatKind),
		"command", msg.Command,
	)

	id, err := t.directory.ResolveOrRegister(ctx, msg)
	if err != nil {
		t.logger.Error("resolve user failed", "user_id", msg.UserID, "error", err)
		t.send(msg, fallbackReply)
		return
	}

	if msg.Command != "" {
		metrics.CommandsTotal.Inc()
		t.handleCommand(ctx, msg, id)
		return
	}

	if t.gradePendingQuiz(ctx, msg, id) {
		return
	}

	t.chat(ctx, msg, id)
}

// chat handles a free-form message: build context, generate, record. The
// generator call runs outside the user lock so a slow backend never stalls
// the user's other updates. A failed generation records nothing; only the
// activity tick is applied.
func (t *Tutor) chat(ctx context.Context, msg domain.InboundMessage, id *domain.Identity) {
	lock := t.userLock(msg.UserID)

	lock.Lock()
	rec, err := t.progress.GetOrInit(ctx, msg.UserID)
	if err != nil {
		lock.Unlock()
		t.logger.Error("load progress failed", "user_id", msg.UserID, "error", err)
		t.send(msg, fallbackReply)
		return
	}
	history, err := t.ledger.BuildContext(ctx, msg.UserID, msg.ChatID, msg.ChatKind)
	if err != nil {
		lock.Unlock()
		t.logger.Error("build context failed", "user_id", msg.UserID, "error", err)
		t.send(msg, fallbackReply)
		return
	}
	lock.Unlock()

	prompt := BuildPrompt(t.botName, id, rec, history, msg.Text, msg.ChatKind, t.roster)

	reply, err := t.generator.Reply(ctx, prompt)
	if err != nil {
		metrics.GenerationFails.Inc()
		t.logger.Error("generation failed", "user_id", msg.UserID, "error", err)

		lock.Lock()
		if _, err := t.progress.TouchActivity(ctx, msg.UserID); err != nil {
			t.logger.Error("activity tick failed", "user_id", msg.UserID, "error", err)
		}
		lock.Unlock()

		t.send(msg, fallbackReply)
		return
	}

	lock.Lock()
	turn := t.ledger.NewTurn(msg, reply)
	if err := t.ledger.AppendUserTurn(ctx, msg.UserID, turn); err != nil {
		t.logger.Error("record user turn failed", "user_id", msg.UserID, "error", err)
	}
	if msg.ChatKind.IsGroup() {
		if err := t.ledger.AppendGroupTurn(ctx, msg.ChatID, turn); err != nil {
			t.logger.Error("record group turn failed", "chat_id", msg.ChatID, "error", err)
		}
	}
	if _, err := t.progress.TouchActivity(ctx, msg.UserID); err != nil {
		t.logger.Error("activity tick failed", "user_id", msg.UserID, "error", err)
	}
	lock.Unlock()

	metrics.RepliesTotal.Inc()
	t.send(msg, reply)
}

// gradePendingQuiz consumes a bare-number reply as the answer to the user's
// outstanding quiz question. Reports whether the message was handled.
func (t *Tutor) gradePendingQuiz(ctx context.Context, msg domain.InboundMessage, id *domain.Identity) bool {
	t.mu.Lock()
	q, ok := t.pendingQuiz[msg.UserID]
	t.mu.Unlock()
	if !ok {
		return false
	}

	choice, err := strconv.Atoi(strings.TrimSpace(msg.Text))
	if err != nil || choice < 1 || choice > len(q.Options) {
		// Not an answer; the question stays open and the message is
		// normal chat.
		return false
	}

	t.mu.Lock()
	delete(t.pendingQuiz, msg.UserID)
	t.mu.Unlock()

	metrics.QuizAnswersTotal.Inc()

	score := 0
	var verdict string
	if curriculum.Grade(q, choice) {
		score = 1
		verdict = "✅ Correct! Great job!"
	} else {
		verdict = fmt.Sprintf("❌ Not quite. The correct answer was: %s", q.Options[q.Answer])
	}

	lock := t.userLock(msg.UserID)
	lock.Lock()
	rec, err := t.progress.RecordEvent(ctx, msg.UserID, q.Topic+" quiz", progress.ActionQuizCompleted, score)
	if err == nil {
		_, err = t.progress.TouchActivity(ctx, msg.UserID)
	}
	lock.Unlock()
	if err != nil {
		t.logger.Error("record quiz result failed", "user_id", msg.UserID, "error", err)
		t.send(msg, fallbackReply)
		return true
	}

	t.send(msg, fmt.Sprintf("%s\n\n%s\n\n🎯 Overall Score: %d%%", verdict, q.Explanation, rec.OverallScore))
	return true
}

// HandleDirect processes one message synchronously and returns the reply.
// Used by the CLI chat session.
func (t *Tutor) HandleDirect(ctx context.Context, msg domain.InboundMessage) string {
	reply := make(chan string, 1)
	t.bus.OnOutbound(msg.Channel, func(out domain.OutboundMessage) {
		select {
		case reply <- out.Content:
		default:
		}
	})
	t.processMessage(ctx, msg)

	select {
	case r := <-reply:
		return r
	default:
		return ""
	}
}

func (t *Tutor) send(msg domain.InboundMessage, content string) {
	t.bus.SendOutbound(domain.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: SanitizeMarkdown(content),
	})
}
