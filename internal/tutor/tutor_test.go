package tutor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ayaka/internal/bus"
	"ayaka/internal/curriculum"
	"ayaka/internal/domain"
	"ayaka/internal/ledger"
	"ayaka/internal/progress"
	"ayaka/internal/roster"
	"ayaka/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeGenerator returns canned replies or a canned error.
type fakeGenerator struct {
	reply      string
	err        error
	lastPrompt string
}

func (f *fakeGenerator) Reply(ctx context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return "", &domain.GenerationError{Op: "reply", Err: f.err}
	}
	return f.reply, nil
}

func (f *fakeGenerator) QuizQuestion(ctx context.Context, topic, difficulty string) (string, error) {
	if f.err != nil {
		return "", &domain.GenerationError{Op: "quiz", Err: f.err}
	}
	return f.reply, nil
}

func (f *fakeGenerator) Explain(ctx context.Context, concept, level string) (string, error) {
	if f.err != nil {
		return "", &domain.GenerationError{Op: "explain", Err: f.err}
	}
	return "explained: " + concept, nil
}

type fixture struct {
	tutor *Tutor
	store domain.Store
	gen   *fakeGenerator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := testLogger()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	b := bus.New(10, logger)
	t.Cleanup(b.Close)

	gen := &fakeGenerator{reply: "Hello from the tutor!"}
	ros := roster.Default()

	tut := New(Config{
		BotName:    "Ayaka",
		Bus:        b,
		Directory:  roster.NewDirectory(ros, st, logger),
		Roster:     ros,
		Progress:   progress.NewEngine(st, logger),
		Ledger:     ledger.New(st, logger),
		Curriculum: curriculum.Builtin(),
		Generator:  gen,
		Logger:     logger,
	})
	return &fixture{tutor: tut, store: st, gen: gen}
}

func inbound(text string) domain.InboundMessage {
	return domain.InboundMessage{
		Channel:   "cli",
		UserID:    1,
		ChatID:    1,
		Handle:    "er_stranger",
		FirstName: "Neel",
		ChatKind:  domain.KindPrivate,
		Text:      text,
	}
}

func command(cmd, args string) domain.InboundMessage {
	msg := inbound(args)
	msg.Command = cmd
	return msg
}

func TestChatRecordsExchange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply := f.tutor.HandleDirect(ctx, inbound("what is bitcoin"))
	if reply != "Hello from the tutor!" {
		t.Fatalf("reply = %q", reply)
	}

	turns, err := f.store.GetUserTurns(ctx, 1)
	if err != nil {
		t.Fatalf("load turns: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("turns = %d, want 1", len(turns))
	}
	if turns[0].UserMessage != "what is bitcoin" || turns[0].Reply != "Hello from the tutor!" {
		t.Fatalf("turn = %+v", turns[0])
	}

	rec, err := f.store.GetProgress(ctx, 1)
	if err != nil || rec == nil {
		t.Fatalf("progress = %v, %v", rec, err)
	}
	if rec.DaysActive != 1 {
		t.Fatalf("days active = %d, want 1 after first message", rec.DaysActive)
	}
}

func TestChatGroupRecordsBothLedgers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg := inbound("hello everyone")
	msg.ChatID = -500
	msg.ChatKind = domain.KindSupergroup

	if reply := f.tutor.HandleDirect(ctx, msg); reply == "" {
		t.Fatal("no reply")
	}

	userTurns, _ := f.store.GetUserTurns(ctx, 1)
	groupTurns, _ := f.store.GetGroupTurns(ctx, -500)
	if len(userTurns) != 1 || len(groupTurns) != 1 {
		t.Fatalf("user=%d group=%d, want 1/1", len(userTurns), len(groupTurns))
	}
	if userTurns[0].ID != groupTurns[0].ID {
		t.Fatal("group and user ledgers hold different turns")
	}
}

func TestGenerationFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	f.gen.err = errors.New("backend down")
	ctx := context.Background()

	reply := f.tutor.HandleDirect(ctx, inbound("hello"))
	if reply != fallbackReply {
		t.Fatalf("reply = %q, want fallback", reply)
	}

	turns, err := f.store.GetUserTurns(ctx, 1)
	if err != nil {
		t.Fatalf("load turns: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("turns = %d, want none after failure", len(turns))
	}

	// The activity tick still applies.
	rec, err := f.store.GetProgress(ctx, 1)
	if err != nil || rec == nil {
		t.Fatalf("progress = %v, %v", rec, err)
	}
	if rec.DaysActive != 1 {
		t.Fatalf("days active = %d, want 1", rec.DaysActive)
	}
}

func TestPromptCarriesProfileAndHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.tutor.HandleDirect(ctx, inbound("first message"))
	f.tutor.HandleDirect(ctx, inbound("second message"))

	prompt := f.gen.lastPrompt
	for _, want := range []string{
		"You are Ayaka",
		"- Name: Neel",
		"Neel: first message",
		"Bot: Hello from the tutor!",
		"Current Message: second message",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "group chat with friends") {
		t.Fatal("private chat prompt carries the group persona block")
	}
}

func TestGroupPromptNamesRoster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg := inbound("hi ayaka")
	msg.ChatID = -500
	msg.ChatKind = domain.KindGroup
	f.tutor.HandleDirect(ctx, msg)

	prompt := f.gen.lastPrompt
	for _, want := range []string{"group chat with friends", "Extreme", "Neel", "Nex", "Pramod"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("group prompt missing %q", want)
		}
	}
}

func TestStartCommand(t *testing.T) {
	f := newFixture(t)

	reply := f.tutor.HandleDirect(context.Background(), command("start", ""))
	if !strings.Contains(reply, "Hey Neel!") {
		t.Fatalf("welcome missing roster name:\n%s", reply)
	}
	if !strings.Contains(reply, "/learn") {
		t.Fatalf("welcome missing command list:\n%s", reply)
	}
}

func TestModuleCommandMarksStarted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply := f.tutor.HandleDirect(ctx, command("crypto", ""))
	if !strings.Contains(reply, "Cryptocurrency Basics") {
		t.Fatalf("module content missing:\n%s", reply)
	}

	rec, _ := f.store.GetProgress(ctx, 1)
	if rec == nil || !strings.Contains(strings.Join(rec.CurrentModules, ","), "crypto_basics") {
		t.Fatalf("crypto_basics not marked started: %+v", rec)
	}
}

func TestCompleteCommandAwardsScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply := f.tutor.HandleDirect(ctx, command("complete", "crypto_basics"))
	if !strings.Contains(reply, "completed") || !strings.Contains(reply, "10%") {
		t.Fatalf("completion reply = %q", reply)
	}

	rec, _ := f.store.GetProgress(ctx, 1)
	if rec.OverallScore != 10 || !rec.HasCompleted("crypto_basics") {
		t.Fatalf("progress = %+v", rec)
	}
}

func TestLearnCommandMarksCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	list := f.tutor.HandleDirect(ctx, command("learn", ""))
	if strings.Contains(list, "✅") {
		t.Fatalf("fresh user should have no completed modules:\n%s", list)
	}

	f.tutor.HandleDirect(ctx, command("complete", "crypto_basics"))

	list = f.tutor.HandleDirect(ctx, command("learn", ""))
	if !strings.Contains(list, "✅ /crypto_basics") {
		t.Fatalf("completed module not marked:\n%s", list)
	}
}

func TestQuizFlow(t *testing.T) {
	f := newFixture(t)
	f.tutor.course.SetPicker(func(n int) int { return 0 })
	ctx := context.Background()

	question := f.tutor.HandleDirect(ctx, command("quiz", ""))
	if !strings.Contains(question, "What is Bitcoin?") {
		t.Fatalf("quiz question = %q", question)
	}

	// Option 1 is the correct answer for the pinned question.
	verdict := f.tutor.HandleDirect(ctx, inbound("1"))
	if !strings.Contains(verdict, "Correct") {
		t.Fatalf("verdict = %q", verdict)
	}

	rec, _ := f.store.GetProgress(ctx, 1)
	if rec.QuizzesCompleted != 1 || rec.CorrectAnswers != 1 {
		t.Fatalf("quiz counters: %+v", rec)
	}
	if rec.OverallScore != 5 {
		t.Fatalf("score = %d, want 5", rec.OverallScore)
	}
}

func TestQuizWrongAnswer(t *testing.T) {
	f := newFixture(t)
	f.tutor.course.SetPicker(func(n int) int { return 0 })
	ctx := context.Background()

	f.tutor.HandleDirect(ctx, command("quiz", ""))
	verdict := f.tutor.HandleDirect(ctx, inbound("3"))
	if !strings.Contains(verdict, "Not quite") {
		t.Fatalf("verdict = %q", verdict)
	}

	rec, _ := f.store.GetProgress(ctx, 1)
	if rec.QuizzesCompleted != 1 || rec.CorrectAnswers != 0 || rec.OverallScore != 0 {
		t.Fatalf("quiz counters: %+v", rec)
	}
}

func TestQuizIgnoresNonAnswer(t *testing.T) {
	f := newFixture(t)
	f.tutor.course.SetPicker(func(n int) int { return 0 })
	ctx := context.Background()

	f.tutor.HandleDirect(ctx, command("quiz", ""))

	// A chat message while the question is open is answered normally and
	// the question stays pending.
	reply := f.tutor.HandleDirect(ctx, inbound("actually, tell me about ETH"))
	if reply != "Hello from the tutor!" {
		t.Fatalf("chat reply = %q", reply)
	}

	verdict := f.tutor.HandleDirect(ctx, inbound("1"))
	if !strings.Contains(verdict, "Correct") {
		t.Fatalf("late answer not graded: %q", verdict)
	}
}

func TestUsersCommandIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	denied := f.tutor.HandleDirect(ctx, command("users", ""))
	if !strings.Contains(denied, "admins only") {
		t.Fatalf("non-admin got: %q", denied)
	}

	admin := command("users", "")
	admin.UserID = 99
	admin.Handle = "Extreme747"
	admin.FirstName = "Extreme"
	listing := f.tutor.HandleDirect(ctx, admin)
	if !strings.Contains(listing, "Registered Users") {
		t.Fatalf("admin got: %q", listing)
	}
}

func TestResetCommand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.tutor.HandleDirect(ctx, command("complete", "crypto_basics"))
	f.tutor.HandleDirect(ctx, command("reset", ""))

	rec, _ := f.store.GetProgress(ctx, 1)
	if rec.OverallScore != 0 || len(rec.CompletedModules) != 0 {
		t.Fatalf("progress after reset: %+v", rec)
	}

	// Conversation memory survives a progress reset.
	f2 := f.tutor.HandleDirect(ctx, inbound("remember me?"))
	if f2 == "" {
		t.Fatal("no reply after reset")
	}
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)
	reply := f.tutor.HandleDirect(context.Background(), command("frobnicate", ""))
	if !strings.Contains(reply, "/help") {
		t.Fatalf("unknown command reply = %q", reply)
	}
}

func TestSanitizeMarkdown(t *testing.T) {
	f := newFixture(t)
	f.gen.reply = "**Bold** and *italic* with `code` and [a link](https://example.com) plus ```\nblock\n```"

	reply := f.tutor.HandleDirect(context.Background(), inbound("hi"))
	want := `Bold and italic with "code" and a link plus [code block]`
	if reply != want {
		t.Fatalf("sanitized reply = %q, want %q", reply, want)
	}
}
