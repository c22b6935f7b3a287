package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ayaka/internal/domain"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIdentity_AbsentReturnsNil(t *testing.T) {
	s := testStore(t)

	id, err := s.GetIdentity(context.Background(), 12345)
	if err != nil {
		t.Fatal(err)
	}
	if id != nil {
		t.Fatalf("expected nil for absent identity, got %+v", id)
	}
}

func TestIdentity_Roundtrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	id := &domain.Identity{
		UserID:       7,
		Handle:       "er_stranger",
		FirstName:    "N",
		DisplayName:  "Neel",
		Role:         domain.RoleUser,
		Known:        true,
		RegisteredAt: now,
		LastSeen:     now,
	}
	if err := s.PutIdentity(ctx, id); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetIdentity(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.DisplayName != "Neel" || !got.Known {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
	if !got.RegisteredAt.Equal(now) {
		t.Errorf("registered_at mismatch: %v != %v", got.RegisteredAt, now)
	}
}

func TestIdentity_PutIsUpsert(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id := &domain.Identity{UserID: 7, DisplayName: "First"}
	if err := s.PutIdentity(ctx, id); err != nil {
		t.Fatal(err)
	}
	id.DisplayName = "Second"
	if err := s.PutIdentity(ctx, id); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetIdentity(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if got.DisplayName != "Second" {
		t.Errorf("expected upsert, got %s", got.DisplayName)
	}

	all, err := s.AllIdentities(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 identity, got %d", len(all))
	}
}

func TestProgress_Roundtrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := &domain.ProgressRecord{
		UserID:           9,
		OverallScore:     40,
		CompletedModules: []string{"crypto_basics", "blockchain"},
		Achievements:     []string{"First Steps"},
		SkillLevels: map[string]domain.SkillLevel{
			domain.SkillCrypto:  domain.LevelIntermediate,
			domain.SkillStocks:  domain.LevelBeginner,
			domain.SkillTrading: domain.LevelBeginner,
		},
	}
	if err := s.PutProgress(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetProgress(ctx, 9)
	if err != nil {
		t.Fatal(err)
	}
	if got.OverallScore != 40 || len(got.CompletedModules) != 2 {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
	if got.SkillLevels[domain.SkillCrypto] != domain.LevelIntermediate {
		t.Errorf("skill levels lost: %+v", got.SkillLevels)
	}

	all, err := s.AllProgress(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := all[9]; !ok {
		t.Error("AllProgress missing user 9")
	}
}

func TestTurns_Roundtrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	turns := []domain.ConversationTurn{
		{ID: "a", UserMessage: "hi", Reply: "hello", UserID: 1, ChatID: 1, ChatKind: domain.KindPrivate, Timestamp: time.Now().Format(time.RFC3339)},
		{ID: "b", UserMessage: "more", Reply: "sure", UserID: 1, ChatID: 1, ChatKind: domain.KindPrivate, Timestamp: "not-a-time"},
	}
	if err := s.PutUserTurns(ctx, 1, turns); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetUserTurns(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].Timestamp != "not-a-time" {
		t.Fatalf("turn roundtrip mismatch: %+v", got)
	}

	// Group namespace is independent.
	if err := s.PutGroupTurns(ctx, -100, turns[:1]); err != nil {
		t.Fatal(err)
	}
	gturns, err := s.GetGroupTurns(ctx, -100)
	if err != nil {
		t.Fatal(err)
	}
	if len(gturns) != 1 {
		t.Fatalf("expected 1 group turn, got %d", len(gturns))
	}

	ukeys, err := s.UserTurnKeys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	gkeys, err := s.GroupTurnKeys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ukeys) != 1 || ukeys[0] != 1 || len(gkeys) != 1 || gkeys[0] != -100 {
		t.Errorf("keys mismatch: user=%v group=%v", ukeys, gkeys)
	}
}

func TestBackup_CreatesReadableCopy(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.PutIdentity(ctx, &domain.Identity{UserID: 3, DisplayName: "X"}); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(t.TempDir(), "backup.db")
	if err := s.Backup(ctx, dest); err != nil {
		t.Fatalf("backup: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	copy, err := NewSQLiteStore(dest, logger)
	if err != nil {
		t.Fatalf("open backup: %v", err)
	}
	defer copy.Close()

	got, err := copy.GetIdentity(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.DisplayName != "X" {
		t.Fatalf("backup contents mismatch: %+v", got)
	}
}
