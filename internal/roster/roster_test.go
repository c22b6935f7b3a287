package roster

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ayaka/internal/domain"
	"ayaka/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLookupIsCaseAndPrefixInsensitive(t *testing.T) {
	r := Default()

	for _, handle := range []string{"Er_Stranger", "@Er_Stranger", "er_stranger", "@ER_STRANGER"} {
		e, ok := r.Lookup(handle)
		if !ok {
			t.Fatalf("lookup %q failed", handle)
		}
		if e.Name != "Neel" {
			t.Fatalf("lookup %q = %q, want Neel", handle, e.Name)
		}
	}

	if _, ok := r.Lookup("@nobody"); ok {
		t.Fatal("lookup of unknown handle succeeded")
	}
}

func TestIsAdmin(t *testing.T) {
	r := Default()
	if !r.IsAdmin("@Extreme747") {
		t.Fatal("Extreme747 should be admin")
	}
	if r.IsAdmin("@Er_Stranger") {
		t.Fatal("Er_Stranger should not be admin")
	}
	if r.IsAdmin("@nobody") {
		t.Fatal("unknown handle should not be admin")
	}
}

func TestLoadRosterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	content := `users:
  - handle: "@alice"
    name: Alice
    role: admin
  - handle: bob
    name: Bob
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !r.IsAdmin("ALICE") {
		t.Fatal("alice should be admin")
	}
	e, ok := r.Lookup("bob")
	if !ok || e.Role != domain.RoleUser {
		t.Fatalf("bob entry = %+v ok=%v, want role defaulted to user", e, ok)
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	r, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := r.Lookup("@pr_amod18"); !ok {
		t.Fatal("default roster missing built-in user")
	}
}

func TestSaveTemplateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := SaveTemplate(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	r, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !r.IsAdmin("@Extreme747") {
		t.Fatal("template roster lost the admin entry")
	}
}

func TestResolveOrRegister(t *testing.T) {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	d := NewDirectory(Default(), st, testLogger())
	first := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	d.SetClock(func() time.Time { return first })

	ctx := context.Background()
	msg := domain.InboundMessage{UserID: 7, Handle: "er_stranger", FirstName: "Neel R"}

	id, err := d.ResolveOrRegister(ctx, msg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !id.Known || id.DisplayName != "Neel" || id.Role != domain.RoleUser {
		t.Fatalf("roster match not applied: %+v", id)
	}
	if !id.RegisteredAt.Equal(first) {
		t.Fatalf("registered at = %v", id.RegisteredAt)
	}

	// A later message refreshes last-seen but keeps the registration date.
	later := first.Add(48 * time.Hour)
	d.SetClock(func() time.Time { return later })

	id, err = d.ResolveOrRegister(ctx, msg)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !id.RegisteredAt.Equal(first) {
		t.Fatalf("registration date changed: %v", id.RegisteredAt)
	}
	if !id.LastSeen.Equal(later) {
		t.Fatalf("last seen not refreshed: %v", id.LastSeen)
	}
}

func TestResolveUnknownUser(t *testing.T) {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	d := NewDirectory(Default(), st, testLogger())
	ctx := context.Background()

	id, err := d.ResolveOrRegister(ctx, domain.InboundMessage{UserID: 9, Handle: "stranger2", FirstName: "Sam"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id.Known {
		t.Fatal("unlisted user marked known")
	}
	if id.DisplayName != "Sam" {
		t.Fatalf("display name = %q, want first name", id.DisplayName)
	}
	if id.IsAdmin() {
		t.Fatal("unlisted user should not be admin")
	}
}

func TestAllSortsByLastSeen(t *testing.T) {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	d := NewDirectory(Default(), st, testLogger())
	ctx := context.Background()
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	for i, handle := range []string{"one", "two", "three"} {
		ts := base.Add(time.Duration(i) * time.Hour)
		d.SetClock(func() time.Time { return ts })
		if _, err := d.ResolveOrRegister(ctx, domain.InboundMessage{UserID: int64(i + 1), Handle: handle}); err != nil {
			t.Fatalf("register %s: %v", handle, err)
		}
	}

	ids, err := d.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("count = %d, want 3", len(ids))
	}
	if ids[0].Handle != "three" || ids[2].Handle != "one" {
		t.Fatalf("order wrong: %s, %s, %s", ids[0].Handle, ids[1].Handle, ids[2].Handle)
	}
}
