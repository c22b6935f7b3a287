// Package roster maps platform handles to curated names and roles, and keeps
// the durable user directory in sync with inbound traffic.
package roster

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ayaka/internal/domain"
)

// Entry is one curated roster row.
type Entry struct {
	Handle string      `yaml:"handle"`
	Name   string      `yaml:"name"`
	Role   domain.Role `yaml:"role"`
}

// defaultEntries is the built-in roster used when no roster file is
// configured.
var defaultEntries = []Entry{
	{Handle: "Er_Stranger", Name: "Neel", Role: domain.RoleUser},
	{Handle: "Nexxxyzz", Name: "Nex", Role: domain.RoleUser},
	{Handle: "pr_amod18", Name: "Pramod", Role: domain.RoleUser},
	{Handle: "Extreme747", Name: "Extreme", Role: domain.RoleAdmin},
}

// Roster is the curated handle table. Lookup is case-insensitive and
// tolerant of a leading @.
type Roster struct {
	entries  []Entry
	byHandle map[string]Entry
}

func normalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(handle, "@"))
}

func fromEntries(entries []Entry) *Roster {
	r := &Roster{byHandle: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if e.Role == "" {
			e.Role = domain.RoleUser
		}
		r.entries = append(r.entries, e)
		r.byHandle[normalizeHandle(e.Handle)] = e
	}
	return r
}

// Entries returns the curated rows in declaration order.
func (r *Roster) Entries() []Entry { return r.entries }

// Default returns the built-in roster.
func Default() *Roster {
	return fromEntries(defaultEntries)
}

// Load reads a roster file. An empty path yields the built-in roster.
func Load(path string) (*Roster, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}

	var file struct {
		Users []Entry `yaml:"users"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	if len(file.Users) == 0 {
		return nil, fmt.Errorf("roster %s lists no users", path)
	}
	return fromEntries(file.Users), nil
}

// Lookup returns the curated entry for a handle, if any.
func (r *Roster) Lookup(handle string) (Entry, bool) {
	e, ok := r.byHandle[normalizeHandle(handle)]
	return e, ok
}

// IsAdmin reports whether a handle carries the admin role in the roster.
func (r *Roster) IsAdmin(handle string) bool {
	e, ok := r.Lookup(handle)
	return ok && e.Role == domain.RoleAdmin
}

// Directory is the durable user registry backed by the store, seeded from
// the roster.
type Directory struct {
	roster *Roster
	store  domain.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewDirectory(r *Roster, store domain.Store, logger *slog.Logger) *Directory {
	return &Directory{roster: r, store: store, logger: logger, now: time.Now}
}

// SetClock overrides the directory clock. Tests only.
func (d *Directory) SetClock(now func() time.Time) { d.now = now }

// ResolveOrRegister returns the identity for an inbound message, creating it
// on first contact. Registration time is preserved across updates; handle,
// name, and last-seen always refresh.
func (d *Directory) ResolveOrRegister(ctx context.Context, msg domain.InboundMessage) (*domain.Identity, error) {
	id, err := d.store.GetIdentity(ctx, msg.UserID)
	if err != nil {
		return nil, fmt.Errorf("load identity %d: %w", msg.UserID, err)
	}

	now := d.now()
	if id == nil {
		id = &domain.Identity{
			UserID:       msg.UserID,
			RegisteredAt: now,
		}
		d.logger.Info("registered new user", "user_id", msg.UserID, "handle", msg.Handle)
	}

	id.Handle = msg.Handle
	id.FirstName = msg.FirstName
	id.LastSeen = now

	if entry, ok := d.roster.Lookup(msg.Handle); ok {
		id.DisplayName = entry.Name
		id.Role = entry.Role
		id.Known = true
	} else {
		id.DisplayName = displayName(msg)
		if id.Role == "" {
			id.Role = domain.RoleUser
		}
		id.Known = false
	}

	if err := d.store.PutIdentity(ctx, id); err != nil {
		return nil, fmt.Errorf("save identity %d: %w", msg.UserID, err)
	}
	return id, nil
}

func displayName(msg domain.InboundMessage) string {
	if msg.FirstName != "" {
		return msg.FirstName
	}
	if msg.Handle != "" {
		return msg.Handle
	}
	return fmt.Sprintf("user %d", msg.UserID)
}

// All returns every registered identity, most recently seen first.
func (d *Directory) All(ctx context.Context) ([]*domain.Identity, error) {
	byID, err := d.store.AllIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}

	ids := make([]*domain.Identity, 0, len(byID))
	for _, id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if !ids[i].LastSeen.Equal(ids[j].LastSeen) {
			return ids[i].LastSeen.After(ids[j].LastSeen)
		}
		return ids[i].UserID < ids[j].UserID
	})
	return ids, nil
}

// SaveTemplate writes a roster file seeded with the built-in entries.
func SaveTemplate(path string) error {
	file := struct {
		Users []Entry `yaml:"users"`
	}{Users: defaultEntries}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode roster: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write roster: %w", err)
	}
	return nil
}
