// Package directory implements the process-lifetime user cache: a mapping
// from user id to directory entry, populated lazily through the adapter
// and persisted across runs so repeat exports avoid redundant lookups.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/thenajjar/slack-history-exporter/internal/domain"
)

// Resolver looks up a user against the remote API. Lookup failures degrade
// to a fallback entry carrying the raw id, never an error.
type Resolver interface {
	ResolveUser(ctx context.Context, userID string) domain.User
}

// Directory caches resolved users for the lifetime of the process. Entries
// are never evicted. Fallback entries (failed lookups) are cached for the
// session but skipped on Save, so a transient failure does not poison the
// persisted file for future runs.
type Directory struct {
	mu       sync.Mutex
	users    map[string]domain.User
	resolver Resolver
	path     string
	logger   *slog.Logger
}

// Open creates a Directory backed by the JSON file at path, loading any
// previously persisted entries. A missing file is treated as an empty
// directory; a corrupt one is logged and ignored.
func Open(path string, resolver Resolver, logger *slog.Logger) *Directory {
	d := &Directory{
		users:    make(map[string]domain.User),
		resolver: resolver,
		path:     path,
		logger:   logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("load user directory failed", "path", path, "error", err)
		}
		return d
	}

	stored := make(map[string]domain.User)
	if err := json.Unmarshal(data, &stored); err != nil {
		logger.Error("parse user directory failed", "path", path, "error", err)
		return d
	}
	for id, u := range stored {
		u.ID = id
		d.users[id] = u
	}
	return d
}

// Get returns the cached entry for userID, resolving and storing it on a
// miss. Fallback results are stored too, so one failed lookup is not
// retried within the session.
func (d *Directory) Get(ctx context.Context, userID string) domain.User {
	d.mu.Lock()
	if u, ok := d.users[userID]; ok {
		d.mu.Unlock()
		return u
	}
	d.mu.Unlock()

	u := d.resolver.ResolveUser(ctx, userID)

	d.mu.Lock()
	d.users[userID] = u
	d.mu.Unlock()
	return u
}

// Len returns the number of cached entries.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.users)
}

// Save writes the directory to its backing file. Called at job boundaries.
// Fallback entries are not persisted.
func (d *Directory) Save() error {
	d.mu.Lock()
	stored := make(map[string]domain.User, len(d.users))
	for id, u := range d.users {
		if u.Fallback {
			continue
		}
		stored[id] = u
	}
	d.mu.Unlock()

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal user directory: %w", err)
	}
	if err := os.WriteFile(d.path, data, 0o644); err != nil {
		return fmt.Errorf("write user directory: %w", err)
	}
	return nil
}
