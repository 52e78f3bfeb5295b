package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// GroupResolver abstracts identity catalog group membership queries.
// Implementations return canonical, lower-cased group refs
// (group:<namespace>/<name>) for the user named by a user ref.
type GroupResolver interface {
	Groups(ctx context.Context, userRef string) ([]string, error)
}

// NopResolver is used when no catalog is configured; every user resolves to no
// groups.
type NopResolver struct{}

func (NopResolver) Groups(context.Context, string) ([]string, error) { return nil, nil }

// UserID extracts the id part of a user ref (user:namespace/id). Refs without
// the expected shape are rejected so malformed input cannot silently resolve
// as a valid catalog user.
func UserID(userRef string) (string, error) {
	ref := strings.ToLower(strings.TrimSpace(userRef))
	rest, ok := strings.CutPrefix(ref, "user:")
	if !ok {
		return "", fmt.Errorf("not a user ref: %q", userRef)
	}
	_, id, ok := strings.Cut(rest, "/")
	if !ok || id == "" {
		return "", fmt.Errorf("user ref missing id: %q", userRef)
	}
	return id, nil
}

// groupCache is a TTL cache of resolved group refs keyed by user id.
type groupCache struct {
	mu    sync.RWMutex
	items map[string]groupEntry
	ttl   time.Duration
}

type groupEntry struct {
	groups  []string
	expires time.Time
}

func newGroupCache(ttl time.Duration) *groupCache {
	return &groupCache{items: map[string]groupEntry{}, ttl: ttl}
}

func (c *groupCache) get(k string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[k]
	if !ok || time.Now().After(e.expires) {
		return nil, false
	}
	return append([]string(nil), e.groups...), true
}

func (c *groupCache) set(k string, v []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[k] = groupEntry{groups: append([]string(nil), v...), expires: time.Now().Add(c.ttl)}
}
