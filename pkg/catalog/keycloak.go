package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Nerzal/gocloak/v13"
	"go.uber.org/zap"

	cfgpkg "github.com/kubestream/streamgate/pkg/config"
	"github.com/kubestream/streamgate/pkg/metrics"
)

// keycloakAPI is the slice of the gocloak client the resolver needs; tests
// substitute a fake.
type keycloakAPI interface {
	LoginClient(ctx context.Context, clientID, clientSecret, realm string, scopes ...string) (*gocloak.JWT, error)
	GetUsers(ctx context.Context, accessToken, realm string, params gocloak.GetUsersParams) ([]*gocloak.User, error)
	GetUserGroups(ctx context.Context, accessToken, realm, userID string, params gocloak.GetGroupsParams) ([]*gocloak.Group, error)
}

// KeycloakResolver resolves a user's group membership through the Keycloak
// admin API and canonicalizes group names into refs.
type KeycloakResolver struct {
	log   *zap.SugaredLogger
	cfg   cfgpkg.Catalog
	kc    keycloakAPI
	cache *groupCache

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewKeycloakResolver(log *zap.SugaredLogger, cfg cfgpkg.Catalog) *KeycloakResolver {
	ttl := 10 * time.Minute
	if d, err := time.ParseDuration(cfg.CacheTTL); err == nil && d > 0 {
		ttl = d
	}
	if cfg.GroupNamespace == "" {
		cfg.GroupNamespace = "default"
	}
	return &KeycloakResolver{
		log:   log,
		cfg:   cfg,
		kc:    gocloak.NewClient(cfg.BaseURL),
		cache: newGroupCache(ttl),
	}
}

func (r *KeycloakResolver) Groups(ctx context.Context, userRef string) ([]string, error) {
	if r.cfg.Disable || r.cfg.BaseURL == "" || r.cfg.Realm == "" || r.cfg.ClientID == "" {
		r.log.Debugw("Catalog disabled or not fully configured; resolving no groups", "userRef", userRef)
		return nil, nil
	}

	username, err := UserID(userRef)
	if err != nil {
		return nil, err
	}

	if groups, ok := r.cache.get(username); ok {
		metrics.CatalogCacheHits.Inc()
		return groups, nil
	}
	metrics.CatalogCacheMisses.Inc()

	token, err := r.clientToken(ctx)
	if err != nil {
		metrics.CatalogLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("catalog login: %w", err)
	}

	exact := true
	users, err := r.kc.GetUsers(ctx, token, r.cfg.Realm, gocloak.GetUsersParams{Username: &username, Exact: &exact})
	if err != nil {
		metrics.CatalogLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("catalog user lookup for %s: %w", username, err)
	}
	var userID string
	for _, u := range users {
		if u != nil && u.Username != nil && strings.EqualFold(*u.Username, username) && u.ID != nil {
			userID = *u.ID
			break
		}
	}
	if userID == "" {
		r.log.Debugw("Catalog user not found; resolving no groups", "username", username)
		metrics.CatalogLookups.WithLabelValues("not_found").Inc()
		r.cache.set(username, nil)
		return nil, nil
	}

	raw, err := r.kc.GetUserGroups(ctx, token, r.cfg.Realm, userID, gocloak.GetGroupsParams{})
	if err != nil {
		metrics.CatalogLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("catalog group lookup for %s: %w", username, err)
	}

	groups := make([]string, 0, len(raw))
	for _, g := range raw {
		if g == nil || g.Name == nil || *g.Name == "" {
			continue
		}
		groups = append(groups, fmt.Sprintf("group:%s/%s", r.cfg.GroupNamespace, strings.ToLower(*g.Name)))
	}
	metrics.CatalogLookups.WithLabelValues("success").Inc()
	r.log.Debugw("Resolved catalog groups", "username", username, "groupCount", len(groups))
	r.cache.set(username, groups)
	return groups, nil
}

// clientToken returns a valid service-account token, reusing the cached one
// until shortly before it expires.
func (r *KeycloakResolver) clientToken(ctx context.Context) (string, error) {
	r.tokenMu.Lock()
	defer r.tokenMu.Unlock()

	if r.token != "" && time.Now().Add(30*time.Second).Before(r.tokenExpiry) {
		return r.token, nil
	}
	jwt, err := r.kc.LoginClient(ctx, r.cfg.ClientID, r.cfg.ClientSecret, r.cfg.Realm)
	if err != nil {
		return "", err
	}
	r.token = jwt.AccessToken
	r.tokenExpiry = time.Now().Add(time.Duration(jwt.ExpiresIn) * time.Second)
	return r.token, nil
}
