package permission

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"github.com/kubestream/streamgate/pkg/config"
	"github.com/kubestream/streamgate/pkg/metrics"
)

var ErrClusterNotFound = errors.New("cluster not found in permission registry")

// snapshot is an immutable compiled view of all clusters. The registry swaps
// whole snapshots so concurrent readers see either the fully-old or the
// fully-new state, never a partial mix.
type snapshot struct {
	clusters map[string]*ClusterPermissionSet
}

// Registry holds the current compiled permission state for all clusters,
// keyed by cluster name. Reload replaces the snapshot atomically and keeps
// the last-known-good one when compilation fails.
type Registry struct {
	log      *zap.SugaredLogger
	compiler *Compiler
	snap     atomic.Pointer[snapshot]
}

func NewRegistry(log *zap.SugaredLogger) *Registry {
	r := &Registry{log: log, compiler: NewCompiler(log)}
	r.snap.Store(&snapshot{clusters: map[string]*ClusterPermissionSet{}})
	return r
}

// Get returns the compiled permission set for a cluster. Callers treat
// ErrClusterNotFound as a deny with a logged warning.
func (r *Registry) Get(name string) (*ClusterPermissionSet, error) {
	set, ok := r.snap.Load().clusters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClusterNotFound, name)
	}
	return set, nil
}

// Names returns the configured cluster names, sorted.
func (r *Registry) Names() []string {
	names := maps.Keys(r.snap.Load().clusters)
	sort.Strings(names)
	return names
}

// Len reports how many clusters the current snapshot holds.
func (r *Registry) Len() int {
	return len(r.snap.Load().clusters)
}

// Reload recompiles the entire registry from the given configuration and
// swaps it in with a single pointer store. Any compile failure aborts the
// reload and the previous snapshot stays visible to readers.
func (r *Registry) Reload(cfg config.Config) error {
	clusters, err := r.compiler.CompileAll(cfg.Clusters)
	if err != nil {
		metrics.RegistryReloads.WithLabelValues("failure").Inc()
		r.log.Warnw("Permission reload failed; keeping previous snapshot", "error", err)
		return err
	}
	r.snap.Store(&snapshot{clusters: clusters})
	metrics.RegistryReloads.WithLabelValues("success").Inc()
	r.log.Infow("Permission registry reloaded", "clusters", len(clusters))
	return nil
}
