package permission

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kubestream/streamgate/pkg/config"
)

// ConfigError reports a permission configuration that failed to compile. It
// names the cluster and, for pattern errors, the scope and namespace the bad
// pattern was declared under.
type ConfigError struct {
	Cluster   string
	Scope     Scope
	Namespace string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Scope == "" {
		return fmt.Sprintf("cluster %s: %v", e.Cluster, e.Err)
	}
	return fmt.Sprintf("cluster %s, scope %s, namespace %s: %v", e.Cluster, e.Scope, e.Namespace, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Compiler turns raw cluster configuration subtrees into compiled
// ClusterPermissionSets. It performs no I/O beyond reading the provided
// configuration and logging diagnostics.
type Compiler struct {
	log *zap.SugaredLogger
}

func NewCompiler(log *zap.SugaredLogger) *Compiler {
	return &Compiler{log: log}
}

// CompileAll compiles every configured cluster. Clusters missing the required
// home or credentialSecret fields are skipped with a warning; any pattern
// compile failure aborts the whole compilation so a reload can keep the
// previous snapshot intact.
func (c *Compiler) CompileAll(clusters map[string]config.ClusterConfig) (map[string]*ClusterPermissionSet, error) {
	out := make(map[string]*ClusterPermissionSet, len(clusters))
	for _, name := range sortedClusterNames(clusters) {
		cc := clusters[name]
		if cc.Home == "" || cc.CredentialSecret == "" {
			c.log.Warnw("Skipping cluster with incomplete connection settings", "cluster", name,
				"homeSet", cc.Home != "", "credentialSecretSet", cc.CredentialSecret != "")
			continue
		}
		set, err := c.CompileCluster(name, cc)
		if err != nil {
			return nil, err
		}
		out[name] = set
	}
	return out, nil
}

// CompileCluster compiles one cluster's raw configuration subtree. Compilation
// is idempotent: the same input always yields a set with identical decision
// behavior.
func (c *Compiler) CompileCluster(name string, cc config.ClusterConfig) (*ClusterPermissionSet, error) {
	title := cc.Title
	if title == "" {
		title = "No name"
	}

	set := &ClusterPermissionSet{
		ClusterID:        uuid.NewString(),
		Name:             name,
		Home:             cc.Home,
		CredentialSecret: cc.CredentialSecret,
		Title:            title,
	}

	for _, entry := range cc.NamespaceEntries() {
		set.NamespacePermissions = append(set.NamespacePermissions, NamespacePermission{
			Namespace:    entry.Namespace,
			IdentityRefs: NormalizeRefs(entry.IdentityRefs),
		})
	}

	var err error
	if set.ViewPermissions, err = c.compileScope(name, ScopeView, cc.PodViewPermissions); err != nil {
		return nil, err
	}
	if set.RestartPermissions, err = c.compileScope(name, ScopeRestart, cc.PodRestartPermissions); err != nil {
		return nil, err
	}

	if len(set.NamespacePermissions) > 0 || len(set.ViewPermissions) > 0 || len(set.RestartPermissions) > 0 {
		c.log.Infow("Compiled cluster permissions", "cluster", name,
			"namespaceRestrictions", len(set.NamespacePermissions),
			"viewBlocks", len(set.ViewPermissions),
			"restartBlocks", len(set.RestartPermissions))
	} else {
		c.log.Infow("Cluster has no permission restrictions; all access is open past the namespace gate", "cluster", name)
	}
	return set, nil
}

func (c *Compiler) compileScope(cluster string, scope Scope, raw []map[string]config.PodRuleBlock) ([]PodPermissionBlock, error) {
	entries := config.BlockEntries(raw)
	out := make([]PodPermissionBlock, 0, len(entries))
	for _, entry := range entries {
		block, err := c.compileBlock(cluster, scope, entry.Namespace, entry.Block)
		if err != nil {
			return nil, err
		}
		out = append(out, block)
	}
	return out, nil
}

// compileBlock compiles one {allow, except, deny, unless} subtree. A block
// that declares no allow section compiles to the single synthetic match-all
// allow rule and nothing else: such a block grants unconditionally, so any
// except/deny/unless sections it carries are inert and are not compiled.
func (c *Compiler) compileBlock(cluster string, scope Scope, namespace string, raw config.PodRuleBlock) (PodPermissionBlock, error) {
	block := PodPermissionBlock{Namespace: namespace}

	if raw.Allow == nil {
		block.Allow = []PodPermissionRule{{
			Pods: []Pattern{MustCompilePattern(matchAllSource)},
			Refs: []Pattern{MustCompilePattern(matchAllSource)},
		}}
		if raw.Except != nil || raw.Deny != nil || raw.Unless != nil {
			c.log.Warnw("Permission block has no allow section; its other sections are ignored and the block grants unconditionally",
				"cluster", cluster, "scope", scope, "namespace", namespace)
		}
		return block, nil
	}

	var err error
	if block.Allow, err = c.compileRules(cluster, scope, namespace, *raw.Allow); err != nil {
		return PodPermissionBlock{}, err
	}
	if raw.Except != nil {
		if block.Except, err = c.compileRules(cluster, scope, namespace, *raw.Except); err != nil {
			return PodPermissionBlock{}, err
		}
	}
	if raw.Deny != nil {
		if block.Deny, err = c.compileRules(cluster, scope, namespace, *raw.Deny); err != nil {
			return PodPermissionBlock{}, err
		}
	}
	if raw.Unless != nil {
		if block.Unless, err = c.compileRules(cluster, scope, namespace, *raw.Unless); err != nil {
			return PodPermissionBlock{}, err
		}
	}
	return block, nil
}

func (c *Compiler) compileRules(cluster string, scope Scope, namespace string, raw []config.PodRule) ([]PodPermissionRule, error) {
	out := make([]PodPermissionRule, 0, len(raw))
	for _, r := range raw {
		pods, err := compilePatterns(r.Pods)
		if err != nil {
			return nil, &ConfigError{Cluster: cluster, Scope: scope, Namespace: namespace, Err: err}
		}
		refs, err := compilePatterns(r.Refs)
		if err != nil {
			return nil, &ConfigError{Cluster: cluster, Scope: scope, Namespace: namespace, Err: err}
		}
		out = append(out, PodPermissionRule{Pods: pods, Refs: refs})
	}
	return out, nil
}

func sortedClusterNames(clusters map[string]config.ClusterConfig) []string {
	names := make([]string, 0, len(clusters))
	for name := range clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
