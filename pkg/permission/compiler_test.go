package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/kubestream/streamgate/pkg/config"
)

func clusterConfigFromYAML(t *testing.T, doc string) config.ClusterConfig {
	t.Helper()
	var cc config.ClusterConfig
	require.NoError(t, yaml.Unmarshal([]byte(doc), &cc))
	return cc
}

const sampleClusterYAML = `
home: https://logs.example.com
credentialSecret: super-secret
title: Development
namespacePermissions:
  - stage: ["User:Default/Alice", "group:default/admin"]
  - production: []
podViewPermissions:
  - stage:
      allow:
        - pods: ["^common-"]
  - stage:
      allow:
        - pods: ["^api-"]
          refs: ["group:default/backend"]
podRestartPermissions:
  - production:
      allow:
        - pods: [".*"]
          refs: [".*"]
      deny:
        - refs: [".*"]
`

func TestCompileCluster(t *testing.T) {
	compiler := NewCompiler(zap.NewNop().Sugar())
	set, err := compiler.CompileCluster("dev", clusterConfigFromYAML(t, sampleClusterYAML))
	require.NoError(t, err)

	assert.NotEmpty(t, set.ClusterID)
	assert.Equal(t, "dev", set.Name)
	assert.Equal(t, "https://logs.example.com", set.Home)
	assert.Equal(t, "super-secret", set.CredentialSecret)
	assert.Equal(t, "Development", set.Title)

	require.Len(t, set.NamespacePermissions, 2)
	assert.Equal(t, "stage", set.NamespacePermissions[0].Namespace)
	// Identity refs are lower-cased at ingestion.
	assert.Equal(t, []string{"user:default/alice", "group:default/admin"}, set.NamespacePermissions[0].IdentityRefs)
	assert.Empty(t, set.NamespacePermissions[1].IdentityRefs)

	// Two blocks for the same namespace stay separate entries in config order.
	require.Len(t, set.ViewPermissions, 2)
	assert.Equal(t, "stage", set.ViewPermissions[0].Namespace)
	assert.Equal(t, "stage", set.ViewPermissions[1].Namespace)
	require.Len(t, set.ViewPermissions[0].Allow, 1)
	// Absent refs defaulted to the match-all pattern.
	require.Len(t, set.ViewPermissions[0].Allow[0].Refs, 1)
	assert.Equal(t, ".*", set.ViewPermissions[0].Allow[0].Refs[0].Source())

	require.Len(t, set.RestartPermissions, 1)
	assert.Len(t, set.RestartPermissions[0].Deny, 1)
}

func TestCompileClusterTitleDefault(t *testing.T) {
	compiler := NewCompiler(zap.NewNop().Sugar())
	set, err := compiler.CompileCluster("dev", clusterConfigFromYAML(t, `
home: https://logs.example.com
credentialSecret: s
`))
	require.NoError(t, err)
	assert.Equal(t, "No name", set.Title)
}

func TestCompileClusterInvalidPatternNamesLocation(t *testing.T) {
	compiler := NewCompiler(zap.NewNop().Sugar())
	_, err := compiler.CompileCluster("dev", clusterConfigFromYAML(t, `
home: https://logs.example.com
credentialSecret: s
podRestartPermissions:
  - production:
      allow:
        - pods: ["(["]
`))
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "dev", cfgErr.Cluster)
	assert.Equal(t, ScopeRestart, cfgErr.Scope)
	assert.Equal(t, "production", cfgErr.Namespace)
	assert.Contains(t, err.Error(), "dev")
	assert.Contains(t, err.Error(), "restart")
	assert.Contains(t, err.Error(), "production")
}

func TestCompileBlockWithoutAllowIgnoresOtherSections(t *testing.T) {
	compiler := NewCompiler(zap.NewNop().Sugar())
	set, err := compiler.CompileCluster("dev", clusterConfigFromYAML(t, `
home: https://logs.example.com
credentialSecret: s
podViewPermissions:
  - production:
      deny:
        - refs: [".*"]
`))
	require.NoError(t, err)

	require.Len(t, set.ViewPermissions, 1)
	block := set.ViewPermissions[0]
	require.Len(t, block.Allow, 1)
	assert.Equal(t, ".*", block.Allow[0].Pods[0].Source())
	assert.Empty(t, block.Deny, "sections of an allow-less block are not compiled")
}

func TestCompileAllSkipsIncompleteClusters(t *testing.T) {
	compiler := NewCompiler(zap.NewNop().Sugar())
	clusters := map[string]config.ClusterConfig{
		"good":      {Home: "https://a", CredentialSecret: "s"},
		"no-home":   {CredentialSecret: "s"},
		"no-secret": {Home: "https://b"},
		"also-good": {Home: "https://c", CredentialSecret: "s2", Title: "C"},
	}

	sets, err := compiler.CompileAll(clusters)
	require.NoError(t, err)
	assert.Len(t, sets, 2)
	assert.Contains(t, sets, "good")
	assert.Contains(t, sets, "also-good")
}

func TestCompileIdempotence(t *testing.T) {
	compiler := NewCompiler(zap.NewNop().Sugar())
	cc := clusterConfigFromYAML(t, sampleClusterYAML)

	first, err := compiler.CompileCluster("dev", cc)
	require.NoError(t, err)
	second, err := compiler.CompileCluster("dev", cc)
	require.NoError(t, err)

	eval := newTestEvaluator()
	inputs := []struct {
		ns, pod, ref string
		groups       []string
	}{
		{"stage", "common-x", "user:default/alice", nil},
		{"stage", "api-1", "user:default/bob", []string{"group:default/backend"}},
		{"production", "api-1", "user:default/alice", nil},
		{"elsewhere", "pod", "user:default/alice", nil},
	}
	for _, in := range inputs {
		assert.Equal(t,
			eval.AllowedToPod(first.ViewPermissions, in.ns, in.pod, in.ref, in.groups),
			eval.AllowedToPod(second.ViewPermissions, in.ns, in.pod, in.ref, in.groups),
			"view decision diverged for %+v", in)
		assert.Equal(t,
			eval.AllowedToNamespace(first, in.ns, in.ref, in.groups),
			eval.AllowedToNamespace(second, in.ns, in.ref, in.groups),
			"namespace decision diverged for %+v", in)
	}
}
