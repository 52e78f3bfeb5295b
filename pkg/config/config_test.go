package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

const sampleConfig = `
server:
  listenAddress: ":8080"
authorizationServer:
  url: https://idp.example.com
  jwksEndpoint: protocol/openid-connect/certs
catalog:
  baseURL: https://idp.example.com
  realm: main
  clientID: streamgate
compat:
  allowRuleSemantics: anyRule
clusters:
  dev:
    home: https://logs.dev.example.com
    credentialSecret: abc
    title: Dev
    namespacePermissions:
      - stage: ["user:default/alice"]
    podViewPermissions:
      - stage:
          allow:
            - pods: ["^common-"]
      - stage:
          allow: []
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.ListenAddress)
	assert.Equal(t, "anyRule", cfg.Compat.AllowRuleSemantics)
	require.Contains(t, cfg.Clusters, "dev")
	assert.Equal(t, "https://logs.dev.example.com", cfg.Clusters["dev"].Home)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv("STREAMGATE_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Contains(t, cfg.Clusters, "dev")
}

func TestAbsentVersusEmptyDecoding(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	blocks := BlockEntries(cfg.Clusters["dev"].PodViewPermissions)
	require.Len(t, blocks, 2)

	first := blocks[0].Block
	require.NotNil(t, first.Allow)
	require.Len(t, *first.Allow, 1)
	rule := (*first.Allow)[0]
	require.NotNil(t, rule.Pods, "declared pods list decodes non-nil")
	assert.Nil(t, rule.Refs, "absent refs key decodes nil")

	second := blocks[1].Block
	require.NotNil(t, second.Allow, "allow: [] is declared, not absent")
	assert.Len(t, *second.Allow, 0)
}

func TestPodRuleEmptyListDecoding(t *testing.T) {
	var rule PodRule
	require.NoError(t, yaml.Unmarshal([]byte(`{pods: [], refs: ["a"]}`), &rule))
	require.NotNil(t, rule.Pods)
	assert.Len(t, *rule.Pods, 0)
	require.NotNil(t, rule.Refs)
	assert.Equal(t, []string{"a"}, *rule.Refs)

	var bare PodRule
	require.NoError(t, yaml.Unmarshal([]byte(`{}`), &bare))
	assert.Nil(t, bare.Pods)
	assert.Nil(t, bare.Refs)
}

func TestNamespaceEntriesPreserveOrder(t *testing.T) {
	var cc ClusterConfig
	require.NoError(t, yaml.Unmarshal([]byte(`
namespacePermissions:
  - zeta: ["user:default/a"]
  - alpha: ["user:default/b"]
  - zeta: ["user:default/c"]
`), &cc))

	entries := cc.NamespaceEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, "zeta", entries[0].Namespace)
	assert.Equal(t, "alpha", entries[1].Namespace)
	assert.Equal(t, "zeta", entries[2].Namespace)
}
