package permission

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/kubestream/streamgate/pkg/config"
)

func configFromYAML(t *testing.T, doc string) config.Config {
	t.Helper()
	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(doc), &cfg))
	return cfg
}

func TestRegistryGetUnknownCluster(t *testing.T) {
	r := NewRegistry(zap.NewNop().Sugar())
	_, err := r.Get("nope")
	require.ErrorIs(t, err, ErrClusterNotFound)
}

func TestRegistryReloadAndGet(t *testing.T) {
	r := NewRegistry(zap.NewNop().Sugar())
	cfg := configFromYAML(t, `
clusters:
  dev:
    home: https://dev.example.com
    credentialSecret: s1
  prod:
    home: https://prod.example.com
    credentialSecret: s2
    title: Production
`)

	require.NoError(t, r.Reload(cfg))
	assert.Equal(t, []string{"dev", "prod"}, r.Names())

	set, err := r.Get("prod")
	require.NoError(t, err)
	assert.Equal(t, "Production", set.Title)
}

func TestRegistryReloadFailureKeepsPreviousSnapshot(t *testing.T) {
	r := NewRegistry(zap.NewNop().Sugar())
	good := configFromYAML(t, `
clusters:
  dev:
    home: https://dev.example.com
    credentialSecret: s1
`)
	require.NoError(t, r.Reload(good))

	bad := configFromYAML(t, `
clusters:
  dev:
    home: https://dev.example.com
    credentialSecret: s1
    podViewPermissions:
      - stage:
          allow:
            - pods: ["(["]
`)
	err := r.Reload(bad)
	require.Error(t, err)

	// Last-known-good snapshot still serves readers.
	set, err := r.Get("dev")
	require.NoError(t, err)
	assert.Equal(t, "dev", set.Name)
	assert.Empty(t, set.ViewPermissions)
}

func TestRegistryReloadReplacesWholesale(t *testing.T) {
	r := NewRegistry(zap.NewNop().Sugar())
	require.NoError(t, r.Reload(configFromYAML(t, `
clusters:
  old:
    home: https://old.example.com
    credentialSecret: s
`)))
	require.NoError(t, r.Reload(configFromYAML(t, `
clusters:
  new:
    home: https://new.example.com
    credentialSecret: s
`)))

	_, err := r.Get("old")
	require.ErrorIs(t, err, ErrClusterNotFound)
	_, err = r.Get("new")
	require.NoError(t, err)
}

func TestRegistryConcurrentReadersDuringReload(t *testing.T) {
	r := NewRegistry(zap.NewNop().Sugar())
	cfgA := configFromYAML(t, `
clusters:
  a:
    home: https://a.example.com
    credentialSecret: s
  b:
    home: https://b.example.com
    credentialSecret: s
`)
	cfgB := configFromYAML(t, `
clusters:
  c:
    home: https://c.example.com
    credentialSecret: s
  d:
    home: https://d.example.com
    credentialSecret: s
`)
	require.NoError(t, r.Reload(cfgA))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				// A snapshot is always fully old or fully new: two clusters.
				names := r.Names()
				if len(names) != 2 {
					t.Errorf("observed partial snapshot: %v", names)
					return
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			require.NoError(t, r.Reload(cfgB))
		} else {
			require.NoError(t, r.Reload(cfgA))
		}
	}
	close(stop)
	wg.Wait()
}
