package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kubestream/streamgate/pkg/permission"
)

func TestPods(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/pods", r.URL.Path)
		require.Equal(t, "stage", r.URL.Query().Get("namespace"))
		require.Equal(t, "Bearer s", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"common-x","namespace":"stage"},{"name":"health","namespace":"stage"}]`))
	}))
	defer srv.Close()

	set := &permission.ClusterPermissionSet{Name: "dev", Home: srv.URL, CredentialSecret: "s"}
	client := NewClient(zap.NewNop().Sugar(), time.Second)

	pods, err := client.Pods(context.Background(), set, "stage")
	require.NoError(t, err)
	require.Len(t, pods, 2)
	assert.Equal(t, "common-x", pods[0].Name)
}

func TestPodsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	set := &permission.ClusterPermissionSet{Name: "dev", Home: srv.URL, CredentialSecret: "s"}
	client := NewClient(zap.NewNop().Sugar(), time.Second)

	_, err := client.Pods(context.Background(), set, "stage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
