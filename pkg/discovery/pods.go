package discovery

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kubestream/streamgate/pkg/metrics"
	"github.com/kubestream/streamgate/pkg/permission"
)

const DefaultTimeout = 10 * time.Second

// Pod is the slim pod summary the remote service reports.
type Pod struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

// Client lists pods from a cluster's remote log-streaming service. It is the
// only pod source streamgate has; the Kubernetes API is never contacted
// directly.
type Client struct {
	log  *zap.SugaredLogger
	rest *resty.Client
}

func NewClient(log *zap.SugaredLogger, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rest := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "streamgate")
	return &Client{log: log, rest: rest}
}

// Pods lists the pods of one namespace on the given cluster.
func (c *Client) Pods(ctx context.Context, set *permission.ClusterPermissionSet, namespace string) ([]Pod, error) {
	var pods []Pod
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(set.CredentialSecret).
		SetQueryParam("namespace", namespace).
		SetResult(&pods).
		Get(set.Home + "/api/pods")
	if err != nil {
		metrics.DiscoveryRequests.WithLabelValues(set.Name, "error").Inc()
		return nil, fmt.Errorf("listing pods in %s/%s: %w", set.Name, namespace, err)
	}
	if resp.StatusCode() != http.StatusOK {
		metrics.DiscoveryRequests.WithLabelValues(set.Name, "error").Inc()
		return nil, fmt.Errorf("listing pods in %s/%s: status %d", set.Name, namespace, resp.StatusCode())
	}

	metrics.DiscoveryRequests.WithLabelValues(set.Name, "success").Inc()
	c.log.Debugw("Listed pods from remote service", "cluster", set.Name, "namespace", namespace, "count", len(pods))
	return pods, nil
}
