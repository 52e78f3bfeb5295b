package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/kubestream/streamgate/pkg/access"
	"github.com/kubestream/streamgate/pkg/apiresponses"
)

// ErrDenied is returned when the server answers 403 for a request.
var ErrDenied = errors.New("access denied")

// Client talks to a running streamgate server.
type Client struct {
	rest *resty.Client
}

func New(server, token string) (*Client, error) {
	if server == "" {
		return nil, errors.New("server is required")
	}
	rest := resty.New().
		SetBaseURL(server).
		SetHeader("User-Agent", "sgctl").
		SetAuthToken(token)
	return &Client{rest: rest}, nil
}

// Access asks the server for an access decision and, on allow, the minted
// credential.
func (c *Client) Access(ctx context.Context, req access.AccessRequest) (*access.AccessResponse, error) {
	var (
		result access.AccessResponse
		apiErr apiresponses.APIError
	)
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		SetError(&apiErr).
		Post("/api/access")
	if err != nil {
		return nil, fmt.Errorf("requesting access: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return &result, nil
	case http.StatusForbidden:
		return nil, ErrDenied
	case http.StatusUnauthorized:
		return nil, errors.New("not authenticated: check the stored token")
	default:
		if apiErr.Error != "" {
			return nil, fmt.Errorf("server error (status %d): %s", resp.StatusCode(), apiErr.Error)
		}
		return nil, fmt.Errorf("server error (status %d)", resp.StatusCode())
	}
}

// Clusters lists the clusters the server is configured for.
func (c *Client) Clusters(ctx context.Context) ([]access.ClusterInfo, error) {
	var result struct {
		Clusters []access.ClusterInfo `json:"clusters"`
	}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/api/clusters")
	if err != nil {
		return nil, fmt.Errorf("listing clusters: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("listing clusters: status %d", resp.StatusCode())
	}
	return result.Clusters, nil
}
