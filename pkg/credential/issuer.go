package credential

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kubestream/streamgate/pkg/metrics"
	"github.com/kubestream/streamgate/pkg/permission"
)

// DefaultTimeout bounds a single issue call; expiry is treated as a failure
// and the caller denies.
const DefaultTimeout = 10 * time.Second

// AccessCredential is the scoped, time-limited key handed back to the
// frontend once authorization succeeds. Its contents are opaque to
// streamgate; only the issuing service interprets the key.
type AccessCredential struct {
	Key       string    `json:"key"`
	Resource  string    `json:"resource"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Request names the tuple a credential is minted for.
type Request struct {
	Scope     permission.Scope
	Namespace string
	Pod       string
	UserRef   string
}

type issueBody struct {
	Type        string `json:"type"`
	Resource    string `json:"resource"`
	Description string `json:"description"`
}

// Issuer requests scoped access keys from a cluster's log-streaming service,
// authenticated with the cluster's credential secret.
type Issuer struct {
	log  *zap.SugaredLogger
	rest *resty.Client
}

func NewIssuer(log *zap.SugaredLogger, timeout time.Duration) *Issuer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rest := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "streamgate")
	return &Issuer{log: log, rest: rest}
}

// Issue mints a credential for the given tuple against the cluster's home
// service. Any transport error, non-2xx status, or timeout is returned as an
// error; the caller must treat that as a denied request, never a silent allow.
func (i *Issuer) Issue(ctx context.Context, set *permission.ClusterPermissionSet, req Request) (*AccessCredential, error) {
	resource := fmt.Sprintf("%s:%s:%s/%s", req.Scope, set.Name, req.Namespace, req.Pod)
	requestID := uuid.NewString()

	var cred AccessCredential
	resp, err := i.rest.R().
		SetContext(ctx).
		SetAuthToken(set.CredentialSecret).
		SetHeader("X-Request-Id", requestID).
		SetBody(issueBody{Type: "volatile", Resource: resource, Description: req.UserRef}).
		SetResult(&cred).
		Post(set.Home + "/api/key")
	if err != nil {
		metrics.CredentialIssued.WithLabelValues(set.Name, "error").Inc()
		return nil, fmt.Errorf("issuing credential for %s: %w", resource, err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		metrics.CredentialIssued.WithLabelValues(set.Name, "error").Inc()
		return nil, fmt.Errorf("issuing credential for %s: status %d", resource, resp.StatusCode())
	}
	if cred.Key == "" {
		metrics.CredentialIssued.WithLabelValues(set.Name, "error").Inc()
		return nil, fmt.Errorf("issuing credential for %s: empty key in response", resource)
	}

	if cred.Resource == "" {
		cred.Resource = resource
	}
	if cred.ExpiresAt.IsZero() {
		cred.ExpiresAt = tokenExpiry(cred.Key)
	}

	metrics.CredentialIssued.WithLabelValues(set.Name, "success").Inc()
	i.log.Infow("Issued access credential", "cluster", set.Name, "resource", resource,
		"requestID", requestID, "expiresAt", cred.ExpiresAt)
	return &cred, nil
}

// tokenExpiry reads the exp claim of an issued key without verifying the
// signature; the issuing service owns it. Keys that are not JWTs or carry no
// exp yield the zero time.
func tokenExpiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	parser := jwt.Parser{}
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
