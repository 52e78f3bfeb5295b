package access

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kubestream/streamgate/pkg/api"
	"github.com/kubestream/streamgate/pkg/apiresponses"
	"github.com/kubestream/streamgate/pkg/audit"
	"github.com/kubestream/streamgate/pkg/catalog"
	"github.com/kubestream/streamgate/pkg/credential"
	"github.com/kubestream/streamgate/pkg/discovery"
	"github.com/kubestream/streamgate/pkg/metrics"
	"github.com/kubestream/streamgate/pkg/permission"
)

// CredentialIssuer mints access credentials once a request is authorized.
type CredentialIssuer interface {
	Issue(ctx context.Context, set *permission.ClusterPermissionSet, req credential.Request) (*credential.AccessCredential, error)
}

// PodLister lists pods from a cluster's remote service.
type PodLister interface {
	Pods(ctx context.Context, set *permission.ClusterPermissionSet, namespace string) ([]discovery.Pod, error)
}

// AccessRequest is the body of POST /api/access. The caller's identity comes
// from the verified bearer token, never from the body.
type AccessRequest struct {
	Cluster   string `json:"cluster" binding:"required"`
	Namespace string `json:"namespace" binding:"required"`
	Pod       string `json:"pod" binding:"required"`
	Scope     string `json:"scope" binding:"required"`
}

// AccessResponse carries the minted credential back to the frontend.
type AccessResponse struct {
	Allowed    bool                         `json:"allowed"`
	Credential *credential.AccessCredential `json:"credential,omitempty"`
}

// ClusterInfo is the public listing shape of a configured cluster. The
// credential secret never leaves the server.
type ClusterInfo struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Home  string `json:"home"`
}

// AccessController answers authorization requests: it runs the namespace gate
// and pod evaluator against the registry's current snapshot and mints a
// credential on allow. Every deny path responds 403; the reason stays in the
// log and the audit trail.
type AccessController struct {
	log       *zap.SugaredLogger
	registry  *permission.Registry
	evaluator *permission.Evaluator
	groups    catalog.GroupResolver
	issuer    CredentialIssuer
	pods      PodLister
	sink      audit.Sink
	handlers  []gin.HandlerFunc
}

func NewController(
	log *zap.SugaredLogger,
	registry *permission.Registry,
	evaluator *permission.Evaluator,
	groups catalog.GroupResolver,
	issuer CredentialIssuer,
	pods PodLister,
	sink audit.Sink,
	handlers ...gin.HandlerFunc,
) *AccessController {
	if groups == nil {
		groups = catalog.NopResolver{}
	}
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &AccessController{
		log:       log,
		registry:  registry,
		evaluator: evaluator,
		groups:    groups,
		issuer:    issuer,
		pods:      pods,
		sink:      sink,
		handlers:  handlers,
	}
}

func (ac *AccessController) BasePath() string { return "" }

func (ac *AccessController) Handlers() []gin.HandlerFunc { return ac.handlers }

func (ac *AccessController) Register(rg *gin.RouterGroup) error {
	rg.POST("access", ac.postAccess)
	rg.GET("pods", ac.getPods)
	rg.GET("clusters", ac.getClusters)
	return nil
}

func (ac *AccessController) postAccess(c *gin.Context) {
	var req AccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiresponses.RespondBadRequest(c, err.Error())
		return
	}
	userRef := c.GetString("userRef")
	if userRef == "" {
		apiresponses.RespondUnauthorized(c)
		return
	}
	requestID := uuid.NewString()

	scope, err := permission.ParseScope(req.Scope)
	if err != nil {
		metrics.UnknownScopeRequests.Inc()
		ac.log.Warnw("Denying request with unknown scope", "scope", req.Scope, "userRef", userRef, "requestID", requestID)
		ac.audit(c, requestID, req, "", userRef, nil, "unknown scope")
		apiresponses.RespondForbidden(c)
		return
	}

	set, err := ac.registry.Get(req.Cluster)
	if err != nil {
		metrics.UnknownClusterRequests.WithLabelValues(req.Cluster).Inc()
		ac.log.Warnw("Denying request for unknown cluster", "cluster", req.Cluster, "userRef", userRef, "requestID", requestID)
		ac.audit(c, requestID, req, scope, userRef, nil, "unknown cluster")
		apiresponses.RespondForbidden(c)
		return
	}

	groups := ac.resolveGroups(c, userRef)

	if !ac.evaluator.AllowedToNamespace(set, req.Namespace, userRef, groups) {
		metrics.NamespaceGateDenied.WithLabelValues(set.Name).Inc()
		metrics.PermissionDecisions.WithLabelValues(set.Name, string(scope), "denied").Inc()
		ac.audit(c, requestID, req, scope, userRef, groups, "namespace gate")
		apiresponses.RespondForbidden(c)
		return
	}

	blocks, err := set.PermissionSet(scope)
	if err != nil {
		metrics.UnknownScopeRequests.Inc()
		ac.log.Warnw("Denying request for scope without permission concept", "scope", scope, "requestID", requestID)
		ac.audit(c, requestID, req, scope, userRef, groups, "scope has no permission set")
		apiresponses.RespondForbidden(c)
		return
	}

	if !ac.evaluator.AllowedToPod(blocks, req.Namespace, req.Pod, userRef, groups) {
		metrics.PermissionDecisions.WithLabelValues(set.Name, string(scope), "denied").Inc()
		ac.audit(c, requestID, req, scope, userRef, groups, "pod rules")
		apiresponses.RespondForbidden(c)
		return
	}
	metrics.PermissionDecisions.WithLabelValues(set.Name, string(scope), "allowed").Inc()

	cred, err := ac.issuer.Issue(c.Request.Context(), set, credential.Request{
		Scope:     scope,
		Namespace: req.Namespace,
		Pod:       req.Pod,
		UserRef:   userRef,
	})
	if err != nil {
		// Authorized but uncredentialed is still a denial for the caller.
		ac.log.Errorw("Credential issuance failed", "cluster", set.Name, "requestID", requestID, "error", err)
		ac.audit(c, requestID, req, scope, userRef, groups, "credential issuance failed")
		apiresponses.RespondForbidden(c)
		return
	}

	ac.publish(c, audit.Event{
		Time:      time.Now().UTC(),
		RequestID: requestID,
		Cluster:   req.Cluster,
		Namespace: req.Namespace,
		Pod:       req.Pod,
		Scope:     string(scope),
		UserRef:   userRef,
		Groups:    groups,
		Decision:  audit.DecisionAllowed,
	})
	c.JSON(http.StatusOK, AccessResponse{Allowed: true, Credential: cred})
}

// getPods lists the pods of one namespace the caller is allowed to view.
func (ac *AccessController) getPods(c *gin.Context) {
	cluster := c.Query("cluster")
	namespace := c.Query("namespace")
	if cluster == "" || namespace == "" {
		apiresponses.RespondBadRequest(c, "cluster and namespace query parameters are required")
		return
	}
	userRef := c.GetString("userRef")
	if userRef == "" {
		apiresponses.RespondUnauthorized(c)
		return
	}

	set, err := ac.registry.Get(cluster)
	if err != nil {
		metrics.UnknownClusterRequests.WithLabelValues(cluster).Inc()
		apiresponses.RespondNotFound(c, "cluster", cluster)
		return
	}

	groups := ac.resolveGroups(c, userRef)
	if !ac.evaluator.AllowedToNamespace(set, namespace, userRef, groups) {
		metrics.NamespaceGateDenied.WithLabelValues(set.Name).Inc()
		apiresponses.RespondForbidden(c)
		return
	}

	pods, err := ac.pods.Pods(c.Request.Context(), set, namespace)
	if err != nil {
		ac.log.Errorw("Pod discovery failed", "cluster", cluster, "namespace", namespace, "error", err)
		apiresponses.RespondInternalError(c)
		return
	}

	visible := make([]discovery.Pod, 0, len(pods))
	for _, pod := range pods {
		if ac.evaluator.AllowedToPod(set.ViewPermissions, namespace, pod.Name, userRef, groups) {
			visible = append(visible, pod)
		}
	}
	c.JSON(http.StatusOK, gin.H{"pods": visible})
}

func (ac *AccessController) getClusters(c *gin.Context) {
	names := ac.registry.Names()
	clusters := make([]ClusterInfo, 0, len(names))
	for _, name := range names {
		set, err := ac.registry.Get(name)
		if err != nil {
			continue
		}
		clusters = append(clusters, ClusterInfo{Name: set.Name, Title: set.Title, Home: set.Home})
	}
	c.JSON(http.StatusOK, gin.H{"clusters": clusters})
}

// resolveGroups asks the catalog for the caller's group refs. Lookup failures
// degrade to "no groups", which can only narrow access.
func (ac *AccessController) resolveGroups(c *gin.Context, userRef string) []string {
	groups, err := ac.groups.Groups(c.Request.Context(), userRef)
	if err != nil {
		ac.log.Warnw("Catalog group lookup failed; evaluating without groups", "userRef", userRef, "error", err)
		return nil
	}
	return groups
}

func (ac *AccessController) audit(c *gin.Context, requestID string, req AccessRequest, scope permission.Scope, userRef string, groups []string, reason string) {
	ac.publish(c, audit.Event{
		Time:      time.Now().UTC(),
		RequestID: requestID,
		Cluster:   req.Cluster,
		Namespace: req.Namespace,
		Pod:       req.Pod,
		Scope:     string(scope),
		UserRef:   userRef,
		Groups:    groups,
		Decision:  audit.DecisionDenied,
		Reason:    reason,
	})
}

// publish is fire-and-forget: the sink counts its own outcomes, a failure is
// logged here and never reverses the decision already sent to the caller.
func (ac *AccessController) publish(c *gin.Context, event audit.Event) {
	if err := ac.sink.Publish(c.Request.Context(), event); err != nil && !errors.Is(err, context.Canceled) {
		ac.log.Errorw("Failed to publish audit event", "requestID", event.RequestID, "error", err)
	}
}

var _ api.APIController = (*AccessController)(nil)
