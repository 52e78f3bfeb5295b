package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RegistryReloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_registry_reloads_total",
		Help: "Total number of permission registry reloads by result",
	}, []string{"result"})
	PermissionDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_permission_decisions_total",
		Help: "Total number of pod permission decisions by cluster, scope and decision",
	}, []string{"cluster", "scope", "decision"})
	// Namespace gate denials are labeled by cluster only; namespace and user
	// would blow up cardinality.
	NamespaceGateDenied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_namespace_gate_denied_total",
		Help: "Total number of requests stopped by the namespace gate",
	}, []string{"cluster"})
	UnknownClusterRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_unknown_cluster_requests_total",
		Help: "Total number of requests naming a cluster absent from the registry",
	}, []string{"cluster"})
	UnknownScopeRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamgate_unknown_scope_requests_total",
		Help: "Total number of requests carrying an unknown scope",
	})
	CredentialIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_credentials_issued_total",
		Help: "Total number of access credential issue attempts by cluster and result",
	}, []string{"cluster", "result"})
	DiscoveryRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_discovery_requests_total",
		Help: "Total number of pod discovery calls by cluster and result",
	}, []string{"cluster", "result"})
	CatalogLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_catalog_lookups_total",
		Help: "Total number of catalog group membership lookups by result",
	}, []string{"result"})
	CatalogCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamgate_catalog_cache_hits_total",
		Help: "Total number of catalog cache hits",
	})
	CatalogCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streamgate_catalog_cache_misses_total",
		Help: "Total number of catalog cache misses",
	})
	AuditEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_audit_events_total",
		Help: "Total number of audit events published by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(RegistryReloads)
	prometheus.MustRegister(PermissionDecisions)
	prometheus.MustRegister(NamespaceGateDenied)
	prometheus.MustRegister(UnknownClusterRequests)
	prometheus.MustRegister(UnknownScopeRequests)
	prometheus.MustRegister(CredentialIssued)
	prometheus.MustRegister(DiscoveryRequests)
	prometheus.MustRegister(CatalogLookups)
	prometheus.MustRegister(CatalogCacheHits)
	prometheus.MustRegister(CatalogCacheMisses)
	prometheus.MustRegister(AuditEvents)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
