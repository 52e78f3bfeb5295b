// Package metrics defines Prometheus metrics for the streamgate service,
// covering registry reloads, permission decisions, credential issuance,
// pod discovery, catalog lookups, and audit delivery.
package metrics
