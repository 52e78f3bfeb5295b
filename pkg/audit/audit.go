package audit

import (
	"context"
	"time"
)

// Decision is the outcome recorded for an authorization request.
type Decision string

const (
	DecisionAllowed Decision = "allowed"
	DecisionDenied  Decision = "denied"
)

// Event is one authorization decision with its full tuple. Events never carry
// the issued credential itself.
type Event struct {
	Time      time.Time `json:"time"`
	RequestID string    `json:"requestId,omitempty"`
	Cluster   string    `json:"cluster"`
	Namespace string    `json:"namespace"`
	Pod       string    `json:"pod"`
	Scope     string    `json:"scope"`
	UserRef   string    `json:"userRef"`
	Groups    []string  `json:"groups,omitempty"`
	Decision  Decision  `json:"decision"`
	Reason    string    `json:"reason,omitempty"`
}

// Sink receives decision events. Publishing is best-effort: a sink failure is
// logged and counted but never blocks or reverses a decision.
type Sink interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopSink discards all events; used when auditing is not configured.
type NopSink struct{}

func (NopSink) Publish(context.Context, Event) error { return nil }
func (NopSink) Close() error                         { return nil }
