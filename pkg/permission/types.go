package permission

import (
	"errors"
	"fmt"
	"strings"
)

// Scope is the action being authorized. It is a closed enumeration resolved
// once at the boundary; unknown values are rejected there instead of being
// passed through the evaluator as raw strings.
type Scope string

const (
	ScopeView    Scope = "view"
	ScopeRestart Scope = "restart"
	ScopeFilter  Scope = "filter"
	ScopeAPI     Scope = "api"
	ScopeCluster Scope = "cluster"
)

var ErrUnknownScope = errors.New("unknown scope")

func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeView:
		return ScopeView, nil
	case ScopeRestart:
		return ScopeRestart, nil
	case ScopeFilter:
		return ScopeFilter, nil
	case ScopeAPI:
		return ScopeAPI, nil
	case ScopeCluster:
		return ScopeCluster, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownScope, s)
	}
}

// NormalizeRef canonicalizes an identity ref (user:namespace/id or
// group:namespace/id). Refs are always compared lower-cased.
func NormalizeRef(ref string) string {
	return strings.ToLower(strings.TrimSpace(ref))
}

// NormalizeRefs lower-cases a ref list, dropping empties.
func NormalizeRefs(refs []string) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if n := NormalizeRef(r); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// NamespacePermission restricts one namespace to a literal set of identity
// refs. Absence of an entry for a namespace means the namespace is open.
type NamespacePermission struct {
	Namespace    string
	IdentityRefs []string
}

// PodPermissionRule matches a (pod, user) pair: any pods pattern must match
// the pod name AND any refs pattern must match the user ref or one of the
// user's group refs. Pod name matching is case-sensitive; ref matching runs
// against lower-cased refs.
type PodPermissionRule struct {
	Pods []Pattern
	Refs []Pattern
}

func (r PodPermissionRule) Matches(podName, userRef string, userGroups []string) bool {
	if !anyPatternMatches(r.Pods, podName) {
		return false
	}
	if anyPatternMatches(r.Refs, NormalizeRef(userRef)) {
		return true
	}
	for _, g := range userGroups {
		if anyPatternMatches(r.Refs, NormalizeRef(g)) {
			return true
		}
	}
	return false
}

// PodPermissionBlock is one namespace's compiled allow/except/deny/unless rule
// set. The same namespace may own several blocks; they are evaluated in config
// order. Allow is never nil after compilation: a block that declared no allow
// section gets the synthetic match-all rule (and its other sections are not
// compiled, making the block an unconditional grant).
type PodPermissionBlock struct {
	Namespace string
	Allow     []PodPermissionRule
	Except    []PodPermissionRule
	Deny      []PodPermissionRule
	Unless    []PodPermissionRule
}

// ClusterPermissionSet is the compiled permission state for one cluster. It is
// immutable after compilation; the registry swaps whole snapshots instead of
// mutating entries in place.
type ClusterPermissionSet struct {
	ClusterID            string
	Name                 string
	Home                 string
	CredentialSecret     string
	Title                string
	NamespacePermissions []NamespacePermission
	ViewPermissions      []PodPermissionBlock
	RestartPermissions   []PodPermissionBlock
}

// PermissionSet returns the pod permission blocks for a scope. Scopes without
// a configured permission concept resolve to ErrUnknownScope; the caller is
// expected to deny and log a warning.
func (s *ClusterPermissionSet) PermissionSet(scope Scope) ([]PodPermissionBlock, error) {
	switch scope {
	case ScopeView:
		return s.ViewPermissions, nil
	case ScopeRestart:
		return s.RestartPermissions, nil
	default:
		return nil, fmt.Errorf("%w: no permission set for scope %q", ErrUnknownScope, scope)
	}
}
