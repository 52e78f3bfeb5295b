package permission

import (
	"go.uber.org/zap"

	"github.com/kubestream/streamgate/pkg/config"
)

// AllowSemantics selects how the allow rules of a block are combined, see the
// compat section of the configuration.
type AllowSemantics string

const (
	// AllowLastRuleWins evaluates every allow rule in order and keeps only the
	// final rule's match result, so a later non-matching rule overwrites an
	// earlier match. This reproduces the observed legacy behavior and is the
	// default.
	AllowLastRuleWins AllowSemantics = config.AllowLastRuleWins
	// AllowAnyRule grants when any allow rule matches.
	AllowAnyRule AllowSemantics = config.AllowAnyRule
)

// ParseAllowSemantics maps the raw compat setting onto an AllowSemantics,
// falling back to the legacy default for empty or unknown values.
func ParseAllowSemantics(raw string, log *zap.SugaredLogger) AllowSemantics {
	switch raw {
	case "", config.AllowLastRuleWins:
		return AllowLastRuleWins
	case config.AllowAnyRule:
		return AllowAnyRule
	default:
		log.Warnw("Unknown allowRuleSemantics value; using lastRuleWins", "value", raw)
		return AllowLastRuleWins
	}
}

// Evaluator is the pure decision engine. It operates only on compiled,
// immutable permission data; nothing here can fail at runtime.
type Evaluator struct {
	log       *zap.SugaredLogger
	semantics AllowSemantics
}

func NewEvaluator(log *zap.SugaredLogger, semantics AllowSemantics) *Evaluator {
	if semantics == "" {
		semantics = AllowLastRuleWins
	}
	return &Evaluator{log: log, semantics: semantics}
}

// AllowedToNamespace is the coarse namespace gate. A namespace without a
// NamespacePermission entry is open to everyone; a namespace with an entry
// admits only users whose ref, or one of whose group refs, is literally
// present in the entry's identity ref list.
func (e *Evaluator) AllowedToNamespace(set *ClusterPermissionSet, namespace, userRef string, userGroups []string) bool {
	var entry *NamespacePermission
	for i := range set.NamespacePermissions {
		if set.NamespacePermissions[i].Namespace == namespace {
			entry = &set.NamespacePermissions[i]
			break
		}
	}
	if entry == nil {
		return true
	}

	ref := NormalizeRef(userRef)
	for _, allowed := range entry.IdentityRefs {
		if allowed == ref {
			return true
		}
		for _, g := range userGroups {
			if allowed == NormalizeRef(g) {
				return true
			}
		}
	}
	e.log.Debugw("Namespace gate denied access", "cluster", set.Name, "namespace", namespace, "userRef", ref)
	return false
}

// AllowedToPod runs the allow/except/deny/unless state machine for one
// (pod, user) pair. Blocks whose namespace equals the target are evaluated in
// config order and the first block that grants wins. No blocks configured for
// the scope at all means the scope is unrestricted; blocks exist but none for
// this namespace means deny.
func (e *Evaluator) AllowedToPod(blocks []PodPermissionBlock, namespace, podName, userRef string, userGroups []string) bool {
	if len(blocks) == 0 {
		return true
	}

	for i := range blocks {
		block := &blocks[i]
		if block.Namespace != namespace {
			continue
		}
		if e.blockGrants(block, podName, userRef, userGroups) {
			return true
		}
	}
	return false
}

func (e *Evaluator) blockGrants(block *PodPermissionBlock, podName, userRef string, userGroups []string) bool {
	allowMatches := false
	for _, rule := range block.Allow {
		matched := rule.Matches(podName, userRef, userGroups)
		switch e.semantics {
		case AllowAnyRule:
			allowMatches = allowMatches || matched
		default:
			// Every rule is evaluated and the last one's result stands.
			allowMatches = matched
		}
	}
	if !allowMatches {
		return false
	}

	// except: first match cancels the allow for this block.
	if anyRuleMatches(block.Except, podName, userRef, userGroups) {
		return false
	}

	if len(block.Deny) == 0 {
		return true
	}
	if !anyRuleMatches(block.Deny, podName, userRef, userGroups) {
		return true
	}
	// A deny matched; unless can still rescue the grant.
	return anyRuleMatches(block.Unless, podName, userRef, userGroups)
}

// anyRuleMatches short-circuits on the first matching rule.
func anyRuleMatches(rules []PodPermissionRule, podName, userRef string, userGroups []string) bool {
	for _, rule := range rules {
		if rule.Matches(podName, userRef, userGroups) {
			return true
		}
	}
	return false
}
