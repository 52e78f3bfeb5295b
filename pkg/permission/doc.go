// Package permission implements the two-tier authorization engine: a coarse
// namespace gate backed by identity-ref allow lists, and a fine-grained pod
// evaluator resolving allow/except/deny/unless regex rule sets. Compiled rule
// state lives in an immutable snapshot registry that reloads atomically.
package permission
