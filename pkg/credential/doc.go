// Package credential mints scoped, time-limited access keys from the remote
// log-streaming service after an authorization decision has passed.
package credential
