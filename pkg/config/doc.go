// Package config loads the streamgate YAML configuration: server and auth
// settings, the identity catalog, audit delivery, and the per-cluster
// permission subtrees the rule compiler consumes. It also watches the file
// for changes to drive registry reloads.
package config
