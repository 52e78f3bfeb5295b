// Package access exposes the authorization endpoints: access decisions with
// credential minting, permission-filtered pod listings, and the cluster
// inventory.
package access
