// Package catalog resolves the group membership of a user from the identity
// catalog (Keycloak), returning canonical group refs for the permission
// engine.
package catalog
