// Package api hosts the gin HTTP server, the controller registration
// contract, and the JWT bearer authentication middleware.
package api
