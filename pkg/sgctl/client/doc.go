// Package client is the HTTP client sgctl uses against a streamgate server.
package client
