// Package discovery fetches pod lists from the remote log-streaming service
// so the API layer can present only the pods a user may act on.
package discovery
