// Package apiresponses provides standardized JSON error responses shared by
// all API endpoints.
package apiresponses
