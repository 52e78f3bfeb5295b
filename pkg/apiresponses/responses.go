package apiresponses

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError is the standardized error payload for every endpoint.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondUnauthorized sends a 401 when authentication is missing or invalid.
func RespondUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
		Error: "user not authenticated",
		Code:  "UNAUTHORIZED",
	})
}

// RespondForbidden sends a 403. All authorization denials use this, whatever
// their internal reason; the reason stays in the server log.
func RespondForbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, APIError{
		Error: "access denied",
		Code:  "FORBIDDEN",
	})
}

// RespondBadRequest sends a 400 for malformed request payloads.
func RespondBadRequest(c *gin.Context, details string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, APIError{
		Error:   "invalid request",
		Code:    "BAD_REQUEST",
		Details: details,
	})
}

// RespondNotFound sends a 404 for an absent resource.
func RespondNotFound(c *gin.Context, resourceType, resourceName string) {
	c.AbortWithStatusJSON(http.StatusNotFound, APIError{
		Error: fmt.Sprintf("%s not found: %s", resourceType, resourceName),
		Code:  "NOT_FOUND",
	})
}

// RespondInternalError sends a 500 without leaking the underlying error.
func RespondInternalError(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, APIError{
		Error: "internal server error",
		Code:  "INTERNAL",
	})
}
