package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ksy070822/petmily-backend/internal/repository"
	"github.com/ksy070822/petmily-backend/internal/service"
)

// GuardianHeader identifies the calling guardian. The gateway in front of
// this service authenticates the account and injects the header.
const GuardianHeader = "X-Guardian-ID"

// ErrorResponse is the JSON error body shared by all endpoints
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// guardianID extracts the caller's guardian ID, writing a 401 response
// when the header is absent.
func guardianID(c *gin.Context) (string, bool) {
	id := c.GetHeader(GuardianHeader)
	if id == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    "UNAUTHENTICATED",
			Message: "Missing " + GuardianHeader + " header",
		})
		return "", false
	}
	return id, true
}

// requestMeta captures caller metadata for audit entries
func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// respondServiceError maps service and repository errors onto HTTP status
// codes with the shared error body
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "Resource not found",
			Details: stringPtr(err.Error()),
		})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Code:    "FORBIDDEN",
			Message: "You do not have access to this resource",
			Details: stringPtr(err.Error()),
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Request failed",
			Details: stringPtr(err.Error()),
		})
	}
}
