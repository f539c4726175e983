package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyIP-MMP/pkg/errors"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeAppError maps an application error to its HTTP status.  Server-side
// failures are masked.
func writeAppError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)
	resp := ErrorResponse{Code: code.String(), Message: err.Error()}
	if status >= http.StatusInternalServerError && code != errors.ErrCodeServiceUnavailable && code != errors.ErrCodeToolkitUnavailable {
		resp = ErrorResponse{Code: errors.ErrCodeInternal.String(), Message: "internal server error"}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// parseLimit reads ?limit, clamped to [1, maxListLimit].
func parseLimit(c *gin.Context) (int, error) {
	v := c.Query("limit")
	if v == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errors.InvalidParam("limit must be a positive integer")
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, nil
}

//Personal.AI order the ending
