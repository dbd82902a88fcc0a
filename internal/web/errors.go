package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
}

var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{models.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{models.ErrConflict, http.StatusConflict, "CONFLICT"},
	{models.ErrInvalidStateTransition, http.StatusConflict, "INVALID_STATE_TRANSITION"},
	{models.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{models.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{models.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{models.ErrInconsistentState, http.StatusInternalServerError, "INCONSISTENT_STATE"},
}

// StatusFor maps an error to its HTTP status and error code
func StatusFor(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// WriteError maps err to a response. Server errors are logged and their
// details are not exposed to the client.
func WriteError(c *gin.Context, log *logger.Logger, action string, err error) {
	status, code := StatusFor(err)
	requestID := GetRequestID(c)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error(action, "Request failed", requestID, err, map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		})
		if code == "INTERNAL_ERROR" {
			message = "Internal server error"
		}
	} else {
		log.Debug(action, "Request rejected", requestID, map[string]interface{}{
			"status": status,
			"error":  message,
		})
	}

	Abort(c, status, code, message)
}

// Abort writes an error body and stops the handler chain
func Abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: GetRequestID(c),
	})
}
