package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/distribution"
)

// writeError maps a ledger error to an HTTP status and error code.
func (h *Handler) writeError(c *gin.Context, err error) {
	status, code := classify(err)

	body := gin.H{
		"error":      code,
		"message":    err.Error(),
		"request_id": requestID(c),
	}
	var batch *distribution.BatchError
	if errors.As(err, &batch) {
		body["index"] = batch.Index
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("api: request failed",
			"path", c.FullPath(),
			"request_id", requestID(c),
			"error", err,
		)
	}
	c.AbortWithStatusJSON(status, body)
}

// settled reports whether err came from a transfer that went through. The
// request succeeded; the failure is logged and returned as a warning.
func (h *Handler) settled(c *gin.Context, err error) bool {
	if !distribution.IsSettled(err) {
		return false
	}
	h.logger.Warn("api: settled without event",
		"path", c.FullPath(),
		"request_id", requestID(c),
		"error", err,
	)
	return true
}

func classify(err error) (int, string) {
	switch {
	case distribution.IsAuthorization(err):
		return http.StatusForbidden, "forbidden"
	case distribution.IsValidation(err), errors.Is(err, errInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case distribution.IsSettlement(err):
		return http.StatusConflict, "rejected"
	case distribution.IsRetryable(err):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

var errInvalidArgument = errors.New("api: invalid argument")
