// Package handlers exposes the daemon's local HTTP surface over a session.
package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kuberan/ledgersync/internal/errors"
	"github.com/kuberan/ledgersync/internal/logger"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the machine-readable code and a human message.
type ErrorBody struct {
	Kind    string `json:"kind,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// parsePathID parses a positive int64 path parameter.
//
//nolint:unparam // param is generic for reuse across routes
func parsePathID(c *gin.Context, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return id, nil
}

// parseIDList parses a comma separated list of ids, as in ?account_ids=1,2.
func parseIDList(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid id "+p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// respondWithError writes a consistent JSON error response. *AppError values
// keep their code and message; anything else is logged and reported as an
// internal error.
func respondWithError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil || status >= 500 {
			logger.Get().Errorw("request failed",
				"kind", appErr.Kind,
				"code", appErr.Code,
				"error", err.Error(),
				"path", c.Request.URL.Path,
			)
		}
		c.JSON(status, ErrorResponse{Error: ErrorBody{
			Kind:    string(appErr.Kind),
			Code:    appErr.Code,
			Message: appErr.Message,
		}})
		return
	}

	logger.Get().Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	c.JSON(status, ErrorResponse{Error: ErrorBody{
		Code:    "INTERNAL",
		Message: "Internal server error",
	}})
}
