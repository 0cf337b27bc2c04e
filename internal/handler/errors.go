// internal/handler/errors.go
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"iqdump-service/internal/protocol"
	"iqdump-service/internal/repository"
	"iqdump-service/internal/service"
	"iqdump-service/internal/sweep"
	"iqdump-service/internal/utils"
)

// errorStatus maps a service error onto an HTTP status and API error code
func errorStatus(err error) (int, string) {
	var (
		cfgErr      *sweep.ConfigError
		devErr      *protocol.DeviceError
		connErr     *protocol.ConnectionError
		protoErr    *protocol.ProtocolError
		transferErr *protocol.TransferIncompleteError
	)

	switch {
	case errors.As(err, &cfgErr):
		return http.StatusBadRequest, utils.CodeInvalidRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, utils.CodeNotFound
	case errors.Is(err, service.ErrNotConnected):
		return http.StatusConflict, utils.CodeDutNotConnected
	case errors.As(err, &devErr):
		return http.StatusBadGateway, utils.CodeDutError
	case errors.As(err, &connErr), errors.As(err, &protoErr), errors.As(err, &transferErr),
		errors.Is(err, protocol.ErrSessionBroken), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, utils.CodeDutLinkError
	default:
		return http.StatusInternalServerError, utils.CodeInternalError
	}
}

// respondError logs err and writes the mapped error response
func respondError(c *gin.Context, logger *utils.ServiceLogger, message string, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(message, zap.Error(err), zap.String("path", c.Request.URL.Path))
	} else {
		logger.Warn(message, zap.Error(err), zap.String("path", c.Request.URL.Path))
	}
	utils.ErrorResponseWithCode(c, status, code, message, err)
}
