package rest

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/staking-indexer/internal/api/shared/errors"
	"github.com/feral-file/staking-indexer/internal/logger"
)

// errorResponse represents a standardized error response
type errorResponse struct {
	Error *apierrors.APIError `json:"error"`
}

// respondWithError sends err with the status its code maps to
func respondWithError(c *gin.Context, err *apierrors.APIError) {
	c.JSON(err.Code.HTTPStatus(), errorResponse{Error: err})
}

func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondWithError(c, apierrors.New(apierrors.ErrCodeBadRequest, message, details...))
}

func respondNotFound(c *gin.Context, message string, details ...string) {
	respondWithError(c, apierrors.New(apierrors.ErrCodeNotFound, message, details...))
}

func respondValidationError(c *gin.Context, details string) {
	respondWithError(c, apierrors.New(apierrors.ErrCodeValidationFailed, "Validation failed", details))
}

// respondInternalError logs err and answers with a 5xx.
// Executor errors keep their code, anything else is reported as internal_error.
// Store details stay in the log and never reach the response body.
func respondInternalError(c *gin.Context, err error, message string, fields ...zap.Field) {
	logger.ErrorCtx(c.Request.Context(), err, append(fields, zap.String("path", c.Request.URL.Path))...)

	code := apierrors.ErrCodeInternalError
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		code = apiErr.Code
	}
	respondWithError(c, apierrors.New(code, message))
}
