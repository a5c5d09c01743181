package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alcyxob/workout-engine/internal/domain"
)

// envelope is the response shape of every endpoint.
type envelope struct {
	Success bool          `json:"success"`
	Data    any           `json:"data,omitempty"`
	Error   *domain.Error `json:"error,omitempty"`
}

var errInternal = domain.NewError(domain.CodeInternal, "internal error")

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

// respondError writes a coded error. Uncoded errors are logged and hidden behind INTERNAL.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	coded, ok := domain.AsError(err)
	if !ok || coded.Code == domain.CodeInternal {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		if !ok {
			coded = errInternal
		}
	}
	abortWithError(c, coded)
}

func abortWithError(c *gin.Context, err *domain.Error) {
	c.AbortWithStatusJSON(httpStatus(err.Code), envelope{Success: false, Error: err})
}

func httpStatus(code domain.ErrorCode) int {
	switch code {
	case domain.CodeInvalidArgument, domain.CodeInvalidState, domain.CodeAlreadyDone, domain.CodeValidation,
		domain.CodeDuplicateSetID, domain.CodeMixedOpTypes, domain.CodeMultiSetEdit, domain.CodeMultipleStructuralOps:
		return http.StatusBadRequest
	case domain.CodeUnauthenticated:
		return http.StatusUnauthorized
	case domain.CodePermissionDenied:
		return http.StatusForbidden
	case domain.CodeNotFound, domain.CodeTargetNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
