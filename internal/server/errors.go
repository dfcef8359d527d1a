package server

import (
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/cashgame/internal/analysis"
	"github.com/MarcoPoloResearchLab/cashgame/internal/games"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	errorInvalidRequest       = "invalid_request"
	errorNotFound             = "not_found"
	errorUnauthorized         = "unauthorized"
	errorForbidden            = "forbidden"
	errorAnalysisUnconfigured = "analysis_unconfigured"
	errorAnalysisFailed       = "analysis_failed"
	errorAnalysisUnavailable  = "analysis_unavailable"
	errorInternal             = "internal_error"
)

// respondError maps domain errors onto HTTP statuses. Absent and invisible records
// share one response.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, games.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": errorNotFound})
	case errors.Is(err, games.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": errorUnauthorized})
	case errors.Is(err, games.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": errorForbidden})
	case errors.Is(err, games.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": errorInvalidRequest, "detail": validationDetail(err)})
	case errors.Is(err, analysis.ErrUpstreamUnconfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errorAnalysisUnconfigured})
	case errors.Is(err, analysis.ErrUpstreamInvalidResponse):
		h.logger.Warn("till analysis returned an invalid response", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": errorAnalysisFailed})
	case errors.Is(err, analysis.ErrUpstreamUnavailable):
		h.logger.Warn("till analysis unavailable", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": errorAnalysisUnavailable})
	default:
		var serviceErr *games.ServiceError
		if errors.As(err, &serviceErr) {
			h.logger.Error("request failed", zap.String("code", serviceErr.Code()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": serviceErr.Code()})
			return
		}
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorInternal})
	}
}

// validationDetail returns the innermost message, which names the offending field.
func validationDetail(err error) string {
	for err != nil {
		next := errors.Unwrap(err)
		if next == games.ErrValidation {
			return err.Error()
		}
		err = next
	}
	return ""
}

func (h *httpHandler) respondInvalidRequest(c *gin.Context, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": errorInvalidRequest, "detail": detail})
}
