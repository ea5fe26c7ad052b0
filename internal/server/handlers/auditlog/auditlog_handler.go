package auditlog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sectools/secrules/internal/audit"
	"github.com/sectools/secrules/internal/server/handlers/api"
)

type AuditHandler struct {
	audit *audit.Logger
}

func New(auditLog *audit.Logger) *AuditHandler {
	return &AuditHandler{audit: auditLog}
}

// Recent returns the latest audit entries, newest first.
func (h *AuditHandler) Recent(ctx *gin.Context) {
	if h.audit == nil {
		api.AbortWithError(ctx, http.StatusServiceUnavailable, api.CodeAuditUnavailable,
			errors.New("audit log is not configured"))
		return
	}

	limit := 100
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest,
				errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := h.audit.Recent(limit)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeAuditQueryFailed, err)
		return
	}

	ctx.PureJSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}
