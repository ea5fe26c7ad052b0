package rules

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sectools/secrules/internal/audit"
	"github.com/sectools/secrules/internal/metrics"
	"github.com/sectools/secrules/internal/rulestore"
	"github.com/sectools/secrules/internal/server/handlers/api"
)

// RulesHandler terminates the HTTP surface of the rule store.
type RulesHandler struct {
	store   *rulestore.Store
	exports *rulestore.ExportCache
	audit   *audit.Logger
}

func New(store *rulestore.Store, exports *rulestore.ExportCache, auditLog *audit.Logger) *RulesHandler {
	return &RulesHandler{
		store:   store,
		exports: exports,
		audit:   auditLog,
	}
}

func (h *RulesHandler) Add(ctx *gin.Context) {
	var req AddRuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}

	err := h.store.Add(*req.UID, req.Rule)
	h.record("add", *req.UID, req.Rule, err)
	if err != nil {
		status, code := storeErrStatus(err)
		api.AbortWithError(ctx, status, code, err)
		return
	}

	ctx.PureJSON(http.StatusOK, &AddRuleResponse{
		UID:   *req.UID,
		Rule:  req.Rule,
		Count: h.store.Len(),
	})
}

func (h *RulesHandler) Remove(ctx *gin.Context) {
	var req RemoveRuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}

	found, err := h.store.Remove(*req.UID, req.Rule)
	h.record("remove", *req.UID, req.Rule, err)
	if err != nil {
		status, code := storeErrStatus(err)
		api.AbortWithError(ctx, status, code, err)
		return
	}

	ctx.PureJSON(http.StatusOK, &RemoveRuleResponse{
		UID:   *req.UID,
		Rule:  req.Rule,
		Found: found,
	})
}

func (h *RulesHandler) List(ctx *gin.Context) {
	uid, all, err := uidParam(ctx)
	if err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}

	entries := make([]RuleEntry, 0)
	if all {
		for u, rule := range h.store.All() {
			entries = append(entries, RuleEntry{UID: u, Rule: rule})
		}
	} else {
		for _, rule := range h.store.Rules(uid) {
			entries = append(entries, RuleEntry{UID: uid, Rule: rule})
		}
	}

	metrics.HTTPOps.WithLabelValues("list", "ok").Inc()
	ctx.PureJSON(http.StatusOK, &ListRulesResponse{
		Rules: entries,
		Count: len(entries),
	})
}

func (h *RulesHandler) Export(ctx *gin.Context) {
	uid, all, err := uidParam(ctx)
	if err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}
	if all {
		uid = rulestore.SentinelUID
	}

	data, truncated := h.exports.Export(uid, rulestore.DefaultExportCap)
	metrics.HTTPOps.WithLabelValues("export", "ok").Inc()
	metrics.ExportBytes.Observe(float64(len(data)))

	if truncated {
		ctx.Header("X-Export-Truncated", "1")
	}
	ctx.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}

// uidParam parses the optional `uid` query parameter. Absent means "all
// users", as does the sentinel value.
func uidParam(ctx *gin.Context) (uint32, bool, error) {
	raw := ctx.Query("uid")
	if raw == "" {
		return 0, true, nil
	}
	uid64, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false, fmt.Errorf("invalid uid %q: %w", raw, err)
	}
	uid := uint32(uid64)
	if uid == rulestore.SentinelUID {
		return 0, true, nil
	}
	return uid, false, nil
}

func (h *RulesHandler) record(op string, uid uint32, rule string, err error) {
	outcome := metrics.OutcomeOf(err)
	metrics.HTTPOps.WithLabelValues(op, outcome).Inc()
	metrics.StoredRules.Set(float64(h.store.Len()))
	if h.audit != nil {
		h.audit.Record(op, uid, rule, outcome)
	}
}

func storeErrStatus(err error) (int, string) {
	switch {
	case errors.Is(err, rulestore.ErrRuleTooLong):
		return http.StatusBadRequest, api.CodeRuleTooLong
	case errors.Is(err, rulestore.ErrInvalidRule):
		return http.StatusBadRequest, api.CodeRuleInvalid
	case errors.Is(err, rulestore.ErrCapacityExceeded):
		return http.StatusInsufficientStorage, api.CodeCapacityExceeded
	default:
		return http.StatusInternalServerError, api.CodeInternalError
	}
}
