package api

import (
	"net/http"
	"strconv"

	"github.com/duizhang/settlement/internal/domain"
	"github.com/duizhang/settlement/internal/repository"
)

// audit appends to the operation log. A failed write is logged and does not
// fail the request.
func (h *Handlers) audit(typ domain.OperationType, action, target, details string) {
	op := &domain.Operation{Type: typ, Action: action, Target: target, Details: details}
	if err := h.store.Operations.Record(op); err != nil {
		h.log.Warn("record operation failed", "type", typ, "action", action, "error", err)
	}
}

// ListOperations returns the audit trail, newest first. Query params: type
// (one operation type, "all" or empty for every type) and limit.
func (h *Handlers) ListOperations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.OperationFilter{}
	if typ := q.Get("type"); typ != "" && typ != "all" {
		f.Type = domain.OperationType(typ)
		if !f.Type.Valid() {
			writeError(w, http.StatusBadRequest, "unknown operation type: "+typ)
			return
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		f.Limit = n
	}

	ops, err := h.store.Operations.List(f)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"operations": ops})
}
