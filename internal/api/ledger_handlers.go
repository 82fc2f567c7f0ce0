package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/duizhang/settlement/internal/domain"
	"github.com/duizhang/settlement/internal/export"
	"github.com/duizhang/settlement/internal/ledger"
	"github.com/duizhang/settlement/internal/repository"
)

// listTransactions loads transactions narrowed by the type, category, from
// and to query parameters.
func (h *Handlers) listTransactions(r *http.Request) ([]domain.Transaction, error) {
	q := r.URL.Query()
	typ := q.Get("type")
	if typ == "all" {
		typ = ""
	}
	return h.store.Transactions.List(repository.TransactionFilter{
		Type:     typ,
		Category: q.Get("category"),
		From:     q.Get("from"),
		To:       q.Get("to"),
	})
}

func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.listTransactions(r)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	q := r.URL.Query()
	if s := q.Get("search"); s != "" {
		txns = ledger.Search(txns, ledger.TxnQuery{Search: s})
	}
	if by := q.Get("sort"); by != "" {
		txns = ledger.SortTransactions(txns, ledger.SortField(by), q.Get("order"))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"total":        len(txns),
	})
}

func validTransaction(t *domain.Transaction) string {
	if !t.Type.Valid() {
		return "type must be income or expense"
	}
	if t.Amount <= 0 {
		return "amount must be positive"
	}
	if strings.TrimSpace(t.Category) == "" {
		return "category is required"
	}
	if t.Date == "" {
		t.Date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", t.Date); err != nil {
		return "date must be YYYY-MM-DD"
	}
	return ""
}

func (h *Handlers) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var t domain.Transaction
	if err := decodeJSON(r, &t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if msg := validTransaction(&t); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	t.ID, t.CreatedAt = "", ""

	if err := h.store.Transactions.Insert(&t); err != nil {
		writeStoreError(w, err)
		return
	}
	h.audit(domain.OpCreate, "新增交易", t.Category, t.Date)
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.Transactions.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	existing, err := h.store.Transactions.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	t := *existing
	if err := decodeJSON(r, &t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	t.ID, t.CreatedAt = existing.ID, existing.CreatedAt
	if msg := validTransaction(&t); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.store.Transactions.Update(&t); err != nil {
		writeStoreError(w, err)
		return
	}
	h.audit(domain.OpUpdate, "编辑交易", t.Category, t.Date)
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Transactions.Delete(id); err != nil {
		writeStoreError(w, err)
		return
	}
	h.audit(domain.OpDelete, "删除交易", id, "")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ImportTransactions(w http.ResponseWriter, r *http.Request) {
	data, format, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.ingestion.IngestTransactions(data, format)
	if err != nil {
		writeIngestError(w, err)
		return
	}
	if !result.AlreadyIngested {
		h.audit(domain.OpImport, "导入交易", format, fmt.Sprintf("新增 %d 条", result.RecordsIngested))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) GetTransactionSummary(w http.ResponseWriter, r *http.Request) {
	txns, err := h.listTransactions(r)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ledger.CalculateSummary(txns))
}

func (h *Handlers) GetCategorySummary(w http.ResponseWriter, r *http.Request) {
	txns, err := h.listTransactions(r)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": ledger.CalculateCategorySummary(txns)})
}

func (h *Handlers) GetMonthlySummary(w http.ResponseWriter, r *http.Request) {
	txns, err := h.listTransactions(r)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": ledger.CalculateMonthlySummary(txns)})
}

func (h *Handlers) GetYearlySummary(w http.ResponseWriter, r *http.Request) {
	txns, err := h.listTransactions(r)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"years": ledger.CalculateYearlySummary(txns)})
}

func (h *Handlers) GetTransactionStats(w http.ResponseWriter, r *http.Request) {
	txns, err := h.listTransactions(r)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ledger.CalculateStats(txns))
}

func (h *Handlers) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.listTransactions(r)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteTransactionsCSV(&buf, txns); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	name := export.TransactionsFilename(time.Now().Format("2006-01-02"))
	h.audit(domain.OpExport, "导出交易", name, fmt.Sprintf("%d 条", len(txns)))
	writeAttachment(w, "text/csv; charset=utf-8", name, buf.Bytes())
}
