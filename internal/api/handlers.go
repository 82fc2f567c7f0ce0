package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/duizhang/settlement/internal/domain"
	"github.com/duizhang/settlement/internal/export"
	"github.com/duizhang/settlement/internal/ingestion"
	"github.com/duizhang/settlement/internal/reconciliation"
	"github.com/duizhang/settlement/internal/repository"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	store        *repository.Store
	recon        *reconciliation.Service
	ingestion    *ingestion.Service
	renderer     *export.Renderer
	billDefaults domain.BillConfig
	log          *slog.Logger
}

const maxUploadBytes = 32 << 20

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps repository errors to a status code.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// writeIngestError maps ingestion errors to a status code.
func writeIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ingestion.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes))
	return dec.Decode(v)
}

// readUpload returns the "file" part of a multipart request with its
// format, taken from the "format" field or detected from the file.
func readUpload(r *http.Request) ([]byte, string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "", errors.New("invalid multipart form: " + err.Error())
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errors.New("file field is required: " + err.Error())
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	format := strings.ToLower(r.FormValue("format"))
	if format == "" {
		format = ingestion.DetectFormat(header.Filename, data)
	}
	return data, format, nil
}

// revalidate refreshes stored findings after an edit. Failures are logged;
// the edit itself has already been stored.
func (h *Handlers) revalidate() {
	if _, err := h.recon.RunValidation(); err != nil {
		h.log.Warn("validation after edit failed", "error", err)
	}
}

// --- settlement records ---

func (h *Handlers) ListSettlements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	records, err := h.store.Settlements.List(repository.RecordFilter{
		Period:  q.Get("period"),
		Search:  q.Get("search"),
		BatchID: q.Get("batch"),
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if sortBy := q.Get("sort"); sortBy != "" {
		records = reconciliation.SortRecords(records,
			reconciliation.SortField(sortBy), reconciliation.SortOrder(q.Get("order")))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"total":   len(records),
	})
}

// validRecord reports a message for records that cannot be stored.
func validRecord(rec domain.SettlementRecord) string {
	if strings.TrimSpace(rec.GameName) == "" {
		return "gameName is required"
	}
	return ""
}

func (h *Handlers) CreateSettlement(w http.ResponseWriter, r *http.Request) {
	rec := domain.SettlementRecord{SettlementRatio: domain.DefaultSettlementRatio}
	if err := decodeJSON(r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if msg := validRecord(rec); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	rec.ID, rec.CreatedAt = "", ""

	if err := h.store.Settlements.Insert(&rec); err != nil {
		writeStoreError(w, err)
		return
	}
	h.revalidate()
	h.audit(domain.OpCreate, "新增结算记录", rec.GameName, rec.BillingPeriod)
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handlers) GetSettlement(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Settlements.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) UpdateSettlement(w http.ResponseWriter, r *http.Request) {
	existing, err := h.store.Settlements.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	// Fields absent from the body keep their stored values.
	rec := *existing
	if err := decodeJSON(r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	rec.ID, rec.CreatedAt = existing.ID, existing.CreatedAt
	if msg := validRecord(rec); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.store.Settlements.Update(&rec); err != nil {
		writeStoreError(w, err)
		return
	}
	h.revalidate()
	h.audit(domain.OpUpdate, "编辑结算记录", rec.GameName, rec.BillingPeriod)
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) DeleteSettlement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Settlements.Delete(id); err != nil {
		writeStoreError(w, err)
		return
	}
	h.revalidate()
	h.audit(domain.OpDelete, "删除结算记录", id, "")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ClearSettlements(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Settlements.DeleteAll()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if err := h.store.Findings.ClearAll(); err != nil {
		writeStoreError(w, err)
		return
	}
	h.log.Info("settlement records cleared", "deleted", n)
	h.audit(domain.OpDelete, "清空结算记录", "全部结算记录", fmt.Sprintf("删除 %d 条", n))
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

type batchUpdateRequest struct {
	IDs []string `json:"ids"`
	reconciliation.RecordPatch
}

func (h *Handlers) BatchUpdateSettlements(w http.ResponseWriter, r *http.Request) {
	var req batchUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if len(req.IDs) == 0 || req.RecordPatch.Empty() {
		writeError(w, http.StatusBadRequest, "ids and at least one of settlementRatio, channelFee, taxFee are required")
		return
	}

	records, err := h.store.Settlements.ListAll()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	changed := reconciliation.BatchUpdate(records, req.IDs, req.RecordPatch)
	n, err := h.store.Settlements.UpdateMany(changed)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	h.revalidate()
	h.audit(domain.OpUpdate, "批量编辑结算记录", fmt.Sprintf("%d 条记录", n), "")

	if changed == nil {
		changed = []domain.SettlementRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"updated": n,
		"records": changed,
	})
}

func (h *Handlers) ImportSettlements(w http.ResponseWriter, r *http.Request) {
	data, format, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.ingestion.IngestSettlements(data, format)
	if err != nil {
		writeIngestError(w, err)
		return
	}
	if !result.AlreadyIngested {
		h.audit(domain.OpImport, "导入结算记录", format, fmt.Sprintf("新增 %d 条", result.RecordsIngested))
	}
	writeJSON(w, http.StatusOK, result)
}

type pasteRequest struct {
	Text   string `json:"text"`
	Period string `json:"period"`
}

func (h *Handlers) PasteSettlements(w http.ResponseWriter, r *http.Request) {
	var req pasteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	result, err := h.ingestion.IngestPasted(req.Text, req.Period)
	if err != nil {
		writeIngestError(w, err)
		return
	}
	h.audit(domain.OpImport, "粘贴导入结算记录", ingestion.FormatPaste, fmt.Sprintf("新增 %d 条", result.RecordsIngested))
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) GetSettlementSummary(w http.ResponseWriter, r *http.Request) {
	stats, err := h.recon.Summary(r.URL.Query().Get("period"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats.Summary)
}

func (h *Handlers) GetSettlementStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.recon.Summary(r.URL.Query().Get("period"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) ListPeriods(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.Settlements.ListAll()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	periods := reconciliation.Periods(records)
	if periods == nil {
		periods = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"periods": periods})
}

func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.Settlements.ListAll()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": reconciliation.PeriodHistory(records)})
}

func (h *Handlers) ComparePeriods(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p1, p2 := q.Get("period1"), q.Get("period2")
	if p1 == "" || p2 == "" {
		writeError(w, http.StatusBadRequest, "period1 and period2 are required")
		return
	}
	c, err := h.recon.Compare(p1, p2)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handlers) RunValidation(w http.ResponseWriter, r *http.Request) {
	run, err := h.recon.RunValidation()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handlers) ListFindings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	findings, err := h.store.Findings.List(repository.FindingFilter{
		Severity: q.Get("severity"),
		Rule:     q.Get("rule"),
		RecordID: q.Get("recordId"),
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	summary, err := h.store.Findings.Summary()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"findings": findings,
		"summary":  summary,
	})
}
