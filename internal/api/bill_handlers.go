package api

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/duizhang/settlement/internal/domain"
	"github.com/duizhang/settlement/internal/export"
	"github.com/duizhang/settlement/internal/reconciliation"
	"github.com/duizhang/settlement/internal/repository"
)

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// billConfig returns the startup defaults overlaid with the saved
// configuration.
func (h *Handlers) billConfig() (domain.BillConfig, error) {
	cfg := h.billDefaults
	saved, err := h.store.BillConfig.Get()
	if errors.Is(err, repository.ErrNotFound) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	return cfg.Merge(*saved), nil
}

var billContentTypes = map[string]string{
	export.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	export.FormatPDF:  "application/pdf",
}

// ExportBill renders the records of one period (or all) as a bill. Records
// with error findings block the export unless force=true.
func (h *Handlers) ExportBill(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = export.FormatXLSX
	}
	contentType, ok := billContentTypes[format]
	if !ok {
		writeError(w, http.StatusBadRequest, export.ErrUnsupportedFormat.Error()+": "+format)
		return
	}

	period := q.Get("period")
	records, err := h.store.Settlements.List(repository.RecordFilter{Period: period})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusNotFound, "no settlement records to export")
		return
	}

	findings := reconciliation.Validate(records)
	if reconciliation.HasErrors(findings) && q.Get("force") != "true" {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":    "records have validation errors",
			"findings": findings,
		})
		return
	}

	cfg, err := h.billConfig()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if period != "" && period != reconciliation.AllPeriods {
		cfg.Period = period
	}

	bill := export.NewBill(records, cfg)
	data, err := h.renderer.Render(bill, format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.audit(domain.OpExport, "导出结算单", bill.Filename(format), fmt.Sprintf("%d 条记录", len(records)))
	writeAttachment(w, contentType, bill.Filename(format), data)
}

func (h *Handlers) GetBillConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.billConfig()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *Handlers) SaveBillConfig(w http.ResponseWriter, r *http.Request) {
	var cfg domain.BillConfig
	if err := decodeJSON(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := h.store.BillConfig.Save(cfg); err != nil {
		writeStoreError(w, err)
		return
	}
	h.audit(domain.OpUpdate, "保存结算单配置", cfg.Title, "")
	h.GetBillConfig(w, r)
}

func (h *Handlers) ExportBackup(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.Settlements.ListAll()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	txns, err := h.store.Transactions.List(repository.TransactionFilter{})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	now := time.Now()
	var buf bytes.Buffer
	if err := export.WriteBackup(&buf, records, txns, now); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	name := "duizhang_backup_" + now.Format("2006-01-02") + ".json"
	h.audit(domain.OpBackup, "备份数据", name, fmt.Sprintf("结算记录 %d 条，交易 %d 条", len(records), len(txns)))
	writeAttachment(w, "application/json", name, buf.Bytes())
}

// RestoreBackup accepts a backup document as the request body. With
// replace=true the stored data is replaced; otherwise it is merged by id.
func (h *Handlers) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(http.MaxBytesReader(w, r.Body, maxUploadBytes)); err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	res, err := h.ingestion.Restore(buf.Bytes(), r.URL.Query().Get("replace") == "true")
	if err != nil {
		writeIngestError(w, err)
		return
	}
	mode := "合并"
	if res.Replaced {
		mode = "覆盖"
	}
	h.audit(domain.OpRestore, "恢复数据", mode,
		fmt.Sprintf("结算记录 %d 条，交易 %d 条", res.SettlementRecords, res.Transactions))
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) ListImports(w http.ResponseWriter, r *http.Request) {
	batches, err := h.store.Imports.List()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imports": batches})
}
