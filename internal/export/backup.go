package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/duizhang/settlement/internal/domain"
)

// BackupVersion is written into every backup document.
const BackupVersion = "1.2.0"

// WriteBackup writes settlement records and transactions as an indented
// JSON backup document.
func WriteBackup(w io.Writer, records []domain.SettlementRecord, txns []domain.Transaction, now time.Time) error {
	if records == nil {
		records = []domain.SettlementRecord{}
	}
	if txns == nil {
		txns = []domain.Transaction{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Version           string                    `json:"version"`
		ExportedAt        string                    `json:"exportedAt"`
		SettlementRecords []domain.SettlementRecord `json:"settlementRecords"`
		Transactions      []domain.Transaction      `json:"transactions"`
	}{BackupVersion, now.UTC().Format(time.RFC3339), records, txns})
}
