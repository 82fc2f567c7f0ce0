package ingestion

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/duizhang/settlement/internal/domain"
	"github.com/duizhang/settlement/internal/metrics"
	"github.com/duizhang/settlement/internal/reconciliation"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrNoRecords         = errors.New("no records found")
)

// Supported file formats.
const (
	FormatCSV   = "csv"
	FormatXLSX  = "xlsx"
	FormatJSON  = "json"
	FormatPaste = "paste"
)

const (
	KindSettlement  = "settlement"
	KindTransaction = "transaction"
	KindBackup      = "backup"
)

// IngestResult is returned from a successful ingestion.
type IngestResult struct {
	BatchID           string `json:"batchId,omitempty"`
	AlreadyIngested   bool   `json:"alreadyIngested"`
	RecordsParsed     int    `json:"recordsParsed"`
	RecordsIngested   int    `json:"recordsIngested"`
	DuplicatesSkipped int    `json:"duplicatesSkipped"`
	Errors            int    `json:"errors"`
	Warnings          int    `json:"warnings"`
}

// SettlementStore persists settlement records.
type SettlementStore interface {
	BulkInsert(records []domain.SettlementRecord, batchID string) (int, error)
	NextSerialNo() (int, error)
	DeleteAll() (int, error)
}

// TransactionStore persists ledger transactions.
type TransactionStore interface {
	BulkInsert(txns []domain.Transaction) (int, error)
	DeleteAll() (int, error)
}

// BatchStore tracks ingested files by content hash.
type BatchStore interface {
	ExistsByHash(hash string) (bool, error)
	Insert(b *domain.ImportBatch) error
	Delete(id string) error
}

// Service stores imported settlement records and transactions.
type Service struct {
	settlementRepo SettlementStore
	txnRepo        TransactionStore
	importRepo     BatchStore
	reconSvc       *reconciliation.Service
	log            *slog.Logger
}

// NewService creates a new ingestion service.
func NewService(
	settlementRepo SettlementStore,
	txnRepo TransactionStore,
	importRepo BatchStore,
	reconSvc *reconciliation.Service,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		settlementRepo: settlementRepo,
		txnRepo:        txnRepo,
		importRepo:     importRepo,
		reconSvc:       reconSvc,
		log:            logger.With("component", "ingestion"),
	}
}

// DetectFormat guesses a file format from its name, falling back to
// sniffing the content.
func DetectFormat(filename string, data []byte) string {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".xlsx"):
		return FormatXLSX
	case strings.HasSuffix(name, ".csv"):
		return FormatCSV
	case strings.HasSuffix(name, ".json"):
		return FormatJSON
	}
	if len(data) >= 2 && data[0] == 'P' && data[1] == 'K' {
		return FormatXLSX
	}
	trimmed := strings.TrimSpace(string(data[:min(len(data), 64)]))
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return FormatJSON
	}
	return FormatCSV
}

// ParseSettlements decodes settlement records from data without storing
// them. Derived amounts are reconciled.
func ParseSettlements(data []byte, format string) ([]domain.SettlementRecord, error) {
	var (
		records []domain.SettlementRecord
		err     error
	)
	switch format {
	case FormatCSV:
		var rows [][]string
		if rows, err = ReadCSV(data); err == nil {
			records, err = SettlementsFromRows(rows)
		}
	case FormatXLSX:
		var rows [][]string
		if rows, err = ReadXLSX(data); err == nil {
			records, err = SettlementsFromRows(rows)
		}
	case FormatJSON:
		records, err = ParseSettlementsJSON(data)
	case FormatPaste:
		records, err = ParsePastedRows(string(data), "")
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return reconciliation.ReconcileAll(records), nil
}

// ParseTransactions decodes transactions from data without storing them.
func ParseTransactions(data []byte, format string) ([]domain.Transaction, error) {
	switch format {
	case FormatCSV:
		rows, err := ReadCSV(data)
		if err != nil {
			return nil, err
		}
		return TransactionsFromRows(rows)
	case FormatXLSX:
		rows, err := ReadXLSX(data)
		if err != nil {
			return nil, err
		}
		return TransactionsFromRows(rows)
	case FormatJSON:
		return ParseTransactionsJSON(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// IngestSettlements parses a settlement file, stores its records and runs
// validation over the stored set. A file whose content was ingested before
// is acknowledged without storing anything.
func (s *Service) IngestSettlements(data []byte, format string) (*IngestResult, error) {
	hash := fmt.Sprintf("%x", sha256.Sum256(data))
	exists, err := s.importRepo.ExistsByHash(hash)
	if err != nil {
		return nil, fmt.Errorf("check hash: %w", err)
	}
	if exists {
		metrics.ObserveImport(KindSettlement, format, metrics.ResultSkipped, 0)
		s.log.Info("file already ingested", "format", format, "hash", hash[:12])
		return &IngestResult{AlreadyIngested: true}, nil
	}

	records, err := ParseSettlements(data, format)
	if err != nil {
		metrics.ObserveImport(KindSettlement, format, metrics.ResultError, 0)
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}

	return s.storeSettlements(records, format, hash)
}

// IngestPasted stores rows pasted as text. Pasted rows are never treated
// as duplicates of an earlier paste.
func (s *Service) IngestPasted(text, defaultPeriod string) (*IngestResult, error) {
	records, err := ParsePastedRows(text, defaultPeriod)
	if err != nil {
		metrics.ObserveImport(KindSettlement, FormatPaste, metrics.ResultError, 0)
		return nil, fmt.Errorf("parse paste: %w", err)
	}

	next, err := s.settlementRepo.NextSerialNo()
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].SerialNo = next + i
	}
	return s.storeSettlements(reconciliation.ReconcileAll(records), FormatPaste, "")
}

func (s *Service) storeSettlements(records []domain.SettlementRecord, format, hash string) (*IngestResult, error) {
	batch := &domain.ImportBatch{
		ID:          uuid.NewString(),
		Kind:        KindSettlement,
		Format:      format,
		FileHash:    hash,
		RecordCount: len(records),
		IngestedAt:  time.Now(),
	}
	if batch.FileHash == "" {
		batch.FileHash = "paste-" + batch.ID
	}
	if err := s.importRepo.Insert(batch); err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}

	metrics.AddReconciled(len(records))
	inserted, err := s.settlementRepo.BulkInsert(records, batch.ID)
	if err != nil {
		metrics.ObserveImport(KindSettlement, format, metrics.ResultError, 0)
		s.dropBatch(batch)
		return nil, fmt.Errorf("insert records: %w", err)
	}
	metrics.ObserveImport(KindSettlement, format, metrics.ResultSuccess, inserted)

	s.log.Info("ingested settlement records",
		"batch", batch.ID, "format", format, "parsed", len(records), "new", inserted)

	result := &IngestResult{
		BatchID:           batch.ID,
		RecordsParsed:     len(records),
		RecordsIngested:   inserted,
		DuplicatesSkipped: len(records) - inserted,
	}

	run, err := s.reconSvc.RunValidation()
	if err != nil {
		// Stored records stay; findings can be refreshed on demand.
		s.log.Warn("validation failed after ingestion", "error", err)
		return result, nil
	}
	result.Errors, result.Warnings = run.Errors, run.Warnings
	return result, nil
}

// dropBatch removes the batch row of a failed insert so the same file can
// be ingested again.
func (s *Service) dropBatch(b *domain.ImportBatch) {
	if err := s.importRepo.Delete(b.ID); err != nil {
		s.log.Error("failed to remove import batch", "batch", b.ID, "error", err)
	}
}

// IngestTransactions parses and stores a transactions file.
func (s *Service) IngestTransactions(data []byte, format string) (*IngestResult, error) {
	hash := fmt.Sprintf("%x", sha256.Sum256(data))
	exists, err := s.importRepo.ExistsByHash(hash)
	if err != nil {
		return nil, fmt.Errorf("check hash: %w", err)
	}
	if exists {
		metrics.ObserveImport(KindTransaction, format, metrics.ResultSkipped, 0)
		return &IngestResult{AlreadyIngested: true}, nil
	}

	txns, err := ParseTransactions(data, format)
	if err != nil {
		metrics.ObserveImport(KindTransaction, format, metrics.ResultError, 0)
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}

	batch := &domain.ImportBatch{
		ID:          uuid.NewString(),
		Kind:        KindTransaction,
		Format:      format,
		FileHash:    hash,
		RecordCount: len(txns),
		IngestedAt:  time.Now(),
	}
	if err := s.importRepo.Insert(batch); err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}
	inserted, err := s.txnRepo.BulkInsert(txns)
	if err != nil {
		metrics.ObserveImport(KindTransaction, format, metrics.ResultError, 0)
		s.dropBatch(batch)
		return nil, fmt.Errorf("insert transactions: %w", err)
	}
	metrics.ObserveImport(KindTransaction, format, metrics.ResultSuccess, inserted)

	s.log.Info("ingested transactions", "batch", batch.ID, "format", format, "parsed", len(txns), "new", inserted)
	return &IngestResult{
		BatchID:           batch.ID,
		RecordsParsed:     len(txns),
		RecordsIngested:   inserted,
		DuplicatesSkipped: len(txns) - inserted,
	}, nil
}

// RestoreResult reports what a backup restore stored.
type RestoreResult struct {
	SettlementRecords int  `json:"settlementRecords"`
	Transactions      int  `json:"transactions"`
	Replaced          bool `json:"replaced"`
}

// Restore loads a backup document. With replace set, existing records and
// transactions are removed first; otherwise entries whose id already exists
// are kept as stored.
func (s *Service) Restore(data []byte, replace bool) (*RestoreResult, error) {
	b, err := ParseBackup(data)
	if err != nil {
		metrics.ObserveImport(KindBackup, FormatJSON, metrics.ResultError, 0)
		return nil, fmt.Errorf("parse backup: %w", err)
	}

	if replace {
		if _, err := s.settlementRepo.DeleteAll(); err != nil {
			return nil, err
		}
		if _, err := s.txnRepo.DeleteAll(); err != nil {
			return nil, err
		}
	}

	res := &RestoreResult{Replaced: replace}
	if len(b.SettlementRecords) > 0 {
		if res.SettlementRecords, err = s.settlementRepo.BulkInsert(reconciliation.ReconcileAll(b.SettlementRecords), ""); err != nil {
			return nil, fmt.Errorf("restore records: %w", err)
		}
	}
	if len(b.Transactions) > 0 {
		if res.Transactions, err = s.txnRepo.BulkInsert(b.Transactions); err != nil {
			return nil, fmt.Errorf("restore transactions: %w", err)
		}
	}
	metrics.ObserveImport(KindBackup, FormatJSON, metrics.ResultSuccess, res.SettlementRecords+res.Transactions)

	s.log.Info("backup restored", "version", b.Version, "records", res.SettlementRecords,
		"transactions", res.Transactions, "replace", replace)

	if _, err := s.reconSvc.RunValidation(); err != nil {
		s.log.Warn("validation failed after restore", "error", err)
	}
	return res, nil
}
