package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/duizhang/settlement/internal/domain"
	"github.com/duizhang/settlement/internal/reconciliation"
)

// SettlementRepo stores the raw inputs of settlement records. Derived
// amounts are recomputed on every read.
type SettlementRepo struct {
	db *sql.DB
}

func NewSettlementRepo(db *sql.DB) *SettlementRepo {
	return &SettlementRepo{db: db}
}

const settlementColumns = `id, serial_no, billing_period, game_name, flow, recharge_amount,
	test_fee_amount, voucher_amount, refund, channel_fee, tax_fee, settlement_ratio, created_at`

// withDefaults fills a missing id and creation timestamp and zeroes
// non-finite amounts, which SQLite would store as NULL.
func withDefaults(rec *domain.SettlementRecord) {
	*rec = reconciliation.Sanitize(*rec)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
}

func settlementArgs(rec *domain.SettlementRecord) []any {
	return []any{
		rec.ID, rec.SerialNo, rec.BillingPeriod, rec.GameName, rec.Flow, rec.RechargeAmount,
		rec.TestFeeAmount, rec.VoucherAmount, rec.Refund, rec.ChannelFee, rec.TaxFee,
		rec.SettlementRatio, rec.CreatedAt,
	}
}

// Insert stores rec, assigning an id and serial number when missing, and
// updates rec with its derived amounts.
func (r *SettlementRepo) Insert(rec *domain.SettlementRecord) error {
	withDefaults(rec)
	if rec.SerialNo == 0 {
		next, err := r.NextSerialNo()
		if err != nil {
			return err
		}
		rec.SerialNo = next
	}
	_, err := r.db.Exec(
		`INSERT INTO settlement_records (`+settlementColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		settlementArgs(rec)...,
	)
	if err != nil {
		return fmt.Errorf("insert settlement record: %w", err)
	}
	*rec = reconciliation.Reconcile(*rec)
	return nil
}

// BulkInsert stores records in one transaction, tagging them with batchID.
// Records whose id already exists are skipped; the count of new rows is
// returned.
func (r *SettlementRepo) BulkInsert(records []domain.SettlementRecord, batchID string) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO settlement_records (` + settlementColumns + `, batch_id)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	var batch any
	if batchID != "" {
		batch = batchID
	}

	inserted := 0
	for i := range records {
		rec := &records[i]
		withDefaults(rec)
		res, err := stmt.Exec(append(settlementArgs(rec), batch)...)
		if err != nil {
			return inserted, fmt.Errorf("insert record %d: %w", i, err)
		}
		ra, _ := res.RowsAffected()
		inserted += int(ra)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// Update overwrites the inputs of an existing record.
func (r *SettlementRepo) Update(rec *domain.SettlementRecord) error {
	*rec = reconciliation.Sanitize(*rec)
	res, err := r.db.Exec(
		`UPDATE settlement_records SET
			serial_no = ?, billing_period = ?, game_name = ?, flow = ?, recharge_amount = ?,
			test_fee_amount = ?, voucher_amount = ?, refund = ?, channel_fee = ?, tax_fee = ?,
			settlement_ratio = ?
		WHERE id = ?`,
		rec.SerialNo, rec.BillingPeriod, rec.GameName, rec.Flow, rec.RechargeAmount,
		rec.TestFeeAmount, rec.VoucherAmount, rec.Refund, rec.ChannelFee, rec.TaxFee,
		rec.SettlementRatio, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update settlement record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	*rec = reconciliation.Reconcile(*rec)
	return nil
}

// UpdateMany writes every record in one transaction. Unknown ids are
// ignored.
func (r *SettlementRepo) UpdateMany(records []domain.SettlementRecord) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`UPDATE settlement_records SET channel_fee = ?, tax_fee = ?, settlement_ratio = ? WHERE id = ?`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	updated := 0
	for _, rec := range records {
		rec = reconciliation.Sanitize(rec)
		res, err := stmt.Exec(rec.ChannelFee, rec.TaxFee, rec.SettlementRatio, rec.ID)
		if err != nil {
			return updated, fmt.Errorf("update %s: %w", rec.ID, err)
		}
		ra, _ := res.RowsAffected()
		updated += int(ra)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

func (r *SettlementRepo) GetByID(id string) (*domain.SettlementRecord, error) {
	row := r.db.QueryRow("SELECT "+settlementColumns+" FROM settlement_records WHERE id = ?", id)
	rec, err := scanSettlement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// RecordFilter narrows List. Empty fields match everything.
type RecordFilter struct {
	Period  string
	Search  string
	BatchID string
}

// List returns matching records ordered by serial number.
func (r *SettlementRepo) List(f RecordFilter) ([]domain.SettlementRecord, error) {
	var clauses []string
	var args []any

	if f.Period != "" && f.Period != reconciliation.AllPeriods {
		clauses = append(clauses, "billing_period = ?")
		args = append(args, f.Period)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		clauses = append(clauses, "instr(lower(game_name), lower(?)) > 0")
		args = append(args, s)
	}
	if f.BatchID != "" {
		clauses = append(clauses, "batch_id = ?")
		args = append(args, f.BatchID)
	}

	q := "SELECT " + settlementColumns + " FROM settlement_records"
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += " ORDER BY serial_no, created_at, id"

	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list settlement records: %w", err)
	}
	defer rows.Close()

	records := []domain.SettlementRecord{}
	for rows.Next() {
		rec, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *SettlementRepo) ListAll() ([]domain.SettlementRecord, error) {
	return r.List(RecordFilter{})
}

func (r *SettlementRepo) Delete(id string) error {
	res, err := r.db.Exec("DELETE FROM settlement_records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete settlement record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every record and returns how many were removed.
func (r *SettlementRepo) DeleteAll() (int, error) {
	res, err := r.db.Exec("DELETE FROM settlement_records")
	if err != nil {
		return 0, fmt.Errorf("clear settlement records: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// NextSerialNo returns one past the highest stored serial number.
func (r *SettlementRepo) NextSerialNo() (int, error) {
	var max sql.NullInt64
	if err := r.db.QueryRow("SELECT MAX(serial_no) FROM settlement_records").Scan(&max); err != nil {
		return 0, fmt.Errorf("max serial: %w", err)
	}
	return int(max.Int64) + 1, nil
}

func (r *SettlementRepo) Count() (int, error) {
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM settlement_records").Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettlement(s rowScanner) (domain.SettlementRecord, error) {
	var rec domain.SettlementRecord
	err := s.Scan(
		&rec.ID, &rec.SerialNo, &rec.BillingPeriod, &rec.GameName, &rec.Flow, &rec.RechargeAmount,
		&rec.TestFeeAmount, &rec.VoucherAmount, &rec.Refund, &rec.ChannelFee, &rec.TaxFee,
		&rec.SettlementRatio, &rec.CreatedAt,
	)
	if err != nil {
		return rec, err
	}
	return reconciliation.Reconcile(rec), nil
}
