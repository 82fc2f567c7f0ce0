package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/duizhang/settlement/internal/domain"
)

type TransactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

const transactionColumns = "id, date, type, category, amount, description, created_at"

func prepareTransaction(t *domain.Transaction) {
	finiteAmount(t)
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt == "" {
		t.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
}

func (r *TransactionRepo) Insert(t *domain.Transaction) error {
	prepareTransaction(t)
	_, err := r.db.Exec(
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?,?,?,?,?,?,?)`,
		t.ID, t.Date, string(t.Type), t.Category, t.Amount, t.Description, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// BulkInsert stores txns in one transaction, skipping ids that already
// exist, and returns the number of new rows.
func (r *TransactionRepo) BulkInsert(txns []domain.Transaction) (int, error) {
	inserted := 0
	sqlTx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	stmt, err := sqlTx.Prepare(
		`INSERT OR IGNORE INTO transactions (` + transactionColumns + `) VALUES (?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range txns {
		t := &txns[i]
		prepareTransaction(t)
		res, err := stmt.Exec(t.ID, t.Date, string(t.Type), t.Category, t.Amount, t.Description, t.CreatedAt)
		if err != nil {
			return inserted, fmt.Errorf("insert row %d: %w", i, err)
		}
		ra, _ := res.RowsAffected()
		inserted += int(ra)
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func finiteAmount(t *domain.Transaction) {
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		t.Amount = 0
	}
}

func (r *TransactionRepo) Update(t *domain.Transaction) error {
	finiteAmount(t)
	res, err := r.db.Exec(
		`UPDATE transactions SET date = ?, type = ?, category = ?, amount = ?, description = ? WHERE id = ?`,
		t.Date, string(t.Type), t.Category, t.Amount, t.Description, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TransactionRepo) GetByID(id string) (*domain.Transaction, error) {
	row := r.db.QueryRow("SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TransactionFilter narrows List. From and To are inclusive date strings.
type TransactionFilter struct {
	Type     string
	Category string
	From     string
	To       string
}

// List returns matching transactions, newest date first.
func (r *TransactionRepo) List(f TransactionFilter) ([]domain.Transaction, error) {
	var clauses []string
	var args []any

	if f.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, f.Type)
	}
	if f.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, f.Category)
	}
	if f.From != "" {
		clauses = append(clauses, "date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		clauses = append(clauses, "date <= ?")
		args = append(args, f.To)
	}

	q := "SELECT " + transactionColumns + " FROM transactions"
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += " ORDER BY date DESC, created_at DESC"

	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns := []domain.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (r *TransactionRepo) Delete(id string) error {
	res, err := r.db.Exec("DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TransactionRepo) DeleteAll() (int, error) {
	res, err := r.db.Exec("DELETE FROM transactions")
	if err != nil {
		return 0, fmt.Errorf("clear transactions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *TransactionRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count)
	return count, err
}

func scanTransaction(s rowScanner) (domain.Transaction, error) {
	var t domain.Transaction
	var typ string
	err := s.Scan(&t.ID, &t.Date, &typ, &t.Category, &t.Amount, &t.Description, &t.CreatedAt)
	t.Type = domain.TransactionType(typ)
	return t, err
}
