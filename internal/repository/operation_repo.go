package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/duizhang/settlement/internal/domain"
)

// MaxOperations is how many audit entries are kept; older ones are pruned
// as new ones arrive.
const MaxOperations = 1000

// OperationRepo stores the audit trail.
type OperationRepo struct {
	db *sql.DB
}

func NewOperationRepo(db *sql.DB) *OperationRepo {
	return &OperationRepo{db: db}
}

// OperationFilter narrows List. Limit defaults to 50.
type OperationFilter struct {
	Type  domain.OperationType
	Limit int
}

// Record appends op, filling its id and time when missing.
func (r *OperationRepo) Record(op *domain.Operation) error {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.At.IsZero() {
		op.At = time.Now()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO operations (id, type, action, target, details, at) VALUES (?,?,?,?,?,?)`,
		op.ID, string(op.Type), op.Action, op.Target, op.Details, op.At.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert operation: %w", err)
	}
	if _, err := tx.Exec(
		`DELETE FROM operations WHERE rowid NOT IN
			(SELECT rowid FROM operations ORDER BY rowid DESC LIMIT ?)`, MaxOperations,
	); err != nil {
		return fmt.Errorf("prune operations: %w", err)
	}
	return tx.Commit()
}

// List returns operations, most recent first.
func (r *OperationRepo) List(f OperationFilter) ([]domain.Operation, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := "SELECT id, type, action, target, details, at FROM operations"
	var args []any
	if f.Type != "" {
		query += " WHERE type = ?"
		args = append(args, string(f.Type))
	}
	query += " ORDER BY rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	ops := []domain.Operation{}
	for rows.Next() {
		var op domain.Operation
		var typ, at string
		if err := rows.Scan(&op.ID, &typ, &op.Action, &op.Target, &op.Details, &at); err != nil {
			return nil, err
		}
		op.Type = domain.OperationType(typ)
		op.At, _ = time.Parse(time.RFC3339Nano, at)
		ops = append(ops, op)
	}
	return ops, rows.Err()
}
