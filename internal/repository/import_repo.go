package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/duizhang/settlement/internal/domain"
)

// ImportRepo tracks ingested files by content hash.
type ImportRepo struct {
	db *sql.DB
}

func NewImportRepo(db *sql.DB) *ImportRepo {
	return &ImportRepo{db: db}
}

// ExistsByHash reports whether a file with this sha256 was already ingested.
func (r *ImportRepo) ExistsByHash(hash string) (bool, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM import_batches WHERE file_hash = ?", hash,
	).Scan(&count)
	return count > 0, err
}

func (r *ImportRepo) Insert(b *domain.ImportBatch) error {
	_, err := r.db.Exec(
		`INSERT INTO import_batches (id, kind, format, file_hash, record_count, ingested_at)
		VALUES (?,?,?,?,?,?)`,
		b.ID, b.Kind, b.Format, b.FileHash, b.RecordCount, b.IngestedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert import batch: %w", err)
	}
	return nil
}

// Delete removes a batch row. Unknown ids are not an error.
func (r *ImportRepo) Delete(id string) error {
	if _, err := r.db.Exec("DELETE FROM import_batches WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete import batch: %w", err)
	}
	return nil
}

// List returns batches, most recent first.
func (r *ImportRepo) List() ([]domain.ImportBatch, error) {
	rows, err := r.db.Query(
		"SELECT id, kind, format, file_hash, record_count, ingested_at FROM import_batches ORDER BY ingested_at DESC, id",
	)
	if err != nil {
		return nil, fmt.Errorf("list import batches: %w", err)
	}
	defer rows.Close()

	batches := []domain.ImportBatch{}
	for rows.Next() {
		var b domain.ImportBatch
		var at string
		if err := rows.Scan(&b.ID, &b.Kind, &b.Format, &b.FileHash, &b.RecordCount, &at); err != nil {
			return nil, err
		}
		b.IngestedAt, _ = time.Parse(time.RFC3339, at)
		batches = append(batches, b)
	}
	return batches, rows.Err()
}
