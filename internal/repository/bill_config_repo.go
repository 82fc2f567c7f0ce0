package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/duizhang/settlement/internal/domain"
)

// BillConfigRepo persists the single bill header configuration.
type BillConfigRepo struct {
	db *sql.DB
}

func NewBillConfigRepo(db *sql.DB) *BillConfigRepo {
	return &BillConfigRepo{db: db}
}

// Get returns the stored configuration, or ErrNotFound if none was saved.
func (r *BillConfigRepo) Get() (*domain.BillConfig, error) {
	var data string
	err := r.db.QueryRow("SELECT data FROM bill_config WHERE id = 1").Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bill config: %w", err)
	}

	var cfg domain.BillConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, fmt.Errorf("decode bill config: %w", err)
	}
	return &cfg, nil
}

func (r *BillConfigRepo) Save(cfg domain.BillConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode bill config: %w", err)
	}
	_, err = r.db.Exec(
		`INSERT INTO bill_config (id, data, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(data), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save bill config: %w", err)
	}
	return nil
}
