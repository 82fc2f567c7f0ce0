package repository

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

// InitDB migrates and opens the SQLite database at path. The file is created
// if missing.
func InitDB(path string) (*sql.DB, error) {
	if err := RunMigrations(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps the pragmas below in effect.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return db, nil
}

// Store bundles the repositories over one database handle.
type Store struct {
	DB           *sql.DB
	Settlements  *SettlementRepo
	Transactions *TransactionRepo
	Findings     *FindingRepo
	Imports      *ImportRepo
	BillConfig   *BillConfigRepo
	Operations   *OperationRepo
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		DB:           db,
		Settlements:  NewSettlementRepo(db),
		Transactions: NewTransactionRepo(db),
		Findings:     NewFindingRepo(db),
		Imports:      NewImportRepo(db),
		BillConfig:   NewBillConfigRepo(db),
		Operations:   NewOperationRepo(db),
	}
}

func (s *Store) Close() error {
	return s.DB.Close()
}
