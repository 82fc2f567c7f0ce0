package domain

import "time"

type OperationType string

const (
	OpCreate  OperationType = "create"
	OpUpdate  OperationType = "update"
	OpDelete  OperationType = "delete"
	OpImport  OperationType = "import"
	OpExport  OperationType = "export"
	OpBackup  OperationType = "backup"
	OpRestore OperationType = "restore"
)

// Valid reports whether t is one of the known operation types.
func (t OperationType) Valid() bool {
	switch t {
	case OpCreate, OpUpdate, OpDelete, OpImport, OpExport, OpBackup, OpRestore:
		return true
	}
	return false
}

// Operation is one entry of the audit trail of changes and exports.
type Operation struct {
	ID      string        `json:"id"`
	Type    OperationType `json:"type"`
	Action  string        `json:"action"`
	Target  string        `json:"target"`
	Details string        `json:"details,omitempty"`
	At      time.Time     `json:"timestamp"`
}
