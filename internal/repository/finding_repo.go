package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/duizhang/settlement/internal/domain"
)

// FindingRepo holds the findings of the latest validation run.
type FindingRepo struct {
	db *sql.DB
}

func NewFindingRepo(db *sql.DB) *FindingRepo {
	return &FindingRepo{db: db}
}

// Replace clears the previous run and stores findings atomically.
func (r *FindingRepo) Replace(findings []domain.Finding, ranAt time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM findings"); err != nil {
		return fmt.Errorf("clear findings: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO findings
		(severity, rule, record_id, record_name, related_ids, message, detected_at)
		VALUES (?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	detectedAt := ranAt.UTC().Format(time.RFC3339)
	for i, f := range findings {
		related, err := json.Marshal(f.RelatedIDs)
		if err != nil {
			return fmt.Errorf("encode related ids: %w", err)
		}
		if _, err := stmt.Exec(
			string(f.Severity), string(f.Rule), f.RecordID, f.RecordName,
			string(related), f.Message, detectedAt,
		); err != nil {
			return fmt.Errorf("insert finding %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type FindingFilter struct {
	Severity string
	Rule     string
	RecordID string
}

// List returns stored findings in the order the validator produced them.
func (r *FindingRepo) List(f FindingFilter) ([]domain.Finding, error) {
	var clauses []string
	var args []any

	if f.Severity != "" {
		clauses = append(clauses, "severity = ?")
		args = append(args, f.Severity)
	}
	if f.Rule != "" {
		clauses = append(clauses, "rule = ?")
		args = append(args, f.Rule)
	}
	if f.RecordID != "" {
		clauses = append(clauses, "record_id = ?")
		args = append(args, f.RecordID)
	}

	q := "SELECT severity, rule, record_id, record_name, related_ids, message FROM findings"
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += " ORDER BY id"

	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list findings: %w", err)
	}
	defer rows.Close()

	findings := []domain.Finding{}
	for rows.Next() {
		var fd domain.Finding
		var sev, rule, related string
		if err := rows.Scan(&sev, &rule, &fd.RecordID, &fd.RecordName, &related, &fd.Message); err != nil {
			return nil, err
		}
		fd.Severity = domain.Severity(sev)
		fd.Rule = domain.FindingRule(rule)
		if err := json.Unmarshal([]byte(related), &fd.RelatedIDs); err != nil {
			return nil, fmt.Errorf("decode related ids: %w", err)
		}
		findings = append(findings, fd)
	}
	return findings, rows.Err()
}

type FindingSummary struct {
	TotalCount int            `json:"totalCount"`
	BySeverity map[string]int `json:"bySeverity"`
	ByRule     map[string]int `json:"byRule"`
	LastRunAt  *time.Time     `json:"lastRunAt,omitempty"`
}

func (r *FindingRepo) Summary() (*FindingSummary, error) {
	s := &FindingSummary{
		BySeverity: make(map[string]int),
		ByRule:     make(map[string]int),
	}

	var last sql.NullString
	if err := r.db.QueryRow(
		"SELECT COUNT(*), MAX(detected_at) FROM findings",
	).Scan(&s.TotalCount, &last); err != nil {
		return nil, err
	}
	if last.Valid {
		if t, err := time.Parse(time.RFC3339, last.String); err == nil {
			s.LastRunAt = &t
		}
	}

	if err := r.groupCount("severity", s.BySeverity); err != nil {
		return nil, err
	}
	if err := r.groupCount("rule", s.ByRule); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *FindingRepo) groupCount(col string, m map[string]int) error {
	rows, err := r.db.Query("SELECT " + col + ", COUNT(*) FROM findings GROUP BY " + col)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var v int
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		m[k] = v
	}
	return rows.Err()
}

// ClearAll removes every stored finding.
func (r *FindingRepo) ClearAll() error {
	_, err := r.db.Exec("DELETE FROM findings")
	return err
}
