package reconciliation

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/duizhang/settlement/internal/domain"
	"github.com/duizhang/settlement/internal/metrics"
)

// RecordSource loads the stored settlement records, derived fields set.
type RecordSource interface {
	ListAll() ([]domain.SettlementRecord, error)
}

// FindingStore keeps the findings of the latest validation run.
type FindingStore interface {
	Replace(findings []domain.Finding, ranAt time.Time) error
}

// Service runs the validator over stored records and persists the result.
type Service struct {
	records  RecordSource
	findings FindingStore
	log      *slog.Logger
	now      func() time.Time
}

// NewService creates a new reconciliation service. A nil logger uses
// slog.Default.
func NewService(records RecordSource, findings FindingStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		records:  records,
		findings: findings,
		log:      logger.With("component", "reconciliation"),
		now:      time.Now,
	}
}

// RunValidation clears previous findings and validates every stored record
// from scratch.
func (s *Service) RunValidation() (*domain.ValidationRun, error) {
	records, err := s.records.ListAll()
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	findings := Validate(records)
	errs, warns := CountBySeverity(findings)
	run := &domain.ValidationRun{
		RecordCount: len(records),
		Errors:      errs,
		Warnings:    warns,
		Findings:    findings,
		RanAt:       s.now().UTC().Truncate(time.Second),
	}

	if err := s.findings.Replace(findings, run.RanAt); err != nil {
		return nil, fmt.Errorf("store findings: %w", err)
	}
	metrics.ObserveValidation(errs, warns)

	s.log.Info("validation finished",
		"records", run.RecordCount, "errors", errs, "warnings", warns)
	return run, nil
}

// Summary returns the totals and headline stats of the stored records in
// period ("" or AllPeriods for every period).
func (s *Service) Summary(period string) (RecordStats, error) {
	records, err := s.records.ListAll()
	if err != nil {
		return RecordStats{}, fmt.Errorf("load records: %w", err)
	}
	return Stats(FilterRecords(records, RecordQuery{Period: period})), nil
}

// Compare compares two periods of the stored records.
func (s *Service) Compare(period1, period2 string) (Comparison, error) {
	records, err := s.records.ListAll()
	if err != nil {
		return Comparison{}, fmt.Errorf("load records: %w", err)
	}
	c := ComparePeriods(records, period1, period2)
	if c.Status == ComparisonInsufficientData {
		s.log.Debug("comparison skipped", "periods", len(c.Periods))
	}
	return c, nil
}
