package reconciliation

import (
	"sort"

	"github.com/duizhang/settlement/internal/domain"
)

// Summarize sums every numeric field across records. Callers filter first;
// an empty slice yields the zero summary.
func Summarize(records []domain.SettlementRecord) domain.SettlementSummary {
	var s domain.SettlementSummary
	for _, r := range records {
		s.TotalFlow += r.Flow
		s.TotalRechargeAmount += r.RechargeAmount
		s.TotalTestFeeAmount += r.TestFeeAmount
		s.TotalVoucherAmount += r.VoucherAmount
		s.TotalRefund += r.Refund
		s.TotalActualSettlementAmount += r.ActualSettlementAmount
		s.TotalSettlementAmount += r.SettlementAmount
	}
	return s
}

// RecordStats is the headline block shown above a bill.
type RecordStats struct {
	GameCount    int                      `json:"gameCount"`
	Summary      domain.SettlementSummary `json:"summary"`
	AverageRatio float64                  `json:"averageRatio"`
}

func Stats(records []domain.SettlementRecord) RecordStats {
	st := RecordStats{
		GameCount: len(records),
		Summary:   Summarize(records),
	}
	if len(records) == 0 {
		return st
	}
	var ratios float64
	for _, r := range records {
		ratios += r.SettlementRatio
	}
	st.AverageRatio = ratios / float64(len(records))
	return st
}

// PeriodTotals is one entry of the billing history.
type PeriodTotals struct {
	Period      string                   `json:"period"`
	RecordCount int                      `json:"recordCount"`
	Summary     domain.SettlementSummary `json:"summary"`
}

// PeriodHistory groups records by billing period in first-encounter order.
// Records without a period are grouped under domain.UnclassifiedPeriod.
func PeriodHistory(records []domain.SettlementRecord) []PeriodTotals {
	groups := make(map[string][]domain.SettlementRecord)
	var order []string
	for _, r := range records {
		p := r.BillingPeriod
		if p == "" {
			p = domain.UnclassifiedPeriod
		}
		if _, ok := groups[p]; !ok {
			order = append(order, p)
		}
		groups[p] = append(groups[p], r)
	}

	out := make([]PeriodTotals, 0, len(order))
	for _, p := range order {
		out = append(out, PeriodTotals{
			Period:      p,
			RecordCount: len(groups[p]),
			Summary:     Summarize(groups[p]),
		})
	}
	return out
}

// Periods returns the distinct non-empty billing periods, latest first.
func Periods(records []domain.SettlementRecord) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		if r.BillingPeriod == "" {
			continue
		}
		if _, ok := seen[r.BillingPeriod]; ok {
			continue
		}
		seen[r.BillingPeriod] = struct{}{}
		out = append(out, r.BillingPeriod)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// ByPeriod returns the records whose billing period equals period exactly.
func ByPeriod(records []domain.SettlementRecord, period string) []domain.SettlementRecord {
	var out []domain.SettlementRecord
	for _, r := range records {
		if r.BillingPeriod == period {
			out = append(out, r)
		}
	}
	return out
}
