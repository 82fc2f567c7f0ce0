package reconciliation

import (
	"github.com/duizhang/settlement/internal/domain"
)

type ComparisonStatus string

const (
	ComparisonOK               ComparisonStatus = "ok"
	ComparisonInsufficientData ComparisonStatus = "insufficient_data"
)

// Compared metrics, in display order.
const (
	MetricGameCount        = "gameCount"
	MetricFlow             = "totalFlow"
	MetricRecharge         = "totalRechargeAmount"
	MetricActualSettlement = "totalActualSettlementAmount"
	MetricSettlement       = "totalSettlementAmount"
)

// MetricDelta compares one metric across two periods. PercentChange is nil
// when the second period's value is zero.
type MetricDelta struct {
	Metric           string   `json:"metric"`
	Value1           float64  `json:"value1"`
	Value2           float64  `json:"value2"`
	Delta            float64  `json:"delta"`
	PercentChange    *float64 `json:"percentChange"`
	PercentAvailable bool     `json:"percentAvailable"`
}

// Comparison is the result of comparing two billing periods.
type Comparison struct {
	Status     ComparisonStatus          `json:"status"`
	Period1    string                    `json:"period1"`
	Period2    string                    `json:"period2"`
	Periods    []string                  `json:"periods"`
	GameCount1 int                       `json:"gameCount1"`
	GameCount2 int                       `json:"gameCount2"`
	Summary1   *domain.SettlementSummary `json:"summary1,omitempty"`
	Summary2   *domain.SettlementSummary `json:"summary2,omitempty"`
	Rows       []MetricDelta             `json:"rows"`
}

// ComparePeriods summarizes period1 and period2 and reports the delta of
// each metric as period1 minus period2. With fewer than two distinct
// non-empty periods in records the result carries ComparisonInsufficientData
// and no rows.
func ComparePeriods(records []domain.SettlementRecord, period1, period2 string) Comparison {
	c := Comparison{
		Period1: period1,
		Period2: period2,
		Periods: Periods(records),
		Rows:    []MetricDelta{},
	}
	if len(c.Periods) < 2 {
		c.Status = ComparisonInsufficientData
		return c
	}
	c.Status = ComparisonOK

	r1 := ByPeriod(records, period1)
	r2 := ByPeriod(records, period2)
	s1, s2 := Summarize(r1), Summarize(r2)
	c.GameCount1, c.GameCount2 = len(r1), len(r2)
	c.Summary1, c.Summary2 = &s1, &s2

	c.Rows = append(c.Rows,
		delta(MetricGameCount, float64(len(r1)), float64(len(r2))),
		delta(MetricFlow, s1.TotalFlow, s2.TotalFlow),
		delta(MetricRecharge, s1.TotalRechargeAmount, s2.TotalRechargeAmount),
		delta(MetricActualSettlement, s1.TotalActualSettlementAmount, s2.TotalActualSettlementAmount),
		delta(MetricSettlement, s1.TotalSettlementAmount, s2.TotalSettlementAmount),
	)
	return c
}

func delta(metric string, v1, v2 float64) MetricDelta {
	d := MetricDelta{
		Metric: metric,
		Value1: v1,
		Value2: v2,
		Delta:  v1 - v2,
	}
	if v2 != 0 {
		pct := d.Delta / v2 * 100
		d.PercentChange = &pct
		d.PercentAvailable = true
	}
	return d
}
