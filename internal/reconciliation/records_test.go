package reconciliation

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/duizhang/settlement/internal/domain"
)

func recordIDs(records []domain.SettlementRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestFilterRecords(t *testing.T) {
	records := sampleRecords()
	tests := []struct {
		name string
		q    RecordQuery
		want []string
	}{
		{"no filter", RecordQuery{}, []string{"1", "2", "3", "4", "5"}},
		{"all periods", RecordQuery{Period: AllPeriods}, []string{"1", "2", "3", "4", "5"}},
		{"period", RecordQuery{Period: "2025年12月"}, []string{"3", "4"}},
		{"search is case-insensitive", RecordQuery{Search: " x "}, []string{"1", "3"}},
		{"period and search", RecordQuery{Period: "2025年11月", Search: "x"}, []string{"1"}},
		{"no match", RecordQuery{Period: "2020年01月"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, recordIDs(FilterRecords(records, tt.q)))
		})
	}
}

func TestSortRecords(t *testing.T) {
	records := sampleRecords()

	byFlow := SortRecords(records, SortByFlow, Desc)
	assert.Equal(t, []string{"4", "1", "2", "3", "5"}, recordIDs(byFlow))

	byName := SortRecords(records, SortByGameName, Asc)
	assert.Equal(t, []string{"5", "1", "3", "2", "4"}, recordIDs(byName))

	byDefault := SortRecords(byFlow, "", "")
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, recordIDs(byDefault))

	// Input is left untouched.
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, recordIDs(records))
}

func TestBatchUpdate(t *testing.T) {
	records := sampleRecords()
	ratio := 50.0
	tax := 6.0

	changed := BatchUpdate(records, []string{"2", "4", "missing"}, RecordPatch{SettlementRatio: &ratio, TaxFee: &tax})
	assert.Equal(t, []string{"2", "4"}, recordIDs(changed))
	for _, r := range changed {
		assert.Equal(t, 50.0, r.SettlementRatio)
		assert.Equal(t, 6.0, r.TaxFee)
		approx(t, r.ActualSettlementAmount*0.5, r.SettlementAmount)
	}
	assert.Equal(t, 30.0, records[1].SettlementRatio)

	assert.True(t, RecordPatch{}.Empty())
	assert.False(t, RecordPatch{TaxFee: &tax}.Empty())
}
