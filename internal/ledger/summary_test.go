package ledger

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/duizhang/settlement/internal/domain"
)

func fixture() []domain.Transaction {
	return []domain.Transaction{
		{ID: "1", Date: "2024-01-05", Type: domain.TypeIncome, Category: "结算", Amount: 1000, Description: "Alpha 分成"},
		{ID: "2", Date: "2024-01-20", Type: domain.TypeExpense, Category: "服务器", Amount: 300, Description: "云主机"},
		{ID: "3", Date: "2024-02-01", Type: domain.TypeExpense, Category: "推广", Amount: 1200, Description: "Banner ads"},
		{ID: "4", Date: "2023-12-31", Type: domain.TypeIncome, Category: "服务器", Amount: 100, Description: "refund"},
		{ID: "5", Date: "2024-02", Type: domain.TypeIncome, Category: "结算", Amount: 50},
	}
}

func TestCalculateSummary(t *testing.T) {
	got := CalculateSummary([]domain.Transaction{
		{Type: domain.TypeIncome, Amount: 1000},
		{Type: domain.TypeExpense, Amount: 300},
	})
	assert.Equal(t, domain.Summary{TotalIncome: 1000, TotalExpense: 300, Balance: 700}, got)

	assert.Equal(t, domain.Summary{}, CalculateSummary(nil))
	assert.Equal(t, domain.Summary{}, CalculateSummary([]domain.Transaction{{Type: "transfer", Amount: 5}}))
}

func TestCalculateCategorySummary(t *testing.T) {
	got := CalculateCategorySummary(fixture())
	assert.Equal(t, []domain.CategorySummary{
		{Category: "推广", Expense: 1200, Total: -1200},
		{Category: "结算", Income: 1050, Total: 1050},
		{Category: "服务器", Income: 100, Expense: 300, Total: -200},
	}, got)
}

func TestCalculateCategorySummaryTiesKeepOrder(t *testing.T) {
	got := CalculateCategorySummary([]domain.Transaction{
		{Category: "b", Type: domain.TypeIncome, Amount: 10},
		{Category: "a", Type: domain.TypeExpense, Amount: 10},
	})
	assert.Equal(t, "b", got[0].Category)
	assert.Equal(t, "a", got[1].Category)
}

func TestCalculateMonthlySummary(t *testing.T) {
	got := CalculateMonthlySummary(fixture())
	assert.Equal(t, []domain.MonthlySummary{
		{Month: "2024-02", Income: 50, Expense: 1200, Balance: -1150},
		{Month: "2024-01", Income: 1000, Expense: 300, Balance: 700},
		{Month: "2023-12", Income: 100, Balance: 100},
	}, got)
}

func TestCalculateYearlySummary(t *testing.T) {
	got := CalculateYearlySummary(fixture())
	assert.Equal(t, []domain.YearlySummary{
		{Year: "2024", Income: 1050, Expense: 1500, Balance: -450, Count: 4},
		{Year: "2023", Income: 100, Balance: 100, Count: 1},
	}, got)
}

func TestCalculateStats(t *testing.T) {
	st := CalculateStats(fixture())
	assert.Equal(t, Stats{
		TotalCount:     5,
		IncomeCount:    3,
		ExpenseCount:   2,
		AverageIncome:  1150.0 / 3,
		AverageExpense: 750,
		MaxIncome:      1000,
		MaxExpense:     1200,
	}, st)

	assert.Equal(t, Stats{}, CalculateStats(nil))
}

func TestFilterByDateRangeIsInclusive(t *testing.T) {
	got := FilterByDateRange(fixture(), "2024-01-05", "2024-02-01")
	ids := make([]string, len(got))
	for i, tx := range got {
		ids[i] = tx.ID
	}
	assert.Equal(t, []string{"1", "2", "3", "5"}, ids)

	assert.Equal(t, 0, len(FilterByDateRange(fixture(), "2025-01-01", "2025-12-31")))
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name string
		q    TxnQuery
		want int
	}{
		{"everything", TxnQuery{}, 5},
		{"type", TxnQuery{Type: "expense"}, 2},
		{"all type", TxnQuery{Type: "all"}, 5},
		{"description case-insensitive", TxnQuery{Search: "banner"}, 1},
		{"category", TxnQuery{Search: "服务器"}, 2},
		{"category and type", TxnQuery{Search: "服务器", Type: "income"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, len(Search(fixture(), tt.q)))
		})
	}
}

func TestSortTransactions(t *testing.T) {
	ids := func(txns []domain.Transaction) []string {
		out := make([]string, len(txns))
		for i, tx := range txns {
			out[i] = tx.ID
		}
		return out
	}

	assert.Equal(t, []string{"3", "5", "2", "1", "4"}, ids(SortTransactions(fixture(), "", "")))
	assert.Equal(t, []string{"5", "4", "2", "1", "3"}, ids(SortTransactions(fixture(), SortByAmount, "asc")))
	assert.Equal(t, []string{"3", "1", "2", "4", "5"}, ids(SortTransactions(fixture(), SortByAmount, "desc")))
}
