// Package ledger aggregates plain income and expense transactions.
package ledger

import (
	"math"
	"sort"
	"strings"

	"github.com/duizhang/settlement/internal/domain"
)

// CalculateSummary totals income and expense. Transactions of an unknown
// type are ignored.
func CalculateSummary(txns []domain.Transaction) domain.Summary {
	var s domain.Summary
	for _, t := range txns {
		switch t.Type {
		case domain.TypeIncome:
			s.TotalIncome += t.Amount
		case domain.TypeExpense:
			s.TotalExpense += t.Amount
		}
	}
	s.Balance = s.TotalIncome - s.TotalExpense
	return s
}

// CalculateCategorySummary totals each category, largest absolute net
// first. Ties keep first-encounter order.
func CalculateCategorySummary(txns []domain.Transaction) []domain.CategorySummary {
	index := make(map[string]int)
	out := []domain.CategorySummary{}
	for _, t := range txns {
		i, ok := index[t.Category]
		if !ok {
			i = len(out)
			index[t.Category] = i
			out = append(out, domain.CategorySummary{Category: t.Category})
		}
		switch t.Type {
		case domain.TypeIncome:
			out[i].Income += t.Amount
		case domain.TypeExpense:
			out[i].Expense += t.Amount
		}
	}
	for i := range out {
		out[i].Total = out[i].Income - out[i].Expense
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Total) > math.Abs(out[j].Total)
	})
	return out
}

// CalculateMonthlySummary buckets transactions by the YYYY-MM prefix of
// their date, latest month first.
func CalculateMonthlySummary(txns []domain.Transaction) []domain.MonthlySummary {
	buckets := make(map[string]*domain.MonthlySummary)
	for _, t := range txns {
		month := prefix(t.Date, 7)
		m, ok := buckets[month]
		if !ok {
			m = &domain.MonthlySummary{Month: month}
			buckets[month] = m
		}
		switch t.Type {
		case domain.TypeIncome:
			m.Income += t.Amount
		case domain.TypeExpense:
			m.Expense += t.Amount
		}
	}

	out := make([]domain.MonthlySummary, 0, len(buckets))
	for _, m := range buckets {
		m.Balance = m.Income - m.Expense
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}

// CalculateYearlySummary buckets transactions by the year of their date,
// latest year first.
func CalculateYearlySummary(txns []domain.Transaction) []domain.YearlySummary {
	buckets := make(map[string]*domain.YearlySummary)
	for _, t := range txns {
		year := prefix(t.Date, 4)
		y, ok := buckets[year]
		if !ok {
			y = &domain.YearlySummary{Year: year}
			buckets[year] = y
		}
		y.Count++
		switch t.Type {
		case domain.TypeIncome:
			y.Income += t.Amount
		case domain.TypeExpense:
			y.Expense += t.Amount
		}
	}

	out := make([]domain.YearlySummary, 0, len(buckets))
	for _, y := range buckets {
		y.Balance = y.Income - y.Expense
		out = append(out, *y)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}

func prefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

// Stats are the per-type counts and averages shown next to the ledger.
type Stats struct {
	TotalCount     int     `json:"totalCount"`
	IncomeCount    int     `json:"incomeCount"`
	ExpenseCount   int     `json:"expenseCount"`
	AverageIncome  float64 `json:"averageIncome"`
	AverageExpense float64 `json:"averageExpense"`
	MaxIncome      float64 `json:"maxIncome"`
	MaxExpense     float64 `json:"maxExpense"`
}

func CalculateStats(txns []domain.Transaction) Stats {
	st := Stats{TotalCount: len(txns)}
	var income, expense float64
	for _, t := range txns {
		switch t.Type {
		case domain.TypeIncome:
			st.IncomeCount++
			income += t.Amount
			st.MaxIncome = math.Max(st.MaxIncome, t.Amount)
		case domain.TypeExpense:
			st.ExpenseCount++
			expense += t.Amount
			st.MaxExpense = math.Max(st.MaxExpense, t.Amount)
		}
	}
	if st.IncomeCount > 0 {
		st.AverageIncome = income / float64(st.IncomeCount)
	}
	if st.ExpenseCount > 0 {
		st.AverageExpense = expense / float64(st.ExpenseCount)
	}
	return st
}

// FilterByDateRange keeps transactions whose date lies in [start, end].
// Dates compare as strings, so both bounds must use the transaction date
// format.
func FilterByDateRange(txns []domain.Transaction, start, end string) []domain.Transaction {
	out := []domain.Transaction{}
	for _, t := range txns {
		if t.Date >= start && t.Date <= end {
			out = append(out, t)
		}
	}
	return out
}

// TxnQuery selects transactions by free text and type. Search matches the
// description or category case-insensitively; an empty Type or "all"
// matches both types.
type TxnQuery struct {
	Search string
	Type   string
}

func Search(txns []domain.Transaction, q TxnQuery) []domain.Transaction {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := []domain.Transaction{}
	for _, t := range txns {
		if q.Type != "" && q.Type != "all" && string(t.Type) != q.Type {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(t.Description), needle) &&
			!strings.Contains(strings.ToLower(t.Category), needle) {
			continue
		}
		out = append(out, t)
	}
	return out
}

type SortField string

const (
	SortByDate     SortField = "date"
	SortByAmount   SortField = "amount"
	SortByCategory SortField = "category"
)

// SortTransactions returns a stably sorted copy. The zero field sorts by
// date and an order other than "asc" sorts descending.
func SortTransactions(txns []domain.Transaction, by SortField, order string) []domain.Transaction {
	out := append([]domain.Transaction(nil), txns...)

	var less func(a, b domain.Transaction) bool
	switch by {
	case SortByAmount:
		less = func(a, b domain.Transaction) bool { return a.Amount < b.Amount }
	case SortByCategory:
		less = func(a, b domain.Transaction) bool { return a.Category < b.Category }
	default:
		less = func(a, b domain.Transaction) bool { return a.Date < b.Date }
	}

	sort.SliceStable(out, func(i, j int) bool {
		if order == "asc" {
			return less(out[i], out[j])
		}
		return less(out[j], out[i])
	})
	return out
}
