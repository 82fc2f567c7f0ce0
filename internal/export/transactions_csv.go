package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/duizhang/settlement/internal/domain"
)

var transactionHeader = []string{"日期", "类型", "类别", "金额", "描述"}

// WriteTransactionsCSV writes txns as a UTF-8 CSV with a byte order mark so
// spreadsheet programs detect the encoding.
func WriteTransactionsCSV(w io.Writer, txns []domain.Transaction) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(transactionHeader); err != nil {
		return err
	}
	for _, t := range txns {
		typ := "支出"
		if t.Type == domain.TypeIncome {
			typ = "收入"
		}
		rec := []string{t.Date, typ, t.Category, strconv.FormatFloat(t.Amount, 'f', -1, 64), t.Description}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write transaction %s: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// TransactionsFilename returns the download name for a CSV exported on day.
func TransactionsFilename(day string) string {
	return "对账单_" + day + ".csv"
}
