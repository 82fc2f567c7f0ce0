package ingestion

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/duizhang/settlement/internal/domain"
)

// ReadCSV returns the rows of a CSV file. A UTF-8 byte order mark is
// dropped and ragged rows are allowed.
func ReadCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

// ReadXLSX returns the rows of the first worksheet.
func ReadXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoRecords
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

// SettlementsFromRows maps spreadsheet rows to settlement records. The
// header is located by its game name column and the table ends at the
// first totals row. Blank rows and rows without a game name are skipped. A
// missing or empty ratio defaults to domain.DefaultSettlementRatio and a
// missing serial number to the row's position among the data rows. Derived
// amounts are left for the caller to reconcile.
func SettlementsFromRows(rows [][]string) ([]domain.SettlementRecord, error) {
	start, idx, ok := findHeader(rows, settlementColumns, "gameName")
	if !ok {
		return nil, fmt.Errorf("%w: no game name column", ErrNoRecords)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	var records []domain.SettlementRecord
	pos := 0
	for _, row := range rows[start+1:] {
		if totalsRow(row) {
			break
		}
		if blankRow(row) {
			continue
		}
		pos++
		name, _ := cell(row, idx, "gameName")
		if name == "" {
			continue
		}

		rec := domain.SettlementRecord{
			SerialNo:        pos,
			GameName:        name,
			SettlementRatio: domain.DefaultSettlementRatio,
			CreatedAt:       now,
		}
		if v, ok := cell(row, idx, "serialNo"); ok {
			if n, err := strconv.Atoi(v); err == nil {
				rec.SerialNo = n
			}
		}
		rec.BillingPeriod, _ = cell(row, idx, "billingPeriod")
		for field, dst := range map[string]*float64{
			"flow":           &rec.Flow,
			"rechargeAmount": &rec.RechargeAmount,
			"testFeeAmount":  &rec.TestFeeAmount,
			"voucherAmount":  &rec.VoucherAmount,
			"refund":         &rec.Refund,
			"channelFee":     &rec.ChannelFee,
			"taxFee":         &rec.TaxFee,
		} {
			if v, ok := cell(row, idx, field); ok {
				*dst = number(v)
			}
		}
		if v, ok := cell(row, idx, "settlementRatio"); ok {
			if r, ok := parseNumber(v); ok {
				rec.SettlementRatio = r
			}
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return records, nil
}

// TransactionsFromRows maps spreadsheet rows to transactions. Rows with a
// zero amount are skipped; amounts are stored as magnitudes with the type
// carrying the sign.
func TransactionsFromRows(rows [][]string) ([]domain.Transaction, error) {
	start, idx, ok := findHeader(rows, transactionColumns, "amount")
	if !ok {
		return nil, fmt.Errorf("%w: no amount column", ErrNoRecords)
	}

	now := time.Now().UTC()
	var txns []domain.Transaction
	for _, row := range rows[start+1:] {
		if blankRow(row) || totalsRow(row) {
			continue
		}
		raw, _ := cell(row, idx, "amount")
		amount := number(raw)
		if amount == 0 {
			continue
		}

		t := domain.Transaction{
			Date:      now.Format("2006-01-02"),
			Type:      domain.TypeExpense,
			Amount:    abs(amount),
			CreatedAt: now.Format(time.RFC3339),
		}
		if v, ok := cell(row, idx, "date"); ok && v != "" {
			t.Date = parseDate(v, t.Date)
		}
		if v, ok := cell(row, idx, "type"); ok {
			t.Type = parseType(v)
		} else if amount > 0 && strings.HasPrefix(strings.TrimSpace(raw), "+") {
			t.Type = domain.TypeIncome
		}
		t.Category, _ = cell(row, idx, "category")
		t.Description, _ = cell(row, idx, "description")
		txns = append(txns, t)
	}

	if len(txns) == 0 {
		return nil, ErrNoRecords
	}
	return txns, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "2006/1/2", "2006-1-2", "2006年1月2日", "01-02-06", time.RFC3339}

// parseDate normalizes a date cell to YYYY-MM-DD, falling back to def.
func parseDate(s, def string) string {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return def
}

// parseType reads 收入/income/+ as income and everything else as expense.
func parseType(s string) domain.TransactionType {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.Contains(s, "收入") || strings.Contains(s, "income") || strings.Contains(s, "+") {
		return domain.TypeIncome
	}
	return domain.TypeExpense
}
