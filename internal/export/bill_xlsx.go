package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const billSheet = "结算对账单"

var billColWidths = []float64{8, 12, 25, 12, 12, 12, 12, 10, 15, 10, 10, 12, 12}

type xlsxStyles struct {
	title, header, text, amount, totals int
}

func newXLSXStyles(f *excelize.File) (xlsxStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}

	var s xlsxStyles
	var err error
	if s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: center,
	}); err != nil {
		return s, err
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F0F0F0"}},
		Border:    border,
		Alignment: center,
	}); err != nil {
		return s, err
	}
	if s.text, err = f.NewStyle(&excelize.Style{Border: border}); err != nil {
		return s, err
	}
	if s.amount, err = f.NewStyle(&excelize.Style{Border: border, NumFmt: 4}); err != nil {
		return s, err
	}
	s.totals, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Border: border,
		NumFmt: 4,
	})
	return s, err
}

// BuildBillXLSX renders the bill as a single-sheet workbook: title and
// period, the record table with a totals row, the settlement total in
// Chinese capitals and the counterparty details.
func BuildBillXLSX(b *Bill) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), billSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	st, err := newXLSXStyles(f)
	if err != nil {
		return nil, fmt.Errorf("create styles: %w", err)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(billColumns))
	for i, w := range billColWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(billSheet, col, col, w); err != nil {
			return nil, err
		}
	}

	_ = f.SetCellValue(billSheet, "A1", b.Config.Title)
	_ = f.MergeCell(billSheet, "A1", lastCol+"1")
	_ = f.SetCellStyle(billSheet, "A1", lastCol+"1", st.title)
	_ = f.SetRowHeight(billSheet, 1, 28)
	_ = f.SetCellValue(billSheet, "A2", "统计周期："+b.Config.Period)
	_ = f.MergeCell(billSheet, "A2", lastCol+"2")

	const headerRow = 4
	header := make([]any, len(billColumns))
	for i, c := range billColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(billSheet, cellName(1, headerRow), &header); err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(billSheet, cellName(1, headerRow), cellName(len(billColumns), headerRow), st.header)

	r := headerRow
	for _, rec := range b.Records {
		r++
		values := []any{
			rec.SerialNo, rec.BillingPeriod, rec.GameName,
			rec.Flow, rec.RechargeAmount, rec.TestFeeAmount, rec.VoucherAmount, rec.Refund,
			rec.ActualSettlementAmount, rec.ChannelFee, rec.TaxFee, rec.SettlementRatio, rec.SettlementAmount,
		}
		if err := f.SetSheetRow(billSheet, cellName(1, r), &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r, err)
		}
		_ = f.SetCellStyle(billSheet, cellName(1, r), cellName(3, r), st.text)
		_ = f.SetCellStyle(billSheet, cellName(4, r), cellName(len(billColumns), r), st.amount)
	}

	r += 2
	s := b.Summary
	totals := []any{
		"合计", "", "",
		s.TotalFlow, s.TotalRechargeAmount, s.TotalTestFeeAmount, s.TotalVoucherAmount, "-",
		s.TotalActualSettlementAmount, "", "", "", s.TotalSettlementAmount,
	}
	if err := f.SetSheetRow(billSheet, cellName(1, r), &totals); err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(billSheet, cellName(1, r), cellName(len(billColumns), r), st.totals)

	r += 2
	_ = f.SetCellValue(billSheet, cellName(1, r), "结算金额（人民币大写）：")
	_ = f.SetCellValue(billSheet, cellName(3, r), b.Uppercase)
	_ = f.MergeCell(billSheet, cellName(1, r), cellName(2, r))

	for _, p := range parties(b.Config) {
		r += 2
		_ = f.SetCellValue(billSheet, cellName(1, r), p.label)
		for _, kv := range p.fields {
			r++
			_ = f.SetCellValue(billSheet, cellName(1, r), kv[0]+"：")
			_ = f.SetCellValue(billSheet, cellName(3, r), kv[1])
			_ = f.MergeCell(billSheet, cellName(1, r), cellName(2, r))
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
