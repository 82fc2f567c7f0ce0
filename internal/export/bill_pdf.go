package export

import (
	"bytes"
	"fmt"
	"os"

	"github.com/jung-kurt/gofpdf"

	"github.com/duizhang/settlement/internal/currency"
)

const pdfFontFamily = "billfont"

var billColumnsEN = []string{
	"No.", "Period", "Game", "Flow", "Recharge", "Test fee", "Voucher",
	"Refund", "Actual", "Channel", "Tax", "Ratio", "Settlement",
}

var pdfColWidths = []float64{10, 20, 40, 20, 20, 18, 18, 16, 24, 16, 16, 16, 24}

// pdfText holds the labels printed on a PDF bill. Without a UTF-8 font the
// core fonts cannot draw Chinese, so English labels are used.
type pdfText struct {
	columns   []string
	period    string
	total     string
	uppercase string
	translate func(string) string
}

// BuildBillPDF renders the bill on landscape A4. fontPath names a UTF-8
// TrueType font; when empty the built-in Helvetica is used and characters
// outside cp1252 are replaced.
func BuildBillPDF(b *Bill, fontPath string) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)

	family := "Helvetica"
	txt := pdfText{
		columns:   billColumnsEN,
		period:    "Period: ",
		total:     "Total",
		uppercase: "Amount in words: ",
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}
	if fontPath != "" {
		font, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		pdf.AddUTF8FontFromBytes(pdfFontFamily, "", font)
		family = pdfFontFamily
		txt = pdfText{
			columns:   billColumns,
			period:    "统计周期：",
			total:     "合计",
			uppercase: "结算金额（人民币大写）：",
			translate: func(s string) string { return s },
		}
	}
	tr := txt.translate

	pdf.AddPage()
	pdf.SetFont(family, "", 16)
	pdf.CellFormat(0, 10, tr(b.Config.Title), "", 1, "C", false, 0, "")
	pdf.SetFont(family, "", 10)
	pdf.CellFormat(0, 6, tr(txt.period+b.Config.Period), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont(family, "", 8)
	pdf.SetFillColor(240, 240, 240)
	for i, h := range txt.columns {
		pdf.CellFormat(pdfColWidths[i], 7, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	for _, rec := range b.Records {
		for i, v := range row(rec) {
			align := "R"
			if i < 3 {
				align = "L"
			}
			pdf.CellFormat(pdfColWidths[i], 6, tr(v), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	totals := totalsRow(b.Summary)
	totals[0] = txt.total
	for i, v := range totals {
		pdf.CellFormat(pdfColWidths[i], 6, tr(v), "1", 0, "R", true, 0, "")
	}
	pdf.Ln(10)

	pdf.SetFont(family, "", 10)
	words := b.Uppercase
	if fontPath == "" {
		words = currency.FormatCNY(b.Summary.TotalSettlementAmount)
	}
	pdf.CellFormat(0, 6, tr(txt.uppercase+words), "", 1, "L", false, 0, "")

	for _, p := range parties(b.Config) {
		pdf.Ln(4)
		pdf.CellFormat(0, 6, tr(p.label), "", 1, "L", false, 0, "")
		for _, kv := range p.fields {
			pdf.CellFormat(0, 5, tr(kv[0]+"："+kv[1]), "", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
