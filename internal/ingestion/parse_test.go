package ingestion

import (
	"bytes"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/xuri/excelize/v2"

	"github.com/duizhang/settlement/internal/domain"
	"github.com/duizhang/settlement/internal/reconciliation"
)

func TestDetectColumnsClaimsEachHeaderOnce(t *testing.T) {
	idx := detectColumns([]string{"序号", "计费周期", "游戏名称", "流水", "充值金额", "测试费", "代金券", "退款", "渠道费", "税费", "结算比例"}, settlementColumns)
	assert.Equal(t, 0, idx["serialNo"])
	assert.Equal(t, 1, idx["billingPeriod"])
	assert.Equal(t, 2, idx["gameName"])
	assert.Equal(t, 3, idx["flow"])
	assert.Equal(t, 4, idx["rechargeAmount"])
	assert.Equal(t, 10, idx["settlementRatio"])

	idx = detectColumns([]string{"Game", "Period", "Flow", "Recharge"}, settlementColumns)
	assert.Equal(t, 0, idx["gameName"])
	assert.Equal(t, 1, idx["billingPeriod"])
	_, ok := idx["refund"]
	assert.False(t, ok)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,234.50", 1234.5, true},
		{"¥ 88", 88, true},
		{"25%", 25, true},
		{"-3.5", -3.5, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"inf", 0, false},
		{"NaN", 0, false},
		{"-Infinity", 0, false},
		{"1e999", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

const settlementCSV = "\ufeff结算对账单\n" +
	"序号,计费周期,游戏名称,流水,充值金额,测试费,代金券,退款,渠道费,税费,结算比例\n" +
	"1,2025年12月,星海,\"1,200\",1000,50,30,20,5,3,30%\n" +
	"2,2025年12月,Dragon,500,400,0,0,0,0,0,\n" +
	",,,,,,,,,,\n" +
	",,,,,,,,,,\n" +
	"3,2025年12月,,10,10,0,0,0,0,0,25\n" +
	"合计,,,1700,1410,50,30,20,5,3,\n"

func TestSettlementsFromCSV(t *testing.T) {
	rows, err := ReadCSV([]byte(settlementCSV))
	assert.NoError(t, err)

	records, err := SettlementsFromRows(rows)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(records))

	first := records[0]
	assert.Equal(t, 1, first.SerialNo)
	assert.Equal(t, "2025年12月", first.BillingPeriod)
	assert.Equal(t, "星海", first.GameName)
	assert.Equal(t, 1200.0, first.Flow)
	assert.Equal(t, 1000.0, first.RechargeAmount)
	assert.Equal(t, 20.0, first.Refund)
	assert.Equal(t, 30.0, first.SettlementRatio)
	assert.Zero(t, first.SettlementAmount)

	assert.Equal(t, domain.DefaultSettlementRatio, records[1].SettlementRatio)
}

func TestSettlementsFromRowsWithoutHeader(t *testing.T) {
	_, err := SettlementsFromRows([][]string{{"a", "b"}, {"1", "2"}})
	assert.IsError(t, err, ErrNoRecords)
}

func TestSettlementsFromXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"游戏名称", "计费周期", "流水", "充值金额", "结算比例"},
		{"Alpha", "2025年11月", 300, 250.5, 40},
		{"Beta", "2025年11月", 100, 80, nil},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		assert.NoError(t, err)
		assert.NoError(t, f.SetSheetRow(sheet, cellName, &row))
	}
	var buf bytes.Buffer
	assert.NoError(t, f.Write(&buf))

	data, err := ReadXLSX(buf.Bytes())
	assert.NoError(t, err)
	records, err := SettlementsFromRows(data)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(records))
	assert.Equal(t, "Alpha", records[0].GameName)
	assert.Equal(t, 250.5, records[0].RechargeAmount)
	assert.Equal(t, 40.0, records[0].SettlementRatio)
	assert.Equal(t, 2, records[1].SerialNo)
	assert.Equal(t, domain.DefaultSettlementRatio, records[1].SettlementRatio)
}

func TestTransactionsFromRows(t *testing.T) {
	rows := [][]string{
		{"日期", "类型", "类别", "金额", "描述"},
		{"2025/3/1", "收入", "工资", "¥8,000", "三月"},
		{"2025-03-02", "支出", "餐饮", "-45.5", ""},
		{"2025-03-03", "支出", "餐饮", "0", "skipped"},
		{"", "", "", "", ""},
	}
	txns, err := TransactionsFromRows(rows)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(txns))

	assert.Equal(t, "2025-03-01", txns[0].Date)
	assert.Equal(t, domain.TypeIncome, txns[0].Type)
	assert.Equal(t, 8000.0, txns[0].Amount)
	assert.Equal(t, "三月", txns[0].Description)

	assert.Equal(t, domain.TypeExpense, txns[1].Type)
	assert.Equal(t, 45.5, txns[1].Amount)
}

func TestParseBackupIsLenient(t *testing.T) {
	doc := `{
		"version": "1.2.0",
		"settlementRecords": [
			{"id": "r1", "gameName": "Alpha", "flow": "1,000", "rechargeAmount": 900, "settlementRatio": "30"},
			{"id": "r2", "gameName": "Beta", "rechargeAmount": {"bad": true}},
			{"id": "r3", "gameName": "", "rechargeAmount": 5}
		],
		"transactions": [
			{"id": 7, "date": "2025-01-01", "type": "income", "amount": "12.5"}
		]
	}`
	b, err := ParseBackup([]byte(doc))
	assert.NoError(t, err)
	assert.Equal(t, "1.2.0", b.Version)
	assert.Equal(t, 2, len(b.SettlementRecords))

	assert.Equal(t, 1000.0, b.SettlementRecords[0].Flow)
	assert.Equal(t, 30.0, b.SettlementRecords[0].SettlementRatio)
	assert.Zero(t, b.SettlementRecords[1].RechargeAmount)
	assert.Equal(t, domain.DefaultSettlementRatio, b.SettlementRecords[1].SettlementRatio)

	assert.Equal(t, 1, len(b.Transactions))
	assert.Equal(t, "7", b.Transactions[0].ID)
	assert.Equal(t, 12.5, b.Transactions[0].Amount)
}

func TestParseBackupBareArray(t *testing.T) {
	b, err := ParseBackup([]byte(`[{"gameName": "Alpha", "rechargeAmount": 10}]`))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(b.SettlementRecords))
	assert.Equal(t, 0, len(b.Transactions))

	_, err = ParseBackup([]byte("  "))
	assert.IsError(t, err, ErrNoRecords)

	_, err = ParseBackup([]byte("{not json"))
	assert.Error(t, err)
}

func TestParseTransactionsJSON(t *testing.T) {
	txns, err := ParseTransactionsJSON([]byte(`[{"date":"2025-02-01","type":"expense","category":"房租","amount":-3000}]`))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(txns))
	assert.Equal(t, 3000.0, txns[0].Amount)
	assert.Equal(t, domain.TypeExpense, txns[0].Type)

	_, err = ParseTransactionsJSON([]byte(`{"version":"1.2.0","settlementRecords":[]}`))
	assert.IsError(t, err, ErrNoRecords)
}

func TestParsePastedRows(t *testing.T) {
	text := "序号\t计费周期\t游戏名称\t流水\t充值金额\n" +
		"1\t2025年12月\t星海\t1200\t1000\t50\t30\t20\t0\t0\t30\n" +
		"\n" +
		"Dragon, 500, 400\n" +
		"Phoenix    80    60    40%\n" +
		"only two\n" +
		"合计\t\t\t1780\t1460\n"

	records, err := ParsePastedRows(text, "2026年1月")
	assert.NoError(t, err)
	assert.Equal(t, 3, len(records))

	assert.Equal(t, "2025年12月", records[0].BillingPeriod)
	assert.Equal(t, "星海", records[0].GameName)
	assert.Equal(t, 20.0, records[0].Refund)
	assert.Equal(t, 30.0, records[0].SettlementRatio)

	assert.Equal(t, "Dragon", records[1].GameName)
	assert.Equal(t, "2026年1月", records[1].BillingPeriod)
	assert.Equal(t, 400.0, records[1].RechargeAmount)
	assert.Equal(t, domain.DefaultSettlementRatio, records[1].SettlementRatio)

	assert.Equal(t, "Phoenix", records[2].GameName)
	assert.Equal(t, 40.0, records[2].SettlementRatio)
}

func TestParsePastedRowsKeepsGroupedAmounts(t *testing.T) {
	text := "1\t2025年12月\t星海\t1,200.00\t1,000.00\t0\t0\t0\t0\t0\t30\n" +
		"龙城    2,500.50    2,000.00    20%\n"

	records, err := ParsePastedRows(text, "2026年1月")
	assert.NoError(t, err)
	assert.Equal(t, 2, len(records))

	assert.Equal(t, "星海", records[0].GameName)
	assert.Equal(t, 1200.0, records[0].Flow)
	assert.Equal(t, 1000.0, records[0].RechargeAmount)
	assert.Equal(t, 0.0, records[0].TestFeeAmount)
	assert.Equal(t, 30.0, records[0].SettlementRatio)

	assert.Equal(t, "龙城", records[1].GameName)
	assert.Equal(t, 2500.5, records[1].Flow)
	assert.Equal(t, 2000.0, records[1].RechargeAmount)
	assert.Equal(t, 20.0, records[1].SettlementRatio)
}

func TestParsePastedRowsEmpty(t *testing.T) {
	_, err := ParsePastedRows("游戏名称\t流水\n\n", "")
	assert.IsError(t, err, ErrNoRecords)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatXLSX, DetectFormat("Bill.XLSX", nil))
	assert.Equal(t, FormatCSV, DetectFormat("bill.csv", nil))
	assert.Equal(t, FormatJSON, DetectFormat("", []byte(`  {"version":"1"}`)))
	assert.Equal(t, FormatXLSX, DetectFormat("upload", []byte("PK\x03\x04")))
	assert.Equal(t, FormatCSV, DetectFormat("upload", []byte("a,b")))
}

func TestParseSettlementsNonFiniteCells(t *testing.T) {
	csv := "游戏名称,计费周期,流水,充值金额,测试费,结算比例\n" +
		"星海,2025年12月,NaN,1000,inf,Infinity\n"

	records, err := ParseSettlements([]byte(csv), FormatCSV)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(records))
	r := records[0]
	assert.Equal(t, 0.0, r.Flow)
	assert.Equal(t, 0.0, r.TestFeeAmount)
	assert.Equal(t, domain.DefaultSettlementRatio, r.SettlementRatio)
	assert.Equal(t, 1000.0, r.ActualSettlementAmount)
	assert.Equal(t, 250.0, r.SettlementAmount)

	findings := reconciliation.Validate(records)
	assert.Equal(t, 1, len(findings))
	assert.Equal(t, domain.RuleRechargeWithoutFlow, findings[0].Rule)

	b, err := ParseBackup([]byte(`[{"gameName": "Alpha", "rechargeAmount": 1e999, "flow": "NaN"}]`))
	assert.NoError(t, err)
	assert.Equal(t, 0.0, b.SettlementRecords[0].RechargeAmount)
	assert.Equal(t, 0.0, b.SettlementRecords[0].Flow)
}

func TestParseSettlementsUnsupported(t *testing.T) {
	_, err := ParseSettlements([]byte("x"), "pdf")
	assert.IsError(t, err, ErrUnsupportedFormat)
}
