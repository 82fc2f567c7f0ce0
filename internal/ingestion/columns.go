package ingestion

import (
	"math"
	"strconv"
	"strings"
)

// column names a field and the header keywords that identify it, most
// specific first. Headers are matched lowercased by substring.
type column struct {
	field    string
	keywords []string
}

var settlementColumns = []column{
	{"serialNo", []string{"序号", "编号", "serial"}},
	{"billingPeriod", []string{"计费周期", "周期", "月份", "period"}},
	{"gameName", []string{"游戏名称", "游戏名", "游戏", "game"}},
	{"flow", []string{"总流水", "流水", "flow"}},
	{"rechargeAmount", []string{"充值金额", "充值", "recharge"}},
	{"testFeeAmount", []string{"测试费", "测试", "test"}},
	{"voucherAmount", []string{"代金券", "券", "voucher"}},
	{"refund", []string{"退款", "refund"}},
	{"channelFee", []string{"渠道费", "channel"}},
	{"taxFee", []string{"税费", "tax"}},
	{"settlementRatio", []string{"结算比例", "比例", "ratio"}},
}

var transactionColumns = []column{
	{"date", []string{"日期", "date"}},
	{"type", []string{"类型", "收支", "type"}},
	{"category", []string{"类别", "项目名称", "项目", "category"}},
	{"amount", []string{"金额", "amount"}},
	{"description", []string{"描述", "备注", "说明", "description"}},
}

// detectColumns maps each field to a header index, or leaves it out when no
// header matches. A header cell is claimed by at most one field, in
// column-list order.
func detectColumns(header []string, cols []column) map[string]int {
	lower := make([]string, len(header))
	for i, h := range header {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}

	claimed := make(map[int]bool)
	found := make(map[string]int)
	for _, c := range cols {
	search:
		for _, kw := range c.keywords {
			for i, h := range lower {
				if !claimed[i] && h != "" && strings.Contains(h, kw) {
					found[c.field] = i
					claimed[i] = true
					break search
				}
			}
		}
	}
	return found
}

// findHeader returns the index of the first of the leading rows that names
// the key field. Files exported as bills carry a title block above the
// header.
func findHeader(rows [][]string, cols []column, key string) (int, map[string]int, bool) {
	limit := len(rows)
	if limit > 10 {
		limit = 10
	}
	for i := 0; i < limit; i++ {
		m := detectColumns(rows[i], cols)
		if _, ok := m[key]; ok {
			return i, m, true
		}
	}
	return 0, nil, false
}

func cell(row []string, idx map[string]int, field string) (string, bool) {
	i, ok := idx[field]
	if !ok || i >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[i]), true
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func totalsRow(row []string) bool {
	for _, c := range row {
		if strings.Contains(c, "合计") || strings.Contains(c, "总计") {
			return true
		}
	}
	return false
}

var amountReplacer = strings.NewReplacer("¥", "", "￥", "", "$", "", "€", "", "£", "", ",", "", "%", "", " ", "", "\u00a0", "")

// parseNumber reads a spreadsheet number leniently: currency symbols,
// thousands separators and a trailing percent sign are ignored, and
// anything unparseable or non-finite ("inf", "NaN") counts as ok=false.
func parseNumber(s string) (float64, bool) {
	s = amountReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func number(s string) float64 {
	v, _ := parseNumber(s)
	return v
}
