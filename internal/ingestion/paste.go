package ingestion

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/duizhang/settlement/internal/domain"
)

var spaceRun = regexp.MustCompile(`\s{2,}`)

// splitPasted splits a line on one delimiter: tabs when the line has any,
// else runs of two or more spaces, else commas. Cells of tab or space
// separated lines keep their thousands separators.
func splitPasted(line string) []string {
	switch {
	case strings.Contains(line, "\t"):
		return strings.Split(line, "\t")
	case spaceRun.MatchString(strings.TrimSpace(line)):
		return spaceRun.Split(strings.TrimSpace(line), -1)
	default:
		return strings.Split(line, ",")
	}
}

// ParsePastedRows reads rows copied from a spreadsheet or chat message.
// Each line is split on a single delimiter, see splitPasted. Lines naming
// header columns and totals lines are skipped.
//
// Rows of five or more cells follow the bill column order: serial number,
// billing period, game name, flow, recharge, test fee, voucher, refund,
// channel fee, tax fee, ratio. Shorter rows of three or four cells are
// read as game name, flow, recharge and an optional ratio, with
// defaultPeriod as their billing period. A missing ratio defaults to
// domain.DefaultSettlementRatio.
func ParsePastedRows(text, defaultPeriod string) ([]domain.SettlementRecord, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	var records []domain.SettlementRecord
	serial := 0

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" || pastedHeader(line) {
			continue
		}

		var parts []string
		for _, p := range splitPasted(line) {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) < 3 {
			continue
		}

		serial++
		rec := domain.SettlementRecord{
			SerialNo:        serial,
			SettlementRatio: domain.DefaultSettlementRatio,
			CreatedAt:       now,
		}
		at := func(i int) string {
			if i < len(parts) {
				return parts[i]
			}
			return ""
		}

		if len(parts) >= 5 {
			if n, err := strconv.Atoi(parts[0]); err == nil {
				rec.SerialNo = n
			}
			rec.BillingPeriod = parts[1]
			rec.GameName = parts[2]
			rec.Flow = number(parts[3])
			rec.RechargeAmount = number(parts[4])
			rec.TestFeeAmount = number(at(5))
			rec.VoucherAmount = number(at(6))
			rec.Refund = number(at(7))
			rec.ChannelFee = number(at(8))
			rec.TaxFee = number(at(9))
			if r, ok := parseNumber(at(10)); ok {
				rec.SettlementRatio = r
			}
		} else {
			rec.BillingPeriod = defaultPeriod
			rec.GameName = parts[0]
			rec.Flow = number(parts[1])
			rec.RechargeAmount = number(parts[2])
			if r, ok := parseNumber(at(3)); ok {
				rec.SettlementRatio = r
			}
		}

		if rec.GameName == "" {
			continue
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return records, nil
}

func pastedHeader(line string) bool {
	for _, kw := range []string{"序号", "Serial", "游戏名称", "合计", "总计"} {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}
