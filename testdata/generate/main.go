package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/duizhang/settlement/internal/domain"
	"github.com/duizhang/settlement/internal/export"
	"github.com/duizhang/settlement/internal/reconciliation"
)

var games = []string{
	"星海争霸", "龙城传说", "三国志·战", "剑影江湖", "萌宠乐园", "极速狂飙",
	"梦幻西游记", "王者征途", "仙侠奇缘", "末日求生", "魔域觉醒", "消消乐大师",
}

var categories = map[domain.TransactionType][]string{
	domain.TypeIncome:  {"结算收入", "工资", "奖金", "退税"},
	domain.TypeExpense: {"服务器", "办公", "差旅", "餐饮", "推广", "房租"},
}

func main() {
	rng := rand.New(rand.NewSource(42))
	baseDir := findTestdataDir()
	created := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	periods := []string{"2025年11月", "2025年12月"}
	var records []domain.SettlementRecord
	serial := 0
	for _, period := range periods {
		for _, game := range games {
			serial++
			records = append(records, settlementRecord(rng, serial, period, game, created))
		}
	}

	// Anomalies for the validator: a duplicate game in one period, a ratio
	// above 100 and recharge without flow.
	dup := records[len(records)-1]
	serial++
	dup.ID = fmt.Sprintf("SR-%04d", serial)
	dup.SerialNo = serial
	records = append(records, reconciliation.Reconcile(dup))
	records[3].SettlementRatio = 120
	records[3] = reconciliation.Reconcile(records[3])
	records[7].Flow = 0

	f := create(filepath.Join(baseDir, "settlements.json"))
	if err := export.WriteBackup(f, records, nil, created); err != nil {
		panic(err)
	}
	f.Close()
	fmt.Printf("Generated %d settlement records -> settlements.json\n", len(records))

	writeBillCSV(filepath.Join(baseDir, "settlements_2025-12.csv"), records[len(games):len(games)*2])

	txns := transactions(rng, created)
	writeJSONFile(filepath.Join(baseDir, "transactions.json"), txns)
	fmt.Printf("Generated %d transactions -> transactions.json\n", len(txns))

	f = create(filepath.Join(baseDir, "transactions.csv"))
	if err := export.WriteTransactionsCSV(f, txns); err != nil {
		panic(err)
	}
	f.Close()

	fmt.Println("Test data generation complete.")
}

func settlementRecord(rng *rand.Rand, serial int, period, game string, created time.Time) domain.SettlementRecord {
	flow := round2(20000 + rng.Float64()*480000)
	recharge := round2(flow * (0.8 + rng.Float64()*0.15))
	rec := domain.SettlementRecord{
		ID:              fmt.Sprintf("SR-%04d", serial),
		SerialNo:        serial,
		BillingPeriod:   period,
		GameName:        game,
		Flow:            flow,
		RechargeAmount:  recharge,
		TestFeeAmount:   round2(recharge * rng.Float64() * 0.02),
		VoucherAmount:   round2(recharge * rng.Float64() * 0.05),
		ChannelFee:      round2(recharge * 0.01),
		TaxFee:          round2(recharge * 0.006),
		SettlementRatio: []float64{20, 25, 30, 35}[rng.Intn(4)],
		CreatedAt:       created.Format(time.RFC3339),
	}
	// Roughly one game in ten has refunds.
	if rng.Float64() < 0.1 {
		rec.Refund = round2(recharge * rng.Float64() * 0.03)
	}
	return reconciliation.Reconcile(rec)
}

// writeBillCSV writes records the way an operator's spreadsheet export
// looks: a title line, the header, the rows and a totals line.
func writeBillCSV(path string, records []domain.SettlementRecord) {
	f := create(path)
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{"2025年12月 结算对账单"})
	w.Write([]string{"序号", "计费周期", "游戏名称", "流水", "充值金额", "测试费金额", "代金券金额", "退款", "渠道费", "税费", "结算比例"})
	sum := reconciliation.Summarize(records)
	for i, r := range records {
		w.Write([]string{
			fmt.Sprint(i + 1), r.BillingPeriod, r.GameName,
			money(r.Flow), money(r.RechargeAmount), money(r.TestFeeAmount), money(r.VoucherAmount),
			money(r.Refund), money(r.ChannelFee), money(r.TaxFee), fmt.Sprintf("%g%%", r.SettlementRatio),
		})
	}
	w.Write([]string{"合计", "", "", money(sum.TotalFlow), money(sum.TotalRechargeAmount)})
	fmt.Printf("Generated %d bill rows -> %s\n", len(records), filepath.Base(path))
}

func transactions(rng *rand.Rand, created time.Time) []domain.Transaction {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var txns []domain.Transaction
	for i := 1; i <= 120; i++ {
		typ := domain.TypeExpense
		amount := round2(50 + rng.Float64()*4950)
		if rng.Float64() < 0.3 {
			typ = domain.TypeIncome
			amount = round2(5000 + rng.Float64()*95000)
		}
		cats := categories[typ]
		txns = append(txns, domain.Transaction{
			ID:          fmt.Sprintf("TX-%04d", i),
			Date:        start.AddDate(0, 0, rng.Intn(365)).Format("2006-01-02"),
			Type:        typ,
			Category:    cats[rng.Intn(len(cats))],
			Amount:      amount,
			Description: fmt.Sprintf("样例流水 %d", i),
			CreatedAt:   created.Format(time.RFC3339),
		})
	}
	return txns
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func create(path string) *os.File {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	return f
}

func writeJSONFile(path string, v any) {
	f := create(path)
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		panic(err)
	}
}

func findTestdataDir() string {
	for _, c := range []string{"testdata", "../testdata", "."} {
		if info, err := os.Stat(filepath.Join(c, "generate")); err == nil && info.IsDir() {
			return c
		}
	}
	return "testdata"
}
