package export

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/duizhang/settlement/internal/currency"
	"github.com/duizhang/settlement/internal/domain"
	"github.com/duizhang/settlement/internal/reconciliation"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

const (
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// billColumns is the column order of the bill table.
var billColumns = []string{
	"序号", "计费周期", "游戏名称", "流水", "充值金额", "测试费金额", "代金券金额",
	"退款", "实际结算金额", "渠道费", "税费", "结算比例", "结算金额",
}

// Bill is a settlement bill ready to render: records ordered by serial
// number with their totals.
type Bill struct {
	Config    domain.BillConfig
	Records   []domain.SettlementRecord
	Summary   domain.SettlementSummary
	Uppercase string
}

// NewBill orders records by serial number and totals them. An empty title
// falls back to domain.DefaultBillTitle.
func NewBill(records []domain.SettlementRecord, cfg domain.BillConfig) *Bill {
	sorted := append([]domain.SettlementRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SerialNo < sorted[j].SerialNo })

	if strings.TrimSpace(cfg.Title) == "" {
		cfg.Title = domain.DefaultBillTitle
	}
	summary := reconciliation.Summarize(sorted)
	return &Bill{
		Config:    cfg,
		Records:   sorted,
		Summary:   summary,
		Uppercase: currency.ToChineseUppercase(summary.TotalSettlementAmount),
	}
}

// Filename returns the download name of the bill, title_period.ext, using
// today's date when no period is configured.
func (b *Bill) Filename(format string) string {
	period := b.Config.Period
	if period == "" {
		period = time.Now().Format("2006-01-02")
	}
	return fmt.Sprintf("%s_%s.%s", b.Config.Title, period, format)
}

// row renders record r as the bill's text cells.
func row(r domain.SettlementRecord) []string {
	return []string{
		fmt.Sprint(r.SerialNo),
		r.BillingPeriod,
		r.GameName,
		currency.FormatAmount(r.Flow),
		currency.FormatAmount(r.RechargeAmount),
		currency.FormatAmount(r.TestFeeAmount),
		currency.FormatAmount(r.VoucherAmount),
		currency.FormatAmount(r.Refund),
		currency.FormatAmount(r.ActualSettlementAmount),
		currency.FormatAmount(r.ChannelFee),
		currency.FormatAmount(r.TaxFee),
		fmt.Sprintf("%g%%", r.SettlementRatio),
		currency.FormatAmount(r.SettlementAmount),
	}
}

// totalsRow mirrors row for the summary line. Refund is not totalled on
// the bill.
func totalsRow(s domain.SettlementSummary) []string {
	return []string{
		"合计", "", "",
		currency.FormatAmount(s.TotalFlow),
		currency.FormatAmount(s.TotalRechargeAmount),
		currency.FormatAmount(s.TotalTestFeeAmount),
		currency.FormatAmount(s.TotalVoucherAmount),
		"-",
		currency.FormatAmount(s.TotalActualSettlementAmount),
		"", "", "",
		currency.FormatAmount(s.TotalSettlementAmount),
	}
}

type party struct {
	label  string
	fields [][2]string
}

// parties lists the non-empty counterparty details of cfg.
func parties(cfg domain.BillConfig) []party {
	build := func(label string, kv ...[2]string) party {
		p := party{label: label}
		for _, f := range kv {
			if f[1] != "" {
				p.fields = append(p.fields, f)
			}
		}
		return p
	}
	var out []party
	payer := build("付款方",
		[2]string{"公司名称", cfg.PayerCompany},
		[2]string{"联系人", cfg.PayerContact},
		[2]string{"电话", cfg.PayerPhone},
		[2]string{"地址", cfg.PayerAddress},
		[2]string{"开户行", cfg.PayerBank},
		[2]string{"账号", cfg.PayerAccount},
		[2]string{"税号", cfg.PayerTaxID},
		[2]string{"发票抬头", cfg.PayerInvoiceTitle},
		[2]string{"开票项目", cfg.PayerInvoiceItem},
		[2]string{"开票地址", cfg.PayerBillingAddress},
		[2]string{"开票电话", cfg.PayerBillingPhone},
	)
	if len(payer.fields) > 0 {
		out = append(out, payer)
	}
	receiver := build("收款方",
		[2]string{"公司名称", cfg.ReceiverCompany},
		[2]string{"联系人", cfg.ReceiverContact},
		[2]string{"电话", cfg.ReceiverPhone},
		[2]string{"地址", cfg.ReceiverAddress},
		[2]string{"开户行", cfg.ReceiverBank},
		[2]string{"账号", cfg.ReceiverAccount},
	)
	if len(receiver.fields) > 0 {
		out = append(out, receiver)
	}
	return out
}
