package reconciliation

import (
	"fmt"

	"github.com/duizhang/settlement/internal/currency"
	"github.com/duizhang/settlement/internal/domain"
)

type gamePeriod struct {
	game   string
	period string
}

// Validate scans records for anomalies. Each record is checked against
// every rule independently; findings follow input order and, within a
// record, rule order. A clean set yields an empty, non-nil slice.
//
// Duplicate detection compares gameName and billingPeriod by exact string
// equality.
func Validate(records []domain.SettlementRecord) []domain.Finding {
	findings := []domain.Finding{}

	groups := make(map[gamePeriod][]string, len(records))
	for _, r := range records {
		k := gamePeriod{r.GameName, r.BillingPeriod}
		groups[k] = append(groups[k], r.ID)
	}

	for _, r := range records {
		add := func(sev domain.Severity, rule domain.FindingRule, msg string) {
			findings = append(findings, domain.Finding{
				Severity:   sev,
				Rule:       rule,
				RecordID:   r.ID,
				RecordName: r.GameName,
				Message:    msg,
			})
		}

		if r.ActualSettlementAmount < 0 {
			add(domain.SeverityError, domain.RuleNegativeActualSettlement,
				fmt.Sprintf("actual settlement amount is negative (%s)", currency.FormatAmount(r.ActualSettlementAmount)))
		}
		if r.SettlementAmount > r.RechargeAmount {
			add(domain.SeverityWarning, domain.RuleSettlementExceedsRecharge,
				fmt.Sprintf("settlement amount (%s) exceeds recharge amount (%s)",
					currency.FormatAmount(r.SettlementAmount), currency.FormatAmount(r.RechargeAmount)))
		}
		if r.SettlementRatio > 100 {
			add(domain.SeverityError, domain.RuleRatioAboveLimit,
				fmt.Sprintf("settlement ratio %g%% exceeds 100%%", r.SettlementRatio))
		}
		if ids := groups[gamePeriod{r.GameName, r.BillingPeriod}]; len(ids) > 1 {
			findings = append(findings, domain.Finding{
				Severity:   domain.SeverityWarning,
				Rule:       domain.RuleDuplicateGamePeriod,
				RecordID:   r.ID,
				RecordName: r.GameName,
				RelatedIDs: append([]string(nil), ids...),
				Message:    fmt.Sprintf("%d records share game %q in period %q", len(ids), r.GameName, r.BillingPeriod),
			})
		}
		if r.Flow == 0 && r.RechargeAmount > 0 {
			add(domain.SeverityWarning, domain.RuleRechargeWithoutFlow,
				"flow is 0 but recharge amount is not")
		}
		if field, ok := negativeInput(r); ok {
			add(domain.SeverityWarning, domain.RuleNegativeInputAmount,
				fmt.Sprintf("%s is negative", field))
		}
		if r.SettlementRatio < 0 {
			add(domain.SeverityError, domain.RuleRatioBelowZero,
				fmt.Sprintf("settlement ratio %g%% is below 0", r.SettlementRatio))
		}
	}

	return findings
}

// negativeInput reports the first negative raw amount of r.
func negativeInput(r domain.SettlementRecord) (string, bool) {
	switch {
	case r.Flow < 0:
		return "flow", true
	case r.RechargeAmount < 0:
		return "rechargeAmount", true
	case r.TestFeeAmount < 0:
		return "testFeeAmount", true
	case r.VoucherAmount < 0:
		return "voucherAmount", true
	case r.Refund < 0:
		return "refund", true
	}
	return "", false
}

// CountBySeverity returns the number of error and warning findings.
func CountBySeverity(findings []domain.Finding) (errors, warnings int) {
	for _, f := range findings {
		switch f.Severity {
		case domain.SeverityError:
			errors++
		case domain.SeverityWarning:
			warnings++
		}
	}
	return errors, warnings
}

// HasErrors reports whether any finding must be fixed before export.
func HasErrors(findings []domain.Finding) bool {
	e, _ := CountBySeverity(findings)
	return e > 0
}
