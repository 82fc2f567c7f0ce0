package reconciliation

import (
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/duizhang/settlement/internal/domain"
)

func rulesOf(findings []domain.Finding) []domain.FindingRule {
	out := make([]domain.FindingRule, len(findings))
	for i, f := range findings {
		out[i] = f.Rule
	}
	return out
}

func TestValidateEmpty(t *testing.T) {
	findings := Validate(nil)
	assert.False(t, findings == nil)
	assert.Equal(t, 0, len(findings))
}

func TestValidateCleanRecords(t *testing.T) {
	records := ReconcileAll([]domain.SettlementRecord{
		{ID: "a", GameName: "X", BillingPeriod: "2025年12月", Flow: 100, RechargeAmount: 100, SettlementRatio: 25},
		{ID: "b", GameName: "X", BillingPeriod: "2025年11月", Flow: 100, RechargeAmount: 100, SettlementRatio: 25},
	})
	assert.Equal(t, 0, len(Validate(records)))
}

func TestValidateDuplicates(t *testing.T) {
	records := ReconcileAll([]domain.SettlementRecord{
		{ID: "a", GameName: "X", BillingPeriod: "2025年12月", Flow: 100, RechargeAmount: 100, SettlementRatio: 25},
		{ID: "b", GameName: "Y", BillingPeriod: "2025年12月", Flow: 100, RechargeAmount: 100, SettlementRatio: 25},
		{ID: "c", GameName: "X", BillingPeriod: "2025年12月", Flow: 100, RechargeAmount: 100, SettlementRatio: 25},
		{ID: "d", GameName: "X ", BillingPeriod: "2025年12月", Flow: 100, RechargeAmount: 100, SettlementRatio: 25},
	})
	findings := Validate(records)
	assert.Equal(t, 2, len(findings))
	for i, id := range []string{"a", "c"} {
		f := findings[i]
		assert.Equal(t, domain.SeverityWarning, f.Severity)
		assert.Equal(t, domain.RuleDuplicateGamePeriod, f.Rule)
		assert.Equal(t, id, f.RecordID)
		assert.Equal(t, []string{"a", "c"}, f.RelatedIDs)
	}
}

func TestValidateRatioAboveLimit(t *testing.T) {
	records := ReconcileAll([]domain.SettlementRecord{
		{ID: "a", GameName: "X", Flow: 100, RechargeAmount: 100, SettlementRatio: 150},
	})
	findings := Validate(records)
	assert.Equal(t, []domain.FindingRule{domain.RuleSettlementExceedsRecharge, domain.RuleRatioAboveLimit}, rulesOf(findings))
	assert.Equal(t, domain.SeverityError, findings[1].Severity)
}

func TestValidateRuleOrderWithinRecord(t *testing.T) {
	// Stored derived amounts are checked as given.
	rec := domain.SettlementRecord{
		ID:                     "a",
		GameName:               "X",
		Flow:                   0,
		RechargeAmount:         50,
		Refund:                 -5,
		ActualSettlementAmount: -1,
		SettlementAmount:       80,
		SettlementRatio:        -10,
	}
	findings := Validate([]domain.SettlementRecord{rec})
	assert.Equal(t, []domain.FindingRule{
		domain.RuleNegativeActualSettlement,
		domain.RuleSettlementExceedsRecharge,
		domain.RuleRechargeWithoutFlow,
		domain.RuleNegativeInputAmount,
		domain.RuleRatioBelowZero,
	}, rulesOf(findings))

	errs, warns := CountBySeverity(findings)
	assert.Equal(t, 2, errs)
	assert.Equal(t, 3, warns)
	assert.True(t, HasErrors(findings))
	assert.Contains(t, findings[3].Message, "refund")
}

func TestValidateFollowsInputOrder(t *testing.T) {
	records := ReconcileAll([]domain.SettlementRecord{
		{ID: "b", GameName: "B", RechargeAmount: 10, SettlementRatio: 25},
		{ID: "a", GameName: "A", Flow: 10, RechargeAmount: 10, SettlementRatio: 120},
	})
	findings := Validate(records)
	assert.Equal(t, 3, len(findings))
	assert.Equal(t, "b", findings[0].RecordID)
	assert.Equal(t, "a", findings[1].RecordID)
	assert.Equal(t, "A", findings[1].RecordName)
	assert.False(t, HasErrors(findings[:1]))
}

func TestValidateNonFiniteRatio(t *testing.T) {
	raw := []domain.SettlementRecord{{
		ID: "a", GameName: "X", Flow: 100, RechargeAmount: 100,
		SettlementRatio: math.Inf(1), SettlementAmount: math.Inf(1),
	}}
	findings := Validate(raw)
	assert.Equal(t, []domain.FindingRule{domain.RuleSettlementExceedsRecharge, domain.RuleRatioAboveLimit}, rulesOf(findings))

	assert.Equal(t, 0, len(Validate(ReconcileAll(raw))))
}
