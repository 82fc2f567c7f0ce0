package domain

import "time"

type FindingRule string

const (
	RuleNegativeActualSettlement  FindingRule = "negative_actual_settlement"
	RuleSettlementExceedsRecharge FindingRule = "settlement_exceeds_recharge"
	RuleRatioAboveLimit           FindingRule = "ratio_above_limit"
	RuleDuplicateGamePeriod       FindingRule = "duplicate_game_period"
	RuleRechargeWithoutFlow       FindingRule = "recharge_without_flow"
	RuleNegativeInputAmount       FindingRule = "negative_input_amount"
	RuleRatioBelowZero            FindingRule = "ratio_below_zero"
)

type Severity string

const (
	// SeverityError marks a record that must be fixed before export.
	SeverityError Severity = "error"
	// SeverityWarning marks a record that should be reviewed.
	SeverityWarning Severity = "warning"
)

// Finding is one anomaly reported by the validator against a record.
type Finding struct {
	Severity   Severity    `json:"severity"`
	Rule       FindingRule `json:"rule"`
	RecordID   string      `json:"recordId"`
	RecordName string      `json:"recordName"`
	RelatedIDs []string    `json:"relatedIds,omitempty"`
	Message    string      `json:"message"`
}

// ValidationRun is a persisted validator pass over the stored records.
type ValidationRun struct {
	RecordCount int       `json:"recordCount"`
	Errors      int       `json:"errors"`
	Warnings    int       `json:"warnings"`
	Findings    []Finding `json:"findings"`
	RanAt       time.Time `json:"ranAt"`
}
