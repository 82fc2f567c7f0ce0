package domain

// SettlementRecord is one row of a settlement bill for a single game in a
// billing period. ActualSettlementAmount and SettlementAmount are derived
// from the other amounts and must be recomputed whenever an input changes.
type SettlementRecord struct {
	ID                     string  `json:"id"`
	SerialNo               int     `json:"serialNo"`
	BillingPeriod          string  `json:"billingPeriod"`
	GameName               string  `json:"gameName"`
	Flow                   float64 `json:"flow"`
	RechargeAmount         float64 `json:"rechargeAmount"`
	TestFeeAmount          float64 `json:"testFeeAmount"`
	VoucherAmount          float64 `json:"voucherAmount"`
	Refund                 float64 `json:"refund"`
	ActualSettlementAmount float64 `json:"actualSettlementAmount"`
	ChannelFee             float64 `json:"channelFee"`
	TaxFee                 float64 `json:"taxFee"`
	SettlementRatio        float64 `json:"settlementRatio"`
	SettlementAmount       float64 `json:"settlementAmount"`
	CreatedAt              string  `json:"createdAt"`
}

// SettlementSummary holds the per-field totals of a set of records.
type SettlementSummary struct {
	TotalFlow                   float64 `json:"totalFlow"`
	TotalRechargeAmount         float64 `json:"totalRechargeAmount"`
	TotalTestFeeAmount          float64 `json:"totalTestFeeAmount"`
	TotalVoucherAmount          float64 `json:"totalVoucherAmount"`
	TotalRefund                 float64 `json:"totalRefund"`
	TotalActualSettlementAmount float64 `json:"totalActualSettlementAmount"`
	TotalSettlementAmount       float64 `json:"totalSettlementAmount"`
}

// DefaultSettlementRatio is applied by importers when a row carries no ratio.
const DefaultSettlementRatio = 25.0

// UnclassifiedPeriod labels records without a billing period in history views.
const UnclassifiedPeriod = "未分类"
