package reconciliation

import (
	"math"

	"github.com/duizhang/settlement/internal/domain"
)

// finite maps NaN and ±Inf to 0, like a missing amount.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ComputeActualSettlement returns the recharge amount net of test fees,
// vouchers and refunds. The result is floored at zero: deductions never
// produce a negative actual settlement. Non-finite inputs count as 0.
func ComputeActualSettlement(r domain.SettlementRecord) float64 {
	return math.Max(0, finite(finite(r.RechargeAmount)-finite(r.TestFeeAmount)-finite(r.VoucherAmount)-finite(r.Refund)))
}

// ComputeSettlement applies the settlement ratio (a percentage) to the
// actual settlement. Ratios above 100 are not clamped; the validator
// reports them.
func ComputeSettlement(r domain.SettlementRecord) float64 {
	return finite(ComputeActualSettlement(r) * (finite(r.SettlementRatio) / 100))
}

// Sanitize returns r with every non-finite amount and ratio set to 0.
func Sanitize(r domain.SettlementRecord) domain.SettlementRecord {
	for _, v := range []*float64{
		&r.Flow, &r.RechargeAmount, &r.TestFeeAmount, &r.VoucherAmount, &r.Refund,
		&r.ChannelFee, &r.TaxFee, &r.SettlementRatio,
	} {
		*v = finite(*v)
	}
	return r
}

// Reconcile returns r with non-finite inputs zeroed and both derived
// amounts recomputed. Call it whenever a settlement-affecting field
// changes.
func Reconcile(r domain.SettlementRecord) domain.SettlementRecord {
	r = Sanitize(r)
	r.ActualSettlementAmount = ComputeActualSettlement(r)
	r.SettlementAmount = ComputeSettlement(r)
	return r
}

// ReconcileAll reconciles every record into a new slice.
func ReconcileAll(records []domain.SettlementRecord) []domain.SettlementRecord {
	out := make([]domain.SettlementRecord, len(records))
	for i, r := range records {
		out[i] = Reconcile(r)
	}
	return out
}
