package reconciliation

import (
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/duizhang/settlement/internal/domain"
)

func TestReconcile(t *testing.T) {
	tests := []struct {
		name       string
		rec        domain.SettlementRecord
		actual     float64
		settlement float64
	}{
		{
			name:       "voucher deduction",
			rec:        domain.SettlementRecord{RechargeAmount: 16434.37, VoucherAmount: 848.88, SettlementRatio: 25},
			actual:     15585.49,
			settlement: 3896.3725,
		},
		{
			name:       "deductions exceed recharge",
			rec:        domain.SettlementRecord{RechargeAmount: 100, TestFeeAmount: 50, VoucherAmount: 60, SettlementRatio: 25},
			actual:     0,
			settlement: 0,
		},
		{
			name:       "ratio above 100 is not clamped",
			rec:        domain.SettlementRecord{RechargeAmount: 100, SettlementRatio: 150},
			actual:     100,
			settlement: 150,
		},
		{
			name:       "all deductions",
			rec:        domain.SettlementRecord{RechargeAmount: 1000, TestFeeAmount: 10, VoucherAmount: 20, Refund: 70, SettlementRatio: 50},
			actual:     900,
			settlement: 450,
		},
		{
			name: "zero record",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.rec)
			assert.Equal(t, tt.actual, got.ActualSettlementAmount)
			assert.Equal(t, tt.settlement, got.SettlementAmount)
		})
	}
}

func TestReconcileIgnoresStaleDerivedFields(t *testing.T) {
	rec := domain.SettlementRecord{
		RechargeAmount:         200,
		SettlementRatio:        10,
		ActualSettlementAmount: 99999,
		SettlementAmount:       -5,
	}
	got := Reconcile(rec)
	assert.Equal(t, 200.0, got.ActualSettlementAmount)
	assert.Equal(t, 20.0, got.SettlementAmount)
	assert.Equal(t, 99999.0, rec.ActualSettlementAmount)
}

func TestReconcileIsIdempotent(t *testing.T) {
	rec := domain.SettlementRecord{
		RechargeAmount: 16434.37, TestFeeAmount: 12.5, VoucherAmount: 848.88, Refund: 3, SettlementRatio: 37.5,
	}
	once := Reconcile(rec)
	twice := Reconcile(once)
	assert.Equal(t, once, twice)
}

func TestReconcileAll(t *testing.T) {
	in := []domain.SettlementRecord{
		{ID: "a", RechargeAmount: 100, SettlementRatio: 25},
		{ID: "b", RechargeAmount: 40, SettlementRatio: 50},
	}
	out := ReconcileAll(in)
	assert.Equal(t, 25.0, out[0].SettlementAmount)
	assert.Equal(t, 20.0, out[1].SettlementAmount)
	assert.Equal(t, 0.0, in[0].SettlementAmount)
}

func TestReconcileNonFiniteInputs(t *testing.T) {
	rec := domain.SettlementRecord{
		Flow:            math.NaN(),
		RechargeAmount:  100,
		TestFeeAmount:   math.Inf(1),
		Refund:          math.Inf(-1),
		SettlementRatio: math.Inf(1),
	}
	got := Reconcile(rec)
	assert.Equal(t, 0.0, got.Flow)
	assert.Equal(t, 0.0, got.TestFeeAmount)
	assert.Equal(t, 0.0, got.Refund)
	assert.Equal(t, 0.0, got.SettlementRatio)
	assert.Equal(t, 100.0, got.ActualSettlementAmount)
	assert.Equal(t, 0.0, got.SettlementAmount)

	assert.Equal(t, 0.0, ComputeActualSettlement(domain.SettlementRecord{RechargeAmount: math.NaN()}))
}
