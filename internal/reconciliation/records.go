package reconciliation

import (
	"sort"
	"strings"

	"github.com/duizhang/settlement/internal/domain"
)

// RecordQuery narrows a record list. An empty Period or "all" keeps every
// period; Search is a case-insensitive substring of the game name.
type RecordQuery struct {
	Period string
	Search string
}

const AllPeriods = "all"

func FilterRecords(records []domain.SettlementRecord, q RecordQuery) []domain.SettlementRecord {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]domain.SettlementRecord, 0, len(records))
	for _, r := range records {
		if q.Period != "" && q.Period != AllPeriods && r.BillingPeriod != q.Period {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(r.GameName), search) {
			continue
		}
		out = append(out, r)
	}
	return out
}

type SortField string

const (
	SortBySerialNo         SortField = "serialNo"
	SortByBillingPeriod    SortField = "billingPeriod"
	SortByGameName         SortField = "gameName"
	SortByFlow             SortField = "flow"
	SortByRechargeAmount   SortField = "rechargeAmount"
	SortBySettlementAmount SortField = "settlementAmount"
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// SortRecords returns a stably sorted copy. Unknown fields fall back to
// serialNo and unknown orders to ascending.
func SortRecords(records []domain.SettlementRecord, field SortField, order SortOrder) []domain.SettlementRecord {
	out := append([]domain.SettlementRecord(nil), records...)

	var less func(a, b domain.SettlementRecord) bool
	switch field {
	case SortByBillingPeriod:
		less = func(a, b domain.SettlementRecord) bool { return a.BillingPeriod < b.BillingPeriod }
	case SortByGameName:
		less = func(a, b domain.SettlementRecord) bool { return a.GameName < b.GameName }
	case SortByFlow:
		less = func(a, b domain.SettlementRecord) bool { return a.Flow < b.Flow }
	case SortByRechargeAmount:
		less = func(a, b domain.SettlementRecord) bool { return a.RechargeAmount < b.RechargeAmount }
	case SortBySettlementAmount:
		less = func(a, b domain.SettlementRecord) bool { return a.SettlementAmount < b.SettlementAmount }
	default:
		less = func(a, b domain.SettlementRecord) bool { return a.SerialNo < b.SerialNo }
	}

	sort.SliceStable(out, func(i, j int) bool {
		if order == Desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

// RecordPatch holds the fields a batch edit may overwrite. Nil leaves the
// field unchanged.
type RecordPatch struct {
	SettlementRatio *float64 `json:"settlementRatio,omitempty"`
	ChannelFee      *float64 `json:"channelFee,omitempty"`
	TaxFee          *float64 `json:"taxFee,omitempty"`
}

// Empty reports whether the patch would change nothing.
func (p RecordPatch) Empty() bool {
	return p.SettlementRatio == nil && p.ChannelFee == nil && p.TaxFee == nil
}

// BatchUpdate applies patch to every record whose id is in ids and returns
// the reconciled copies of the changed records only.
func BatchUpdate(records []domain.SettlementRecord, ids []string, patch RecordPatch) []domain.SettlementRecord {
	selected := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		selected[id] = struct{}{}
	}

	var out []domain.SettlementRecord
	for _, r := range records {
		if _, ok := selected[r.ID]; !ok {
			continue
		}
		if patch.SettlementRatio != nil {
			r.SettlementRatio = *patch.SettlementRatio
		}
		if patch.ChannelFee != nil {
			r.ChannelFee = *patch.ChannelFee
		}
		if patch.TaxFee != nil {
			r.TaxFee = *patch.TaxFee
		}
		out = append(out, Reconcile(r))
	}
	return out
}
