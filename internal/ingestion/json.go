package ingestion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/duizhang/settlement/internal/domain"
)

// lenientFloat accepts a JSON number, a numeric string, or anything else as
// zero.
type lenientFloat float64

func (f *lenientFloat) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = lenientFloat(number(n.String()))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = lenientFloat(number(s))
		return nil
	}
	*f = 0
	return nil
}

// lenientString accepts a JSON string or renders a number as text.
type lenientString string

func (s *lenientString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = lenientString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*s = lenientString(n.String())
		return nil
	}
	*s = ""
	return nil
}

type jsonSettlement struct {
	ID              lenientString `json:"id"`
	SerialNo        lenientFloat  `json:"serialNo"`
	BillingPeriod   lenientString `json:"billingPeriod"`
	GameName        lenientString `json:"gameName"`
	Flow            lenientFloat  `json:"flow"`
	RechargeAmount  lenientFloat  `json:"rechargeAmount"`
	TestFeeAmount   lenientFloat  `json:"testFeeAmount"`
	VoucherAmount   lenientFloat  `json:"voucherAmount"`
	Refund          lenientFloat  `json:"refund"`
	ChannelFee      lenientFloat  `json:"channelFee"`
	TaxFee          lenientFloat  `json:"taxFee"`
	SettlementRatio *lenientFloat `json:"settlementRatio"`
	CreatedAt       lenientString `json:"createdAt"`
}

func (j jsonSettlement) record() domain.SettlementRecord {
	rec := domain.SettlementRecord{
		ID:              strings.TrimSpace(string(j.ID)),
		SerialNo:        int(j.SerialNo),
		BillingPeriod:   strings.TrimSpace(string(j.BillingPeriod)),
		GameName:        strings.TrimSpace(string(j.GameName)),
		Flow:            float64(j.Flow),
		RechargeAmount:  float64(j.RechargeAmount),
		TestFeeAmount:   float64(j.TestFeeAmount),
		VoucherAmount:   float64(j.VoucherAmount),
		Refund:          float64(j.Refund),
		ChannelFee:      float64(j.ChannelFee),
		TaxFee:          float64(j.TaxFee),
		SettlementRatio: domain.DefaultSettlementRatio,
		CreatedAt:       string(j.CreatedAt),
	}
	if j.SettlementRatio != nil {
		rec.SettlementRatio = float64(*j.SettlementRatio)
	}
	return rec
}

type jsonTransaction struct {
	ID          lenientString `json:"id"`
	Date        lenientString `json:"date"`
	Type        lenientString `json:"type"`
	Category    lenientString `json:"category"`
	Amount      lenientFloat  `json:"amount"`
	Description lenientString `json:"description"`
	CreatedAt   lenientString `json:"createdAt"`
}

func (j jsonTransaction) transaction() domain.Transaction {
	return domain.Transaction{
		ID:          string(j.ID),
		Date:        string(j.Date),
		Type:        parseType(string(j.Type)),
		Category:    string(j.Category),
		Amount:      abs(float64(j.Amount)),
		Description: string(j.Description),
		CreatedAt:   string(j.CreatedAt),
	}
}

// Backup is the JSON document written by the backup export and accepted by
// restore. Either list may be absent.
type Backup struct {
	Version           string                    `json:"version"`
	ExportedAt        string                    `json:"exportedAt,omitempty"`
	SettlementRecords []domain.SettlementRecord `json:"settlementRecords,omitempty"`
	Transactions      []domain.Transaction      `json:"transactions,omitempty"`
}

// ParseBackup decodes a backup document leniently: numeric fields may be
// strings and malformed numbers become zero. A bare JSON array is read as a
// list of settlement records. Records without a game name are dropped.
func ParseBackup(data []byte) (*Backup, error) {
	data = bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\ufeff")))
	if len(data) == 0 {
		return nil, ErrNoRecords
	}

	var raw struct {
		Version           lenientString     `json:"version"`
		ExportedAt        lenientString     `json:"exportedAt"`
		SettlementRecords []jsonSettlement  `json:"settlementRecords"`
		Transactions      []jsonTransaction `json:"transactions"`
	}
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raw.SettlementRecords); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}

	b := &Backup{Version: string(raw.Version), ExportedAt: string(raw.ExportedAt)}
	for _, js := range raw.SettlementRecords {
		rec := js.record()
		if rec.GameName == "" {
			continue
		}
		b.SettlementRecords = append(b.SettlementRecords, rec)
	}
	for _, jt := range raw.Transactions {
		b.Transactions = append(b.Transactions, jt.transaction())
	}
	return b, nil
}

// ParseTransactionsJSON reads either a bare array of transactions or a
// backup document.
func ParseTransactionsJSON(data []byte) ([]domain.Transaction, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var raw []jsonTransaction
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode transactions: %w", err)
		}
		txns := make([]domain.Transaction, 0, len(raw))
		for _, jt := range raw {
			txns = append(txns, jt.transaction())
		}
		if len(txns) == 0 {
			return nil, ErrNoRecords
		}
		return txns, nil
	}

	b, err := ParseBackup(data)
	if err != nil {
		return nil, err
	}
	if len(b.Transactions) == 0 {
		return nil, ErrNoRecords
	}
	return b.Transactions, nil
}

// ParseSettlementsJSON reads settlement records from a backup document or a
// bare array.
func ParseSettlementsJSON(data []byte) ([]domain.SettlementRecord, error) {
	b, err := ParseBackup(data)
	if err != nil {
		return nil, err
	}
	if len(b.SettlementRecords) == 0 {
		return nil, ErrNoRecords
	}
	return b.SettlementRecords, nil
}
