package domain

import "time"

// BillConfig carries the header and counterparty details printed on a
// settlement bill.
type BillConfig struct {
	Title  string `json:"title" yaml:"title"`
	Period string `json:"period" yaml:"period"`

	PayerCompany        string `json:"payerCompany" yaml:"payer_company"`
	PayerContact        string `json:"payerContact" yaml:"payer_contact"`
	PayerPhone          string `json:"payerPhone" yaml:"payer_phone"`
	PayerAddress        string `json:"payerAddress" yaml:"payer_address"`
	PayerBank           string `json:"payerBank" yaml:"payer_bank"`
	PayerAccount        string `json:"payerAccount" yaml:"payer_account"`
	PayerTaxID          string `json:"payerTaxId" yaml:"payer_tax_id"`
	PayerInvoiceTitle   string `json:"payerInvoiceTitle" yaml:"payer_invoice_title"`
	PayerInvoiceItem    string `json:"payerInvoiceItem" yaml:"payer_invoice_item"`
	PayerBillingAddress string `json:"payerBillingAddress" yaml:"payer_billing_address"`
	PayerBillingPhone   string `json:"payerBillingPhone" yaml:"payer_billing_phone"`

	ReceiverCompany string `json:"receiverCompany" yaml:"receiver_company"`
	ReceiverContact string `json:"receiverContact" yaml:"receiver_contact"`
	ReceiverPhone   string `json:"receiverPhone" yaml:"receiver_phone"`
	ReceiverAddress string `json:"receiverAddress" yaml:"receiver_address"`
	ReceiverBank    string `json:"receiverBank" yaml:"receiver_bank"`
	ReceiverAccount string `json:"receiverAccount" yaml:"receiver_account"`
}

// DefaultBillTitle is used when no title has been configured.
const DefaultBillTitle = "结算对账单"

// Merge returns c with every non-empty field of patch applied.
func (c BillConfig) Merge(patch BillConfig) BillConfig {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Title, patch.Title)
	set(&c.Period, patch.Period)
	set(&c.PayerCompany, patch.PayerCompany)
	set(&c.PayerContact, patch.PayerContact)
	set(&c.PayerPhone, patch.PayerPhone)
	set(&c.PayerAddress, patch.PayerAddress)
	set(&c.PayerBank, patch.PayerBank)
	set(&c.PayerAccount, patch.PayerAccount)
	set(&c.PayerTaxID, patch.PayerTaxID)
	set(&c.PayerInvoiceTitle, patch.PayerInvoiceTitle)
	set(&c.PayerInvoiceItem, patch.PayerInvoiceItem)
	set(&c.PayerBillingAddress, patch.PayerBillingAddress)
	set(&c.PayerBillingPhone, patch.PayerBillingPhone)
	set(&c.ReceiverCompany, patch.ReceiverCompany)
	set(&c.ReceiverContact, patch.ReceiverContact)
	set(&c.ReceiverPhone, patch.ReceiverPhone)
	set(&c.ReceiverAddress, patch.ReceiverAddress)
	set(&c.ReceiverBank, patch.ReceiverBank)
	set(&c.ReceiverAccount, patch.ReceiverAccount)
	return c
}

// ImportBatch records one ingested file, keyed by its content hash.
type ImportBatch struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Format      string    `json:"format"`
	FileHash    string    `json:"fileHash"`
	RecordCount int       `json:"recordCount"`
	IngestedAt  time.Time `json:"ingestedAt"`
}
