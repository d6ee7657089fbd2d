package domain

type RevenueChannel string

const (
	ChannelCash    RevenueChannel = "cash"
	ChannelCard    RevenueChannel = "card"
	ChannelPartner RevenueChannel = "partner"
)

type CashBody struct {
	Amount string `json:"amount,omitempty"`
	Type   string `json:"type,omitempty"`
}

type CashlessBody struct {
	Amount string `json:"amount,omitempty"`
	Type   string `json:"type,omitempty"`
	Issuer string `json:"issuer,omitempty"`
	AuthID string `json:"auth_id,omitempty"`
	RRN    string `json:"rrn,omitempty"`
	PAN    string `json:"pan,omitempty"`
}

// Amounts stay as the feed's decimal strings here; parsing them into exact
// decimals is the revenue aggregator's job.
type Payment struct {
	Approved       bool          `json:"approved"`
	Name           string        `json:"name,omitempty"`
	CashAmount     string        `json:"cash_amount,omitempty"`
	CashBody       *CashBody     `json:"cash_body,omitempty"`
	CashlessAmount string        `json:"cashless_amount,omitempty"`
	CashlessBody   *CashlessBody `json:"cashless_body,omitempty"`
}

type TransactionRecord struct {
	ID          int64   `json:"id"`
	Cancelled   bool    `json:"cancelled"`
	Currency    string  `json:"currency,omitempty"`
	UnitID      int64   `json:"unit_id,omitempty"`
	TerminalID  string  `json:"terminal_id,omitempty"`
	ProductName string  `json:"product_name,omitempty"`
	Payment     Payment `json:"payment"`
}
