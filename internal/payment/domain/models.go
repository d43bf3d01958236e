package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Payment is a manually recorded receipt. Rows are never updated.
type Payment struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID    `gorm:"not null;index" json:"user_id"`
	AmountTnd decimal.Decimal `gorm:"column:amount_tnd;type:numeric(12,3);not null" json:"amount_tnd"`
	Month     string          `gorm:"type:varchar(7);not null;index" json:"month"`
	Note      *string         `json:"note,omitempty"`
	PaidAt    time.Time       `gorm:"not null" json:"paid_at"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
}

func (Payment) TableName() string { return "payments" }

// PaymentView joins the payer profile for admin listings.
type PaymentView struct {
	Payment
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

type MonthlyRevenue struct {
	Month string `json:"month"`
	Total Amount `json:"total"`
}

// AmountScale is the number of decimal places a dinar amount carries.
const AmountScale = 3

// Amount renders a computed dinar total as a fixed three-decimal string.
type Amount struct {
	decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d.Round(AmountScale)}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.StringFixed(AmountScale) + `"`), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.Decimal.UnmarshalJSON(data)
}

const (
	NoteInitialPayment    = "Initial payment"
	NoteActivationPayment = "Activation payment"
)

type Source string

const (
	SourceManual     Source = "manual"
	SourceActivation Source = "activation"
	SourceCreateUser Source = "create_user"
)
