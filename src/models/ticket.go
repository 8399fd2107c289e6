package models

import (
	"ticketflow/src/types"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ticket is one purchase transaction covering 1..N admissions. Rows are
// append-only: tickets move pending -> paid -> used and are never deleted.
type Ticket struct {
	ID           uuid.UUID          `gorm:"type:uuid;primarykey" json:"id"`
	HolderName   string             `gorm:"size:255;not null" json:"name"`
	Email        string             `gorm:"size:255;not null;index" json:"email"`
	Phone        string             `gorm:"size:50;not null" json:"phone"`
	NationalID   string             `gorm:"size:50;not null" json:"national_id"`
	Quantity     uint               `gorm:"not null" json:"quantity"`
	Tier         types.EntryTier    `gorm:"size:50;not null;default:'general'" json:"tier"`
	UnitPrice    decimal.Decimal    `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Subtotal     decimal.Decimal    `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	ServiceFee   decimal.Decimal    `gorm:"type:decimal(10,2);not null" json:"service_fee"`
	Total        decimal.Decimal    `gorm:"type:decimal(10,2);not null" json:"total"`
	Status       types.TicketStatus `gorm:"size:50;not null;default:'pending';index" json:"status"`
	Used         bool               `gorm:"not null;default:false" json:"used"`
	PaymentRef   *string            `gorm:"size:255;index" json:"payment_ref,omitempty"`
	WhatsAppLink *string            `gorm:"type:text" json:"whatsapp_link,omitempty"`
	PaidAt       *time.Time         `json:"paid_at,omitempty"`
	UsedAt       *time.Time         `json:"used_at,omitempty"`

	types.Timestamps
}

// SalesSummary aggregates paid tickets (tickets that reached the paid
// state, including those since used at the door).
type SalesSummary struct {
	Count         int64           `json:"count"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

// ComputePricing derives the money fields for a ticket: subtotal is
// unit x quantity, the service fee is feePercent of the subtotal rounded
// to the nearest whole peso, total is their sum.
func ComputePricing(unit decimal.Decimal, quantity uint, feePercent uint) (subtotal, fee, total decimal.Decimal) {
	subtotal = unit.Mul(decimal.NewFromInt(int64(quantity)))
	fee = subtotal.Mul(decimal.NewFromInt(int64(feePercent))).Div(decimal.NewFromInt(100)).Round(0)
	total = subtotal.Add(fee)
	return subtotal, fee, total
}
