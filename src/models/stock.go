package models

import (
	"ticketflow/src/types"

	"github.com/shopspring/decimal"
)

// EventStock is the single row holding the event's seat pool. Remaining
// only moves through server-side arithmetic updates, never through a
// read-modify-write in application code.
type EventStock struct {
	ID             uint            `gorm:"primarykey" json:"id"`
	Total          uint            `gorm:"not null" json:"total"`
	Remaining      uint            `gorm:"not null" json:"remaining"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	FeeRatePercent uint            `gorm:"not null" json:"fee_rate_percent"`

	types.Timestamps
}
