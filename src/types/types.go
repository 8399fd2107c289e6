package types

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

type TicketStatus string

const (
	TICKET_PENDING TicketStatus = "pending"
	TICKET_PAID    TicketStatus = "paid"
	TICKET_USED    TicketStatus = "used"
)

type EntryTier string

const (
	TIER_GENERAL EntryTier = "general"
	TIER_VIP     EntryTier = "vip"
	TIER_PREMIUM EntryTier = "premium"
)

type CreatePurchaseRequestBody struct {
	Name       string `json:"name" binding:"required,min=2,max=100"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone" binding:"required,phonenumber"`
	NationalID string `json:"national_id" binding:"required,nationalid"`
	Quantity   uint   `json:"quantity" binding:"required,min=1,max=10"`
	Tier       string `json:"tier" binding:"required,oneof=general vip premium"`
}

type CheckTicketRequestBody struct {
	TicketData string `json:"ticket_data" binding:"required"`
}

type SearchTicketRequestBody struct {
	Email      string `json:"email" binding:"omitempty,email"`
	NationalID string `json:"national_id" binding:"omitempty,nationalid"`
}

type ResendTicketRequestBody struct {
	TicketID string `json:"ticket_id" binding:"required,uuid"`
	Email    string `json:"email" binding:"required,email"`
}

type SetStockRequestBody struct {
	Total     uint  `json:"total" binding:"required"`
	Remaining uint  `json:"remaining"`
	UnitPrice int64 `json:"unit_price" binding:"omitempty,gt=0"`
}

type LoginRequestBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TicketURIParams struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}
