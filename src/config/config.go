package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

// Single-event deployment defaults. The stock row is seeded with these
// values on first boot; prices are per entry tier in whole pesos.
const (
	DefaultStockTotal     uint = 500
	DefaultFeeRatePercent uint = 10

	MinPurchaseQuantity uint = 1
	MaxPurchaseQuantity uint = 10

	RedisKeyPrefix = "ticketflow"
)

var tierPrices = map[string]int64{
	"general": 25000,
	"vip":     35000,
	"premium": 50000,
}

// TierPrice returns the unit price for an entry tier. The second return
// value is false for unknown tiers.
func TierPrice(tier string) (decimal.Decimal, bool) {
	p, ok := tierPrices[tier]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(p), true
}

func EventName() string {
	name := os.Getenv("EVENT_NAME")
	if name == "" {
		name = "TicketFlow Live"
	}
	return name
}

func BaseURL() string {
	base := os.Getenv("BASE_URL")
	if base == "" {
		base = "http://localhost:3000"
	}
	return base
}
