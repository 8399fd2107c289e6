package store

import (
	"context"
	"log"
	"ticketflow/src/config"
	"ticketflow/src/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// The event has a single stock row.
const stockRowID uint = 1

type StockStore struct {
	db *gorm.DB
}

func NewStockStore(db *gorm.DB) *StockStore {
	return &StockStore{db: db}
}

// EnsureDefaults seeds the stock row on first boot.
func (s *StockStore) EnsureDefaults(ctx context.Context) (*models.EventStock, error) {
	unit, _ := config.TierPrice("general")
	var stock models.EventStock
	err := s.db.WithContext(ctx).
		Where(&models.EventStock{ID: stockRowID}).
		Attrs(&models.EventStock{
			Total:          config.DefaultStockTotal,
			Remaining:      config.DefaultStockTotal,
			UnitPrice:      unit,
			FeeRatePercent: config.DefaultFeeRatePercent,
		}).
		FirstOrCreate(&stock).
		Error
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

func (s *StockStore) Get(ctx context.Context) (*models.EventStock, error) {
	var stock models.EventStock
	err := s.db.WithContext(ctx).
		Where("id = ?", stockRowID).
		First(&stock).
		Error
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

// Has reports whether the pool currently covers quantity. This is an
// advisory read for purchase-intent feedback, not a reservation: stock is
// only consumed at payment confirmation.
func (s *StockStore) Has(ctx context.Context, quantity uint) (bool, *models.EventStock, error) {
	stock, err := s.Get(ctx)
	if err != nil {
		return false, nil, err
	}
	return stock.Remaining >= quantity, stock, nil
}

// Adjust applies a signed delta to remaining as a single server-side
// arithmetic update bounded by [0, total]. When the full delta cannot be
// applied the value is clamped to the violated bound instead and the
// second return value is false; the caller decides how loudly to alert.
func (s *StockStore) Adjust(ctx context.Context, delta int) (*models.EventStock, bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.EventStock{}).
		Where("id = ?", stockRowID).
		Where("remaining + ? >= 0 AND remaining + ? <= total", delta, delta).
		UpdateColumn("remaining", gorm.Expr("remaining + ?", delta))
	if res.Error != nil {
		return nil, false, res.Error
	}
	applied := res.RowsAffected > 0
	if !applied {
		var clamp *gorm.DB
		if delta < 0 {
			clamp = s.db.WithContext(ctx).
				Model(&models.EventStock{}).
				Where("id = ? AND remaining + ? < 0", stockRowID, delta).
				UpdateColumn("remaining", 0)
		} else {
			clamp = s.db.WithContext(ctx).
				Model(&models.EventStock{}).
				Where("id = ? AND remaining + ? > total", stockRowID, delta).
				UpdateColumn("remaining", gorm.Expr("total"))
		}
		if clamp.Error != nil {
			return nil, false, clamp.Error
		}
		if clamp.RowsAffected > 0 {
			log.Printf("[stock] adjust by %d clamped to bound\n", delta)
		}
	}
	stock, err := s.Get(ctx)
	if err != nil {
		return nil, applied, err
	}
	return stock, applied, nil
}

// Set is the administrative override. Bounds are validated before any
// write: 0 <= remaining <= total.
func (s *StockStore) Set(ctx context.Context, total, remaining uint) (*models.EventStock, error) {
	if remaining > total {
		return nil, ErrStockBounds
	}
	err := s.db.WithContext(ctx).
		Model(&models.EventStock{}).
		Where("id = ?", stockRowID).
		Updates(map[string]any{
			"total":     total,
			"remaining": remaining,
		}).
		Error
	if err != nil {
		return nil, err
	}
	return s.Get(ctx)
}

// SetUnitPrice updates the advertised base price alongside an override.
func (s *StockStore) SetUnitPrice(ctx context.Context, price decimal.Decimal) error {
	return s.db.WithContext(ctx).
		Model(&models.EventStock{}).
		Where("id = ?", stockRowID).
		Update("unit_price", price).
		Error
}
