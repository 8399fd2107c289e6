package store

import (
	"context"
	"errors"
	"strings"
	"ticketflow/src/config"
	"ticketflow/src/models"
	"ticketflow/src/types"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("ticket not found")
	ErrUnknownTier = errors.New("unknown entry tier")
	ErrStockBounds = errors.New("remaining must be between 0 and total")
)

// paidStates are the lifecycle states a ticket passes through once the
// payment settled. Sales aggregates and holder lookups include used
// tickets: being admitted does not unsell a ticket.
var paidStates = []types.TicketStatus{types.TICKET_PAID, types.TICKET_USED}

type TicketStore struct {
	db *gorm.DB
}

func NewTicketStore(db *gorm.DB) *TicketStore {
	return &TicketStore{db: db}
}

// Create allocates a new identity and persists a pending ticket with the
// money fields derived from the entry tier and quantity.
func (s *TicketStore) Create(ctx context.Context, req *types.CreatePurchaseRequestBody, feePercent uint) (*models.Ticket, error) {
	unit, ok := config.TierPrice(req.Tier)
	if !ok {
		return nil, ErrUnknownTier
	}
	subtotal, fee, total := models.ComputePricing(unit, req.Quantity, feePercent)
	ticket := models.Ticket{
		ID:         uuid.New(),
		HolderName: req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		NationalID: req.NationalID,
		Quantity:   req.Quantity,
		Tier:       types.EntryTier(req.Tier),
		UnitPrice:  unit,
		Subtotal:   subtotal,
		ServiceFee: fee,
		Total:      total,
		Status:     types.TICKET_PENDING,
		Used:       false,
	}
	if err := s.db.WithContext(ctx).Create(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (s *TicketStore) Get(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&ticket).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (s *TicketStore) List(ctx context.Context) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.db.WithContext(ctx).
		Order("created_at desc").
		Find(&tickets).
		Error
	return tickets, err
}

// FindLatestByIdentity returns the most recent paid ticket matching the
// holder's email (case-insensitive) or national ID.
func (s *TicketStore) FindLatestByIdentity(ctx context.Context, email, nationalID string) (*models.Ticket, error) {
	q := s.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("status IN ?", paidStates)
	switch {
	case email != "" && nationalID != "":
		q = q.Where("LOWER(email) = ? OR national_id = ?", strings.ToLower(strings.TrimSpace(email)), strings.TrimSpace(nationalID))
	case email != "":
		q = q.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
	case nationalID != "":
		q = q.Where("national_id = ?", strings.TrimSpace(nationalID))
	default:
		return nil, ErrNotFound
	}
	var ticket models.Ticket
	err := q.Order("created_at desc").First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// MarkPaid performs the pending->paid transition as a compare-and-set on
// the current state: the UPDATE is guarded by status='pending', so of any
// number of racing confirmations exactly one observes RowsAffected > 0.
// The returned bool reports whether this call made the transition.
func (s *TicketStore) MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string) (*models.Ticket, bool, error) {
	now := time.Now()
	res := s.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND status = ?", id, types.TICKET_PENDING).
		Updates(map[string]any{
			"status":      types.TICKET_PAID,
			"payment_ref": paymentRef,
			"paid_at":     now,
		})
	if res.Error != nil {
		return nil, false, res.Error
	}
	transitioned := res.RowsAffected > 0
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return ticket, transitioned, nil
}

// Settlement is the combined outcome of a payment confirmation write:
// the paid transition and the stock decrement, committed together.
type Settlement struct {
	Ticket       *models.Ticket
	Stock        *models.EventStock
	Transitioned bool
	StockApplied bool
}

// MarkPaidAndDecrement runs the pending->paid compare-and-set and the
// stock decrement in one transaction: a persistence failure rolls back
// both, the ticket stays pending and a retried confirmation repeats the
// whole settlement. Losing the CAS skips the decrement, the winner
// already performed it.
func (s *TicketStore) MarkPaidAndDecrement(ctx context.Context, id uuid.UUID, paymentRef string) (*Settlement, error) {
	var settlement Settlement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ticket, transitioned, err := NewTicketStore(tx).MarkPaid(ctx, id, paymentRef)
		if err != nil {
			return err
		}
		settlement.Ticket = ticket
		settlement.Transitioned = transitioned
		if !transitioned {
			return nil
		}
		stock, applied, err := NewStockStore(tx).Adjust(ctx, -int(ticket.Quantity))
		if err != nil {
			return err
		}
		settlement.Stock = stock
		settlement.StockApplied = applied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &settlement, nil
}

// MarkUsed redeems a paid ticket, guarded the same way as MarkPaid so two
// concurrent door scans cannot both succeed.
func (s *TicketStore) MarkUsed(ctx context.Context, id uuid.UUID) (*models.Ticket, bool, error) {
	now := time.Now()
	res := s.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND status = ? AND used = ?", id, types.TICKET_PAID, false).
		Updates(map[string]any{
			"status":  types.TICKET_USED,
			"used":    true,
			"used_at": now,
		})
	if res.Error != nil {
		return nil, false, res.Error
	}
	admitted := res.RowsAffected > 0
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return ticket, admitted, nil
}

func (s *TicketStore) SetWhatsAppLink(ctx context.Context, id uuid.UUID, link string) error {
	return s.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ?", id).
		Update("whatsapp_link", link).
		Error
}

func (s *TicketStore) CountByStatus(ctx context.Context, status types.TicketStatus) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("status = ?", status).
		Count(&count).
		Error
	return count, err
}

func (s *TicketStore) CountUsed(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("used = ?", true).
		Count(&count).
		Error
	return count, err
}

func (s *TicketStore) TotalSales(ctx context.Context) (*models.SalesSummary, error) {
	var summary models.SalesSummary
	err := s.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Select("COUNT(*) as count, COALESCE(SUM(quantity), 0) as total_quantity, COALESCE(SUM(total), 0) as total_revenue").
		Where("status IN ?", paidStates).
		Scan(&summary).
		Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
