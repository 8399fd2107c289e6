package lifecycle

import (
	"context"
	"errors"
	"log"
	"ticketflow/src/models"
	"ticketflow/src/monitoring"
	"ticketflow/src/store"
	"ticketflow/src/types"
	"time"

	"github.com/google/uuid"
)

// TicketStore is the slice of the ticket store the engine drives. The
// bool results report whether this call made the transition;
// implementations must make the state check and the write atomic per
// ticket identity (the gorm store uses guarded UPDATEs), and
// MarkPaidAndDecrement must commit the paid transition and the stock
// decrement together or not at all, so an errored confirmation leaves
// the ticket pending and safe to retry.
type TicketStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	MarkPaidAndDecrement(ctx context.Context, id uuid.UUID, paymentRef string) (*store.Settlement, error)
	MarkUsed(ctx context.Context, id uuid.UUID) (*models.Ticket, bool, error)
}

// Notifier delivers the confirmation to the buyer. Best-effort: the
// engine never fails a transition over a notification.
type Notifier interface {
	TicketPaid(ctx context.Context, ticket *models.Ticket)
}

type Engine struct {
	tickets  TicketStore
	notifier Notifier
}

func NewEngine(tickets TicketStore, notifier Notifier) *Engine {
	return &Engine{tickets: tickets, notifier: notifier}
}

// ConfirmResult reports the outcome of a payment confirmation.
type ConfirmResult struct {
	Ticket *models.Ticket
	// AlreadySettled is true when the ticket had left pending before this
	// call; no inventory or notification side effects were repeated.
	AlreadySettled bool
	// Oversold is true when the ticket was paid but the stock decrement
	// could not be fully applied. The counter is clamped at zero and the
	// operator alerted; the buyer keeps the paid ticket.
	Oversold bool
}

// ConfirmPayment drives the pending->paid transition. Two independent
// callers race here for every payment (the provider webhook and the
// buyer's success redirect); the compare-and-set picks exactly one
// winner, whose settlement commits the paid transition and the stock
// decrement together and triggers the notification. Every other caller
// gets AlreadySettled.
func (e *Engine) ConfirmPayment(ctx context.Context, id uuid.UUID, paymentRef string) (*ConfirmResult, error) {
	ticket, err := e.tickets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.Status != types.TICKET_PENDING {
		log.Printf("[lifecycle] ticket %s already settled (%s), confirmation ignored\n", id, ticket.Status)
		return &ConfirmResult{Ticket: ticket, AlreadySettled: true}, nil
	}
	settlement, err := e.tickets.MarkPaidAndDecrement(ctx, id, paymentRef)
	if err != nil {
		// Nothing committed: the ticket is still pending and a retried
		// confirmation repeats the whole settlement.
		return nil, err
	}
	if !settlement.Transitioned {
		// Lost the race to the other trigger.
		log.Printf("[lifecycle] ticket %s settled concurrently, confirmation ignored\n", id)
		return &ConfirmResult{Ticket: settlement.Ticket, AlreadySettled: true}, nil
	}
	ticket = settlement.Ticket
	log.Printf("[lifecycle] ticket %s marked paid (ref %s)\n", id, paymentRef)

	result := &ConfirmResult{Ticket: ticket}
	if !settlement.StockApplied {
		result.Oversold = true
		monitoring.RecordOversell()
		log.Printf("[lifecycle] ALERT: ticket %s (qty %d) confirmed with exhausted stock, remaining clamped at %d\n", id, ticket.Quantity, settlement.Stock.Remaining)
	}
	monitoring.RecordSale(string(ticket.Tier), ticket.Quantity)
	monitoring.SetStockRemaining(settlement.Stock.Remaining)

	if e.notifier != nil {
		e.notifier.TicketPaid(ctx, ticket)
	}
	return result, nil
}

// Reasons a door scan can be turned away, in the order they are checked.
const (
	ReasonBadPayload  = "bad_payload"
	ReasonNotFound    = "not_found"
	ReasonNotPaid     = "not_paid"
	ReasonAlreadyUsed = "already_used"
)

// CheckResult is the door-side outcome for both the read-only preview and
// the admitting validation.
type CheckResult struct {
	Valid   bool           `json:"valid"`
	Reason  string         `json:"reason,omitempty"`
	Message string         `json:"message"`
	UsedAt  *time.Time     `json:"used_at,omitempty"`
	Ticket  *TicketSummary `json:"ticket,omitempty"`
}

// TicketSummary is what the door staff sees for an admissible ticket.
type TicketSummary struct {
	Name        string          `json:"name"`
	NationalID  string          `json:"national_id"`
	Tier        types.EntryTier `json:"tier"`
	Quantity    uint            `json:"quantity"`
	PurchasedAt time.Time       `json:"purchased_at"`
}

func summarize(ticket *models.Ticket) *TicketSummary {
	return &TicketSummary{
		Name:        ticket.HolderName,
		NationalID:  ticket.NationalID,
		Tier:        ticket.Tier,
		Quantity:    ticket.Quantity,
		PurchasedAt: ticket.CreatedAt,
	}
}

// eligibility applies the door checks in their fixed order: not-found,
// then not-paid, then already-used. The order determines the reported
// reason and must not change.
func (e *Engine) eligibility(ctx context.Context, raw string) (*models.Ticket, *CheckResult, error) {
	id, err := ParseQRPayload(raw)
	if err != nil {
		return nil, &CheckResult{Reason: ReasonBadPayload, Message: "Ticket payload could not be read"}, nil
	}
	ticket, err := e.tickets.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &CheckResult{Reason: ReasonNotFound, Message: "Ticket not found"}, nil
		}
		return nil, nil, err
	}
	if ticket.Status == types.TICKET_PENDING {
		return nil, &CheckResult{Reason: ReasonNotPaid, Message: "Ticket has not been paid"}, nil
	}
	if ticket.Used {
		return nil, &CheckResult{Reason: ReasonAlreadyUsed, Message: "Ticket was already used", UsedAt: ticket.UsedAt}, nil
	}
	return ticket, nil, nil
}

// Check previews a scanned ticket without admitting it.
func (e *Engine) Check(ctx context.Context, raw string) (*CheckResult, error) {
	ticket, turnedAway, err := e.eligibility(ctx, raw)
	if err != nil {
		return nil, err
	}
	if turnedAway != nil {
		return turnedAway, nil
	}
	return &CheckResult{Valid: true, Message: "Ticket is valid", Ticket: summarize(ticket)}, nil
}

// Validate admits a scanned ticket: the same eligibility checks as Check,
// plus the paid->used compare-and-set. Of N concurrent scans of the same
// ticket exactly one returns valid; the rest report already-used with the
// recorded usage time.
func (e *Engine) Validate(ctx context.Context, raw string) (*CheckResult, error) {
	ticket, turnedAway, err := e.eligibility(ctx, raw)
	if err != nil {
		return nil, err
	}
	if turnedAway != nil {
		monitoring.RecordAdmission(turnedAway.Reason)
		return turnedAway, nil
	}
	ticket, admitted, err := e.tickets.MarkUsed(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	if !admitted {
		monitoring.RecordAdmission(ReasonAlreadyUsed)
		return &CheckResult{Reason: ReasonAlreadyUsed, Message: "Ticket was already used", UsedAt: ticket.UsedAt}, nil
	}
	log.Printf("[lifecycle] ticket %s admitted\n", ticket.ID)
	monitoring.RecordAdmission("valid")
	return &CheckResult{Valid: true, Message: "Ticket is valid, entry granted", UsedAt: ticket.UsedAt, Ticket: summarize(ticket)}, nil
}
