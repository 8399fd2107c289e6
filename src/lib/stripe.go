package lib

import (
	"context"
	"fmt"
	"os"
	"strings"
	"ticketflow/src/config"
	"ticketflow/src/models"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
)

var stripeClient *stripe.Client

func GetStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	sc := stripe.NewClient(apiKey)
	stripeClient = sc

	return sc
}

func NewStripeClient(c *stripe.Client) {
	stripeClient = c
}

// CreateCheckoutSession opens a hosted checkout for a pending ticket. The
// ticket id rides along as the client reference so both the webhook and
// the success redirect can correlate the payment back to the ticket.
func CreateCheckoutSession(ctx context.Context, ticket *models.Ticket) (string, error) {
	sc := GetStripeClient()
	base := config.BaseURL()
	label := strings.ToUpper(string(ticket.Tier))
	params := &stripe.CheckoutSessionCreateParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(ticket.ID.String()),
		CustomerEmail:     stripe.String(ticket.Email),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String("ars"),
					// Total in one line item, service fee included.
					UnitAmount: stripe.Int64(ticket.Total.Mul(decimal.NewFromInt(100)).IntPart()),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("%s - %s entry x%d (service fee included)", config.EventName(), label, ticket.Quantity)),
					},
				},
			},
		},
		SuccessURL: stripe.String(fmt.Sprintf("%s/api/v1/purchases/success?ticket_id=%s&payment_id={CHECKOUT_SESSION_ID}", base, ticket.ID)),
		CancelURL:  stripe.String(fmt.Sprintf("%s/api/v1/purchases/cancelled", base)),
	}
	cs, err := sc.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return "", err
	}
	return cs.URL, nil
}
