package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"ticketflow/src/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const webhookMaxBodyBytes = int64(65536)

// paymentWebhookRoute registers the provider callback. Signature
// verification is the only authentication on this route, so an invalid
// signature is a hard 400 before any payload is inspected.
func paymentWebhookRoute(g *gin.Engine) *gin.Engine {
	g.POST("/api/v1/webhook/payments", func(ctx *gin.Context) {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, webhookMaxBodyBytes)
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading webhook body: %s\n", err.Error())
			ctx.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}

		endpointSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
		event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), endpointSecret)
		if err != nil {
			log.Printf("Error verifying webhook signature: %s\n", err.Error())
			ctx.AbortWithStatus(http.StatusBadRequest)
			return
		}

		switch event.Type {
		case "checkout.session.completed", "checkout.session.async_payment_succeeded":
			var session stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
				log.Printf("Error parsing webhook event data: %s\n", err.Error())
				ctx.AbortWithStatus(http.StatusBadRequest)
				return
			}
			if code := settleCheckoutSession(ctx, &session); code != http.StatusNoContent {
				ctx.AbortWithStatus(code)
				return
			}
		case "checkout.session.expired":
			log.Printf("Checkout session expired: %s\n", event.ID)
		default:
			log.Printf("Unhandled webhook event type: %s\n", event.Type)
		}

		ctx.Status(http.StatusNoContent)
	})
	return g
}

// settleCheckoutSession maps a paid checkout session onto the ticket
// lifecycle and returns the status the webhook answers with. Sessions
// referencing an unknown ticket are acknowledged with a logged warning:
// a non-2xx would have the provider retrying an id that will never
// exist. Only genuine dependency errors report 5xx, where a retry can
// land on a now-consistent ticket.
func settleCheckoutSession(ctx context.Context, session *stripe.CheckoutSession) int {
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		log.Printf("Session %s not paid yet (%s), ignoring\n", session.ID, session.PaymentStatus)
		return http.StatusNoContent
	}
	id, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		log.Printf("Webhook session %s carries no usable ticket reference: %q\n", session.ID, session.ClientReferenceID)
		return http.StatusNoContent
	}
	res, err := getEngine().ConfirmPayment(ctx, id, session.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("Webhook session %s references unknown ticket %s, acknowledged\n", session.ID, id)
			return http.StatusNoContent
		}
		log.Printf("Error confirming payment for %s: %s\n", id, err.Error())
		return http.StatusInternalServerError
	}
	if res.AlreadySettled {
		log.Printf("Ticket %s already settled, webhook acknowledged\n", id)
	}
	return http.StatusNoContent
}
