package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"ticketflow/src/config"
	"ticketflow/src/db"
	"ticketflow/src/lib"
	"ticketflow/src/lifecycle"
	"ticketflow/src/middlewares"
	"ticketflow/src/monitoring"
	"ticketflow/src/notify"
	"ticketflow/src/store"
	"ticketflow/src/types"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func purchaseHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/purchases", middlewares.RateLimit("purchase", 10, 15*time.Minute), func(ctx *gin.Context) {
			var body types.CreatePurchaseRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			monitoring.RecordPurchaseIntent(string(body.Tier))

			d := db.GetDb()
			stock := store.NewStockStore(d)
			ok, st, err := stock.Has(ctx, body.Quantity)
			if err != nil {
				log.Printf("Error reading stock: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not check availability"})
				return
			}
			if !ok {
				ctx.JSON(http.StatusBadRequest, gin.H{
					"error":     "not enough tickets available",
					"remaining": st.Remaining,
				})
				return
			}

			tickets := store.NewTicketStore(d)
			ticket, err := tickets.Create(ctx, &body, st.FeeRatePercent)
			if err != nil {
				log.Printf("Error creating ticket: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not create ticket"})
				return
			}

			checkoutURL, err := lib.CreateCheckoutSession(ctx, ticket)
			if err != nil {
				log.Printf("Error creating checkout session for %s: %s\n", ticket.ID, err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "payment provider unavailable"})
				return
			}

			// QR of the payment link, so the buyer can finish checkout from
			// another device. The admission QR is only issued once paid.
			var qr string
			if png, err := lib.RenderQR(checkoutURL); err == nil {
				qr = base64.StdEncoding.EncodeToString(png)
			} else {
				log.Printf("Error rendering checkout QR: %s\n", err.Error())
			}

			ctx.JSON(http.StatusCreated, gin.H{
				"ticket_id":    ticket.ID,
				"status":       ticket.Status,
				"total":        ticket.Total,
				"checkout_url": checkoutURL,
				"qr_code":      qr,
			})
		}).
		GET("/purchases/success", func(ctx *gin.Context) {
			rawID := ctx.Query("ticket_id")
			paymentID := ctx.Query("payment_id")
			id, err := uuid.Parse(rawID)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket_id"})
				return
			}
			res, err := getEngine().ConfirmPayment(ctx, id, paymentID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
					return
				}
				log.Printf("Error confirming payment for %s: %s\n", id, err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not confirm payment"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"message": "payment received, your ticket arrives by email",
				"ticket":  res.Ticket.ID,
				"status":  res.Ticket.Status,
			})
		}).
		GET("/purchases/cancelled", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"message": "payment cancelled, no charge was made"})
		}).
		GET("/stock", func(ctx *gin.Context) {
			st, err := store.NewStockStore(db.GetDb()).Get(ctx)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not read stock"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"total":     st.Total,
				"remaining": st.Remaining,
				"sold_out":  st.Remaining == 0,
			})
		}).
		GET("/tickets/:id", func(ctx *gin.Context) {
			var params types.TicketURIParams
			if err := ctx.BindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ticket, err := store.NewTicketStore(db.GetDb()).Get(ctx, uuid.MustParse(params.ID))
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
				return
			}
			ctx.JSON(http.StatusOK, ticket)
		}).
		GET("/tickets/:id/code", func(ctx *gin.Context) {
			var params types.TicketURIParams
			if err := ctx.BindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ticket, err := store.NewTicketStore(db.GetDb()).Get(ctx, uuid.MustParse(params.ID))
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
				return
			}
			if ticket.Status == types.TICKET_PENDING {
				ctx.JSON(http.StatusConflict, gin.H{"error": "ticket is not paid yet"})
				return
			}
			qr, err := ticketQR(ctx, ticket.ID.String(), func() ([]byte, error) {
				return lib.RenderQR(lifecycle.EncodeQRPayload(ticket))
			})
			if err != nil {
				log.Printf("Error rendering ticket QR: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not render code"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"qr_code": base64.StdEncoding.EncodeToString(qr),
				"ticket":  ticket,
			})
		}).
		POST("/tickets/search", func(ctx *gin.Context) {
			var body types.SearchTicketRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if body.Email == "" && body.NationalID == "" {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "email or national_id is required"})
				return
			}
			ticket, err := store.NewTicketStore(db.GetDb()).FindLatestByIdentity(ctx, body.Email, body.NationalID)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "no paid ticket found for that identity"})
				return
			}
			ctx.JSON(http.StatusOK, ticket)
		}).
		POST("/tickets/resend", middlewares.RateLimit("resend", 5, 15*time.Minute), func(ctx *gin.Context) {
			var body types.ResendTicketRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			id, err := uuid.Parse(body.TicketID)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket_id"})
				return
			}
			tickets := store.NewTicketStore(db.GetDb())
			ticket, err := tickets.Get(ctx, id)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
				return
			}
			if !strings.EqualFold(ticket.Email, body.Email) {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
				return
			}
			if ticket.Status == types.TICKET_PENDING {
				ctx.JSON(http.StatusConflict, gin.H{"error": "ticket is not paid yet"})
				return
			}
			if err := notify.SendTicketEmail(ticket); err != nil {
				log.Printf("Error resending ticket %s: %s\n", ticket.ID, err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not send email"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("ticket sent to %s", ticket.Email)})
		})
	return g
}

// ticketQR serves the rendered PNG from redis when available. Codes are
// immutable per ticket so a short TTL is only there to bound memory.
func ticketQR(ctx *gin.Context, id string, render func() ([]byte, error)) ([]byte, error) {
	key := fmt.Sprintf("%s:qr:%s", config.RedisKeyPrefix, id)
	if rdb := lib.GetRedisClient(); rdb != nil {
		if cached, err := rdb.Get(ctx, key).Bytes(); err == nil {
			return cached, nil
		}
	}
	png, err := render()
	if err != nil {
		return nil, err
	}
	if rdb := lib.GetRedisClient(); rdb != nil {
		if err := rdb.SetEx(ctx, key, png, 2*time.Hour).Err(); err != nil {
			log.Printf("Error caching QR for %s: %s\n", id, err.Error())
		}
	}
	return png, nil
}
