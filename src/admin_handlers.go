package main

import (
	"bytes"
	"crypto/subtle"
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"ticketflow/src/db"
	"ticketflow/src/monitoring"
	"ticketflow/src/store"
	"ticketflow/src/types"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func guestAuthRoutes(g *gin.Engine) *gin.Engine {
	g.POST("/api/v1/auth/login", func(ctx *gin.Context) {
		var body types.LoginRequestBody
		if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		userOk := subtle.ConstantTimeCompare([]byte(body.Username), []byte(os.Getenv("ADMIN_USER")))
		passOk := subtle.ConstantTimeCompare([]byte(body.Password), []byte(os.Getenv("ADMIN_PASS")))
		if userOk&passOk != 1 {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		token, err := generateJWT(body.Username)
		if err != nil {
			log.Printf("Error signing token: %s\n", err.Error())
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"token": token})
	})
	return g
}

func adminHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/logout", func(ctx *gin.Context) {
			// Tokens are stateless; logout just tells the client to drop it.
			log.Printf("Admin %s logged out\n", ctx.GetString("username"))
			ctx.JSON(http.StatusOK, gin.H{"message": "logged out"})
		}).
		GET("/tickets", func(ctx *gin.Context) {
			tickets, err := store.NewTicketStore(db.GetDb()).List(ctx)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not list tickets"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": tickets, "count": len(tickets)})
		}).
		GET("/stats", func(ctx *gin.Context) {
			d := db.GetDb()
			tickets := store.NewTicketStore(d)
			pending, err := tickets.CountByStatus(ctx, types.TICKET_PENDING)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not read stats"})
				return
			}
			used, err := tickets.CountUsed(ctx)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not read stats"})
				return
			}
			sales, err := tickets.TotalSales(ctx)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not read stats"})
				return
			}
			st, err := store.NewStockStore(d).Get(ctx)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not read stock"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"pending":         pending,
				"paid":            sales.Count,
				"used":            used,
				"tickets_sold":    sales.TotalQuantity,
				"total_revenue":   sales.TotalRevenue,
				"stock_total":     st.Total,
				"stock_remaining": st.Remaining,
			})
		}).
		GET("/export", func(ctx *gin.Context) {
			tickets, err := store.NewTicketStore(db.GetDb()).List(ctx)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not export tickets"})
				return
			}
			var buf bytes.Buffer
			buf.WriteString("\uFEFF") // BOM so spreadsheet apps pick UTF-8
			w := csv.NewWriter(&buf)
			w.Write([]string{"ID", "Name", "National ID", "Email", "Phone", "Tier", "Quantity", "Total", "Status", "Used", "Created At", "Paid At", "Used At"})
			for _, t := range tickets {
				w.Write([]string{
					t.ID.String(),
					t.HolderName,
					t.NationalID,
					t.Email,
					t.Phone,
					string(t.Tier),
					strconv.FormatUint(uint64(t.Quantity), 10),
					t.Total.StringFixed(2),
					string(t.Status),
					strconv.FormatBool(t.Used),
					t.CreatedAt.Format(time.RFC3339),
					formatTimePtr(t.PaidAt),
					formatTimePtr(t.UsedAt),
				})
			}
			w.Flush()
			if err := w.Error(); err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not write csv"})
				return
			}
			filename := fmt.Sprintf("tickets-%s.csv", time.Now().Format("2006-01-02"))
			ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
			ctx.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
		}).
		PUT("/stock", func(ctx *gin.Context) {
			var body types.SetStockRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			stock := store.NewStockStore(db.GetDb())
			st, err := stock.Set(ctx, body.Total, body.Remaining)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if body.UnitPrice > 0 {
				if err := stock.SetUnitPrice(ctx, decimal.NewFromInt(body.UnitPrice)); err != nil {
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not set unit price"})
					return
				}
				st.UnitPrice = decimal.NewFromInt(body.UnitPrice)
			}
			monitoring.SetStockRemaining(st.Remaining)
			log.Printf("Stock overridden by %s: %d/%d\n", ctx.GetString("username"), st.Remaining, st.Total)
			ctx.JSON(http.StatusOK, st)
		})
	return g
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
