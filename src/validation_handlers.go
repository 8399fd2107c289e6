package main

import (
	"net/http"
	"ticketflow/src/middlewares"
	"ticketflow/src/types"
	"time"

	"github.com/gin-gonic/gin"
)

func validationHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/tickets/check", middlewares.RateLimit("check", 60, time.Minute), func(ctx *gin.Context) {
			var body types.CheckTicketRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			res, err := getEngine().Check(ctx, body.TicketData)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not check ticket"})
				return
			}
			ctx.JSON(http.StatusOK, res)
		}).
		POST("/tickets/validate", middlewares.RateLimit("validate", 30, time.Minute), func(ctx *gin.Context) {
			var body types.CheckTicketRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			res, err := getEngine().Validate(ctx, body.TicketData)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not validate ticket"})
				return
			}
			ctx.JSON(http.StatusOK, res)
		})
	return g
}
