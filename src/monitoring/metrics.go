package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	purchaseIntents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketflow_purchase_intents_total",
			Help: "Purchase intents accepted, per entry tier",
		},
		[]string{"tier"},
	)

	ticketsSold = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketflow_tickets_sold_total",
			Help: "Admissions sold through confirmed payments, per entry tier",
		},
		[]string{"tier"},
	)

	admissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketflow_admissions_total",
			Help: "Door validation attempts by outcome",
		},
		[]string{"outcome"},
	)

	oversells = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketflow_oversell_total",
			Help: "Confirmed payments that found the stock pool exhausted",
		},
	)

	stockRemaining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ticketflow_stock_remaining",
			Help: "Remaining seat capacity",
		},
	)
)

func RecordPurchaseIntent(tier string) {
	purchaseIntents.WithLabelValues(tier).Inc()
}

func RecordSale(tier string, quantity uint) {
	ticketsSold.WithLabelValues(tier).Add(float64(quantity))
}

func RecordAdmission(outcome string) {
	admissions.WithLabelValues(outcome).Inc()
}

func RecordOversell() {
	oversells.Inc()
}

func SetStockRemaining(remaining uint) {
	stockRemaining.Set(float64(remaining))
}
