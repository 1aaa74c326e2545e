// Package metrics provides Prometheus instrumentation for the simulation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersTotal counts orders submitted, partitioned by side and style.
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optionsim_orders_total",
		Help: "Total number of orders submitted",
	}, []string{"side", "style"})

	// FillsTotal counts fills produced by the matching engine.
	FillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optionsim_fills_total",
		Help: "Total number of fills",
	}, []string{"side"})

	// RejectionsTotal counts order rejections by reason code.
	RejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optionsim_rejections_total",
		Help: "Total number of rejected orders",
	}, []string{"reason"})

	// BreachesTotal counts breach events opened, by risk dimension and severity.
	BreachesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optionsim_breaches_total",
		Help: "Total number of risk breach events opened",
	}, []string{"dimension", "severity"})

	// TicksTotal counts market snapshots published.
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionsim_ticks_total",
		Help: "Total number of market snapshots published",
	})

	// ActiveParticipants tracks joined participants.
	ActiveParticipants = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "optionsim_active_participants",
		Help: "Number of participants in the session",
	})

	// PendingOrders tracks resting orders across all participants.
	PendingOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "optionsim_pending_orders",
		Help: "Number of resting limit orders",
	})
)
