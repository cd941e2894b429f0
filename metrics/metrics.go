// Package metrics exposes simulation counters and gauges to Prometheus. A
// Collector is optional: the coordinator updates one on every metrics
// snapshot when configured, so an embedding service can scrape simulation
// health alongside its own metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector bundles the Prometheus instruments for one simulation run.
type Collector struct {
	MessagesSent      prometheus.Gauge
	MessagesDelivered prometheus.Gauge
	MessagesDropped   prometheus.Gauge

	InteractionsTotal      prometheus.Gauge
	InteractionsSuccessful prometheus.Gauge
	InteractionsActive     prometheus.Gauge

	ActionsTotal prometheus.Gauge
	Ticks        prometheus.Gauge

	AgentsByState *prometheus.GaugeVec
}

// NewCollector registers the simulation instruments with reg. Pass
// prometheus.DefaultRegisterer to use the process-global registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		MessagesSent: factory.NewGauge(prometheus.GaugeOpts{
			Name: "citymesh_messages_sent_total",
			Help: "Total messages sent on the bus",
		}),
		MessagesDelivered: factory.NewGauge(prometheus.GaugeOpts{
			Name: "citymesh_messages_delivered_total",
			Help: "Total messages delivered to mailboxes",
		}),
		MessagesDropped: factory.NewGauge(prometheus.GaugeOpts{
			Name: "citymesh_messages_dropped_total",
			Help: "Total messages dropped due to full mailboxes",
		}),
		InteractionsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "citymesh_interactions_total",
			Help: "Total interactions started",
		}),
		InteractionsSuccessful: factory.NewGauge(prometheus.GaugeOpts{
			Name: "citymesh_interactions_successful_total",
			Help: "Total interactions completed with a positive outcome",
		}),
		InteractionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "citymesh_interactions_active",
			Help: "Interactions currently active",
		}),
		ActionsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "citymesh_actions_total",
			Help: "Total actions executed by all agents",
		}),
		Ticks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "citymesh_ticks_total",
			Help: "Coordinator ticks elapsed",
		}),
		AgentsByState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "citymesh_agents_by_state",
			Help: "Number of agents per activity state",
		}, []string{"state"}),
	}
}
