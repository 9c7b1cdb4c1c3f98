// Package metrics defines the Prometheus collectors of the bot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shoplist"

var (
	// ItemTransitions counts lifecycle transitions.
	// Labels: transition (buy, delete, restore, purge), result (ok, rejected, error)
	ItemTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "items",
		Name:      "transitions_total",
		Help:      "Item lifecycle transitions by outcome",
	}, []string{"transition", "result"})

	// ItemsAdded counts items put on a list.
	ItemsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "items",
		Name:      "added_total",
		Help:      "Items added to shopping lists",
	})

	// ItemsPurged counts trashed items removed for good, by the retention job or by hand.
	ItemsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "items",
		Name:      "purged_total",
		Help:      "Trashed items permanently removed",
	})

	// OnboardingCompleted counts users that finished onboarding.
	// Labels: path (create, join)
	OnboardingCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "onboarding",
		Name:      "completed_total",
		Help:      "Completed onboarding conversations",
	}, []string{"path"})

	// Updates counts Telegram updates handled.
	// Labels: kind (command, text, callback)
	Updates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "telegram",
		Name:      "updates_total",
		Help:      "Telegram updates handled by kind",
	}, []string{"kind"})

	// MaintenanceRuns counts runs of the background maintenance job.
	// Labels: result (ok, error)
	MaintenanceRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "maintenance",
		Name:      "runs_total",
		Help:      "Maintenance job runs",
	}, []string{"result"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
