// Package metrics holds the service's prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PublishTotal counts publish attempts per platform and outcome.
	PublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "highshift",
		Name:      "publish_total",
		Help:      "Publish attempts by platform and outcome.",
	}, []string{"platform", "outcome"})

	// RefreshTotal counts token refreshes per platform and outcome.
	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "highshift",
		Name:      "token_refresh_total",
		Help:      "Token refresh attempts by platform and outcome.",
	}, []string{"platform", "outcome"})

	// DispatcherRuns counts dispatcher sweeps.
	DispatcherRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "highshift",
		Name:      "dispatcher_runs_total",
		Help:      "Scheduled-post dispatcher sweeps.",
	})

	// DispatcherClaimed counts posts claimed by the dispatcher.
	DispatcherClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "highshift",
		Name:      "dispatcher_claimed_total",
		Help:      "Scheduled posts claimed for processing.",
	})

	// FlowsStarted counts OAuth flows started per platform.
	FlowsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "highshift",
		Name:      "oauth_flows_started_total",
		Help:      "OAuth flows started by platform.",
	}, []string{"platform"})

	// AccountsLinked counts successful account links per platform.
	AccountsLinked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "highshift",
		Name:      "accounts_linked_total",
		Help:      "Successful account links by platform.",
	}, []string{"platform"})
)
