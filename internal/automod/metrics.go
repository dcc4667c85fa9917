package automod

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sentinel_automod_checks_total",
	Help: "Content checks by verdict.",
}, []string{"verdict"})

var matchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sentinel_automod_matches_total",
	Help: "Pattern matches by rule id and kind.",
}, []string{"rule_id", "kind"})

var rulesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "sentinel_automod_rules_loaded",
	Help: "Number of rules in the active rule set.",
})

func observe(result CheckResult) {
	switch {
	case result.Allowed:
		checksTotal.WithLabelValues("allowed").Inc()
	case result.Blocked:
		checksTotal.WithLabelValues("blocked").Inc()
	default:
		checksTotal.WithLabelValues("clean").Inc()
	}
	for _, match := range result.AllMatches {
		matchesTotal.WithLabelValues(match.RuleID, string(match.Kind)).Inc()
	}
}
