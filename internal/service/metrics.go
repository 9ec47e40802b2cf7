package service

import "github.com/prometheus/client_golang/prometheus"

var (
	authenticationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eduwallet",
		Name:      "authentications_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})

	permissionTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eduwallet",
		Name:      "permission_transitions_total",
		Help:      "Holder permission actions by kind and final outcome.",
	}, []string{"kind", "outcome"})

	counterpartyLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eduwallet",
		Name:      "counterparty_lookups_total",
		Help:      "Counterparty resolutions by source.",
	}, []string{"source"})
)

func init() {
	prometheus.MustRegister(authenticationsTotal, permissionTransitionsTotal, counterpartyLookupsTotal)
}
