package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "qanda", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "qanda", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	GatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "qanda", Name: "gateway_requests_total", Help: "Gateway requests by matched route and response status."},
		[]string{"route", "status"},
	)
	ResolverOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "qanda", Name: "resolver_operations_total", Help: "Dispatched resolver operations by outcome."},
		[]string{"operation", "outcome"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(GatewayRequests)
	reg.MustRegister(ResolverOperations)
}
