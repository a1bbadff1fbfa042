package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartRepriceTotal counts cart recomputations by trigger and outcome.
	CartRepriceTotal *prometheus.CounterVec
	// AddressFanoutCarts observes how many carts one address update repriced.
	AddressFanoutCarts prometheus.Histogram
	// CouponValidationTotal counts coupon lookups by outcome.
	CouponValidationTotal *prometheus.CounterVec
	// OrdersCreatedTotal counts checkouts that produced an order.
	OrdersCreatedTotal prometheus.Counter
	// OrderStatusTransitions counts administrative status changes.
	OrderStatusTransitions *prometheus.CounterVec
	// DBQueryDuration records statement latency in milliseconds.
	DBQueryDuration *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartRepriceTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_reprice_total",
			Help:      "Cart pricing recomputations by trigger and result.",
		}, []string{"trigger", "result"}))
		AddressFanoutCarts = register[prometheus.Histogram](reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "address_fanout_carts",
			Help:      "Carts repriced per billing or shipping address update.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
		}))
		CouponValidationTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_validation_total",
			Help:      "Coupon code lookups by result.",
		}, []string{"result"}))
		OrdersCreatedTotal = register[prometheus.Counter](reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created from carts.",
		}))
		OrderStatusTransitions = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_transitions_total",
			Help:      "Order status changes by source and target status.",
		}, []string{"from", "to"}))
		DBQueryDuration = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_ms",
			Help:      "Postgres statement latency in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
		}, []string{"operation", "result"}))
	})
}
