package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ShopMetrics counts storefront domain outcomes.
type ShopMetrics struct {
	ordersCreated    prometheus.Counter
	transitions      *prometheus.CounterVec
	couponRejections *prometheus.CounterVec
	outboxPublished  prometheus.Counter
	outboxFailed     prometheus.Counter
}

// NewShopMetrics registers the domain counters on the provided registerer.
func NewShopMetrics(reg prometheus.Registerer) *ShopMetrics {
	if reg == nil {
		return &ShopMetrics{}
	}
	m := &ShopMetrics{
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bakery_orders_created_total",
			Help: "Orders placed through checkout.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bakery_order_transitions_total",
			Help: "Admin order events by event and result.",
		}, []string{"event", "result"}),
		couponRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bakery_coupon_rejections_total",
			Help: "Coupons judged inapplicable, by reason.",
		}, []string{"reason"}),
		outboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bakery_outbox_published_total",
			Help: "Outbox events relayed.",
		}),
		outboxFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bakery_outbox_failed_total",
			Help: "Outbox relay attempts that failed.",
		}),
	}
	reg.MustRegister(m.ordersCreated, m.transitions, m.couponRejections, m.outboxPublished, m.outboxFailed)
	return m
}

func (m *ShopMetrics) IncOrderCreated() {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Inc()
}

// IncTransition records an admin event; result is applied, noop or rejected.
func (m *ShopMetrics) IncTransition(event, result string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(event), normalizeLabel(result)).Inc()
}

func (m *ShopMetrics) IncCouponRejection(reason string) {
	if m == nil || m.couponRejections == nil {
		return
	}
	m.couponRejections.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *ShopMetrics) IncOutboxPublished() {
	if m == nil || m.outboxPublished == nil {
		return
	}
	m.outboxPublished.Inc()
}

func (m *ShopMetrics) IncOutboxFailed() {
	if m == nil || m.outboxFailed == nil {
		return
	}
	m.outboxFailed.Inc()
}
