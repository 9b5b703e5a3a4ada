package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		PaymentApproveRequests,
		PaymentApproveDuration,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payments by status (initiated/succeeded/failed/ready_failed).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of successful payments, labeled by currency.",
		},
		[]string{"currency"},
	)

	// Count of approve callbacks grouped by result and bounded reason.
	// result: ok|fail
	// reason (fail only): missing_params|not_found|locked|provider_error|unknown
	PaymentApproveRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_approve_requests_total",
			Help: "Count of /payment/approve callbacks by result and reason.",
		},
		[]string{"result", "reason"},
	)

	PaymentApproveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_approve_duration_seconds",
			Help:    "Duration of the /payment/approve handler in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"result"},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}
