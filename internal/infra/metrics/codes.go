package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		codesIssuedTotal,
		codeRedemptionsTotal,
		promptsGeneratedTotal,
	)
}

var (
	codesIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "codes_issued_total",
			Help: "Redemption codes minted after confirmed payments or by operators.",
		},
	)

	codeRedemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "code_redemptions_total",
			Help: "Quota consumption attempts by result (ok/exhausted/not_found/error).",
		},
		[]string{"result"},
	)

	promptsGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompts_generated_total",
			Help: "Generated prompts, labeled by whether a paid code was used.",
		},
		[]string{"paid"},
	)
)

func IncCodeIssued() { codesIssuedTotal.Inc() }

func IncRedemption(result string) {
	codeRedemptionsTotal.WithLabelValues(norm(result)).Inc()
}

func IncPromptGenerated(paid bool) {
	promptsGeneratedTotal.WithLabelValues(strconv.FormatBool(paid)).Inc()
}
