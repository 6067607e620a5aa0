package authbridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authbridge_tokens_issued_total",
		Help: "Number of JWTs signed and handed out.",
	})

	metricTokenVerifyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authbridge_token_verify_failures_total",
		Help: "Number of token verifications resolved as invalid.",
	})

	metricPostbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "authbridge_postbacks_total",
		Help: "Postback deliveries by outcome.",
	}, []string{"outcome"})

	metricSweptRedirects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authbridge_pending_redirects_swept_total",
		Help: "Expired pending redirects removed by the sweeper.",
	})
)
