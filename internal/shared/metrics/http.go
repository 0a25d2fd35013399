package metrics

import "github.com/prometheus/client_golang/prometheus"

// HTTP mede requisições da API pública
type HTTP struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

func NewHTTP(reg prometheus.Registerer) *HTTP {
	h := &HTTP{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tips_api_http_requests_total",
			Help: "requisições por rota, método e status",
		}, []string{"method", "route", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tips_api_http_request_duration_seconds",
			Help:    "latência das requisições",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(h.Requests, h.Duration)
	return h
}
