// Package metrics holds the Prometheus collectors of the service
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	MetricsNamespace = "testforge"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	serviceOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "service_operations_total",
		Help:      "Count of backend operations per entity, operation and result",
	}, []string{
		"entity",
		"operation",
		"result",
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests per route pattern and status code",
	}, []string{
		"route",
		"code",
	})

	toastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "toasts_total",
		Help:      "Count of toasts shown to users per level",
	}, []string{
		"level",
	})
)

// RecordServiceOperation counts one service call by entity, operation and result
func RecordServiceOperation(entity, operation, result string) {
	serviceOperationsTotal.WithLabelValues(entity, operation, result).Inc()
}

// RecordHTTPRequest counts one request by route pattern and status code
func RecordHTTPRequest(route string, code int) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// RecordToast counts one toast by level
func RecordToast(level string) {
	toastsTotal.WithLabelValues(level).Inc()
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
