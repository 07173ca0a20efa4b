// Package metrics exposes Prometheus counters for authentication outcomes.
package metrics

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/stockpile/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation names used as the "operation" label.
const (
	OpSignUp  = "signup"
	OpSignIn  = "signin"
	OpRefresh = "refresh"
	OpSignOut = "signout"
	OpMe      = "me"
)

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Auth counts use-case results on a private registry.
type Auth struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
}

func NewAuth() *Auth {
	reg := prometheus.NewRegistry()
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockpile",
		Subsystem: "auth",
		Name:      "operations_total",
		Help:      "Authentication operations by outcome.",
	}, []string{"operation", "outcome"})

	reg.MustRegister(
		ops,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Auth{registry: reg, operations: ops}
}

// Observe records one call of op that ended with err (nil for success).
func (a *Auth) Observe(op string, err error) {
	if a == nil {
		return
	}
	a.operations.WithLabelValues(op, Outcome(err)).Inc()
}

// Counter exposes a single series, mostly for tests.
func (a *Auth) Counter(op, outcome string) prometheus.Counter {
	return a.operations.WithLabelValues(op, outcome)
}

// Handler serves the registry in the Prometheus text format.
func (a *Auth) Handler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry})
}

// Outcome maps an error returned by a use case to its label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidArgument):
		return OutcomeInvalid
	case errors.Is(err, common.ErrorAlreadyExists):
		return OutcomeConflict
	default:
		return OutcomeError
	}
}
