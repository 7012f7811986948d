package kv

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_kv_operations_total",
		Help: "Key-value store operations by kind and outcome.",
	}, []string{"op", "result"})

	corruptValues = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_kv_corrupt_values_total",
		Help: "Stored values that failed to decode as JSON and were treated as empty.",
	})
)

// Collectors returns the kv metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{operations, corruptValues}
}

type instrumented struct {
	Store
}

// Instrument counts every operation on s in portal_kv_operations_total.
func Instrument(s Store) Store {
	return &instrumented{Store: s}
}

func observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	operations.WithLabelValues(op, result).Inc()
}

func (i *instrumented) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := i.Store.Get(ctx, key)
	switch {
	case err != nil:
		observe("get", err)
	case !ok:
		operations.WithLabelValues("get", "miss").Inc()
	default:
		observe("get", nil)
	}
	return v, ok, err
}

func (i *instrumented) Set(ctx context.Context, key, value string) error {
	err := i.Store.Set(ctx, key, value)
	observe("set", err)
	return err
}

func (i *instrumented) Delete(ctx context.Context, key string) error {
	err := i.Store.Delete(ctx, key)
	observe("delete", err)
	return err
}
