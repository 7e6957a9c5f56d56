package server

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rastermill/rastermill/pkg/observability"
)

const metricsNamespace = "rastermill"

var (
	passesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "passes_started_total",
		Help:      "Evaluation passes dispatched.",
	})
	passesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "passes_completed_total",
		Help:      "Evaluation passes whose results were applied.",
	}, []string{"result"})
	passesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "passes_discarded_total",
		Help:      "Evaluation passes superseded before completion.",
	})
	passDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "pass_duration_seconds",
		Help:      "Wall time of applied evaluation passes.",
		Buckets:   prometheus.DefBuckets,
	})
	nodeEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "node_evaluations_total",
		Help:      "Node transform invocations by kind.",
	}, []string{"kind", "result"})
	nodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "node_duration_seconds",
		Help:      "Wall time of node transform invocations by kind.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})
	sinkSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "sink_saves_total",
		Help:      "Sink saves executed during pass apply.",
	}, []string{"grid_type", "result"})

	cacheOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "cache_operations_total",
		Help:      "Result cache lookups and writes.",
	}, []string{"op", "key_type"})

	layersSaved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "layers_saved_total",
		Help:      "Layers written to a layer store.",
	}, []string{"backend"})
	layersLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "layers_loaded_total",
		Help:      "Layers read from a layer store.",
	}, []string{"backend"})
	storeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "store_errors_total",
		Help:      "Failed layer store operations.",
	}, []string{"backend", "op"})
	layerBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "layer_bytes",
		Help:      "Encoded size of saved layers.",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
	}, []string{"backend"})
)

// InstallMetrics registers Prometheus-backed implementations of the
// observability hooks. Metrics land in the default registry, which
// /metrics serves. Call once at startup.
func InstallMetrics() {
	observability.SetEngineHooks(engineMetrics{})
	observability.SetCacheHooks(cacheMetrics{})
	observability.SetStoreHooks(storeMetrics{})
}

type engineMetrics struct{}

func (engineMetrics) OnPassStart(context.Context, uint64, int) {
	passesStarted.Inc()
}

func (engineMetrics) OnPassComplete(_ context.Context, _ uint64, _ int, d time.Duration, err error) {
	passesCompleted.WithLabelValues(resultLabel(err)).Inc()
	passDuration.Observe(d.Seconds())
}

func (engineMetrics) OnPassDiscarded(context.Context, uint64) {
	passesDiscarded.Inc()
}

func (engineMetrics) OnNodeEvaluated(_ context.Context, kind string, d time.Duration, err error) {
	nodeEvaluations.WithLabelValues(kind, resultLabel(err)).Inc()
	nodeDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (engineMetrics) OnSave(_ context.Context, _ int, gridType string, err error) {
	sinkSaves.WithLabelValues(gridType, resultLabel(err)).Inc()
}

type cacheMetrics struct{}

func (cacheMetrics) OnCacheHit(_ context.Context, keyType string) {
	cacheOps.WithLabelValues("hit", keyType).Inc()
}

func (cacheMetrics) OnCacheMiss(_ context.Context, keyType string) {
	cacheOps.WithLabelValues("miss", keyType).Inc()
}

func (cacheMetrics) OnCacheSet(_ context.Context, keyType string, _ int) {
	cacheOps.WithLabelValues("set", keyType).Inc()
}

type storeMetrics struct{}

func (storeMetrics) OnLayerSaved(_ context.Context, backend string, _ int, size int) {
	layersSaved.WithLabelValues(backend).Inc()
	layerBytes.WithLabelValues(backend).Observe(float64(size))
}

func (storeMetrics) OnLayerLoaded(_ context.Context, backend string, _ int) {
	layersLoaded.WithLabelValues(backend).Inc()
}

func (storeMetrics) OnStoreError(_ context.Context, backend, op string, _ error) {
	storeErrors.WithLabelValues(backend, op).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
