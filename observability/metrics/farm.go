package metrics

import (
	"context"
	"math"
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "farmledger/farm"

type FarmMetrics struct {
	operations  *prometheus.CounterVec
	totalMinted prometheus.Gauge
	poolCount   prometheus.Gauge
	blockHeight prometheus.Gauge
	shortfalls  *prometheus.CounterVec

	// OTLP mirrors of the operation and shortfall counters.
	opCounter        metric.Int64Counter
	shortfallCounter metric.Int64Counter
}

var (
	farmOnce     sync.Once
	farmRegistry *FarmMetrics
)

func Farm() *FarmMetrics {
	farmOnce.Do(func() {
		farmRegistry = &FarmMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "farm_operations_total",
				Help: "Count of farm operations by name and outcome.",
			}, []string{"operation", "outcome"}),
			totalMinted: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "farm_total_minted",
				Help: "Reward tokens minted by the farm so far (whole units, float approximation).",
			}),
			poolCount: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "farm_pool_count",
				Help: "Number of registered pools.",
			}),
			blockHeight: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "farm_block_height",
				Help: "Current block height of the ledger clock.",
			}),
			shortfalls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "farm_payout_shortfalls_total",
				Help: "Reward payouts truncated to custody, by pool.",
			}, []string{"pool"}),
		}
		prometheus.MustRegister(
			farmRegistry.operations,
			farmRegistry.totalMinted,
			farmRegistry.poolCount,
			farmRegistry.blockHeight,
			farmRegistry.shortfalls,
		)
		farmRegistry.initMeter()
	})
	return farmRegistry
}

func (m *FarmMetrics) initMeter() {
	meter := otel.GetMeterProvider().Meter(meterName)
	ops, err := meter.Int64Counter("farm.operations")
	if err != nil {
		meter = noop.NewMeterProvider().Meter(meterName)
		ops, _ = meter.Int64Counter("farm.operations")
	}
	shortfalls, err := meter.Int64Counter("farm.payout_shortfalls")
	if err != nil {
		shortfalls, _ = noop.NewMeterProvider().Meter(meterName).Int64Counter("farm.payout_shortfalls")
	}
	m.opCounter = ops
	m.shortfallCounter = shortfalls
}

func (m *FarmMetrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	if m.opCounter != nil {
		m.opCounter.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		))
	}
}

func (m *FarmMetrics) SetTotalMinted(minted *big.Int) {
	if m == nil || minted == nil {
		return
	}
	value, _ := new(big.Float).SetInt(minted).Float64()
	if math.IsInf(value, 0) {
		value = math.MaxFloat64
	}
	m.totalMinted.Set(value)
}

func (m *FarmMetrics) SetPoolCount(count uint64) {
	if m == nil {
		return
	}
	m.poolCount.Set(float64(count))
}

func (m *FarmMetrics) SetBlockHeight(height uint64) {
	if m == nil {
		return
	}
	m.blockHeight.Set(float64(height))
}

func (m *FarmMetrics) RecordShortfall(pool string) {
	if m == nil {
		return
	}
	if pool == "" {
		pool = "unknown"
	}
	m.shortfalls.WithLabelValues(pool).Inc()
	if m.shortfallCounter != nil {
		m.shortfallCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("pool", pool)))
	}
}
