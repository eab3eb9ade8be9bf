package metrics

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFarmMetricsRecordOperations(t *testing.T) {
	m := Farm()
	before := testutil.ToFloat64(m.operations.WithLabelValues("deposit", "error"))
	m.ObserveOperation("deposit", errors.New("boom"))
	m.ObserveOperation("deposit", nil)
	if got := testutil.ToFloat64(m.operations.WithLabelValues("deposit", "error")); got != before+1 {
		t.Fatalf("error count = %v, want %v", got, before+1)
	}

	m.SetTotalMinted(big.NewInt(1234))
	if got := testutil.ToFloat64(m.totalMinted); got != 1234 {
		t.Fatalf("total minted = %v, want 1234", got)
	}
	m.SetPoolCount(3)
	if got := testutil.ToFloat64(m.poolCount); got != 3 {
		t.Fatalf("pool count = %v, want 3", got)
	}
	m.RecordShortfall("")
	var sample dto.Metric
	if err := m.shortfalls.WithLabelValues("unknown").Write(&sample); err != nil {
		t.Fatalf("read shortfall counter: %v", err)
	}
	if sample.GetCounter().GetValue() < 1 {
		t.Fatalf("shortfall not recorded")
	}
	if len(sample.GetLabel()) != 1 || sample.GetLabel()[0].GetValue() != "unknown" {
		t.Fatalf("unexpected shortfall labels: %v", sample.GetLabel())
	}

	var nilMetrics *FarmMetrics
	nilMetrics.ObserveOperation("deposit", nil)
}

func TestFarmMetricsExportOverOTLP(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	previous := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(previous)
		_ = provider.Shutdown(context.Background())
	})

	m := &FarmMetrics{}
	m.initMeter()
	m.opCounter.Add(context.Background(), 2)
	m.shortfallCounter.Add(context.Background(), 1)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	totals := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		if scope.Scope.Name != meterName {
			continue
		}
		for _, metric := range scope.Metrics {
			sum, ok := metric.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, point := range sum.DataPoints {
				totals[metric.Name] += point.Value
			}
		}
	}
	if totals["farm.operations"] != 2 || totals["farm.payout_shortfalls"] != 1 {
		t.Fatalf("unexpected OTLP totals: %v", totals)
	}
}
