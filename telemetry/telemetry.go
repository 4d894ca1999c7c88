// Package telemetry wires OpenTelemetry tracing and metrics. Metrics are
// exported through the Prometheus registry served at /metrics.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gitlab.com/linkinlog/queueMirror/env"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var (
	peersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "queuemirror_peers",
		Help: "Producer connections reported by the server",
	})

	connectedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "queuemirror_connected",
		Help: "1 while a mirror session is connected",
	})
)

func SetPeers(n int) {
	peersGauge.Set(float64(n))
}

func SetConnected(connected bool) {
	if connected {
		connectedGauge.Set(1)
		return
	}
	connectedGauge.Set(0)
}

// Handler serves the default Prometheus registry, which also carries the
// OpenTelemetry instruments once Setup has run.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Setup installs the global meter provider and, when tracing is on, a
// tracer provider exporting over OTLP/gRPC. The returned func flushes and
// stops both.
func Setup(ctx context.Context, tracing bool) (func(context.Context) error, error) {
	res := resource.NewSchemaless(attribute.String("service.name", env.ServiceName()))

	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	shutdowns := []func(context.Context) error{mp.Shutdown}

	if tracing {
		traceExporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(env.OTLPEndpoint()),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("otlp exporter: %w", err), mp.Shutdown(ctx))
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, tp.Shutdown)
	}

	return func(ctx context.Context) error {
		var errs []error
		for _, shutdown := range shutdowns {
			errs = append(errs, shutdown(ctx))
		}
		return errors.Join(errs...)
	}, nil
}
