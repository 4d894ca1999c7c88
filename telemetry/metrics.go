package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics counts what the reconciliation loop does. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	applied        metric.Int64Counter
	decodeFailures metric.Int64Counter
	outOfSync      metric.Int64Counter
	resyncs        metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	applied, err := meter.Int64Counter("queuemirror.events.applied",
		metric.WithDescription("Inbound events applied to the mirror"))
	if err != nil {
		return nil, err
	}
	decodeFailures, err := meter.Int64Counter("queuemirror.decode.failures",
		metric.WithDescription("Inbound messages dropped by the decoder"))
	if err != nil {
		return nil, err
	}
	outOfSync, err := meter.Int64Counter("queuemirror.out_of_sync",
		metric.WithDescription("Events that found the local replica out of sync"))
	if err != nil {
		return nil, err
	}
	resyncs, err := meter.Int64Counter("queuemirror.resyncs",
		metric.WithDescription("Full snapshot resyncs"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		applied:        applied,
		decodeFailures: decodeFailures,
		outOfSync:      outOfSync,
		resyncs:        resyncs,
	}, nil
}

func (m *Metrics) Applied(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.applied.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) DecodeFailed(ctx context.Context) {
	if m == nil {
		return
	}
	m.decodeFailures.Add(ctx, 1)
}

func (m *Metrics) OutOfSync(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.outOfSync.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (m *Metrics) Resynced(ctx context.Context) {
	if m == nil {
		return
	}
	m.resyncs.Add(ctx, 1)
}
