package session

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/mpapenbr/f1-race-engineer/log"
	"github.com/mpapenbr/f1-race-engineer/pkg/packet"
)

type metrics struct {
	datagrams    metric.Int64Counter
	bytes        metric.Int64Counter
	readErrors   metric.Int64Counter
	queueDrops   metric.Int64Counter
	decodeErrors metric.Int64Counter
	stale        metric.Int64Counter
	events       metric.Int64Counter
	outputDrops  metric.Int64Counter
}

func newMetrics(l *log.Logger) *metrics {
	meter := otel.GetMeterProvider().Meter("fre.session")
	fallback := noop.NewMeterProvider().Meter("fre.session")
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name,
			metric.WithDescription(desc), metric.WithUnit("{count}"))
		if err != nil {
			l.Error("failed to register metric",
				log.String("metric", name), log.ErrorField(err))
			c, _ = fallback.Int64Counter(name)
		}
		return c
	}
	return &metrics{
		datagrams:    counter("fre.udp.datagrams", "Number of received datagrams"),
		bytes:        counter("fre.udp.bytes", "Number of received bytes"),
		readErrors:   counter("fre.udp.read_errors", "Number of failed socket reads"),
		queueDrops:   counter("fre.queue.drops", "Datagrams dropped by the full queue"),
		decodeErrors: counter("fre.decode.errors", "Datagrams failing to decode"),
		stale:        counter("fre.packets.dropped", "Packets ignored by the aggregator"),
		events:       counter("fre.events", "Number of emitted events"),
		outputDrops:  counter("fre.output.drops", "Outputs dropped because consumers lag"),
	}
}

// AddDatagram and AddReadError implement network.Stats
func (m *metrics) AddDatagram(n int) {
	m.datagrams.Add(context.Background(), 1)
	m.bytes.Add(context.Background(), int64(n))
}

func (m *metrics) AddReadError() {
	m.readErrors.Add(context.Background(), 1)
}

func (m *metrics) decodeError(reason string) {
	m.decodeErrors.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *metrics) dropped(k packet.Kind) {
	m.stale.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("kind", k.String())))
}

func (m *metrics) event(rule string) {
	m.events.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("rule", rule)))
}

func (m *metrics) outputDropped(output string) {
	m.outputDrops.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("output", output)))
}
