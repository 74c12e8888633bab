package tracing

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const kafkaTracerName = "ruleflow-kafka"

// InjectTraceContext appends the propagation fields of ctx to headers,
// replacing any header with the same key.
func InjectTraceContext(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	out := make([]kafka.Header, 0, len(headers)+len(carrier))
	for _, h := range headers {
		if _, replaced := carrier[h.Key]; !replaced {
			out = append(out, h)
		}
	}
	for k, v := range carrier {
		out = append(out, kafka.Header{Key: k, Value: []byte(v)})
	}
	return out
}

// ExtractTraceContext returns ctx carrying the remote span found in headers.
// The first occurrence of a key wins.
func ExtractTraceContext(ctx context.Context, headers []kafka.Header) context.Context {
	carrier := make(propagation.MapCarrier, len(headers))
	for _, h := range headers {
		if _, seen := carrier[h.Key]; !seen {
			carrier[h.Key] = string(h.Value)
		}
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// StartConsumerSpan starts a consumer span for m, parented on the producer's
// span when the message carries one.
func StartConsumerSpan(ctx context.Context, m kafka.Message) (context.Context, trace.Span) {
	ctx = ExtractTraceContext(ctx, m.Headers)
	return GetTracer(kafkaTracerName).Start(ctx, "kafka.consume "+m.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", m.Topic),
			attribute.Int("messaging.kafka.partition", m.Partition),
			attribute.Int64("messaging.kafka.offset", m.Offset),
		),
	)
}
