package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestNoop(t *testing.T) {
	o := NewNoop()
	assert.NotPanics(t, func() {
		ctx, span := o.StartSpan(context.Background(), "submission.submit", attribute.String("submissionId", "abc"))
		o.RecordSubmission(ctx, "success", 120*time.Millisecond)
		o.RecordRelayCall(ctx, "administrators", "delivered", 80*time.Millisecond)
		span.End()
		o.Shutdown()
	})
}

func TestNew_WithoutTracingExporter(t *testing.T) {
	o := New(Options{ServiceName: "form-coopecobana"})
	t.Cleanup(o.Shutdown)

	require.NotNil(t, o.meterProvider)
	assert.Nil(t, o.tracerProvider)
	assert.NotNil(t, o.submissionCounter)

	assert.NotPanics(t, func() {
		ctx, span := o.StartSpan(context.Background(), "notifier.confirmant")
		o.RecordSubmission(ctx, "closed", time.Millisecond)
		o.RecordRelayCall(ctx, "confirmant", "failed", time.Second)
		span.End()
	})
}
