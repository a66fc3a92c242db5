package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useRecorder 安装一个把结束的Span记录在内存里的TracerProvider
func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

// TestInitTracer exporter为惰性连接，没有collector也能初始化成功
func TestInitTracer(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	shutdown, err := InitTracer(Options{ServiceName: "storefront-test", Endpoint: "localhost:4317", Insecure: true, SampleRatio: 0.5})
	if err != nil {
		t.Fatalf("初始化Tracer失败: %v", err)
	}
	_ = shutdown(context.Background())

	t.Log("✅ Tracer初始化成功")
}

func TestStartSpan(t *testing.T) {
	recorder := useRecorder(t)

	t.Run("父子Span共享TraceID", func(t *testing.T) {
		ctx, parent := StartSpan(context.Background(), "order", "PlaceOrder")
		_, child := StartSpan(ctx, "inventory", "Reserve")
		child.End()
		parent.End()

		if parent.SpanContext().TraceID() != child.SpanContext().TraceID() {
			t.Error("子Span的TraceID应与父Span一致")
		}
		if parent.SpanContext().SpanID() == child.SpanContext().SpanID() {
			t.Error("子Span应有独立的SpanID")
		}
	})

	if got := len(recorder.Ended()); got != 2 {
		t.Errorf("期望记录2个Span，实际%d个", got)
	}
}

func TestEndSpan(t *testing.T) {
	recorder := useRecorder(t)

	_, okSpan := StartSpan(context.Background(), "order", "Success")
	EndSpan(okSpan, nil)

	_, failSpan := StartSpan(context.Background(), "order", "Failure")
	EndSpan(failSpan, errors.New("库存不足"))

	ended := recorder.Ended()
	if len(ended) != 2 {
		t.Fatalf("期望2个Span，实际%d个", len(ended))
	}
	if ended[0].Status().Code != codes.Ok {
		t.Errorf("成功Span状态错误: %v", ended[0].Status().Code)
	}
	if ended[1].Status().Code != codes.Error {
		t.Errorf("失败Span状态错误: %v", ended[1].Status().Code)
	}
	if len(ended[1].Events()) == 0 {
		t.Error("失败Span应记录error事件")
	}
}

func TestExtractIDs(t *testing.T) {
	useRecorder(t)

	t.Run("有效Context", func(t *testing.T) {
		ctx, span := StartSpan(context.Background(), "order", "Extract")
		defer span.End()

		if got := ExtractTraceID(ctx); len(got) != 32 {
			t.Errorf("TraceID长度错误: %q", got)
		}
		if got := ExtractSpanID(ctx); len(got) != 16 {
			t.Errorf("SpanID长度错误: %q", got)
		}
	})

	t.Run("无Span的Context", func(t *testing.T) {
		if got := ExtractTraceID(context.Background()); got != "" {
			t.Errorf("期望空字符串，实际: %s", got)
		}
		if got := ExtractSpanID(context.Background()); got != "" {
			t.Errorf("期望空字符串，实际: %s", got)
		}
	})
}
