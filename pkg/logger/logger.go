package logger

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/xiebiao/storefront/pkg/tracing"
)

// Options 日志配置
type Options struct {
	Level        string // debug | info | warn | error
	Format       string // text | json
	Output       string // stdout | stderr | /path/to/file
	EnableCaller bool
}

// New 创建logrus日志实例
// 设计说明：
// 1. 生产环境使用JSON格式，方便日志采集（ELK/Loki）
// 2. 开发环境使用text格式，便于人眼阅读
// 3. Output为文件路径时以追加模式打开
func New(opts Options) (*logrus.Logger, error) {
	log := logrus.New()

	level := opts.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别: %s", opts.Level)
	}
	log.SetLevel(lvl)

	switch opts.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05.000"})
	case "", "text", "console":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.000"})
	default:
		return nil, fmt.Errorf("无效的日志格式: %s", opts.Format)
	}

	out, err := openOutput(opts.Output)
	if err != nil {
		return nil, err
	}
	log.SetOutput(out)
	log.SetReportCaller(opts.EnableCaller)

	return log, nil
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("打开日志文件失败: %w", err)
		}
		return f, nil
	}
}

// Discard 返回丢弃所有输出的日志实例（测试用）
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// WithContext 为日志附加当前Span的trace_id/span_id
// 没有活跃Span时原样返回
func WithContext(ctx context.Context, log logrus.FieldLogger) logrus.FieldLogger {
	traceID := tracing.ExtractTraceID(ctx)
	if traceID == "" {
		return log
	}
	return log.WithFields(logrus.Fields{
		"trace_id": traceID,
		"span_id":  tracing.ExtractSpanID(ctx),
	})
}
